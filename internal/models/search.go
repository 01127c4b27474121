package models

import "time"

// SearchQuery describes one search against the video provider. Construct it
// once per query and treat it as read-only; the provider never mutates it.
type SearchQuery struct {
	Query             string
	MaxResults        int64
	Order             string
	PublishedAfter    *time.Time
	PublishedBefore   *time.Time
	RegionCode        string
	RelevanceLanguage string
}

// Sort orders the search API accepts.
var ValidOrders = map[string]bool{
	"relevance": true,
	"date":      true,
	"rating":    true,
	"viewCount": true,
	"title":     true,
}
