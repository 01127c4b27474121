package models

import (
	"strings"
	"time"
)

const watchURLBase = "https://www.youtube.com/watch?v="

// WatchURL derives the canonical watch-page URL for a video ID. The catalog
// stores full URLs, so this is the identity used for deduplication.
func WatchURL(videoID string) string {
	return watchURLBase + videoID
}

type Video struct {
	ID                   string         `json:"id"`
	Title                string         `json:"title"`
	Description          string         `json:"description"`
	ChannelID            string         `json:"channel_id"`
	ChannelTitle         string         `json:"channel_title"`
	PublishedAt          time.Time      `json:"published_at"`
	ViewCount            uint64         `json:"view_count"`
	LikeCount            uint64         `json:"like_count"`
	CommentCount         uint64         `json:"comment_count"`
	Tags                 []string       `json:"tags,omitempty"`
	CategoryID           string         `json:"category_id,omitempty"`
	CategoryName         string         `json:"category_name,omitempty"`
	Duration             string         `json:"duration"`
	DurationSeconds      int            `json:"duration_seconds"`
	ThumbnailURL         string         `json:"thumbnail_url,omitempty"`
	Definition           string         `json:"definition,omitempty"`
	Caption              bool           `json:"caption"`
	DefaultLanguage      string         `json:"default_language,omitempty"`
	DefaultAudioLanguage string         `json:"default_audio_language,omitempty"`
	Enrichment           map[string]any `json:"enrichment,omitempty"`
}

func (v *Video) WatchURL() string {
	return WatchURL(v.ID)
}

// Submission is the JSON shape the content catalog expects. Optional fields
// are pointers without omitempty so absent values serialize as explicit
// nulls, which the catalog requires.
type Submission struct {
	Title                string  `json:"title"`
	Description          string  `json:"description"`
	URL                  string  `json:"url"`
	ChannelName          string  `json:"channelName"`
	Type                 string  `json:"type"`
	ThumbnailURL         *string `json:"thumbnailUrl"`
	CategoryID           *string `json:"categoryId"`
	CategoryName         *string `json:"categoryName"`
	Tags                 *string `json:"tags"`
	DurationSeconds      int     `json:"durationSeconds"`
	DurationISO          *string `json:"durationIso"`
	Definition           *string `json:"definition"`
	Caption              bool    `json:"caption"`
	ViewCount            uint64  `json:"viewCount"`
	LikeCount            uint64  `json:"likeCount"`
	CommentCount         uint64  `json:"commentCount"`
	DefaultLanguage      *string `json:"defaultLanguage"`
	DefaultAudioLanguage *string `json:"defaultAudioLanguage"`
	PublishedAt          *string `json:"publishedAt"`
}

// ToSubmission converts a video to the catalog wire format: camelCase keys,
// tags joined into one string, and a timezone-naive publishedAt. Enrichment
// data stays local and is never submitted.
func (v *Video) ToSubmission() *Submission {
	s := &Submission{
		Title:                v.Title,
		Description:          v.Description,
		URL:                  v.WatchURL(),
		ChannelName:          v.ChannelTitle,
		Type:                 "VIDEO",
		ThumbnailURL:         nullable(v.ThumbnailURL),
		CategoryID:           nullable(v.CategoryID),
		CategoryName:         nullable(v.CategoryName),
		DurationSeconds:      v.DurationSeconds,
		DurationISO:          nullable(v.Duration),
		Definition:           nullable(v.Definition),
		Caption:              v.Caption,
		ViewCount:            v.ViewCount,
		LikeCount:            v.LikeCount,
		CommentCount:         v.CommentCount,
		DefaultLanguage:      nullable(v.DefaultLanguage),
		DefaultAudioLanguage: nullable(v.DefaultAudioLanguage),
	}

	if len(v.Tags) > 0 {
		joined := strings.Join(v.Tags, ", ")
		s.Tags = &joined
	}
	if !v.PublishedAt.IsZero() {
		published := v.PublishedAt.UTC().Format("2006-01-02T15:04:05")
		s.PublishedAt = &published
	}

	return s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// URLSet tracks canonical URLs already present in the catalog. It only grows
// during a run; entries are never removed.
type URLSet map[string]struct{}

func NewURLSet() URLSet {
	return make(URLSet)
}

func (s URLSet) Add(url string) {
	s[url] = struct{}{}
}

func (s URLSet) Contains(url string) bool {
	_, ok := s[url]
	return ok
}

func (s URLSet) Len() int {
	return len(s)
}
