package dedup

import (
	"log"

	"ingest-stack/internal/models"
)

// Filter drops candidates whose canonical watch URL is already in the known
// set. Accepted candidates are added to the set immediately, so repeats
// within one batch collapse to the first occurrence. The relative order of
// kept candidates is preserved.
type Filter struct {
	enabled bool
}

func NewFilter(enabled bool) *Filter {
	return &Filter{enabled: enabled}
}

// Apply filters one batch of candidates against known. When the filter is
// disabled it passes the batch through unchanged and leaves known untouched.
func (f *Filter) Apply(candidates []*models.Video, known models.URLSet) []*models.Video {
	if !f.enabled {
		return candidates
	}

	kept := make([]*models.Video, 0, len(candidates))
	for _, video := range candidates {
		url := video.WatchURL()
		if known.Contains(url) {
			continue
		}
		known.Add(url)
		kept = append(kept, video)
	}

	if dropped := len(candidates) - len(kept); dropped > 0 {
		log.Printf("Filtered %d already-known videos from a batch of %d", dropped, len(candidates))
	}

	return kept
}
