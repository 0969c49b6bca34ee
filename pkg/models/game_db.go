package models

import "time"

// GameDB mirrors one row of the `games` table (the persistent catalog).
// Every entry in the catalog is an accepted indie title; non-indie and
// excluded candidates never reach storage.
type GameDB struct {
	ID          string    `json:"id"` // storage-assigned UUID
	SourceID    string    `json:"source_id,omitempty"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	Price       *float64  `json:"price"`
	Description string    `json:"description,omitempty"`
	Genres      []string  `json:"genres"`
	Tags        []string  `json:"tags"`
	Developers  []string  `json:"developers,omitempty"`
	Publishers  []string  `json:"publishers,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	IsIndie     bool      `json:"is_indie"`
	IngestedAt  time.Time `json:"ingested_at"`
}

// ElementCount is the total number of tag/genre/publisher entries,
// used by the scorer for length-normalization.
func (g GameDB) ElementCount() int {
	return len(g.Tags) + len(g.Genres) + len(g.Publishers)
}
