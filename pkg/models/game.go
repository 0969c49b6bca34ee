package models

// GameCandidate is the normalized, internal form of one scraped
// storefront detail page, before classification.
//
// The extractor maps raw HTML into this structure first; the classifier
// and ingest pipeline only ever see this representation.
type GameCandidate struct {
	SourceID    string   `json:"source_id"`          // site-native app id (may be empty)
	Name        string   `json:"name"`               // game title
	URL         string   `json:"url"`                // canonical URL: scheme+host+path, no query
	Price       *float64 `json:"price"`              // nil = unknown, 0 = free
	Description string   `json:"description"`        // short description snippet
	Genres      []string `json:"genres"`             // deduplicated, order-preserving
	Tags        []string `json:"tags"`               // deduplicated, order-preserving
	Developers  []string `json:"developers"`         // deduplicated, order-preserving
	Publishers  []string `json:"publishers"`         // deduplicated, order-preserving
	ImageURL    string   `json:"image_url,omitempty"`
	Category    string   `json:"category,omitempty"` // seed category this candidate was reached from
}
