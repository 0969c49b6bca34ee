package models

// PreferenceProfile holds frequency-normalized weights derived from a
// user's favorite games. Each non-empty map sums to 1.0.
type PreferenceProfile struct {
	GenreWeight     map[string]float64 `json:"genre_weight"`
	TagWeight       map[string]float64 `json:"tag_weight"`
	PublisherWeight map[string]float64 `json:"publisher_weight"`
}

// Empty reports whether the profile carries no preference signal at all
// (the "user has no favorites" case callers must handle explicitly).
func (p PreferenceProfile) Empty() bool {
	return len(p.GenreWeight) == 0 && len(p.TagWeight) == 0 && len(p.PublisherWeight) == 0
}

// ScoredGame pairs a catalog entry with its recommendation score.
type ScoredGame struct {
	Game  GameDB  `json:"game"`
	Score float64 `json:"score"`
}
