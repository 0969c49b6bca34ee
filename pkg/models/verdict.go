package models

// Verdict is the classifier's decision for one candidate. Reasons are
// human-readable audit strings naming each rule that fired.
type Verdict struct {
	IsIndie  bool     `json:"is_indie"`
	Excluded bool     `json:"excluded"`
	Reasons  []string `json:"reasons,omitempty"`
}

// Accepted reports whether the candidate may enter the catalog.
func (v Verdict) Accepted() bool {
	return v.IsIndie && !v.Excluded
}
