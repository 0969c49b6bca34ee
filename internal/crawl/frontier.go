package crawl

import (
	"sync"

	"indiehub/internal/extract"
)

// frontier is the run-scoped crawl state: which normalized URLs were
// already requested this run, how many candidates were emitted toward
// the global cutoff, and which targets were abandoned after retries.
// There is deliberately no package-level state; each run owns its own
// frontier.
type frontier struct {
	mu            sync.Mutex
	seen          map[string]struct{}
	emitted       int
	maxCandidates int
	failures      []string
}

func newFrontier(maxCandidates int) *frontier {
	return &frontier{
		seen:          make(map[string]struct{}),
		maxCandidates: maxCandidates,
	}
}

// admit normalizes a fetch target and claims it for this run. Returns
// the normalized URL and false when the target was already requested
// (or is not a usable URL at all).
func (f *frontier) admit(rawURL string) (string, bool) {
	norm, err := extract.NormalizeURL(rawURL)
	if err != nil {
		return "", false
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, dup := f.seen[norm]; dup {
		return norm, false
	}
	f.seen[norm] = struct{}{}
	return norm, true
}

// countEmitted registers one emitted detail target toward the global
// candidate cutoff.
func (f *frontier) countEmitted() {
	f.mu.Lock()
	f.emitted++
	f.mu.Unlock()
}

// cutoffReached reports whether the run may still request new listing
// pages. In-flight detail fetches are unaffected and drain normally.
func (f *frontier) cutoffReached() bool {
	if f.maxCandidates <= 0 {
		return false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.emitted >= f.maxCandidates
}

// recordFailure remembers a target abandoned after exhausting retries.
// Failures are reported at run end, never raised mid-run.
func (f *frontier) recordFailure(url string) {
	f.mu.Lock()
	f.failures = append(f.failures, url)
	f.mu.Unlock()
}

func (f *frontier) failed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.failures))
	copy(out, f.failures)
	return out
}
