// Package classify decides whether a candidate record qualifies as
// indie and whether it must be excluded for adult content. The verdict
// is a pure function of the record and the injected rules: no I/O, no
// hidden state, identical input gives identical output.
package classify

import (
	"fmt"
	"strings"

	"indiehub/pkg/models"
)

type Classifier struct {
	indieCategories map[string]struct{}
	indieMarkers    map[string]struct{}
	indieKeywords   []string
	denylist        map[string]struct{}
	adultKeywords   []string
	allowlist       map[string]struct{}
}

func New(rules Rules) *Classifier {
	return &Classifier{
		indieCategories: lowerSet(rules.IndieCategories),
		indieMarkers:    lowerSet(rules.IndieMarkers),
		indieKeywords:   lowerAll(rules.IndieKeywords),
		denylist:        lowerSet(rules.PublisherDenylist),
		adultKeywords:   lowerAll(rules.AdultKeywords),
		allowlist:       lowerSet(rules.SafeAllowlist),
	}
}

// Classify evaluates both rule families and returns the verdict with
// one audit reason per rule that fired.
func (c *Classifier) Classify(rec *models.GameCandidate) models.Verdict {
	var v models.Verdict

	v.IsIndie, v.Reasons = c.classifyIndie(rec, v.Reasons)
	v.Excluded, v.Reasons = c.classifyContent(rec, v.Reasons)

	return v
}

func (c *Classifier) classifyIndie(rec *models.GameCandidate, reasons []string) (bool, []string) {
	// The denylist is a hard veto: a major publisher anywhere in the
	// credits disqualifies the title no matter what the tags say.
	for _, name := range append(append([]string{}, rec.Developers...), rec.Publishers...) {
		if hit, ok := c.denylisted(name); ok {
			reasons = append(reasons, fmt.Sprintf("denylist veto: %q matches major publisher %q", name, hit))
			return false, reasons
		}
	}

	indie := false

	if _, ok := c.indieCategories[strings.ToLower(rec.Category)]; ok && rec.Category != "" {
		indie = true
		reasons = append(reasons, fmt.Sprintf("seed category %q is indie", rec.Category))
	}

	for _, t := range append(append([]string{}, rec.Tags...), rec.Genres...) {
		if _, ok := c.indieMarkers[strings.ToLower(t)]; ok {
			indie = true
			reasons = append(reasons, fmt.Sprintf("indie marker tag/genre %q", t))
			break
		}
	}

	for _, t := range rec.Tags {
		lt := strings.ToLower(t)
		for _, kw := range c.indieKeywords {
			if strings.Contains(lt, kw) {
				indie = true
				reasons = append(reasons, fmt.Sprintf("indie keyword %q in tag %q", kw, t))
				break
			}
		}
		if indie {
			break
		}
	}

	return indie, reasons
}

func (c *Classifier) classifyContent(rec *models.GameCandidate, reasons []string) (bool, []string) {
	if _, ok := c.allowlist[strings.ToLower(rec.SourceID)]; ok && rec.SourceID != "" {
		reasons = append(reasons, fmt.Sprintf("source %s allowlisted, exclusion bypassed", rec.SourceID))
		return false, reasons
	}

	// One hit in the title is decisive on its own.
	title := strings.ToLower(rec.Name)
	for _, kw := range c.adultKeywords {
		if strings.Contains(title, kw) {
			reasons = append(reasons, fmt.Sprintf("adult keyword %q in title", kw))
			return true, reasons
		}
	}

	// Free text needs at least two distinct keywords: a single stray
	// "nudity" in a long description is not enough to drop the title.
	body := strings.ToLower(rec.Description + " " + strings.Join(rec.Tags, " "))
	var hits []string
	for _, kw := range c.adultKeywords {
		if strings.Contains(body, kw) {
			hits = append(hits, kw)
		}
	}
	if len(hits) >= 2 {
		reasons = append(reasons, fmt.Sprintf("adult keywords %v in description/tags", hits))
		return true, reasons
	}

	return false, reasons
}

// denylisted matches a developer/publisher name against the denylist:
// the whole name exactly, or any single word of it. Word-level matching
// is what lets "ea" catch "Acme EA" without substring false hits like
// "Team17" matching "ea".
func (c *Classifier) denylisted(name string) (string, bool) {
	ln := strings.ToLower(strings.TrimSpace(name))
	if ln == "" {
		return "", false
	}
	if _, ok := c.denylist[ln]; ok {
		return ln, true
	}
	for _, w := range strings.FieldsFunc(ln, func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9' || r == '+')
	}) {
		if _, ok := c.denylist[w]; ok {
			return w, true
		}
	}
	return "", false
}

func lowerSet(in []string) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out[s] = struct{}{}
		}
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
