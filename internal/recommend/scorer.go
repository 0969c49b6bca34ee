package recommend

import (
	"math/rand"
	"sort"

	"indiehub/pkg/models"
)

// Genres carry more discriminative signal than tags; publishers sit in
// between. The raw sum is divided by the candidate's element count so
// tag-heavy games cannot accumulate unearned score.
const (
	tagWeight       = 1.0
	genreWeight     = 2.5
	publisherWeight = 1.5
)

type RankOptions struct {
	PriceCeiling *float64            // inclusive; nil = no ceiling
	ExcludeIDs   map[string]struct{} // typically the user's own favorites
	Limit        int                 // 0 = no truncation
	// Shuffle randomizes the pool order before scoring, so equal-score
	// ties land in random order on repeated calls. Opt-in: ranking is
	// deterministic by default.
	Shuffle bool
}

// Rank scores every candidate against the profile and returns the list
// in descending score order, truncated to Limit. Candidates above the
// price ceiling (or with unknown price when a ceiling is set) and
// candidates in ExcludeIDs never appear. Ties keep the pool's input
// order (stable sort).
func Rank(pool []models.GameDB, profile models.PreferenceProfile, opts RankOptions) []models.ScoredGame {
	filtered := make([]models.GameDB, 0, len(pool))
	for _, g := range pool {
		if _, skip := opts.ExcludeIDs[g.ID]; skip {
			continue
		}
		if opts.PriceCeiling != nil {
			if g.Price == nil || *g.Price > *opts.PriceCeiling {
				continue
			}
		}
		filtered = append(filtered, g)
	}

	if opts.Shuffle {
		rand.Shuffle(len(filtered), func(i, j int) {
			filtered[i], filtered[j] = filtered[j], filtered[i]
		})
	}

	scored := make([]models.ScoredGame, 0, len(filtered))
	for _, g := range filtered {
		scored = append(scored, models.ScoredGame{Game: g, Score: Score(g, profile)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if opts.Limit > 0 && len(scored) > opts.Limit {
		scored = scored[:opts.Limit]
	}
	return scored
}

// Score computes the length-normalized preference match for one
// candidate. An all-empty profile scores 0 for everything.
func Score(g models.GameDB, profile models.PreferenceProfile) float64 {
	elements := g.ElementCount()
	if elements == 0 {
		return 0
	}

	raw := 0.0
	for _, t := range g.Tags {
		raw += profile.TagWeight[t] * tagWeight
	}
	for _, gn := range g.Genres {
		raw += profile.GenreWeight[gn] * genreWeight
	}
	for _, p := range g.Publishers {
		raw += profile.PublisherWeight[p] * publisherWeight
	}

	return raw / float64(elements)
}
