// Package recommend derives a preference profile from a user's
// favorite games and scores catalog candidates against it. Everything
// here is read-only and side-effect-free, safe to run concurrently for
// different users.
package recommend

import "indiehub/pkg/models"

// Profile flattens every genre, tag and publisher across the favorites
// into frequency counters and normalizes each counter by its own total,
// so each non-empty weight map sums to 1.0.
//
// An empty favorite set produces an empty profile, not an error:
// "no preference signal" is a state callers must handle explicitly.
func Profile(favorites []models.GameDB) models.PreferenceProfile {
	if len(favorites) == 0 {
		return models.PreferenceProfile{}
	}

	genres := make(map[string]int)
	tags := make(map[string]int)
	publishers := make(map[string]int)

	for _, g := range favorites {
		for _, v := range g.Genres {
			genres[v]++
		}
		for _, v := range g.Tags {
			tags[v]++
		}
		for _, v := range g.Publishers {
			publishers[v]++
		}
	}

	return models.PreferenceProfile{
		GenreWeight:     normalize(genres),
		TagWeight:       normalize(tags),
		PublisherWeight: normalize(publishers),
	}
}

func normalize(counts map[string]int) map[string]float64 {
	if len(counts) == 0 {
		return nil
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	out := make(map[string]float64, len(counts))
	for k, n := range counts {
		out[k] = float64(n) / float64(total)
	}
	return out
}
