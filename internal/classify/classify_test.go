package classify

import (
	"testing"

	"indiehub/pkg/models"
)

func testRules() Rules {
	return Rules{
		IndieCategories:   []string{"indie"},
		IndieMarkers:      []string{"indie"},
		IndieKeywords:     []string{"pixel", "roguelike"},
		PublisherDenylist: []string{"ea", "electronic arts", "ubisoft"},
		AdultKeywords:     []string{"porn", "hentai", "sexual content", "nudity", "nsfw"},
		SafeAllowlist:     []string{"555"},
	}
}

func TestDenylistVetoBeatsIndieTags(t *testing.T) {
	c := New(testRules())

	rec := &models.GameCandidate{
		Name:       "Big Budget Platformer",
		Tags:       []string{"Indie", "Pixel Graphics"},
		Publishers: []string{"Acme EA"},
	}

	v := c.Classify(rec)
	if v.IsIndie {
		t.Fatalf("expected denylist veto, got indie verdict: %+v", v)
	}
}

func TestDenylistWordMatchNotSubstring(t *testing.T) {
	c := New(testRules())

	// "Team17" contains the letters "ea" but is not the publisher EA.
	rec := &models.GameCandidate{
		Name:       "Worms Thing",
		Tags:       []string{"Indie"},
		Publishers: []string{"Team17"},
	}
	if v := c.Classify(rec); !v.IsIndie {
		t.Fatalf("Team17 must not trip the EA denylist entry: %+v", v)
	}

	rec.Publishers = []string{"Electronic Arts"}
	if v := c.Classify(rec); v.IsIndie {
		t.Fatalf("full-name denylist entry must veto: %+v", v)
	}
}

func TestSeedCategoryCountsAsIndieSignal(t *testing.T) {
	c := New(testRules())

	rec := &models.GameCandidate{
		Name:     "Quiet Farming Game",
		Category: "indie",
	}
	if v := c.Classify(rec); !v.IsIndie {
		t.Fatalf("seed category alone should qualify: %+v", v)
	}
}

func TestIndieKeywordInTag(t *testing.T) {
	c := New(testRules())

	rec := &models.GameCandidate{
		Name: "Dungeon Crawl",
		Tags: []string{"Roguelike Deckbuilder"},
	}
	if v := c.Classify(rec); !v.IsIndie {
		t.Fatalf("keyword inside tag should qualify: %+v", v)
	}
}

func TestNoSignalsMeansNotIndie(t *testing.T) {
	c := New(testRules())

	rec := &models.GameCandidate{
		Name:   "AAA Shooter",
		Tags:   []string{"Action", "FPS"},
		Genres: []string{"Action"},
	}
	if v := c.Classify(rec); v.IsIndie {
		t.Fatalf("no signals should mean not indie: %+v", v)
	}
}

func TestAdultKeywordInTitleExcludes(t *testing.T) {
	c := New(testRules())

	rec := &models.GameCandidate{
		Name:     "Super Porn Adventure",
		Category: "indie",
	}
	v := c.Classify(rec)
	if !v.Excluded {
		t.Fatalf("single title hit must exclude: %+v", v)
	}
}

func TestSingleBodyKeywordIsNotEnough(t *testing.T) {
	c := New(testRules())

	rec := &models.GameCandidate{
		Name:        "Art House Story",
		Category:    "indie",
		Description: "A mature drama that briefly features nudity in one scene.",
	}
	v := c.Classify(rec)
	if v.Excluded {
		t.Fatalf("one body keyword must not exclude: %+v", v)
	}
}

func TestTwoDistinctBodyKeywordsExclude(t *testing.T) {
	c := New(testRules())

	rec := &models.GameCandidate{
		Name:        "Anime Visual Novel",
		Category:    "indie",
		Description: "Contains nudity.",
		Tags:        []string{"NSFW"},
	}
	v := c.Classify(rec)
	if !v.Excluded {
		t.Fatalf("two distinct body keywords must exclude: %+v", v)
	}
}

func TestAllowlistBypassesExclusion(t *testing.T) {
	c := New(testRules())

	rec := &models.GameCandidate{
		SourceID:    "555",
		Name:        "Mature Narrative Game",
		Category:    "indie",
		Description: "sexual content and nudity are discussed",
	}
	v := c.Classify(rec)
	if v.Excluded {
		t.Fatalf("allowlisted source must bypass exclusion: %+v", v)
	}
	if !v.IsIndie {
		t.Fatalf("allowlist must not affect indie verdict: %+v", v)
	}
}

func TestClassifyIsPure(t *testing.T) {
	c := New(testRules())

	rec := &models.GameCandidate{
		Name:       "Pixel Quest",
		Tags:       []string{"Pixel Graphics"},
		Publishers: []string{"Tiny Studio"},
	}
	first := c.Classify(rec)
	second := c.Classify(rec)

	if first.IsIndie != second.IsIndie || first.Excluded != second.Excluded {
		t.Fatalf("same input produced different verdicts: %+v vs %+v", first, second)
	}
}
