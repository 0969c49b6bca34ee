package classify

// Rules is the injected configuration the classifier evaluates. Tests
// build small fixed rule sets; production wiring starts from
// DefaultRules. Keyword matching is case-insensitive throughout.
type Rules struct {
	// Seed category names whose listings count as an indie signal.
	IndieCategories []string
	// Tag/genre values that mark a title as indie outright.
	IndieMarkers []string
	// Substrings that, found inside any tag, count as an indie signal.
	IndieKeywords []string
	// Major publishers/developers. Matching any of these is a hard
	// veto on indie qualification, regardless of other signals.
	PublisherDenylist []string
	// Explicit sexual-content markers. One hit in the title excludes;
	// the description/tag body needs two distinct hits.
	AdultKeywords []string
	// Source IDs that bypass content exclusion unconditionally.
	SafeAllowlist []string
}

// DefaultRules mirrors the storefront-facing lists the crawler shipped
// with: the indie tag family, a handful of indie-scene tag keywords,
// the big-publisher veto list and the adult-content markers.
func DefaultRules() Rules {
	return Rules{
		IndieCategories: []string{"indie"},
		IndieMarkers:    []string{"indie"},
		IndieKeywords: []string{
			"solo developer",
			"pixel",
			"roguelike",
			"roguelite",
			"metroidvania",
			"game jam",
		},
		PublisherDenylist: []string{
			"ea",
			"electronic arts",
			"ubisoft",
			"activision",
			"blizzard",
			"bethesda",
			"square enix",
			"rockstar games",
			"2k",
			"capcom",
			"sega",
			"bandai namco",
			"konami",
			"sony interactive entertainment",
			"xbox game studios",
			"nintendo",
		},
		AdultKeywords: []string{
			"porn",
			"hentai",
			"sexual content",
			"nudity",
			"nsfw",
			"eroge",
			"adult only",
			"18+",
		},
	}
}
