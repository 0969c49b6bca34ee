package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"indiehub/pkg/database"
)

// MirrorGame is the on-disk shape consumed by cmd/mirror-server, which
// replays these entries as storefront pages for demo-safe crawls.
type MirrorGame struct {
	Slug        string   `json:"slug"`
	SourceID    string   `json:"source_id"`
	Name        string   `json:"name"`
	Price       *float64 `json:"price"`
	Description string   `json:"description"`
	Genres      []string `json:"genres"`
	Tags        []string `json:"tags"`
	Developers  []string `json:"developers"`
	Publishers  []string `json:"publishers"`
	ImageURL    string   `json:"image_url"`
}

func main() {
	var (
		outPath = flag.String("out", "data/mirror.json", "output JSON path")
		limit   = flag.Int("limit", 200, "how many games to export")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT id, source_id, name, price, description, genres, tags, developers, publishers, image_url
		FROM games
		ORDER BY name
		LIMIT ?
	`, *limit)
	if err != nil {
		log.Fatalf("query failed: %v", err)
	}
	defer rows.Close()

	var out []MirrorGame
	for rows.Next() {
		var (
			id       string
			sourceID sql.NullString
			name     string
			price    sql.NullFloat64
			desc     sql.NullString
			genres   string
			tags     string
			devs     string
			pubs     string
			imageURL sql.NullString
		)

		if err := rows.Scan(&id, &sourceID, &name, &price, &desc, &genres, &tags, &devs, &pubs, &imageURL); err != nil {
			log.Fatalf("scan failed: %v", err)
		}

		g := MirrorGame{
			Slug:        toSlug(id, name),
			SourceID:    sourceID.String,
			Name:        name,
			Description: desc.String,
			ImageURL:    imageURL.String,
		}
		if price.Valid {
			v := price.Float64
			g.Price = &v
		}
		_ = json.Unmarshal([]byte(genres), &g.Genres)
		_ = json.Unmarshal([]byte(tags), &g.Tags)
		_ = json.Unmarshal([]byte(devs), &g.Developers)
		_ = json.Unmarshal([]byte(pubs), &g.Publishers)

		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("rows error: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		log.Fatalf("mkdir failed: %v", err)
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatalf("marshal failed: %v", err)
	}

	if err := os.WriteFile(*outPath, b, 0o644); err != nil {
		log.Fatalf("write failed: %v", err)
	}

	log.Printf("✅ exported %d games to %s", len(out), *outPath)
}

func toSlug(id, name string) string {
	// Catalog ids are UUIDs; a name-based slug reads better in mirror URLs.
	if looksLikeUUID(id) {
		return slugify(name)
	}
	return slugify(id)
}

func looksLikeUUID(s string) bool {
	// quick heuristic; good enough for this tool
	return len(s) >= 32 && strings.Count(s, "-") >= 3
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastDash := false
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastDash = false
		} else {
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		out = "untitled"
	}
	return out
}
