package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"indiehub/pkg/database"
)

func main() {
	var (
		gamesOut   = flag.String("games", "data/games.csv", "output CSV path for games")
		reviewsOut = flag.String("reviews", "data/reviews.csv", "output CSV path for reviews")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := exportGames(ctx, db, *gamesOut); err != nil {
		log.Fatalf("export games failed: %v", err)
	}
	if err := exportReviews(ctx, db, *reviewsOut); err != nil {
		log.Fatalf("export reviews failed: %v", err)
	}

	log.Printf("✅ exported games to %s and reviews to %s", *gamesOut, *reviewsOut)
}

func exportGames(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "source_id", "name", "url", "price", "description", "genres", "tags", "developers", "publishers", "image_url", "ingested_at"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT id, source_id, name, url, price, description, genres, tags, developers, publishers, image_url, ingested_at
        FROM games
        ORDER BY name
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id          string
			sourceID    sql.NullString
			name        string
			pageURL     string
			price       sql.NullFloat64
			description sql.NullString
			genres      string
			tags        string
			developers  string
			publishers  string
			imageURL    sql.NullString
			ingestedAt  sql.NullTime
		)

		if err := rows.Scan(&id, &sourceID, &name, &pageURL, &price, &description, &genres, &tags, &developers, &publishers, &imageURL, &ingestedAt); err != nil {
			return err
		}

		priceStr := ""
		if price.Valid {
			priceStr = strconv.FormatFloat(price.Float64, 'f', 2, 64)
		}

		ingested := ""
		if ingestedAt.Valid {
			ingested = ingestedAt.Time.Format(time.RFC3339)
		}

		if err := w.Write([]string{
			id,
			sourceID.String,
			name,
			pageURL,
			priceStr,
			description.String,
			genres,
			tags,
			developers,
			publishers,
			imageURL.String,
			ingested,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func exportReviews(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "user_id", "game_id", "rating", "comment", "created_at"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT id, user_id, game_id, rating, comment, created_at
        FROM reviews
        ORDER BY created_at DESC
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id        string
			userID    string
			gameID    string
			rating    int
			comment   sql.NullString
			createdAt sql.NullTime
		)

		if err := rows.Scan(&id, &userID, &gameID, &rating, &comment, &createdAt); err != nil {
			return err
		}

		created := ""
		if createdAt.Valid {
			created = createdAt.Time.Format(time.RFC3339)
		}

		if err := w.Write([]string{
			id,
			userID,
			gameID,
			strconv.Itoa(rating),
			comment.String,
			created,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}
