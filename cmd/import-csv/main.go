package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"indiehub/pkg/database"
)

func main() {
	var (
		gamesIn   = flag.String("games", "data/games.csv", "input CSV path for games")
		reviewsIn = flag.String("reviews", "data/reviews.csv", "input CSV path for reviews")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := importGames(ctx, db, *gamesIn); err != nil {
		log.Fatalf("import games failed: %v", err)
	}
	if err := importReviews(ctx, db, *reviewsIn); err != nil {
		log.Fatalf("import reviews failed: %v", err)
	}

	log.Printf("✅ imported games from %s and reviews from %s", *gamesIn, *reviewsIn)
}

func importGames(ctx context.Context, db *sql.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return err
	}

	stmt, err := db.PrepareContext(ctx, `
		INSERT INTO games (id, source_id, name, url, price, description, genres, tags, developers, publishers, image_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
		  source_id = excluded.source_id,
		  name = excluded.name,
		  url = excluded.url,
		  price = excluded.price,
		  description = excluded.description,
		  genres = excluded.genres,
		  tags = excluded.tags,
		  developers = excluded.developers,
		  publishers = excluded.publishers,
		  image_url = excluded.image_url
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(row) == 0 {
			continue
		}

		id := valueAt(header, row, "id")
		name := valueAt(header, row, "name")
		pageURL := valueAt(header, row, "url")
		if id == "" || name == "" || pageURL == "" {
			continue
		}

		price, err := parseNullFloat(valueAt(header, row, "price"))
		if err != nil {
			return fmt.Errorf("parse price for %s: %w", id, err)
		}

		if _, err := stmt.ExecContext(
			ctx,
			id,
			nullString(valueAt(header, row, "source_id")),
			name,
			pageURL,
			price,
			nullString(valueAt(header, row, "description")),
			jsonOrEmpty(valueAt(header, row, "genres")),
			jsonOrEmpty(valueAt(header, row, "tags")),
			jsonOrEmpty(valueAt(header, row, "developers")),
			jsonOrEmpty(valueAt(header, row, "publishers")),
			nullString(valueAt(header, row, "image_url")),
		); err != nil {
			return err
		}
	}

	return nil
}

func importReviews(ctx context.Context, db *sql.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return err
	}

	stmt, err := db.PrepareContext(ctx, `
		INSERT INTO reviews (id, user_id, game_id, rating, comment)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, game_id) DO UPDATE SET
			rating = excluded.rating,
			comment = excluded.comment
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(row) == 0 {
			continue
		}

		id := valueAt(header, row, "id")
		userID := valueAt(header, row, "user_id")
		gameID := valueAt(header, row, "game_id")
		if id == "" || userID == "" || gameID == "" {
			continue
		}

		rating, err := strconv.Atoi(valueAt(header, row, "rating"))
		if err != nil {
			return fmt.Errorf("parse rating for %s/%s: %w", userID, gameID, err)
		}
		if rating < 1 || rating > 5 {
			continue
		}

		if _, err := stmt.ExecContext(
			ctx,
			id,
			userID,
			gameID,
			rating,
			nullString(valueAt(header, row, "comment")),
		); err != nil {
			return err
		}
	}

	return nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseNullFloat(raw string) (sql.NullFloat64, error) {
	if raw == "" {
		return sql.NullFloat64{}, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return sql.NullFloat64{}, err
	}
	return sql.NullFloat64{Float64: v, Valid: true}, nil
}

// jsonOrEmpty keeps set columns valid JSON arrays even when the CSV
// cell is blank.
func jsonOrEmpty(raw string) string {
	if raw == "" {
		return "[]"
	}
	return raw
}

func nullString(raw string) sql.NullString {
	if raw == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: raw, Valid: true}
}
