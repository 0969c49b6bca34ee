// Package reviews stores user ratings for catalog games and derives the
// hidden-gems view from them.
package reviews

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"indiehub/internal/catalog"
	"indiehub/pkg/models"
)

type Repo struct {
	DB      *sql.DB
	Catalog *catalog.Repo
}

func NewRepo(db *sql.DB, catalogRepo *catalog.Repo) *Repo {
	return &Repo{DB: db, Catalog: catalogRepo}
}

// Upsert writes the user's review for a game. One review per user per
// game: a second submission replaces the first.
func (r *Repo) Upsert(ctx context.Context, userID, gameID string, rating int, comment string) (*models.Review, error) {
	id := uuid.NewString()
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO reviews (id, user_id, game_id, rating, comment)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id, game_id)
		DO UPDATE SET rating = excluded.rating, comment = excluded.comment
	`, id, userID, gameID, rating, comment)
	if err != nil {
		return nil, fmt.Errorf("upsert review: %w", err)
	}

	return r.GetByUserAndGame(ctx, userID, gameID)
}

func (r *Repo) GetByUserAndGame(ctx context.Context, userID, gameID string) (*models.Review, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, user_id, game_id, rating, comment, created_at
		FROM reviews
		WHERE user_id = ? AND game_id = ?
	`, userID, gameID)

	var review models.Review
	var comment sql.NullString
	var ts time.Time
	if err := row.Scan(&review.ID, &review.UserID, &review.GameID, &review.Rating, &comment, &ts); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}

	review.Comment = comment.String
	review.CreatedAt = ts
	return &review, nil
}

func (r *Repo) ListByGame(ctx context.Context, gameID string, limit, offset int) ([]models.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, user_id, game_id, rating, comment, created_at
		FROM reviews
		WHERE game_id = ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, gameID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	out := make([]models.Review, 0, limit)
	for rows.Next() {
		var review models.Review
		var comment sql.NullString
		var ts time.Time

		if err := rows.Scan(&review.ID, &review.UserID, &review.GameID, &review.Rating, &comment, &ts); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}

		review.Comment = comment.String
		review.CreatedAt = ts
		out = append(out, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (r *Repo) Delete(ctx context.Context, id string, userID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM reviews
		WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete review: %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows > 0, nil
}

// RatingSummary is the per-game aggregate used by the hidden-gems view.
type RatingSummary struct {
	Game        models.GameDB `json:"game"`
	AvgRating   float64       `json:"avg_rating"`
	ReviewCount int           `json:"review_count"`
}

// HiddenGems returns well-rated games with few reviews: average rating
// at or above minRating with at most maxReviews reviews, best first.
func (r *Repo) HiddenGems(ctx context.Context, minRating float64, maxReviews, limit int) ([]RatingSummary, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := r.DB.QueryContext(ctx, `
		SELECT rv.game_id, AVG(rv.rating) AS avg_rating, COUNT(rv.id) AS review_count
		FROM reviews rv
		GROUP BY rv.game_id
		HAVING avg_rating >= ? AND review_count <= ?
		ORDER BY avg_rating DESC, review_count ASC
		LIMIT ?
	`, minRating, maxReviews, limit)
	if err != nil {
		return nil, fmt.Errorf("hidden gems query: %w", err)
	}
	defer rows.Close()

	type agg struct {
		gameID string
		avg    float64
		count  int
	}
	var aggs []agg
	for rows.Next() {
		var a agg
		if err := rows.Scan(&a.gameID, &a.avg, &a.count); err != nil {
			return nil, fmt.Errorf("scan hidden gem: %w", err)
		}
		aggs = append(aggs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}

	out := make([]RatingSummary, 0, len(aggs))
	for _, a := range aggs {
		g, err := r.Catalog.GetByID(ctx, a.gameID)
		if err != nil {
			return nil, err
		}
		if g == nil {
			continue
		}
		out = append(out, RatingSummary{Game: *g, AvgRating: a.avg, ReviewCount: a.count})
	}
	return out, nil
}
