package favorites

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"indiehub/internal/catalog"
	"indiehub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Add marks a game as a favorite. Returns false when it already was
// one (idempotent, not an error).
func (r *Repo) Add(ctx context.Context, userID, gameID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO user_favorites (user_id, game_id)
		VALUES (?, ?)
		ON CONFLICT(user_id, game_id) DO NOTHING
	`, userID, gameID)
	if err != nil {
		return false, fmt.Errorf("add favorite: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) Remove(ctx context.Context, userID, gameID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM user_favorites
		WHERE user_id = ? AND game_id = ?
	`, userID, gameID)
	if err != nil {
		return false, fmt.Errorf("remove favorite: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// GamesOf returns the user's favorite games as full catalog entries,
// oldest favorite first (stable input order for downstream scoring).
func (r *Repo) GamesOf(ctx context.Context, userID string) ([]models.GameDB, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT `+prefixed("g.")+`
		FROM user_favorites uf
		JOIN games g ON g.id = uf.game_id
		WHERE uf.user_id = ?
		ORDER BY uf.added_at ASC, g.id ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	var out []models.GameDB
	for rows.Next() {
		g, err := catalog.ScanRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// MaxPriceOf returns the user's configured spending ceiling.
func (r *Repo) MaxPriceOf(ctx context.Context, userID string) (float64, error) {
	var v float64
	err := r.DB.QueryRowContext(ctx, `
		SELECT max_price FROM users WHERE id = ?
	`, userID).Scan(&v)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("max price: user %s not found", userID)
		}
		return 0, fmt.Errorf("max price: %w", err)
	}
	return v, nil
}

func (r *Repo) SetMaxPrice(ctx context.Context, userID string, v float64) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE users SET max_price = ? WHERE id = ?
	`, v, userID)
	if err != nil {
		return fmt.Errorf("set max price: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("set max price: user %s not found", userID)
	}
	return nil
}

// prefixed rewrites the shared catalog column list with a table alias
// for join queries.
func prefixed(alias string) string {
	cols := strings.Split(catalog.Columns, ",")
	for i, c := range cols {
		cols[i] = alias + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}
