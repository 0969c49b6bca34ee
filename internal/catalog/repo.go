// Package catalog owns the persistent game catalog: identity lookups,
// inserts and field-merge updates for the ingest pipeline, and the
// filtered listing queries behind the public read API.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"indiehub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Columns is the canonical select list for games rows, shared with
// sibling repos that join against the catalog.
const Columns = `id, source_id, name, url, price, description, genres, tags, developers, publishers, image_url, is_indie, ingested_at`

// FindBySourceID resolves identity by the site-native app id.
// Empty source ids never match anything.
func (r *Repo) FindBySourceID(ctx context.Context, sourceID string) (*models.GameDB, error) {
	if strings.TrimSpace(sourceID) == "" {
		return nil, nil
	}
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+Columns+`
		FROM games
		WHERE source_id = ?
	`, sourceID)
	return scanGame(row)
}

// FindByURL resolves identity by normalized URL.
func (r *Repo) FindByURL(ctx context.Context, url string) (*models.GameDB, error) {
	if strings.TrimSpace(url) == "" {
		return nil, nil
	}
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+Columns+`
		FROM games
		WHERE url = ?
	`, url)
	return scanGame(row)
}

// FindByName resolves identity by exact name. Last resort in the
// dedup chain, after source_id and url.
func (r *Repo) FindByName(ctx context.Context, name string) (*models.GameDB, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+Columns+`
		FROM games
		WHERE name = ?
	`, name)
	return scanGame(row)
}

func (r *Repo) GetByID(ctx context.Context, id string) (*models.GameDB, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+Columns+`
		FROM games
		WHERE id = ?
	`, id)
	return scanGame(row)
}

func (r *Repo) CountAll(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM games`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count games: %w", err)
	}
	return n, nil
}

// InsertTx writes a new catalog entry inside the pipeline's batch
// transaction. The id must already be assigned.
func (r *Repo) InsertTx(ctx context.Context, tx *sql.Tx, g models.GameDB) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO games (id, source_id, name, url, price, description, genres, tags, developers, publishers, image_url, is_indie)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
	`,
		g.ID,
		nullString(g.SourceID),
		g.Name,
		g.URL,
		nullFloat(g.Price),
		g.Description,
		encodeSet(g.Genres),
		encodeSet(g.Tags),
		encodeSet(g.Developers),
		encodeSet(g.Publishers),
		g.ImageURL,
	)
	if err != nil {
		return fmt.Errorf("insert game %q: %w", g.Name, err)
	}
	return nil
}

// UpdateTx rewrites an existing entry with the already-merged row
// inside the pipeline's batch transaction. The merge (non-empty fields
// of the incoming candidate overwrite, everything else is preserved)
// happens in the pipeline; this just persists the result.
func (r *Repo) UpdateTx(ctx context.Context, tx *sql.Tx, g models.GameDB) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE games
		SET source_id = ?, name = ?, url = ?, price = ?, description = ?,
		    genres = ?, tags = ?, developers = ?, publishers = ?, image_url = ?
		WHERE id = ?
	`,
		nullString(g.SourceID),
		g.Name,
		g.URL,
		nullFloat(g.Price),
		g.Description,
		encodeSet(g.Genres),
		encodeSet(g.Tags),
		encodeSet(g.Developers),
		encodeSet(g.Publishers),
		g.ImageURL,
		g.ID,
	)
	if err != nil {
		return fmt.Errorf("update game %s: %w", g.ID, err)
	}
	return nil
}

type ListQuery struct {
	Q        string   // keyword search in name/description
	Genres   []string // any-match
	MaxPrice *float64 // inclusive ceiling; NULL prices never pass
	Limit    int
	Offset   int
}

func (r *Repo) Count(ctx context.Context, q ListQuery) (int, error) {
	sqlStr, args := buildListSQL(q, true)
	var total int
	if err := r.DB.QueryRowContext(ctx, sqlStr, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count scan: %w", err)
	}
	return total, nil
}

func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.GameDB, error) {
	sqlStr, args := buildListSQL(q, false)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := make([]models.GameDB, 0, q.Limit)
	for rows.Next() {
		g, err := ScanRows(rows)
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

// ListAll returns the full catalog in stable ingested_at, id order.
// The recommendation scorer consumes this as its candidate pool.
func (r *Repo) ListAll(ctx context.Context, maxPrice *float64) ([]models.GameDB, error) {
	sqlStr := `
		SELECT ` + Columns + `
		FROM games
	`
	var args []any
	if maxPrice != nil {
		sqlStr += ` WHERE price IS NOT NULL AND price <= ?`
		args = append(args, *maxPrice)
	}
	sqlStr += ` ORDER BY ingested_at ASC, id ASC`

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list all query: %w", err)
	}
	defer rows.Close()

	var out []models.GameDB
	for rows.Next() {
		g, err := ScanRows(rows)
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

// buildListSQL builds either COUNT(*) or SELECT list.
// genres filter is "any-match" by doing LIKE searches inside stored JSON text.
func buildListSQL(q ListQuery, countOnly bool) (string, []any) {
	baseSelect := `
		SELECT ` + Columns + `
		FROM games
	`
	if countOnly {
		baseSelect = `SELECT COUNT(*) FROM games`
	}

	var where []string
	var args []any

	if strings.TrimSpace(q.Q) != "" {
		where = append(where, "(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)")
		kw := "%" + strings.ToLower(strings.TrimSpace(q.Q)) + "%"
		args = append(args, kw, kw)
	}

	if q.MaxPrice != nil {
		where = append(where, "price IS NOT NULL AND price <= ?")
		args = append(args, *q.MaxPrice)
	}

	// any-match genre filter against JSON string
	if len(q.Genres) > 0 {
		var genreOr []string
		for _, g := range q.Genres {
			g = strings.TrimSpace(g)
			if g == "" {
				continue
			}
			genreOr = append(genreOr, "LOWER(genres) LIKE ?")
			args = append(args, `%`+strings.ToLower(g)+`%`)
		}
		if len(genreOr) > 0 {
			where = append(where, "("+strings.Join(genreOr, " OR ")+")")
		}
	}

	sqlStr := baseSelect
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}

	if !countOnly {
		sqlStr += " ORDER BY name ASC"
		sqlStr += " LIMIT ? OFFSET ?"
		limit := q.Limit
		if limit <= 0 || limit > 100 {
			limit = 20
		}
		offset := q.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, limit, offset)
	}

	return sqlStr, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row *sql.Row) (*models.GameDB, error) {
	g, err := scanFrom(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return g, err
}

// ScanRows scans the current row of a Columns-shaped result set.
func ScanRows(rows *sql.Rows) (*models.GameDB, error) {
	return scanFrom(rows)
}

func scanFrom(s rowScanner) (*models.GameDB, error) {
	var (
		g          models.GameDB
		sourceID   sql.NullString
		price      sql.NullFloat64
		desc       sql.NullString
		genresJSON string
		tagsJSON   string
		devsJSON   string
		pubsJSON   string
		imageURL   sql.NullString
		isIndie    int
	)

	if err := s.Scan(
		&g.ID, &sourceID, &g.Name, &g.URL, &price, &desc,
		&genresJSON, &tagsJSON, &devsJSON, &pubsJSON,
		&imageURL, &isIndie, &g.IngestedAt,
	); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan game: %w", err)
	}

	g.SourceID = sourceID.String
	if price.Valid {
		v := price.Float64
		g.Price = &v
	}
	g.Description = desc.String
	g.ImageURL = imageURL.String
	g.IsIndie = isIndie != 0

	_ = json.Unmarshal([]byte(genresJSON), &g.Genres)
	_ = json.Unmarshal([]byte(tagsJSON), &g.Tags)
	_ = json.Unmarshal([]byte(devsJSON), &g.Developers)
	_ = json.Unmarshal([]byte(pubsJSON), &g.Publishers)

	return &g, nil
}

func encodeSet(ss []string) string {
	if ss == nil {
		ss = []string{}
	}
	b, _ := json.Marshal(ss)
	return string(b)
}

func nullString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
