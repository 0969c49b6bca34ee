// Package ingest is the only writer path into the game catalog. It
// gates candidates on their classification verdict, deduplicates
// against the run and the stored catalog, and commits accepted rows in
// small atomic batches. A failed batch is rolled back and counted, the
// run keeps going.
package ingest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"

	"indiehub/internal/catalog"
	"indiehub/pkg/models"
)

// Outcome is the pipeline's per-record decision.
type Outcome string

const (
	SkippedNotIndie  Outcome = "skipped_not_indie"
	SkippedExcluded  Outcome = "skipped_excluded"
	SkippedDuplicate Outcome = "skipped_duplicate"
	Inserted         Outcome = "inserted"
	Updated          Outcome = "updated"
)

// Stats is the externally observable run summary the admin/report
// surface relies on.
type Stats struct {
	Consulted  int `json:"consulted"`
	Accepted   int `json:"accepted"`
	Duplicates int `json:"duplicates"`
	Excluded   int `json:"excluded"`
	Errors     int `json:"errors"`
}

// Broadcaster fans run events out to live subscribers. Satisfied by
// live.Hub; nil disables broadcasting.
type Broadcaster interface {
	BroadcastJSON(v any)
}

// Alerter is notified of every freshly inserted game. Satisfied by the
// notify server; nil disables alerts.
type Alerter interface {
	GameInserted(g models.GameDB)
}

const defaultBatchSize = 10

type pendingOp struct {
	game     models.GameDB
	isInsert bool
}

// Pipeline is run-scoped: one crawl run owns one Pipeline. It is not
// safe for use by concurrent runs against the same catalog (identity
// resolution assumes a single writer).
type Pipeline struct {
	Repo      *catalog.Repo
	BatchSize int
	Hub       Broadcaster
	Alerts    Alerter

	// in-run dedup: identities accepted earlier in this run
	seenSourceIDs map[string]struct{}
	seenURLs      map[string]struct{}
	seenNames     map[string]struct{}

	batch []pendingOp

	// statsMu guards the counters: RecordError is called from the
	// crawl goroutine while the collector goroutine runs Ingest.
	statsMu sync.Mutex
	stats   Stats
}

func NewPipeline(repo *catalog.Repo, batchSize int) *Pipeline {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Pipeline{
		Repo:          repo,
		BatchSize:     batchSize,
		seenSourceIDs: make(map[string]struct{}),
		seenURLs:      make(map[string]struct{}),
		seenNames:     make(map[string]struct{}),
	}
}

// Ingest feeds one classified candidate through the gate. Non-indie
// and excluded verdicts are dropped before any storage access. The
// returned error only reports storage trouble from an intermediate
// flush; the record decision is always the Outcome.
func (p *Pipeline) Ingest(ctx context.Context, rec *models.GameCandidate, verdict models.Verdict) (Outcome, error) {
	p.count(func(s *Stats) { s.Consulted++ })

	if !verdict.Accepted() {
		p.count(func(s *Stats) { s.Excluded++ })
		if verdict.Excluded {
			log.Printf("[ingest] excluded %q: %s", rec.Name, strings.Join(verdict.Reasons, "; "))
			return SkippedExcluded, nil
		}
		return SkippedNotIndie, nil
	}

	if p.seenInRun(rec) {
		p.count(func(s *Stats) { s.Duplicates++ })
		return SkippedDuplicate, nil
	}
	p.markSeen(rec)

	existing, err := p.resolveIdentity(ctx, rec)
	if err != nil {
		p.count(func(s *Stats) { s.Errors++ })
		return SkippedDuplicate, fmt.Errorf("resolve identity for %q: %w", rec.Name, err)
	}

	var outcome Outcome
	if existing == nil {
		p.batch = append(p.batch, pendingOp{game: newEntry(rec), isInsert: true})
		outcome = Inserted
	} else {
		p.batch = append(p.batch, pendingOp{game: mergeEntry(*existing, rec)})
		outcome = Updated
	}

	if len(p.batch) >= p.BatchSize {
		if err := p.flush(ctx); err != nil {
			return outcome, err
		}
	}
	return outcome, nil
}

// RecordError tallies a failure that happened upstream of the pipeline
// (unreachable page, extraction failure) so the run report stays
// accurate. Safe to call from the crawl goroutine.
func (p *Pipeline) RecordError() {
	p.count(func(s *Stats) { s.Errors++ })
}

// Close flushes any remaining batch and returns the final statistics.
func (p *Pipeline) Close(ctx context.Context) (Stats, error) {
	err := p.flush(ctx)
	return p.Stats(), err
}

// Stats returns a snapshot of the counters so far.
func (p *Pipeline) Stats() Stats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats
}

func (p *Pipeline) count(f func(*Stats)) {
	p.statsMu.Lock()
	f(&p.stats)
	p.statsMu.Unlock()
}

// resolveIdentity walks the dedup priority chain:
// source_id -> normalized url -> exact name.
func (p *Pipeline) resolveIdentity(ctx context.Context, rec *models.GameCandidate) (*models.GameDB, error) {
	if g, err := p.Repo.FindBySourceID(ctx, rec.SourceID); err != nil || g != nil {
		return g, err
	}
	if g, err := p.Repo.FindByURL(ctx, rec.URL); err != nil || g != nil {
		return g, err
	}
	return p.Repo.FindByName(ctx, rec.Name)
}

// flush commits the pending batch in one transaction. On failure the
// whole batch is rolled back and counted as errors; the next batch
// starts clean.
func (p *Pipeline) flush(ctx context.Context) error {
	if len(p.batch) == 0 {
		return nil
	}
	batch := p.batch
	p.batch = nil

	err := p.commitBatch(ctx, batch)
	if err != nil {
		p.count(func(s *Stats) { s.Errors += len(batch) })
		log.Printf("[ingest] batch of %d failed, rolled back: %v", len(batch), err)
		return err
	}

	p.count(func(s *Stats) { s.Accepted += len(batch) })

	for _, op := range batch {
		if !op.isInsert {
			continue
		}
		if p.Hub != nil {
			p.Hub.BroadcastJSON(InsertedEvent(op.game))
		}
		if p.Alerts != nil {
			p.Alerts.GameInserted(op.game)
		}
	}
	return nil
}

func (p *Pipeline) commitBatch(ctx context.Context, batch []pendingOp) error {
	tx, err := p.Repo.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer tx.Rollback()

	for _, op := range batch {
		if op.isInsert {
			err = p.Repo.InsertTx(ctx, tx, op.game)
		} else {
			err = p.Repo.UpdateTx(ctx, tx, op.game)
		}
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch tx: %w", err)
	}
	return nil
}

func (p *Pipeline) seenInRun(rec *models.GameCandidate) bool {
	if rec.SourceID != "" {
		if _, ok := p.seenSourceIDs[rec.SourceID]; ok {
			return true
		}
	}
	if _, ok := p.seenURLs[rec.URL]; ok {
		return true
	}
	_, ok := p.seenNames[rec.Name]
	return ok
}

func (p *Pipeline) markSeen(rec *models.GameCandidate) {
	if rec.SourceID != "" {
		p.seenSourceIDs[rec.SourceID] = struct{}{}
	}
	p.seenURLs[rec.URL] = struct{}{}
	p.seenNames[rec.Name] = struct{}{}
}

// newEntry builds the catalog row for a first sighting.
func newEntry(rec *models.GameCandidate) models.GameDB {
	return models.GameDB{
		ID:          uuid.NewString(),
		SourceID:    rec.SourceID,
		Name:        rec.Name,
		URL:         rec.URL,
		Price:       rec.Price,
		Description: rec.Description,
		Genres:      rec.Genres,
		Tags:        rec.Tags,
		Developers:  rec.Developers,
		Publishers:  rec.Publishers,
		ImageURL:    rec.ImageURL,
		IsIndie:     true,
	}
}

// mergeEntry applies a later sighting onto the stored row: fields
// present on the incoming candidate overwrite, absent ones keep their
// previously known values.
func mergeEntry(base models.GameDB, rec *models.GameCandidate) models.GameDB {
	if rec.SourceID != "" {
		base.SourceID = rec.SourceID
	}
	if rec.Name != "" {
		base.Name = rec.Name
	}
	if rec.URL != "" {
		base.URL = rec.URL
	}
	if rec.Price != nil {
		base.Price = rec.Price
	}
	if rec.Description != "" {
		base.Description = rec.Description
	}
	if len(rec.Genres) > 0 {
		base.Genres = rec.Genres
	}
	if len(rec.Tags) > 0 {
		base.Tags = rec.Tags
	}
	if len(rec.Developers) > 0 {
		base.Developers = rec.Developers
	}
	if len(rec.Publishers) > 0 {
		base.Publishers = rec.Publishers
	}
	if rec.ImageURL != "" {
		base.ImageURL = rec.ImageURL
	}
	return base
}
