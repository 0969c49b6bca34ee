// Package crawl traverses the storefront: seed categories are paged in
// order, detail pages are fetched through a bounded worker pool behind
// a shared rate limiter, transient failures are retried with backoff,
// and everything accepted is handed to the ingest pipeline. A single
// unreachable page never aborts a run.
package crawl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"indiehub/internal/classify"
	"indiehub/internal/extract"
	"indiehub/internal/ingest"
	"indiehub/pkg/models"
)

// SeedCategory is one crawl entry point: a human name (stamped onto
// candidates for the classifier's seed-category rule) and the search
// term the storefront maps it to.
type SeedCategory struct {
	Name string `json:"name"`
	Term string `json:"term"`
}

type Config struct {
	BaseURL             string
	Seeds               []SeedCategory
	MaxPagesPerCategory int
	MaxCandidates       int           // global cutoff; 0 = unlimited
	Concurrency         int           // in-flight detail fetches
	MinDelay            time.Duration // minimum inter-request spacing
	MaxAttempts         int           // per-target fetch attempts
	BackoffBase         time.Duration
	Timeout             time.Duration // per-request
}

// DefaultConfig carries the crawl parameters the batch job ships with:
// a handful of indie-flavored seed terms, polite pacing, and a bounded
// run size.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://store.steampowered.com",
		Seeds: []SeedCategory{
			{Name: "indie", Term: "indie"},
			{Name: "indie", Term: "indie roguelike"},
			{Name: "indie", Term: "indie rpg"},
			{Name: "indie", Term: "indie platformer"},
		},
		MaxPagesPerCategory: 20,
		MaxCandidates:       2000,
		Concurrency:         4,
		MinDelay:            time.Second,
		MaxAttempts:         3,
		BackoffBase:         500 * time.Millisecond,
		Timeout:             15 * time.Second,
	}
}

// Broadcaster fans run lifecycle events out to live subscribers.
type Broadcaster interface {
	BroadcastJSON(v any)
}

type Crawler struct {
	cfg        Config
	fetcher    *Fetcher
	classifier *classify.Classifier
	pipeline   *ingest.Pipeline
	hub        Broadcaster // optional
	limiter    *rate.Limiter
}

func New(cfg Config, fetcher *Fetcher, classifier *classify.Classifier, pipeline *ingest.Pipeline) *Crawler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = 500 * time.Millisecond
	}
	if cfg.MinDelay <= 0 {
		cfg.MinDelay = 100 * time.Millisecond
	}
	return &Crawler{
		cfg:        cfg,
		fetcher:    fetcher,
		classifier: classifier,
		pipeline:   pipeline,
		limiter:    rate.NewLimiter(rate.Every(cfg.MinDelay), 1),
	}
}

// SetBroadcaster attaches a live event hub to the run.
func (c *Crawler) SetBroadcaster(hub Broadcaster) {
	c.hub = hub
}

type detailResult struct {
	rec *models.GameCandidate
	err error
}

// Run executes one crawl to completion and returns the pipeline's run
// statistics. The run is best effort: it always completes and always
// reports counts, however many pages failed along the way.
func (c *Crawler) Run(ctx context.Context) (ingest.Stats, error) {
	fr := newFrontier(c.cfg.MaxCandidates)

	c.broadcast(RunEvent{Type: "run.started", At: time.Now().UTC()})

	// Detail workers fetch/extract/classify concurrently; the pipeline
	// is single-writer, so one collector goroutine drains results in
	// emission order per channel delivery.
	results := make(chan detailResult)
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for res := range results {
			if res.err != nil {
				c.pipeline.RecordError()
				continue
			}
			verdict := c.classifier.Classify(res.rec)
			if _, err := c.pipeline.Ingest(ctx, res.rec, verdict); err != nil {
				log.Printf("[crawl] ingest %q: %v", res.rec.Name, err)
			}
		}
	}()

	sem := make(chan struct{}, c.cfg.Concurrency)
	var wg sync.WaitGroup

	for _, seed := range c.cfg.Seeds {
		c.crawlCategory(ctx, fr, seed, sem, &wg, results)
		if fr.cutoffReached() {
			log.Printf("[crawl] candidate cutoff reached, draining in-flight fetches")
			break
		}
	}

	wg.Wait()
	close(results)
	<-collectorDone

	stats, err := c.pipeline.Close(ctx)
	if err != nil {
		log.Printf("[crawl] final flush: %v", err)
	}

	if failed := fr.failed(); len(failed) > 0 {
		log.Printf("[crawl] abandoned %d targets after retries", len(failed))
	}
	log.Printf("[crawl] run done: consulted=%d accepted=%d duplicates=%d excluded=%d errors=%d",
		stats.Consulted, stats.Accepted, stats.Duplicates, stats.Excluded, stats.Errors)

	c.broadcast(RunEvent{Type: "run.finished", Stats: &stats, At: time.Now().UTC()})
	return stats, nil
}

// crawlCategory pages through one seed category in increasing page
// order, emitting detail fetches for every new listing entry. Detail
// fetches are emitted before the next listing page is requested but
// are not required to complete first.
func (c *Crawler) crawlCategory(ctx context.Context, fr *frontier, seed SeedCategory, sem chan struct{}, wg *sync.WaitGroup, results chan<- detailResult) {
	for page := 1; page <= c.cfg.MaxPagesPerCategory; page++ {
		if fr.cutoffReached() || ctx.Err() != nil {
			return
		}

		listingURL := c.listingURL(seed.Term, page)
		resp, err := c.fetchWithRetry(ctx, listingURL)
		if err != nil {
			log.Printf("[crawl] listing %q page %d: %v", seed.Term, page, err)
			fr.recordFailure(listingURL)
			c.pipeline.RecordError()
			return
		}

		entries, err := extract.FromListingPage(bytes.NewReader(resp.Body))
		if err != nil {
			log.Printf("[crawl] listing %q page %d parse: %v", seed.Term, page, err)
			c.pipeline.RecordError()
			return
		}
		if len(entries) == 0 {
			// end of results for this category
			return
		}

		for _, entry := range entries {
			if _, ok := fr.admit(entry.URL); !ok {
				continue
			}
			fr.countEmitted()

			wg.Add(1)
			go func(target extract.ListingEntry) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				rec, err := c.fetchDetail(ctx, fr, target)
				if err != nil {
					results <- detailResult{err: err}
					return
				}
				rec.Category = seed.Name
				results <- detailResult{rec: rec}
			}(entry)
		}
	}
}

// fetchDetail fetches one detail page, punching through an age gate if
// one appears, and extracts the candidate record.
func (c *Crawler) fetchDetail(ctx context.Context, fr *frontier, target extract.ListingEntry) (*models.GameCandidate, error) {
	resp, err := c.fetchWithRetry(ctx, target.URL)
	if err != nil {
		fr.recordFailure(target.URL)
		return nil, err
	}

	if isAgeGate(resp.FinalURL) {
		resp, err = c.fetchWithRetry(ctx, consentURL(target.URL))
		if err != nil {
			fr.recordFailure(target.URL)
			return nil, err
		}
	}

	rec, err := extract.FromDetailPage(target.URL, bytes.NewReader(resp.Body))
	if err != nil {
		if errors.Is(err, extract.ErrMissingField) {
			log.Printf("[crawl] skip %s: %v", target.URL, err)
		}
		return nil, err
	}
	return rec, nil
}

// fetchWithRetry is the bounded retry loop: every attempt waits on the
// shared rate limiter, transient failures back off exponentially with
// jitter, and anything else fails immediately.
func (c *Crawler) fetchWithRetry(ctx context.Context, url string) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.cfg.BackoffBase << (attempt - 1)
			delay += time.Duration(rand.Int63n(int64(c.cfg.BackoffBase)))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := c.fetcher.Get(ctx, url)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var fe *FetchError
		if !errors.As(err, &fe) || !fe.Transient() {
			return nil, err
		}
		log.Printf("[crawl] transient failure (attempt %d/%d): %v", attempt+1, c.cfg.MaxAttempts, err)
	}

	return nil, fmt.Errorf("retries exhausted: %w", lastErr)
}

// listingURL builds a category search page request in the storefront's
// expected shape.
func (c *Crawler) listingURL(term string, page int) string {
	q := url.Values{}
	q.Set("term", term)
	q.Set("page", strconv.Itoa(page))
	q.Set("category1", "998") // games only
	q.Set("ignore_preferences", "1")
	return c.cfg.BaseURL + "/search/?" + q.Encode()
}

func (c *Crawler) broadcast(v any) {
	if c.hub != nil {
		c.hub.BroadcastJSON(v)
	}
}

// RunEvent is the live-feed payload for run lifecycle changes.
type RunEvent struct {
	Type  string        `json:"type"` // "run.started" / "run.finished"
	Stats *ingest.Stats `json:"stats,omitempty"`
	At    time.Time     `json:"at"`
}
