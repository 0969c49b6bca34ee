package crawl

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"indiehub/internal/catalog"
	"indiehub/internal/classify"
	"indiehub/internal/ingest"
)

// Handler exposes crawl runs over the admin API. One run at a time:
// the pipeline's identity resolution assumes a single writer, so a
// second trigger while a run is active is rejected, not queued.
type Handler struct {
	DB     *sql.DB
	Hub    Broadcaster    // optional, fans run events to live subscribers
	Alerts ingest.Alerter // optional, pinged for every committed insert

	mu      sync.Mutex
	running bool
}

func NewHandler(db *sql.DB, hub Broadcaster, alerts ingest.Alerter) *Handler {
	return &Handler{DB: db, Hub: hub, Alerts: alerts}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/crawl", h.runCrawl)
	rg.POST("/crawl/async", h.runCrawlAsync)
}

type runRequest struct {
	SeedCategories []string `json:"seed_categories"`
	MaxPages       int      `json:"max_pages"`
	MaxGames       int      `json:"max_games"`
	BaseURL        string   `json:"base_url"`
}

// bindRunRequest parses the optional run parameters. An empty body
// means "run with defaults".
func bindRunRequest(c *gin.Context) (runRequest, bool) {
	var req runRequest
	if c.Request.ContentLength == 0 {
		return req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return req, false
	}
	return req, true
}

func (h *Handler) runCrawl(c *gin.Context) {
	req, ok := bindRunRequest(c)
	if !ok {
		return
	}

	if !h.acquire() {
		c.JSON(http.StatusConflict, gin.H{"error": "a crawl run is already active"})
		return
	}
	defer h.release()

	stats, err := h.run(c.Request.Context(), req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "completed", "stats": stats})
}

// runCrawlAsync starts the run and returns immediately; progress goes
// out on the live event feed.
func (h *Handler) runCrawlAsync(c *gin.Context) {
	req, ok := bindRunRequest(c)
	if !ok {
		return
	}

	if !h.acquire() {
		c.JSON(http.StatusConflict, gin.H{"error": "a crawl run is already active"})
		return
	}

	go func() {
		defer h.release()
		if _, err := h.run(context.Background(), req); err != nil {
			log.Printf("[crawl] async run failed: %v", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"status": "started"})
}

func (h *Handler) run(ctx context.Context, req runRequest) (ingest.Stats, error) {
	cfg := DefaultConfig()
	if req.BaseURL != "" {
		cfg.BaseURL = req.BaseURL
	}
	if len(req.SeedCategories) > 0 {
		cfg.Seeds = nil
		for _, term := range req.SeedCategories {
			cfg.Seeds = append(cfg.Seeds, SeedCategory{Name: "indie", Term: term})
		}
	}
	if req.MaxPages > 0 {
		cfg.MaxPagesPerCategory = req.MaxPages
	}
	if req.MaxGames > 0 {
		cfg.MaxCandidates = req.MaxGames
	}

	crawler := New(cfg, NewFetcher(cfg.BaseURL, cfg.Timeout), classify.New(classify.DefaultRules()), h.newPipeline())
	crawler.SetBroadcaster(h.Hub)

	return crawler.Run(ctx)
}

// newPipeline builds the run's pipeline with the handler's event hub
// and alerter attached.
func (h *Handler) newPipeline() *ingest.Pipeline {
	p := ingest.NewPipeline(catalog.NewRepo(h.DB), 0)
	p.Hub = h.Hub
	p.Alerts = h.Alerts
	return p
}

func (h *Handler) acquire() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.running {
		return false
	}
	h.running = true
	return true
}

func (h *Handler) release() {
	h.mu.Lock()
	h.running = false
	h.mu.Unlock()
}
