package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"indiehub/internal/catalog"
	"indiehub/internal/classify"
	"indiehub/internal/crawl"
	"indiehub/internal/ingest"
	"indiehub/internal/notify"
	"indiehub/pkg/database"
)

func main() {
	var (
		baseURL     = flag.String("base-url", "", "storefront base URL (default: the built-in store)")
		seeds       = flag.String("seeds", "", "comma-separated search terms (default: built-in indie seeds)")
		maxPages    = flag.Int("max-pages", 0, "max listing pages per seed category")
		maxGames    = flag.Int("max-games", 0, "global candidate cutoff, 0 = config default")
		concurrency = flag.Int("concurrency", 0, "concurrent detail fetches")
		batchSize   = flag.Int("batch-size", 10, "ingest batch size")
		udpAddr     = flag.String("udp-alerts", "", "serve UDP new-game alerts on this address during the run")
		timeout     = flag.Duration("timeout", 30*time.Minute, "overall run deadline")
	)
	flag.Parse()

	_ = godotenv.Load()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	cfg := crawl.DefaultConfig()
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *seeds != "" {
		cfg.Seeds = nil
		for _, term := range strings.Split(*seeds, ",") {
			term = strings.TrimSpace(term)
			if term == "" {
				continue
			}
			cfg.Seeds = append(cfg.Seeds, crawl.SeedCategory{Name: "indie", Term: term})
		}
	}
	if *maxPages > 0 {
		cfg.MaxPagesPerCategory = *maxPages
	}
	if *maxGames > 0 {
		cfg.MaxCandidates = *maxGames
	}
	if *concurrency > 0 {
		cfg.Concurrency = *concurrency
	}

	classifier := classify.New(classify.DefaultRules())
	pipeline := ingest.NewPipeline(catalog.NewRepo(db), *batchSize)

	if *udpAddr != "" {
		registry := notify.NewRegistry()
		alerts := notify.NewServer(*udpAddr, registry, nil)
		go func() {
			if err := alerts.Run(); err != nil {
				log.Printf("udp alerts stopped: %v", err)
			}
		}()
		pipeline.Alerts = alerts
	}

	fetcher := crawl.NewFetcher(cfg.BaseURL, cfg.Timeout)
	crawler := crawl.New(cfg, fetcher, classifier, pipeline)

	stats, err := crawler.Run(ctx)
	if err != nil {
		log.Fatalf("crawl failed: %v", err)
	}

	log.Printf("run complete: consulted=%d accepted=%d duplicates=%d excluded=%d errors=%d",
		stats.Consulted, stats.Accepted, stats.Duplicates, stats.Excluded, stats.Errors)
}
