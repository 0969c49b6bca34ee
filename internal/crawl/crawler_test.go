package crawl

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"indiehub/internal/catalog"
	"indiehub/internal/classify"
	"indiehub/internal/ingest"
	"indiehub/pkg/database"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.MigrateFrom(db, "../../docs/schema.sql"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func detailHTML(name, price string, tags []string) string {
	body := fmt.Sprintf(`<html><body><div class="apphub_AppName">%s</div>
<div class="game_purchase_price">%s</div>
<div class="game_description_snippet">A small game.</div>`, name, price)
	for _, tag := range tags {
		body += fmt.Sprintf(`<a class="app_tag" href="#">%s</a>`, tag)
	}
	return body + `</body></html>`
}

// fake storefront: one listing page with two games, then empty pages.
func newFakeStore(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/search/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			w.Write([]byte(`<html><body><div id="search_resultsRows"></div></body></html>`))
			return
		}
		fmt.Fprintf(w, `<html><body><div id="search_resultsRows">
<a href="%[1]s/app/100/Pixel_Quest/" data-ds-appid="100"><span class="title">Pixel Quest</span></a>
<a href="%[1]s/app/200/AAA_Shooter/" data-ds-appid="200"><span class="title">AAA Shooter</span></a>
<a href="%[1]s/app/100/Pixel_Quest/" data-ds-appid="100"><span class="title">Pixel Quest</span></a>
</div></body></html>`, srv.URL)
	})
	mux.HandleFunc("/app/100/Pixel_Quest/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(detailHTML("Pixel Quest", "$9.99", []string{"Indie", "Pixel Graphics"})))
	})
	mux.HandleFunc("/app/200/AAA_Shooter/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(detailHTML("AAA Shooter", "$59.99", []string{"Action", "FPS"})))
	})

	return srv
}

func fastConfig(baseURL string) Config {
	return Config{
		BaseURL:             baseURL,
		Seeds:               []SeedCategory{{Name: "indie", Term: "indie"}},
		MaxPagesPerCategory: 3,
		Concurrency:         2,
		MinDelay:            time.Millisecond,
		MaxAttempts:         2,
		BackoffBase:         time.Millisecond,
		Timeout:             5 * time.Second,
	}
}

func TestRunAcceptsIndieAndSkipsOthers(t *testing.T) {
	srv := newFakeStore(t)
	db := openTestDB(t)
	repo := catalog.NewRepo(db)

	// A non-indie seed category makes the classifier decide on the
	// games' own signals: Pixel Quest carries indie tags, the shooter
	// does not.
	cfg := fastConfig(srv.URL)
	cfg.Seeds = []SeedCategory{{Name: "action", Term: "action"}}
	c := New(cfg, NewFetcher(srv.URL, cfg.Timeout), classify.New(classify.DefaultRules()), ingest.NewPipeline(repo, 2))

	stats, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// Two unique candidates consulted; the duplicate listing row never
	// reaches the pipeline.
	if stats.Consulted != 2 {
		t.Errorf("consulted = %d, want 2", stats.Consulted)
	}
	if stats.Accepted != 1 {
		t.Errorf("accepted = %d, want 1", stats.Accepted)
	}
	if stats.Excluded != 1 {
		t.Errorf("excluded = %d, want 1 (the shooter)", stats.Excluded)
	}

	g, err := repo.FindBySourceID(context.Background(), "100")
	if err != nil {
		t.Fatalf("FindBySourceID: %v", err)
	}
	if g == nil {
		t.Fatal("Pixel Quest should be in the catalog")
	}
	if g.Price == nil || *g.Price != 9.99 {
		t.Errorf("price = %v", g.Price)
	}

	n, err := repo.CountAll(context.Background())
	if err != nil {
		t.Fatalf("CountAll: %v", err)
	}
	if n != 1 {
		t.Errorf("catalog rows = %d, want only the indie title", n)
	}
}

func TestRunIsIdempotentAcrossRuns(t *testing.T) {
	srv := newFakeStore(t)
	db := openTestDB(t)
	repo := catalog.NewRepo(db)

	cfg := fastConfig(srv.URL)

	for i := 0; i < 2; i++ {
		c := New(cfg, NewFetcher(srv.URL, cfg.Timeout), classify.New(classify.DefaultRules()), ingest.NewPipeline(repo, 2))
		if _, err := c.Run(context.Background()); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	n, err := repo.CountAll(context.Background())
	if err != nil {
		t.Fatalf("CountAll: %v", err)
	}
	if n != 2 {
		t.Errorf("catalog rows after second run = %d, want 2 (updates, not duplicates)", n)
	}
}

func TestRunPunchesThroughAgeGate(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/search/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			w.Write([]byte(`<html><body><div id="search_resultsRows"></div></body></html>`))
			return
		}
		fmt.Fprintf(w, `<html><body><div id="search_resultsRows">
<a href="%s/app/300/Gated_Game/" data-ds-appid="300"><span class="title">Gated Game</span></a>
</div></body></html>`, srv.URL)
	})
	mux.HandleFunc("/app/300/Gated_Game/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("mature_content") != "1" {
			http.Redirect(w, r, "/agecheck/app/300", http.StatusFound)
			return
		}
		w.Write([]byte(detailHTML("Gated Game", "$4.99", []string{"Indie"})))
	})
	mux.HandleFunc("/agecheck/app/300", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>age check</body></html>`))
	})

	db := openTestDB(t)
	repo := catalog.NewRepo(db)
	cfg := fastConfig(srv.URL)
	c := New(cfg, NewFetcher(srv.URL, cfg.Timeout), classify.New(classify.DefaultRules()), ingest.NewPipeline(repo, 1))

	stats, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Accepted != 1 {
		t.Fatalf("accepted = %d, want 1 (gate bypassed)", stats.Accepted)
	}

	g, err := repo.FindBySourceID(context.Background(), "300")
	if err != nil || g == nil {
		t.Fatalf("gated game not ingested: g=%v err=%v", g, err)
	}
}

func TestRunStopsAtCandidateCutoff(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/search/", func(w http.ResponseWriter, r *http.Request) {
		// every page returns 5 fresh games
		page := r.URL.Query().Get("page")
		w.Write([]byte(`<html><body><div id="search_resultsRows">`))
		for i := 0; i < 5; i++ {
			fmt.Fprintf(w, `<a href="%s/app/%s%d/G/" data-ds-appid="%s%d"><span class="title">G</span></a>`,
				srv.URL, page, i, page, i)
		}
		w.Write([]byte(`</div></body></html>`))
	})
	mux.HandleFunc("/app/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(detailHTML("G", "$1.00", []string{"Indie"})))
	})

	db := openTestDB(t)
	repo := catalog.NewRepo(db)

	cfg := fastConfig(srv.URL)
	cfg.MaxPagesPerCategory = 10
	cfg.MaxCandidates = 5
	cfg.Concurrency = 1
	c := New(cfg, NewFetcher(srv.URL, cfg.Timeout), classify.New(classify.DefaultRules()), ingest.NewPipeline(repo, 10))

	stats, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The cutoff stops new listing pages after the first page's 5
	// candidates; everything already emitted drains.
	if stats.Consulted != 5 {
		t.Errorf("consulted = %d, want 5", stats.Consulted)
	}
}
