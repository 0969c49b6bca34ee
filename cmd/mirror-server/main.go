// mirror-server replays an exported catalog (see cmd/export-mirror) as
// storefront-shaped HTML, so a crawl can run end to end against
// localhost instead of the live store:
//
//	go run ./cmd/crawler -base-url http://localhost:9000
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
)

type MirrorGame struct {
	Slug        string   `json:"slug"`
	SourceID    string   `json:"source_id"`
	Name        string   `json:"name"`
	Price       *float64 `json:"price"`
	Description string   `json:"description"`
	Genres      []string `json:"genres"`
	Tags        []string `json:"tags"`
	Developers  []string `json:"developers"`
	Publishers  []string `json:"publishers"`
	ImageURL    string   `json:"image_url"`
}

const pageSize = 25

var listingTmpl = template.Must(template.New("listing").Parse(`<!DOCTYPE html>
<html><body>
<div id="search_resultsRows">
{{range .}}<a href="{{.URL}}" data-ds-appid="{{.SourceID}}"><span class="title">{{.Name}}</span></a>
{{end}}</div>
</body></html>
`))

var detailTmpl = template.Must(template.New("detail").Parse(`<!DOCTYPE html>
<html><body>
<div class="apphub_AppName">{{.Name}}</div>
{{if .ImageURL}}<img class="game_header_image_full" src="{{.ImageURL}}">{{end}}
<div class="game_description_snippet">{{.Description}}</div>
<div class="game_purchase_price">{{.PriceText}}</div>
<div class="details_block">
{{range .Genres}}<a href="/genre/{{.}}/">{{.}}</a>
{{end}}{{range .Developers}}<a href="/developer/{{.}}/">{{.}}</a>
{{end}}{{range .Publishers}}<a href="/publisher/{{.}}/">{{.}}</a>
{{end}}</div>
{{range .Tags}}<a class="app_tag" href="/tags/{{.}}/">{{.}}</a>
{{end}}</body></html>
`))

type detailView struct {
	MirrorGame
	PriceText string
}

type listingRow struct {
	URL      string
	SourceID string
	Name     string
}

func main() {
	var (
		dataPath = flag.String("data", "data/mirror.json", "exported mirror dataset")
		addr     = flag.String("addr", ":9000", "listen address")
	)
	flag.Parse()

	games, err := loadGames(*dataPath)
	if err != nil {
		log.Fatalf("load %s: %v", *dataPath, err)
	}
	log.Printf("mirror-server serving %d games", len(games))

	bySourceID := make(map[string]MirrorGame, len(games))
	for _, g := range games {
		bySourceID[g.SourceID] = g
	}

	http.HandleFunc("/search/", func(w http.ResponseWriter, r *http.Request) {
		term := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("term")))
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page < 1 {
			page = 1
		}

		var matched []listingRow
		for _, g := range games {
			if term != "" && !matches(g, term) {
				continue
			}
			matched = append(matched, listingRow{
				URL:      fmt.Sprintf("http://%s/app/%s/%s/", r.Host, g.SourceID, g.Slug),
				SourceID: g.SourceID,
				Name:     g.Name,
			})
		}

		start := (page - 1) * pageSize
		if start >= len(matched) {
			matched = nil
		} else {
			end := start + pageSize
			if end > len(matched) {
				end = len(matched)
			}
			matched = matched[start:end]
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := listingTmpl.Execute(w, matched); err != nil {
			log.Printf("render listing: %v", err)
		}
	})

	http.HandleFunc("/app/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) < 2 {
			http.NotFound(w, r)
			return
		}
		g, ok := bySourceID[parts[1]]
		if !ok {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := detailTmpl.Execute(w, detailView{MirrorGame: g, PriceText: priceText(g.Price)}); err != nil {
			log.Printf("render detail: %v", err)
		}
	})

	log.Printf("mirror-server listening on %s", *addr)
	log.Fatal(http.ListenAndServe(*addr, nil))
}

func loadGames(path string) ([]MirrorGame, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var games []MirrorGame
	if err := json.Unmarshal(b, &games); err != nil {
		return nil, err
	}
	// Backfill source ids so detail URLs stay addressable.
	for i := range games {
		if games[i].SourceID == "" {
			games[i].SourceID = strconv.Itoa(900000 + i)
		}
	}
	return games, nil
}

func matches(g MirrorGame, term string) bool {
	for _, word := range strings.Fields(term) {
		if strings.Contains(strings.ToLower(g.Name), word) {
			continue
		}
		if containsFold(g.Genres, word) || containsFold(g.Tags, word) {
			continue
		}
		return false
	}
	return true
}

func containsFold(set []string, word string) bool {
	for _, s := range set {
		if strings.Contains(strings.ToLower(s), word) {
			return true
		}
	}
	return false
}

func priceText(p *float64) string {
	if p == nil {
		return ""
	}
	if *p == 0 {
		return "Free To Play"
	}
	return fmt.Sprintf("$%.2f", *p)
}
