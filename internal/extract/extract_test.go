package extract

import (
	"strings"
	"testing"
)

const detailPage = `<!DOCTYPE html>
<html><body>
<div class="apphub_AppName">Hollow Depths</div>
<img class="game_header_image_full" src="https://cdn.example.com/header.jpg">
<div class="game_description_snippet">
	Explore a hand-drawn cavern in this tight metroidvania.
</div>
<div class="game_purchase_price"> $14,99 </div>
<div class="details_block">
<a href="/genre/Action/">Action</a>
<a href="/genre/Indie/">Indie</a>
<a href="/developer/Tiny%20Cave/">Tiny Cave</a>
<a href="/publisher/Tiny%20Cave/">Tiny Cave</a>
</div>
<a class="app_tag" href="/tags/Metroidvania/">Metroidvania</a>
<a class="app_tag" href="/tags/PixelGraphics/">Pixel Graphics</a>
<a class="app_tag" href="/tags/PixelGraphics/">Pixel Graphics</a>
</body></html>`

func TestFromDetailPage(t *testing.T) {
	rec, err := FromDetailPage("https://Store.Example.com/app/4242/Hollow_Depths/?src=search#reviews", strings.NewReader(detailPage))
	if err != nil {
		t.Fatalf("FromDetailPage: %v", err)
	}

	if rec.Name != "Hollow Depths" {
		t.Errorf("name = %q", rec.Name)
	}
	if rec.URL != "https://store.example.com/app/4242/Hollow_Depths" {
		t.Errorf("url = %q, want normalized without query/fragment/trailing slash", rec.URL)
	}
	if rec.SourceID != "4242" {
		t.Errorf("source id = %q", rec.SourceID)
	}
	if rec.Price == nil || *rec.Price != 14.99 {
		t.Errorf("price = %v, want 14.99", rec.Price)
	}
	if rec.Description == "" || !strings.Contains(rec.Description, "metroidvania") {
		t.Errorf("description = %q", rec.Description)
	}
	if got := strings.Join(rec.Genres, "|"); got != "Action|Indie" {
		t.Errorf("genres = %q", got)
	}
	// duplicate tag collapses
	if got := strings.Join(rec.Tags, "|"); got != "Metroidvania|Pixel Graphics" {
		t.Errorf("tags = %q", got)
	}
	if len(rec.Developers) == 0 || rec.Developers[0] != "Tiny Cave" {
		t.Errorf("developers = %v", rec.Developers)
	}
	if len(rec.Publishers) != 1 || rec.Publishers[0] != "Tiny Cave" {
		t.Errorf("publishers = %v", rec.Publishers)
	}
	if rec.ImageURL != "https://cdn.example.com/header.jpg" {
		t.Errorf("image url = %q", rec.ImageURL)
	}
}

func TestFromDetailPageMissingName(t *testing.T) {
	page := `<html><body><div class="game_purchase_price">$5.00</div></body></html>`
	_, err := FromDetailPage("https://store.example.com/app/1/x", strings.NewReader(page))
	if err == nil {
		t.Fatal("expected error for page without a name")
	}
}

func TestFromDetailPageUnknownPrice(t *testing.T) {
	page := `<html><body>
<div class="apphub_AppName">Mystery Game</div>
<div class="game_purchase_price">No disponible</div>
</body></html>`
	rec, err := FromDetailPage("https://store.example.com/app/2/y", strings.NewReader(page))
	if err != nil {
		t.Fatalf("FromDetailPage: %v", err)
	}
	if rec.Price != nil {
		t.Errorf("unparsable price should stay nil, got %v", *rec.Price)
	}
}

const listingPage = `<html><body>
<div id="search_resultsRows">
<a href="https://store.example.com/app/100/First_Game/" data-ds-appid="100"><span class="title">First Game</span></a>
<a href="https://store.example.com/app/200/Second_Game/"><span class="title">Second Game</span></a>
<a href=""><span class="title">Broken Row</span></a>
</div>
</body></html>`

func TestFromListingPage(t *testing.T) {
	entries, err := FromListingPage(strings.NewReader(listingPage))
	if err != nil {
		t.Fatalf("FromListingPage: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}

	if entries[0].SourceID != "100" || entries[0].Name != "First Game" {
		t.Errorf("first entry = %+v", entries[0])
	}
	// no data-ds-appid attribute falls back to the URL
	if entries[1].SourceID != "200" {
		t.Errorf("second entry source id = %q, want fallback from URL", entries[1].SourceID)
	}
}

func TestFromListingPageEmpty(t *testing.T) {
	entries, err := FromListingPage(strings.NewReader(`<html><body></body></html>`))
	if err != nil {
		t.Fatalf("FromListingPage: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries = %d, want 0", len(entries))
	}
}

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "HTTPS://Store.Example.COM/app/1/Game/?a=b#c", want: "https://store.example.com/app/1/Game"},
		{in: "http://store.example.com/app/1", want: "http://store.example.com/app/1"},
		{in: "ftp://store.example.com/app/1", wantErr: true},
		{in: "not a url at all ://", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := NormalizeURL(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("NormalizeURL(%q) expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeURL(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParsePrice(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	cases := []struct {
		in   string
		want *float64
	}{
		{"$19.99", f(19.99)},
		{"19,99€", f(19.99)},
		{"Free To Play", f(0)},
		{"free", f(0)},
		{"No disponible", nil},
		{"", nil},
	}
	for _, tc := range cases {
		got := ParsePrice(tc.in)
		switch {
		case tc.want == nil && got != nil:
			t.Errorf("ParsePrice(%q) = %v, want nil", tc.in, *got)
		case tc.want != nil && got == nil:
			t.Errorf("ParsePrice(%q) = nil, want %v", tc.in, *tc.want)
		case tc.want != nil && got != nil && *got != *tc.want:
			t.Errorf("ParsePrice(%q) = %v, want %v", tc.in, *got, *tc.want)
		}
	}
}

func TestSourceIDFromURL(t *testing.T) {
	if got := SourceIDFromURL("https://store.example.com/app/12345/Some_Game"); got != "12345" {
		t.Errorf("got %q", got)
	}
	if got := SourceIDFromURL("https://store.example.com/news/"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
