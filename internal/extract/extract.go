// Package extract turns fetched storefront HTML into candidate records.
// It is the single place where the site's markup is known; everything
// downstream works on models.GameCandidate.
package extract

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"indiehub/pkg/models"
)

// ErrMissingField marks a page that lacks a mandatory field (name or
// usable URL). The caller skips the page, not the run.
var ErrMissingField = errors.New("mandatory field missing")

// FromDetailPage parses one game detail page into a candidate record.
// pageURL is the URL the body was fetched from; it becomes the
// candidate's normalized identity URL.
func FromDetailPage(pageURL string, body io.Reader) (*models.GameCandidate, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse detail page: %w", err)
	}

	normURL, err := NormalizeURL(pageURL)
	if err != nil {
		return nil, fmt.Errorf("%w: url: %v", ErrMissingField, err)
	}

	name := strings.TrimSpace(doc.Find("div.apphub_AppName").First().Text())
	if name == "" {
		return nil, fmt.Errorf("%w: name (url=%s)", ErrMissingField, normURL)
	}

	c := &models.GameCandidate{
		SourceID:    SourceIDFromURL(pageURL),
		Name:        name,
		URL:         normURL,
		Description: strings.TrimSpace(doc.Find(".game_description_snippet").First().Text()),
		Genres:      selectionSet(doc.Find(`div.details_block a[href*="/genre/"]`)),
		Tags:        selectionSet(doc.Find("a.app_tag")),
		Developers:  selectionSet(doc.Find(`#developers_list a, div.details_block a[href*="/developer/"]`)),
		Publishers:  selectionSet(doc.Find(`div.details_block a[href*="/publisher/"]`)),
	}

	priceText := doc.Find("div.game_purchase_price, div.discount_final_price").First().Text()
	c.Price = ParsePrice(priceText)

	if img, ok := doc.Find("img.game_header_image_full, img.game_header_image").First().Attr("src"); ok {
		c.ImageURL = strings.TrimSpace(img)
	}

	return c, nil
}

// ListingEntry is one game reference found on a category listing page.
type ListingEntry struct {
	SourceID string
	Name     string
	URL      string
}

// FromListingPage parses a category search/listing page into the game
// references it links to. An empty result is the normal "no more
// pages" signal, not an error.
func FromListingPage(body io.Reader) ([]ListingEntry, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("parse listing page: %w", err)
	}

	var out []ListingEntry
	doc.Find("#search_resultsRows > a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		e := ListingEntry{
			URL:  strings.TrimSpace(href),
			Name: strings.TrimSpace(s.Find(".title").First().Text()),
		}
		if id, ok := s.Attr("data-ds-appid"); ok {
			e.SourceID = strings.TrimSpace(id)
		}
		if e.SourceID == "" {
			e.SourceID = SourceIDFromURL(e.URL)
		}
		out = append(out, e)
	})
	return out, nil
}

// selectionSet collects the text of each matched node into a trimmed,
// order-preserving set with duplicates and empties dropped.
func selectionSet(sel *goquery.Selection) []string {
	seen := make(map[string]struct{}, sel.Length())
	out := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		v := strings.TrimSpace(s.Text())
		if v == "" {
			return
		}
		if _, dup := seen[v]; dup {
			return
		}
		seen[v] = struct{}{}
		out = append(out, v)
	})
	return out
}
