package crawl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// FetchError carries the failure class the retry policy needs.
// Status is 0 for transport-level failures.
type FetchError struct {
	URL     string
	Status  int
	Timeout bool
	Err     error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Transient reports whether the failure is worth retrying: timeouts,
// throttling and server-side errors. 404s and parse-level problems
// are not.
func (e *FetchError) Transient() bool {
	if e.Timeout {
		return true
	}
	switch {
	case e.Status == http.StatusForbidden,
		e.Status == http.StatusTooManyRequests,
		e.Status >= 500:
		return true
	}
	return false
}

// Response is one successful fetch. FinalURL is where the request
// landed after redirects, which is how consent gates are detected.
type Response struct {
	Body     []byte
	FinalURL string
}

// Fetcher is the storefront HTTP transport: browser-like headers and
// the consent cookies the site expects, one client with a hard
// timeout per request.
type Fetcher struct {
	Client    *http.Client
	UserAgent string
}

func NewFetcher(baseURL string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	jar, _ := cookiejar.New(nil)
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		// Pre-set the consent cookies so most age-gated pages never
		// redirect in the first place.
		jar.SetCookies(u, []*http.Cookie{
			{Name: "birthtime", Value: "786240001"},
			{Name: "mature_content", Value: "1"},
			{Name: "lastagecheckage", Value: "1-January-1995"},
		})
	}

	return &Fetcher{
		Client: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// Get fetches one URL. Every failure comes back as *FetchError so the
// caller can decide between retry and abandon.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Timeout: isTimeout(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return nil, &FetchError{URL: rawURL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Timeout: isTimeout(err), Err: err}
	}

	final := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return &Response{Body: body, FinalURL: final}, nil
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// isAgeGate detects the consent interstitial by URL pattern.
func isAgeGate(u string) bool {
	return strings.Contains(u, "agecheck")
}

// consentURL synthesizes the gate bypass: the original target with the
// consent parameters appended, rather than treating the gate as a
// terminal failure.
func consentURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set("mature_content", "1")
	q.Set("birthtime", "786240001")
	u.RawQuery = q.Encode()
	return u.String()
}
