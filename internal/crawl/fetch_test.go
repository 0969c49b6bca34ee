package crawl

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestGetReturnsBodyAndFinalURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, 5*time.Second)
	resp, err := f.Get(context.Background(), srv.URL+"/page")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(resp.Body) != "hello" {
		t.Errorf("body = %q", resp.Body)
	}
	if resp.FinalURL != srv.URL+"/page" {
		t.Errorf("final url = %q", resp.FinalURL)
	}
}

func TestGetFollowsRedirectAndReportsFinalURL(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/app/1", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/agecheck/app/1", http.StatusFound)
	})
	mux.HandleFunc("/agecheck/app/1", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("are you old enough"))
	})

	f := NewFetcher(srv.URL, 5*time.Second)
	resp, err := f.Get(context.Background(), srv.URL+"/app/1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !isAgeGate(resp.FinalURL) {
		t.Errorf("final url %q should read as an age gate", resp.FinalURL)
	}
}

func TestGetNonOKIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, 5*time.Second)
	_, err := f.Get(context.Background(), srv.URL)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("want *FetchError, got %v", err)
	}
	if fe.Status != http.StatusNotFound {
		t.Errorf("status = %d", fe.Status)
	}
	if fe.Transient() {
		t.Error("404 must not be transient")
	}
}

func TestTransientClassification(t *testing.T) {
	cases := []struct {
		fe        FetchError
		transient bool
	}{
		{FetchError{Status: 403}, true},
		{FetchError{Status: 429}, true},
		{FetchError{Status: 500}, true},
		{FetchError{Status: 503}, true},
		{FetchError{Timeout: true}, true},
		{FetchError{Status: 404}, false},
		{FetchError{Status: 400}, false},
	}
	for _, tc := range cases {
		if got := tc.fe.Transient(); got != tc.transient {
			t.Errorf("Transient(%+v) = %v, want %v", tc.fe, got, tc.transient)
		}
	}
}

func TestFetchWithRetryRecoversFromThrottling(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.MaxAttempts = 3
	cfg.BackoffBase = time.Millisecond
	cfg.MinDelay = time.Millisecond
	c := New(cfg, NewFetcher(srv.URL, 5*time.Second), nil, nil)

	resp, err := c.fetchWithRetry(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetchWithRetry: %v", err)
	}
	if string(resp.Body) != "ok" {
		t.Errorf("body = %q", resp.Body)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("server saw %d calls, want 3", n)
	}
}

func TestFetchWithRetryGivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.MaxAttempts = 3
	cfg.BackoffBase = time.Millisecond
	cfg.MinDelay = time.Millisecond
	c := New(cfg, NewFetcher(srv.URL, 5*time.Second), nil, nil)

	_, err := c.fetchWithRetry(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("server saw %d calls, want 3", n)
	}
}

func TestFetchWithRetryFailsFastOnPermanentError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.MaxAttempts = 3
	cfg.BackoffBase = time.Millisecond
	cfg.MinDelay = time.Millisecond
	c := New(cfg, NewFetcher(srv.URL, 5*time.Second), nil, nil)

	_, err := c.fetchWithRetry(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("server saw %d calls, want 1 (no retry on 404)", n)
	}
}

func TestConsentURL(t *testing.T) {
	got := consentURL("https://store.example.com/app/10/Game/")
	for _, want := range []string{"mature_content=1", "birthtime=786240001"} {
		if !strings.Contains(got, want) {
			t.Errorf("consent url %q missing %q", got, want)
		}
	}
}

func TestFrontierDedup(t *testing.T) {
	fr := newFrontier(0)

	if _, ok := fr.admit("https://store.example.com/app/1/Game/"); !ok {
		t.Fatal("first admit must succeed")
	}
	// same identity after normalization
	if _, ok := fr.admit("https://store.example.com/app/1/Game?snr=xyz"); ok {
		t.Fatal("normalized duplicate must be rejected")
	}
	if _, ok := fr.admit("not a usable url"); ok {
		t.Fatal("unusable url must be rejected")
	}
}

func TestFrontierCutoff(t *testing.T) {
	fr := newFrontier(2)
	if fr.cutoffReached() {
		t.Fatal("cutoff before any emission")
	}
	fr.countEmitted()
	fr.countEmitted()
	if !fr.cutoffReached() {
		t.Fatal("cutoff after reaching max candidates")
	}

	unbounded := newFrontier(0)
	for i := 0; i < 100; i++ {
		unbounded.countEmitted()
	}
	if unbounded.cutoffReached() {
		t.Fatal("zero max means no cutoff")
	}
}
