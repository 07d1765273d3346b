package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func TestFetchOneUsesConditionalCache(t *testing.T) {
	var hits, notModified atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write(crlf(sampleICS))
	}))

	f := NewFetcher(t.TempDir())
	src := Source{ID: "team", URL: srv.URL + "/team.ics"}

	first, err := f.FetchOne(context.Background(), src)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	if first.FromCache || len(first.Body) == 0 {
		t.Fatalf("expected fresh body, got %+v", first)
	}

	second, err := f.FetchOne(context.Background(), src)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if !second.FromCache || string(second.Body) != string(first.Body) {
		t.Fatal("expected cached body after 304")
	}
	if notModified.Load() != 1 {
		t.Fatalf("expected one conditional request, got %d", notModified.Load())
	}

	// Server gone: the cached body is still served.
	srv.Close()
	third, err := f.FetchOne(context.Background(), src)
	if err != nil {
		t.Fatalf("offline fetch: %v", err)
	}
	if !third.FromCache {
		t.Fatal("expected cache fallback when offline")
	}
	if hits.Load() != 2 {
		t.Fatalf("expected 2 server hits, got %d", hits.Load())
	}
}

func TestFetchOneServesCacheOnServerError(t *testing.T) {
	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		w.Header().Set("Last-Modified", "Tue, 20 Oct 2015 09:00:00 GMT")
		w.Write(crlf(sampleICS))
	}))
	defer srv.Close()

	cacheDir := t.TempDir()
	f := NewFetcher(cacheDir)
	src := Source{ID: "team", URL: srv.URL + "/private/team.ics?token=secret"}
	if _, err := f.FetchOne(context.Background(), src); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	dir := f.cacheDirFor(src.URL)
	if filepath.Dir(dir) != cacheDir || len(filepath.Base(dir)) != 16 {
		t.Fatalf("unexpected cache dir %s", dir)
	}
	meta, err := loadMeta(dir)
	if err != nil {
		t.Fatalf("loadMeta: %v", err)
	}
	if meta.URL != src.URL || meta.LastModified == "" || meta.UpdatedAt.IsZero() {
		t.Fatalf("unexpected cache meta: %+v", meta)
	}
	if _, err := os.Stat(filepath.Join(dir, "body.ics")); err != nil {
		t.Fatalf("expected cached body: %v", err)
	}

	failing.Store(true)
	res, err := f.FetchOne(context.Background(), src)
	if err != nil {
		t.Fatalf("fetch during outage: %v", err)
	}
	if !res.FromCache || string(res.Body) != string(crlf(sampleICS)) {
		t.Fatalf("expected cached body during outage, got %+v", res)
	}
}

func TestFetchOneErrorStatusWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	if _, err := f.FetchOne(context.Background(), Source{ID: "x", URL: srv.URL}); err == nil {
		t.Fatal("expected error for 403 without cache")
	}
}

func TestFetchOneReadsLocalFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.ics")
	if err := os.WriteFile(path, crlf(sampleICS), 0o600); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher(t.TempDir())
	for _, u := range []string{path, "file://" + path} {
		res, err := f.FetchOne(context.Background(), Source{ID: "local", URL: u})
		if err != nil {
			t.Fatalf("%s: %v", u, err)
		}
		if len(res.Body) == 0 || res.FromCache {
			t.Fatalf("%s: unexpected result %+v", u, res)
		}
	}

	if _, err := f.FetchOne(context.Background(), Source{ID: "missing", URL: path + ".gone"}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestFetchAllCollectsErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.ics")
	if err := os.WriteFile(path, crlf(sampleICS), 0o600); err != nil {
		t.Fatal(err)
	}

	f := NewFetcher(t.TempDir())
	results, errs := f.FetchAll(context.Background(), []Source{
		{ID: "ok", URL: path},
		{ID: "empty"},
	})
	if len(results) != 1 || len(errs) != 1 {
		t.Fatalf("expected 1 result and 1 error, got %d / %d", len(results), len(errs))
	}
}

func TestRedactURL(t *testing.T) {
	cases := map[string]string{
		"https://example.com/private/basic.ics?token=abc": "https://example.com/...(redacted)",
		"http://host:8080":                                "http://host:8080/...(redacted)",
		"/etc/calendars/team.ics":                         "file://...(redacted)",
	}
	for in, want := range cases {
		if got := redactURL(in); got != want {
			t.Fatalf("redactURL(%q) = %q, want %q", in, got, want)
		}
	}
}
