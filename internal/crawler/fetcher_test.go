package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetchFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.html")
	if err := os.WriteFile(path, []byte("<p>hi</p>"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := NewFetcher("wq-test", time.Second, 1)
	u, _ := url.Parse("file://" + filepath.ToSlash(path))
	body, err := f.Fetch(context.Background(), u)
	if err != nil || string(body) != "<p>hi</p>" {
		t.Errorf("Fetch = %q, %v", body, err)
	}

	u.Path += ".missing"
	if _, err := f.Fetch(context.Background(), u); err == nil {
		t.Error("missing file should fail")
	}
}

func TestFetchUnsupportedScheme(t *testing.T) {
	u, _ := url.Parse("ftp://example.com/a.html")
	if _, err := NewFetcher("wq-test", time.Second, 1).Fetch(context.Background(), u); err == nil {
		t.Error("ftp should be rejected")
	}
}

func TestFetchHonoursRobots(t *testing.T) {
	var robotsHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			robotsHits.Add(1)
			w.Write([]byte("User-agent: *\nDisallow: /private/\n"))
		case "/public/a.html":
			w.Write([]byte("<p>public</p>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewFetcher("wq-test", time.Second, 1)
	ctx := context.Background()
	public, _ := url.Parse(srv.URL + "/public/a.html")
	private, _ := url.Parse(srv.URL + "/private/b.html")

	body, err := f.Fetch(ctx, public)
	if err != nil || string(body) != "<p>public</p>" {
		t.Errorf("public Fetch = %q, %v", body, err)
	}
	if _, err := f.Fetch(ctx, private); !errors.Is(err, ErrDisallowed) {
		t.Errorf("private Fetch error = %v, want ErrDisallowed", err)
	}
	if n := robotsHits.Load(); n != 1 {
		t.Errorf("robots.txt fetched %d times, want 1", n)
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL + "/flaky.html")
	body, err := NewFetcher("wq-test", time.Second, 3).Fetch(context.Background(), u)
	if err != nil || string(body) != "ok" {
		t.Fatalf("Fetch = %q, %v", body, err)
	}
	if calls.Load() != 3 {
		t.Errorf("server saw %d calls, want 3", calls.Load())
	}
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			calls.Add(1)
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	u, _ := url.Parse(srv.URL + "/gone.html")
	if _, err := NewFetcher("wq-test", time.Second, 3).Fetch(context.Background(), u); err == nil {
		t.Fatal("404 should fail")
	}
	if calls.Load() != 1 {
		t.Errorf("server saw %d calls, want 1", calls.Load())
	}
}
