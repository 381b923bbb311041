package crawler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/kafka"
)

// writeSite lays out pages under a temp dir and returns the file:// URL
// of each by name.
func writeSite(t *testing.T, pages map[string]string) map[string]string {
	t.Helper()
	dir := t.TempDir()
	urls := make(map[string]string, len(pages))
	for name, body := range pages {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		urls[name] = "file://" + filepath.ToSlash(path)
	}
	return urls
}

type recordingSink struct {
	pages    []PageEvent
	summary  *Summary
	failPage error
}

func (s *recordingSink) Page(_ context.Context, e PageEvent) error {
	if s.failPage != nil {
		return s.failPage
	}
	s.pages = append(s.pages, e)
	return nil
}

func (s *recordingSink) Complete(_ context.Context, summary Summary) error {
	s.summary = &summary
	return nil
}

type memStatusStore struct {
	mu     sync.Mutex
	status map[string]PageStatus
}

func (m *memStatusStore) Record(_ context.Context, _ string, url string, status PageStatus, _ int, _ error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.status == nil {
		m.status = make(map[string]PageStatus)
	}
	m.status[url] = status
	return nil
}

func testConfig() config.CrawlerConfig {
	return config.CrawlerConfig{
		UserAgent:    "wq-test",
		Workers:      3,
		FetchTimeout: 5 * time.Second,
		MaxAttempts:  1,
	}
}

var site = map[string]string{
	"index.html": `<html><head><title>Home</title></head><body>
		<p>welcome home</p>
		<a href="a.html">a</a> <a href="b.html#frag">b</a> <a href="missing.html">gone</a>
		<a href="notes.txt">skip</a></body></html>`,
	"a.html": `<p>cat dog</p><a href="index.html">back</a><a href="b.html">b</a>`,
	"b.html": `<p>dog bird</p><script>var cat = 1;</script>`,
}

func TestRunVisitsReachablePagesOnce(t *testing.T) {
	urls := writeSite(t, site)
	sink := &recordingSink{}
	store := &memStatusStore{}
	c := New(testConfig(), sink, WithStore(store))

	summary, err := c.Run(context.Background(), []string{urls["index.html"]})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Pages != 3 || summary.Failed != 1 {
		t.Errorf("summary = %+v, want 3 pages and 1 failure", summary)
	}
	if summary.CrawlID == "" {
		t.Error("crawl ID should be set")
	}
	if sink.summary == nil || sink.summary.CrawlID != summary.CrawlID {
		t.Fatalf("sink completion = %+v", sink.summary)
	}

	var got []string
	for _, p := range sink.pages {
		got = append(got, p.URL)
		if p.CrawlID != summary.CrawlID || p.Type != EventPage {
			t.Errorf("event %+v has wrong crawl ID or type", p)
		}
	}
	want := []string{urls["index.html"], urls["a.html"], urls["b.html"]}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("pages in order = %v, want %v", got, want)
	}
	if got := sink.pages[2].Words; !reflect.DeepEqual(got, []string{"dog", "bird"}) {
		t.Errorf("words of b.html = %v, want [dog bird]", got)
	}

	if store.status[urls["a.html"]] != StatusCrawled {
		t.Errorf("status of a.html = %q", store.status[urls["a.html"]])
	}
	missing := strings.TrimSuffix(urls["index.html"], "index.html") + "missing.html"
	if store.status[missing] != StatusFailed {
		t.Errorf("status of missing page = %q, statuses %v", store.status[missing], store.status)
	}
}

func TestRunRespectsMaxPages(t *testing.T) {
	urls := writeSite(t, site)
	sink := &recordingSink{}
	cfg := testConfig()
	cfg.MaxPages = 2
	summary, err := New(cfg, sink).Run(context.Background(), []string{urls["index.html"]})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Pages+summary.Failed != 2 {
		t.Errorf("visited %d pages, want 2", summary.Pages+summary.Failed)
	}
}

func TestRunSkipsBadSeeds(t *testing.T) {
	urls := writeSite(t, site)
	sink := &recordingSink{}
	summary, err := New(testConfig(), sink).Run(context.Background(), []string{"", urls["b.html"], urls["b.html"]})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Skipped != 2 || summary.Pages != 1 {
		t.Errorf("summary = %+v, want 2 skipped and 1 page", summary)
	}
}

func TestRunStopsOnSinkError(t *testing.T) {
	urls := writeSite(t, site)
	boom := errors.New("sink down")
	sink := &recordingSink{failPage: boom}
	_, err := New(testConfig(), sink).Run(context.Background(), []string{urls["index.html"]})
	if !errors.Is(err, boom) {
		t.Fatalf("Run error = %v, want %v", err, boom)
	}
	if sink.summary != nil {
		t.Error("Complete should not be called after a sink failure")
	}
}

func TestRunCancelled(t *testing.T) {
	urls := writeSite(t, site)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(testConfig(), &recordingSink{}).Run(ctx, []string{urls["index.html"]})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
}

func TestLocalSinkBuildsSearchableIndex(t *testing.T) {
	urls := writeSite(t, map[string]string{
		"p1.html": `<html><body><p>The cat sat with the dog.</p><a href="p2.html">next</a></body></html>`,
		"p2.html": `<html><body><p>A dog barked.</p></body></html>`,
	})
	engine, err := indexer.NewEngine(config.IndexerConfig{DataDir: t.TempDir(), SnapshotName: "index.spdx"})
	if err != nil {
		t.Fatal(err)
	}
	sink := NewLocalSink(engine)
	if _, err := New(testConfig(), sink).Run(context.Background(), []string{urls["p1.html"]}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sink.SnapshotPath() != engine.SnapshotPath() {
		t.Fatalf("SnapshotPath = %q, want %q", sink.SnapshotPath(), engine.SnapshotPath())
	}

	ix, err := segment.LoadFile(sink.SnapshotPath())
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	tests := []struct {
		query string
		want  []string
	}{
		{"cat & dog", []string{urls["p1.html"]}},
		{"cat | dog", []string{urls["p1.html"], urls["p2.html"]}},
		{"dog & !cat", []string{urls["p2.html"]}},
		{`"cat sat"`, []string{urls["p1.html"]}},
		{`"sat cat"`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			pages, err := executor.Search(context.Background(), ix, tt.query)
			if err != nil {
				t.Fatal(err)
			}
			var got []string
			for _, p := range pages {
				got = append(got, p.URL())
			}
			sort.Strings(got)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Search(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

type memPublisher struct {
	events []kafka.Event
}

func (m *memPublisher) Publish(ctx context.Context, e kafka.Event) error {
	return m.PublishBatch(ctx, []kafka.Event{e})
}

func (m *memPublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	m.events = append(m.events, events...)
	return nil
}

func TestKafkaSinkPublishesPagesThenCompletion(t *testing.T) {
	urls := writeSite(t, site)
	pub := &memPublisher{}
	summary, err := New(testConfig(), NewKafkaSink(pub)).Run(context.Background(), []string{urls["index.html"]})
	if err != nil {
		t.Fatal(err)
	}
	if len(pub.events) != summary.Pages+1 {
		t.Fatalf("published %d events, want %d pages plus completion", len(pub.events), summary.Pages)
	}
	// One key per crawl keeps pages and completion on the same partition.
	for i, e := range pub.events {
		if e.Key != summary.CrawlID {
			t.Errorf("event %d key = %q, want crawl ID %q", i, e.Key, summary.CrawlID)
		}
	}
	for _, e := range pub.events[:summary.Pages] {
		if page := e.Value.(PageEvent); page.Type != EventPage || page.CrawlID != summary.CrawlID {
			t.Errorf("page event = %+v", page)
		}
	}
	done := pub.events[summary.Pages].Value.(PageEvent)
	if done.Type != EventCrawlComplete || done.Summary == nil || done.Summary.Pages != 3 {
		t.Errorf("completion event = %+v", done)
	}
}

func TestFrontier(t *testing.T) {
	f := NewFrontier()
	if !f.Push("file:///a.html") || !f.Push("file:///b.html") {
		t.Fatal("fresh URLs should be queued")
	}
	if f.Push("file:///a.html#section") {
		t.Error("URL differing only by fragment should be a duplicate")
	}
	if f.Push("") {
		t.Error("empty URL should be rejected")
	}
	if got := f.Take(5); !reflect.DeepEqual(got, []string{"file:///a.html", "file:///b.html"}) {
		t.Errorf("Take = %v", got)
	}
	if f.Len() != 0 || f.Seen() != 2 {
		t.Errorf("Len = %d, Seen = %d", f.Len(), f.Seen())
	}
	if f.Push("file:///b.html") {
		t.Error("taken URL must not be queued again")
	}
}
