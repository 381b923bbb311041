package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/crawler"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/metrics"
)

type memPublisher struct {
	events []kafka.Event
	err    error
}

func (m *memPublisher) Publish(ctx context.Context, e kafka.Event) error {
	return m.PublishBatch(ctx, []kafka.Event{e})
}

func (m *memPublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, events...)
	return nil
}

func newEngine(t *testing.T) *indexer.Engine {
	t.Helper()
	e, err := indexer.NewEngine(config.IndexerConfig{DataDir: t.TempDir(), SnapshotName: "index.spdx"})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func send(t *testing.T, h kafka.MessageHandler, key string, v any) error {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return h(context.Background(), []byte(key), data)
}

func TestCrawlIsIndexedAndAnnounced(t *testing.T) {
	engine := newEngine(t)
	pub := &memPublisher{}
	m := metrics.New(prometheus.NewRegistry())
	h := New(engine, pub, m).Handler()

	pages := []crawler.PageEvent{
		{Type: crawler.EventPage, CrawlID: "c1", URL: "file:///p1.html", Words: []string{"cat", "dog"}},
		{Type: crawler.EventPage, CrawlID: "c1", URL: "file:///p2.html", Words: []string{"dog"}},
		{Type: crawler.EventPage, CrawlID: "c1", URL: "", Words: []string{"lost"}},
	}
	for _, p := range pages {
		if err := send(t, h, p.URL, p); err != nil {
			t.Fatalf("page %q: %v", p.URL, err)
		}
	}
	if err := send(t, h, "c1", crawler.PageEvent{Type: crawler.EventCrawlComplete, CrawlID: "c1"}); err != nil {
		t.Fatalf("crawl_complete: %v", err)
	}

	if len(pub.events) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.events))
	}
	done := pub.events[0].Value.(indexer.IndexComplete)
	if done.Pages != 2 || done.Terms != 2 || done.CrawlID != "c1" || done.Generation != 1 {
		t.Errorf("IndexComplete = %+v", done)
	}
	if done.Path != engine.SnapshotPath() {
		t.Errorf("Path = %q, want %q", done.Path, engine.SnapshotPath())
	}

	ix, err := segment.LoadFile(done.Path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	got := ix.Resolve(ix.PagesWith("dog"))
	want := []index.Page{index.MustPage("file:///p1.html"), index.MustPage("file:///p2.html")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("PagesWith(dog) = %v, want %v", got, want)
	}

	if stats := engine.Stats(); stats.Generation != 2 || stats.Pages != 0 {
		t.Errorf("engine should start a fresh generation, got %+v", stats)
	}
}

func TestFailedAnnouncementIsRetried(t *testing.T) {
	engine := newEngine(t)
	boom := errors.New("broker down")
	pub := &memPublisher{err: boom}
	c := New(engine, pub, nil)
	ctx := context.Background()

	if err := c.Handle(ctx, "p", crawler.PageEvent{Type: crawler.EventPage, URL: "file:///a.html", Words: []string{"x"}}); err != nil {
		t.Fatal(err)
	}
	complete := crawler.PageEvent{Type: crawler.EventCrawlComplete, CrawlID: "c2"}
	if err := c.Handle(ctx, "c2", complete); !errors.Is(err, boom) {
		t.Fatalf("Handle = %v, want %v", err, boom)
	}
	if engine.Stats().Generation != 1 {
		t.Fatal("generation must not advance before the announcement succeeds")
	}

	pub.err = nil
	if err := c.Handle(ctx, "c2", complete); err != nil {
		t.Fatalf("redelivered crawl_complete: %v", err)
	}
	if len(pub.events) != 1 || pub.events[0].Value.(indexer.IndexComplete).Pages != 1 {
		t.Errorf("events = %+v", pub.events)
	}
}

func TestUndecodableAndUnknownEventsAreSkipped(t *testing.T) {
	engine := newEngine(t)
	h := New(engine, nil, nil).Handler()
	if err := h(context.Background(), []byte("k"), []byte("{not json")); err != nil {
		t.Errorf("undecodable message = %v, want nil", err)
	}
	if err := send(t, h, "k", crawler.PageEvent{Type: "mystery"}); err != nil {
		t.Errorf("unknown type = %v, want nil", err)
	}
	if engine.Stats().Pages != 0 {
		t.Error("nothing should have been indexed")
	}
}
