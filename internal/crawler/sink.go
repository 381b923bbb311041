package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/kafka"
)

// Sink receives crawled pages one at a time from a single goroutine.
type Sink interface {
	Page(ctx context.Context, event PageEvent) error
	Complete(ctx context.Context, summary Summary) error
}

// LocalSink indexes pages in process and writes the snapshot when the
// crawl completes.
type LocalSink struct {
	engine *indexer.Engine
	logger *slog.Logger
	path   string
}

func NewLocalSink(engine *indexer.Engine) *LocalSink {
	return &LocalSink{
		engine: engine,
		logger: slog.Default().With("component", "local-sink"),
	}
}

func (s *LocalSink) Page(_ context.Context, event PageEvent) error {
	err := s.engine.IndexPage(event.URL, event.Words)
	if errors.Is(err, apperrors.ErrInvalidPage) {
		s.logger.Warn("skipping page with unusable locator", "url", event.URL, "error", err)
		return nil
	}
	return err
}

func (s *LocalSink) Complete(_ context.Context, summary Summary) error {
	_, path, err := s.engine.Freeze()
	if err != nil {
		return fmt.Errorf("saving index for crawl %s: %w", summary.CrawlID, err)
	}
	s.path = path
	return nil
}

// SnapshotPath is where the last Complete wrote the index.
func (s *LocalSink) SnapshotPath() string {
	return s.path
}

// KafkaSink publishes one PageEvent per page and a final crawl_complete
// event. Every event of a crawl is keyed by the crawl ID so the whole crawl
// lands on one partition and crawl_complete is delivered after its pages.
type KafkaSink struct {
	publisher kafka.Publisher
}

func NewKafkaSink(publisher kafka.Publisher) *KafkaSink {
	return &KafkaSink{publisher: publisher}
}

func (s *KafkaSink) Page(ctx context.Context, event PageEvent) error {
	if err := s.publisher.Publish(ctx, kafka.Event{Key: event.CrawlID, Value: event}); err != nil {
		return fmt.Errorf("publishing page %s: %w", event.URL, err)
	}
	return nil
}

func (s *KafkaSink) Complete(ctx context.Context, summary Summary) error {
	event := PageEvent{
		Type:      EventCrawlComplete,
		CrawlID:   summary.CrawlID,
		FetchedAt: nowUTC(),
		Summary:   &summary,
	}
	if err := s.publisher.Publish(ctx, kafka.Event{Key: summary.CrawlID, Value: event}); err != nil {
		return fmt.Errorf("publishing completion of crawl %s: %w", summary.CrawlID, err)
	}
	return nil
}
