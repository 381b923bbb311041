// Package consumer feeds crawled pages from Kafka into the indexer engine
// and announces every frozen snapshot on the index-complete topic.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/crawler"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/indexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/metrics"
)

// IndexConsumer applies PageEvents to an Engine. The crawler keys every
// event of a crawl by its crawl ID, so a crawl's pages and its
// crawl_complete share one partition and arrive in publish order.
type IndexConsumer struct {
	engine    *indexer.Engine
	publisher kafka.Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New returns a consumer that announces snapshots through publisher. A nil
// publisher freezes and saves without announcing. m may be nil.
func New(engine *indexer.Engine, publisher kafka.Publisher, m *metrics.Metrics) *IndexConsumer {
	return &IndexConsumer{
		engine:    engine,
		publisher: publisher,
		metrics:   m,
		logger:    slog.Default().With("component", "index-consumer"),
	}
}

// Handler adapts Handle to the Kafka consumer.
func (c *IndexConsumer) Handler() kafka.MessageHandler {
	return kafka.JSONHandler(c.logger, c.Handle)
}

// Handle indexes a page event, or on crawl_complete freezes the index,
// publishes IndexComplete and starts the next generation. An error leaves
// the message uncommitted so it is delivered again; Freeze may be repeated
// safely until the announcement succeeds.
func (c *IndexConsumer) Handle(ctx context.Context, key string, event crawler.PageEvent) error {
	switch event.Type {
	case crawler.EventPage:
		return c.indexPage(event)
	case crawler.EventCrawlComplete:
		return c.complete(ctx, event)
	default:
		c.logger.Warn("ignoring event of unknown type", "type", event.Type, "key", key)
		return nil
	}
}

func (c *IndexConsumer) indexPage(event crawler.PageEvent) error {
	err := c.engine.IndexPage(event.URL, event.Words)
	switch {
	case errors.Is(err, apperrors.ErrInvalidPage):
		c.logger.Warn("dropping page with unusable locator", "url", event.URL, "crawl_id", event.CrawlID, "error", err)
		return nil
	case err != nil:
		return fmt.Errorf("indexing %s: %w", event.URL, err)
	}
	if c.metrics != nil {
		c.metrics.PagesIndexed.Inc()
	}
	return nil
}

func (c *IndexConsumer) complete(ctx context.Context, event crawler.PageEvent) error {
	ix, path, err := c.engine.Freeze()
	if err != nil {
		c.countSnapshot("error")
		return err
	}
	c.countSnapshot("ok")

	stats := ix.Stats()
	done := indexer.IndexComplete{
		Path:       path,
		Generation: c.engine.Stats().Generation,
		Terms:      stats.Terms,
		Pages:      stats.Pages,
		CrawlID:    event.CrawlID,
		CreatedAt:  time.Now().UTC(),
	}
	if c.publisher != nil {
		if err := c.publisher.Publish(ctx, kafka.Event{Key: path, Value: done}); err != nil {
			return fmt.Errorf("announcing snapshot %s: %w", path, err)
		}
	}
	c.logger.Info("crawl indexed",
		"crawl_id", event.CrawlID,
		"generation", done.Generation,
		"terms", done.Terms,
		"pages", done.Pages,
		"path", path,
	)
	c.engine.Reset()
	return nil
}

func (c *IndexConsumer) countSnapshot(status string) {
	if c.metrics != nil {
		c.metrics.SnapshotWrites.WithLabelValues(status).Inc()
	}
}
