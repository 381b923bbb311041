// Package crawler walks a web of HTML pages breadth-first from a set of
// seed URLs and hands each page's words to a Sink.
package crawler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/metrics"
)

var nowUTC = func() time.Time { return time.Now().UTC() }

type Crawler struct {
	fetcher  *Fetcher
	sink     Sink
	store    StatusStore
	metrics  *metrics.Metrics
	workers  int
	maxPages int
	logger   *slog.Logger
}

type Option func(*Crawler)

// WithStore records every fetch outcome in store.
func WithStore(store StatusStore) Option {
	return func(c *Crawler) { c.store = store }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Crawler) { c.metrics = m }
}

func New(cfg config.CrawlerConfig, sink Sink, opts ...Option) *Crawler {
	c := &Crawler{
		fetcher:  NewFetcher(cfg.UserAgent, cfg.FetchTimeout, cfg.MaxAttempts),
		sink:     sink,
		workers:  max(cfg.Workers, 1),
		maxPages: cfg.MaxPages,
		logger:   slog.Default().With("component", "crawler"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// fetched is the outcome of visiting one URL.
type fetched struct {
	url string
	doc *Document
	err error
}

// Run crawls from seeds until the frontier is empty or MaxPages pages have
// been visited, then calls Complete on the sink. Pages are fetched in
// breadth-first waves by up to Workers goroutines; results are handed to
// the sink in frontier order from the calling goroutine. A page that cannot
// be fetched or parsed is counted as failed and the crawl goes on. Sink
// errors abort the crawl.
func (c *Crawler) Run(ctx context.Context, seeds []string) (Summary, error) {
	start := time.Now()
	summary := Summary{CrawlID: uuid.NewString()}
	logger := c.logger.With("crawl_id", summary.CrawlID)

	frontier := NewFrontier()
	for _, seed := range seeds {
		if !frontier.Push(seed) {
			logger.Warn("ignoring seed", "url", seed)
			summary.Skipped++
		}
	}
	logger.Info("crawl started", "seeds", len(seeds), "workers", c.workers, "max_pages", c.maxPages)

	visited := 0
	for frontier.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		n := frontier.Len()
		if c.maxPages > 0 {
			n = min(n, c.maxPages-visited)
		}
		if n == 0 {
			break
		}
		wave := frontier.Take(n)
		visited += len(wave)

		results, err := c.fetchWave(ctx, wave)
		if err != nil {
			return summary, err
		}
		for _, r := range results {
			if r.err != nil {
				summary.Failed++
				c.countPage("failed")
				logger.Warn("page failed", "url", r.url, "error", r.err)
				c.record(ctx, summary.CrawlID, r.url, StatusFailed, 0, r.err)
				continue
			}
			event := PageEvent{
				Type:      EventPage,
				CrawlID:   summary.CrawlID,
				URL:       r.url,
				Title:     r.doc.Title,
				Words:     r.doc.Words,
				Links:     len(r.doc.Links),
				FetchedAt: nowUTC(),
			}
			if err := c.sink.Page(ctx, event); err != nil {
				return summary, fmt.Errorf("delivering %s: %w", r.url, err)
			}
			summary.Pages++
			summary.Words += len(r.doc.Words)
			c.countPage("crawled")
			c.record(ctx, summary.CrawlID, r.url, StatusCrawled, len(r.doc.Words), nil)
			for _, link := range r.doc.Links {
				frontier.Push(link)
			}
		}
	}

	summary.Elapsed = time.Since(start)
	if err := c.sink.Complete(ctx, summary); err != nil {
		return summary, err
	}
	logger.Info("crawl finished",
		"pages", summary.Pages,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"words", summary.Words,
		"discovered", frontier.Seen(),
		"elapsed", summary.Elapsed.Round(time.Millisecond),
	)
	return summary, nil
}

// fetchWave visits every URL of one wave concurrently. Per-page failures
// are reported in the result; only cancellation fails the wave.
func (c *Crawler) fetchWave(ctx context.Context, wave []string) ([]fetched, error) {
	results := make([]fetched, len(wave))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, raw := range wave {
		i, raw := i, raw
		g.Go(func() error {
			doc, err := c.visit(gctx, raw)
			if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return err
			}
			results[i] = fetched{url: raw, doc: doc, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (c *Crawler) visit(ctx context.Context, raw string) (*Document, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing url: %w", err)
	}
	body, err := c.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	return Extract(bytes.NewReader(body), u)
}

func (c *Crawler) countPage(status string) {
	if c.metrics != nil {
		c.metrics.PagesCrawled.WithLabelValues(status).Inc()
	}
}

func (c *Crawler) record(ctx context.Context, crawlID, url string, status PageStatus, words int, cause error) {
	if c.store == nil {
		return
	}
	if err := c.store.Record(ctx, crawlID, url, status, words, cause); err != nil {
		c.logger.Error("failed to record page status", "url", url, "error", err)
	}
}
