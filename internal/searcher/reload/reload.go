// Package reload installs freshly written index snapshots into a running
// searcher.
package reload

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/metrics"
)

type Reloader struct {
	executor *executor.Executor
	cache    *cache.QueryCache
	metrics  *metrics.Metrics
	logger   *slog.Logger

	mu       sync.Mutex
	path     string
	loadedAt time.Time
}

// New returns a Reloader for exec. queryCache and m may be nil.
func New(exec *executor.Executor, queryCache *cache.QueryCache, m *metrics.Metrics) *Reloader {
	return &Reloader{
		executor: exec,
		cache:    queryCache,
		metrics:  m,
		logger:   slog.Default().With("component", "index-reloader"),
	}
}

// Load reads the snapshot at path, swaps it in and drops cached results
// computed against the previous index. Queries already running finish on
// the index they started with.
func (r *Reloader) Load(ctx context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	ix, err := segment.LoadFile(path)
	if err != nil {
		return fmt.Errorf("loading snapshot %s: %w", path, err)
	}
	r.executor.Swap(ix)
	r.path = path
	r.loadedAt = time.Now()

	stats := ix.Stats()
	if r.metrics != nil {
		r.metrics.IndexSwaps.Inc()
		r.metrics.IndexTerms.Set(float64(stats.Terms))
		r.metrics.IndexPages.Set(float64(stats.Pages))
	}
	if r.cache != nil {
		if _, err := r.cache.Invalidate(ctx); err != nil {
			r.logger.Error("stale results may be served until they expire", "error", err)
		}
	}
	r.logger.Info("snapshot loaded",
		"path", path,
		"terms", stats.Terms,
		"pages", stats.Pages,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// Handle reloads on an IndexComplete announcement. Snapshots that are gone
// or corrupt are skipped; a later announcement replaces them anyway.
func (r *Reloader) Handle(ctx context.Context, _ string, done indexer.IndexComplete) error {
	err := r.Load(ctx, done.Path)
	if errors.Is(err, apperrors.ErrCorruptSegment) || errors.Is(err, fs.ErrNotExist) {
		r.logger.Error("skipping unusable snapshot", "path", done.Path, "generation", done.Generation, "error", err)
		return nil
	}
	return err
}

func (r *Reloader) Handler() kafka.MessageHandler {
	return kafka.JSONHandler(r.logger, r.Handle)
}

// Loaded returns the path and time of the last successful load.
func (r *Reloader) Loaded() (string, time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path, r.loadedAt
}
