package indexer

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/errors"
)

// Engine owns the index under construction. Pages are added until Freeze,
// which seals the index and writes it to disk; Reset then starts the next
// generation. All methods are safe for concurrent use, though the index
// itself only ever sees one writer at a time.
type Engine struct {
	mu         sync.Mutex
	building   *index.InvertedIndex
	generation int
	pages      int
	started    time.Time
	writer     *segment.Writer
	cfg        config.IndexerConfig
	logger     *slog.Logger
}

func NewEngine(cfg config.IndexerConfig) (*Engine, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating index data directory: %w", err)
	}
	return &Engine{
		building:   index.New(),
		generation: 1,
		started:    time.Now(),
		writer:     segment.NewWriter(cfg.DataDir),
		cfg:        cfg,
		logger:     slog.Default().With("component", "indexer"),
	}, nil
}

// IndexPage records words[i] at position i on the page at rawURL. It
// returns ErrInvalidPage for an unusable locator and ErrIndexFrozen once
// the current generation has been frozen.
func (e *Engine) IndexPage(rawURL string, words []string) error {
	page, err := index.NewPage(rawURL)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.building.Frozen() {
		return fmt.Errorf("indexing %s: %w", page, apperrors.ErrIndexFrozen)
	}
	for pos, w := range words {
		e.building.Add(w, page, uint32(pos))
	}
	e.pages++
	e.logger.Debug("page indexed", "page", page.URL(), "words", len(words), "generation", e.generation)
	return nil
}

// Freeze seals the current generation and writes its snapshot to
// cfg.SnapshotPath(). Calling it again before Reset rewrites the same
// snapshot, so a failed write can simply be retried.
func (e *Engine) Freeze() (*index.InvertedIndex, string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.building.Freeze()
	start := time.Now()
	path, err := e.writer.Write(e.cfg.SnapshotName, e.building.Snapshot())
	if err != nil {
		return e.building, "", fmt.Errorf("writing snapshot for generation %d: %w", e.generation, err)
	}
	stats := e.building.Stats()
	e.logger.Info("index frozen",
		"generation", e.generation,
		"path", path,
		"terms", stats.Terms,
		"pages", stats.Pages,
		"postings", stats.Postings,
		"build_time", time.Since(e.started).Round(time.Millisecond),
		"write_time", time.Since(start).Round(time.Millisecond),
	)
	return e.building, path, nil
}

// Reset discards the current generation and starts an empty one. The
// previously frozen index stays valid for anyone holding it.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.building = index.New()
	e.generation++
	e.pages = 0
	e.started = time.Now()
}

type EngineStats struct {
	Generation int         `json:"generation"`
	Pages      int         `json:"pages_received"`
	Index      index.Stats `json:"index"`
}

func (e *Engine) Stats() EngineStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return EngineStats{
		Generation: e.generation,
		Pages:      e.pages,
		Index:      e.building.Stats(),
	}
}

// SnapshotPath is where Freeze writes.
func (e *Engine) SnapshotPath() string {
	return e.cfg.SnapshotPath()
}
