package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/errors"
)

type SearchResult struct {
	Query     string   `json:"query"`
	Canonical string   `json:"canonical"`
	TotalHits int      `json:"total_hits"`
	Pages     []string `json:"pages"`
}

// Executor answers queries against the currently loaded frozen index. The
// index can be replaced at any time with Swap; in-flight queries keep the
// index they started with.
type Executor struct {
	index  atomic.Pointer[index.InvertedIndex]
	logger *slog.Logger
}

// New returns an Executor serving ix, which is frozen if it is not already.
// ix may be nil, in which case queries fail with ErrIndexNotLoaded until
// Swap installs an index.
func New(ix *index.InvertedIndex) *Executor {
	e := &Executor{
		logger: slog.Default().With("component", "query-executor"),
	}
	if ix != nil {
		e.Swap(ix)
	}
	return e
}

// Swap freezes ix, makes it the served index and returns the previous one.
func (e *Executor) Swap(ix *index.InvertedIndex) *index.InvertedIndex {
	ix.Freeze()
	old := e.index.Swap(ix)
	stats := ix.Stats()
	e.logger.Info("index installed", "terms", stats.Terms, "pages", stats.Pages)
	return old
}

// Index returns the served index, or nil if none is loaded.
func (e *Executor) Index() *index.InvertedIndex {
	return e.index.Load()
}

// Execute parses and evaluates query. limit caps the number of returned
// pages; limit <= 0 returns all of them. TotalHits is always the full count.
func (e *Executor) Execute(ctx context.Context, query string, limit int) (*SearchResult, error) {
	node, err := parser.Parse(query)
	if err != nil {
		return nil, err
	}
	return e.ExecuteNode(ctx, query, node, limit)
}

// ExecuteNode evaluates an already parsed query.
func (e *Executor) ExecuteNode(ctx context.Context, query string, node parser.Node, limit int) (*SearchResult, error) {
	ix := e.index.Load()
	if ix == nil {
		return nil, apperrors.ErrIndexNotLoaded
	}
	result := &SearchResult{
		Query: query,
		Pages: []string{},
	}
	if node == nil {
		return result, nil
	}
	result.Canonical = node.String()

	start := time.Now()
	ids, err := Evaluate(ctx, ix, node)
	if err != nil {
		return nil, fmt.Errorf("evaluating %s: %w", result.Canonical, err)
	}
	pages := ix.Resolve(ids)
	result.TotalHits = len(pages)
	if limit > 0 && len(pages) > limit {
		pages = pages[:limit]
	}
	for _, p := range pages {
		result.Pages = append(result.Pages, p.URL())
	}

	e.logger.Info("query executed",
		"query", query,
		"canonical", result.Canonical,
		"hits", result.TotalHits,
		"returned", len(result.Pages),
		"duration", time.Since(start),
	)
	return result, nil
}

// Search evaluates query against ix and returns the matching pages sorted
// by locator. An empty query matches nothing.
func Search(ctx context.Context, ix *index.InvertedIndex, query string) ([]index.Page, error) {
	node, err := parser.Parse(query)
	if err != nil {
		return nil, err
	}
	ids, err := Evaluate(ctx, ix, node)
	if err != nil {
		return nil, err
	}
	return ix.Resolve(ids), nil
}
