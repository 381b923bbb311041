// Package handler exposes the query engine over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/middleware"
)

type Handler struct {
	executor     *executor.Executor
	cache        *cache.QueryCache
	collector    *analytics.Collector
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

// New wires the search endpoints. queryCache, collector and m are optional.
func New(exec *executor.Executor, queryCache *cache.QueryCache, collector *analytics.Collector, m *metrics.Metrics, cfg config.SearchConfig) *Handler {
	return &Handler{
		executor:     exec,
		cache:        queryCache,
		collector:    collector,
		metrics:      m,
		defaultLimit: cfg.DefaultLimit,
		maxResults:   cfg.MaxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Search answers GET /api/v1/search?q=...&limit=...
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	limit, err := h.limit(r.URL.Query().Get("limit"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	node, err := parser.Parse(query)
	if err != nil {
		log.Info("malformed query", "query", query, "error", err)
		h.countQuery("malformed")
		h.track(r, analytics.QueryEvent{Query: query, Error: err.Error(), LatencyMs: time.Since(start).Milliseconds()})
		h.writeError(w, err)
		return
	}
	if node == nil {
		h.writeJSON(w, http.StatusOK, &executor.SearchResult{Query: query, Pages: []string{}})
		return
	}

	canonical := node.String()
	compute := func(ctx context.Context) (*executor.SearchResult, error) {
		return h.executor.ExecuteNode(ctx, query, node, limit)
	}
	var result *executor.SearchResult
	cacheStatus := "disabled"
	if h.cache != nil {
		var hit bool
		result, hit, err = h.cache.GetOrCompute(ctx, query, canonical, limit, compute)
		cacheStatus = "miss"
		if hit {
			cacheStatus = "hit"
		}
		h.countCache(hit)
	} else {
		result, err = compute(ctx)
	}
	if err != nil {
		log.Error("search failed", "query", query, "canonical", canonical, "error", err)
		h.countQuery("error")
		h.writeError(w, err)
		return
	}

	latency := time.Since(start)
	log.Info("search completed",
		"query", query,
		"canonical", canonical,
		"total_hits", result.TotalHits,
		"returned", len(result.Pages),
		"cache", cacheStatus,
		"latency_ms", latency.Milliseconds(),
	)
	if h.metrics != nil {
		h.metrics.QueryLatency.WithLabelValues(cacheStatus).Observe(latency.Seconds())
		h.metrics.QueryHits.Observe(float64(result.TotalHits))
	}
	if result.TotalHits == 0 {
		h.countQuery("zero_result")
	} else {
		h.countQuery("ok")
	}
	h.track(r, analytics.QueryEvent{
		Query:     query,
		Canonical: canonical,
		Terms:     parser.Terms(node),
		TotalHits: result.TotalHits,
		Returned:  len(result.Pages),
		LatencyMs: latency.Milliseconds(),
		CacheHit:  cacheStatus == "hit",
	})
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) limit(raw string) (int, error) {
	if raw == "" {
		return h.defaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer")
	}
	return min(n, h.maxResults), nil
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "caching is disabled"})
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cache invalidation failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

// IndexStats reports the size of the served index.
func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	ix := h.executor.Index()
	if ix == nil {
		h.writeError(w, apperrors.ErrIndexNotLoaded)
		return
	}
	h.writeJSON(w, http.StatusOK, ix.Stats())
}

func (h *Handler) track(r *http.Request, event analytics.QueryEvent) {
	if h.collector == nil {
		return
	}
	event.RequestID = middleware.GetRequestID(r.Context())
	h.collector.Track(event)
}

func (h *Handler) countQuery(outcome string) {
	if h.metrics != nil {
		h.metrics.QueriesTotal.WithLabelValues(outcome).Inc()
	}
}

func (h *Handler) countCache(hit bool) {
	if h.metrics == nil {
		return
	}
	if hit {
		h.metrics.CacheHits.Inc()
	} else {
		h.metrics.CacheMisses.Inc()
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError answers with the status HTTPStatusCode assigns to err. Server
// side failures are reported without detail.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatusCode(err)
	body := map[string]any{"error": err.Error()}
	var syntax *parser.SyntaxError
	if errors.As(err, &syntax) {
		body["position"] = syntax.Pos
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body["error"] = appErr.Message
	}
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		body["error"] = "search failed"
	}
	h.writeJSON(w, status, body)
}
