package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/searcher/reload"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/middleware"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "snapshot", cfg.Indexer.SnapshotPath())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)

	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL)
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	exec := executor.New(nil)
	reloader := reload.New(exec, queryCache, m)
	if err := reloader.Load(ctx, cfg.Indexer.SnapshotPath()); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("no snapshot yet, serving 503 until one is announced", "path", cfg.Indexer.SnapshotPath())
		} else {
			slog.Error("failed to load snapshot", "error", err)
			os.Exit(1)
		}
	}

	aggregator := analytics.NewAggregator()
	var publisher kafka.Publisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents)
		defer producer.Close()
		publisher = producer

		// Every searcher replica must see every announcement, so each
		// one reads through its own consumer group.
		host, _ := os.Hostname()
		reloadCfg := cfg.Kafka
		reloadCfg.ConsumerGroup = fmt.Sprintf("%s-searcher-%s", cfg.Kafka.ConsumerGroup, host)
		reloadConsumer := kafka.NewConsumer(reloadCfg, cfg.Kafka.Topics.IndexComplete, reloader.Handler())
		go func() {
			if err := reloadConsumer.Start(ctx); err != nil {
				slog.Error("index reload consumer error", "error", err)
			}
		}()
		slog.Info("listening for new snapshots", "topic", cfg.Kafka.Topics.IndexComplete, "group", reloadCfg.ConsumerGroup)
	}
	collector := analytics.NewCollector(publisher, aggregator, 10000)
	collector.Start(ctx)
	defer collector.Close()

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		ix := exec.Index()
		if ix == nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: "no index loaded"}
		}
		stats := ix.Stats()
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d terms, %d pages", stats.Terms, stats.Pages)}
	})
	if redisClient != nil {
		checker.Register("redis", health.Ping(redisClient.Ping, true))
	}

	h := handler.New(exec, queryCache, collector, m, cfg.Search)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("GET /api/v1/analytics/stats", aggregator.StatsHandler())
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	if cfg.Server.RateLimit > 0 {
		chain = middleware.RateLimit(middleware.NewLimiter(cfg.Server.RateLimit, time.Minute))(chain)
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		chain = middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins))(chain)
	}
	chain = middleware.Metrics(m)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
