package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/crawler"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	local := flag.Bool("local", false, "build the index in process instead of publishing pages to kafka")
	maxPages := flag.Int("max-pages", -1, "stop after this many pages (overrides crawler.maxPages; 0 means unlimited)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] seed-url...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *maxPages >= 0 {
		cfg.Crawler.MaxPages = *maxPages
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting crawler", "seeds", flag.NArg(), "local", *local || !cfg.Kafka.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port, prometheus.DefaultGatherer)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(shutdownCtx)
		}()
	}

	opts := []crawler.Option{crawler.WithMetrics(m)}
	if cfg.Postgres.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		store, err := crawler.NewPostgresStore(ctx, db)
		if err != nil {
			slog.Error("failed to prepare page store", "error", err)
			os.Exit(1)
		}
		opts = append(opts, crawler.WithStore(store))
		slog.Info("recording page status in postgres", "database", cfg.Postgres.Database)
	}

	var sink crawler.Sink
	var localSink *crawler.LocalSink
	if *local || !cfg.Kafka.Enabled {
		engine, err := indexer.NewEngine(cfg.Indexer)
		if err != nil {
			slog.Error("failed to create index engine", "error", err)
			os.Exit(1)
		}
		localSink = crawler.NewLocalSink(engine)
		sink = localSink
	} else {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.PagesCrawled)
		defer producer.Close()
		sink = crawler.NewKafkaSink(producer)
		slog.Info("publishing pages to kafka", "topic", cfg.Kafka.Topics.PagesCrawled)
	}

	summary, err := crawler.New(cfg.Crawler, sink, opts...).Run(ctx, flag.Args())
	if err != nil {
		slog.Error("crawl failed", "crawl_id", summary.CrawlID, "pages", summary.Pages, "error", err)
		os.Exit(1)
	}

	fmt.Printf("crawl %s: %d pages visited, %d failed, %d words in %s\n",
		summary.CrawlID, summary.Pages, summary.Failed, summary.Words, summary.Elapsed.Round(time.Millisecond))
	if localSink != nil {
		fmt.Printf("index written to %s\n", localSink.SnapshotPath())
	}
}
