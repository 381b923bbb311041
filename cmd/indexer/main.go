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

	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/metrics"
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
	slog.Info("starting indexer service", "data_dir", cfg.Indexer.DataDir)

	engine, err := indexer.NewEngine(cfg.Indexer)
	if err != nil {
		slog.Error("failed to create index engine", "error", err)
		os.Exit(1)
	}

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

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexComplete)
	defer producer.Close()

	indexConsumer := consumer.New(engine, producer, m)
	kafkaConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.PagesCrawled, indexConsumer.Handler())

	slog.Info("indexer service ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.PagesCrawled,
		"group", cfg.Kafka.ConsumerGroup,
		"announce_topic", cfg.Kafka.Topics.IndexComplete,
	)
	if err := kafkaConsumer.Start(ctx); err != nil && ctx.Err() == nil {
		slog.Error("consumer error", "error", err)
	}

	stats := engine.Stats()
	if stats.Pages > 0 {
		slog.Warn("shutting down with an unfinished generation",
			"generation", stats.Generation,
			"pages", stats.Pages,
		)
	}
	slog.Info("indexer service stopped")
}
