// Command query answers boolean and phrase queries against a saved index
// snapshot, one query per line of standard input or a single -q.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/indexer/segment"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	snapshot := flag.String("index", "", "snapshot to query (defaults to the configured indexer snapshot)")
	query := flag.String("q", "", "answer this query and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.SetupWriter(os.Stderr, cfg.Logging.Level, "text")

	path := *snapshot
	if path == "" {
		path = cfg.Indexer.SnapshotPath()
	}
	ix, err := segment.LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load index: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if *query != "" {
		if err := answer(ctx, os.Stdout, ix, *query); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	failed := false
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := answer(ctx, os.Stdout, ix, line); err != nil {
			fmt.Fprintln(os.Stderr, err)
			failed = true
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "reading queries: %v\n", err)
		os.Exit(1)
	}
	if failed {
		os.Exit(1)
	}
}

// answer prints the locators matching query, one per line, then the count.
func answer(ctx context.Context, w io.Writer, ix *index.InvertedIndex, query string) error {
	pages, err := executor.Search(ctx, ix, query)
	if err != nil {
		return err
	}
	for _, p := range pages {
		fmt.Fprintln(w, p.URL())
	}
	fmt.Fprintf(w, "%d page(s) match %q\n", len(pages), query)
	return nil
}
