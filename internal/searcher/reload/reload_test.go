package reload

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/config"
)

func writeSnapshot(t *testing.T, dir string, pages map[string][]string) string {
	t.Helper()
	e, err := indexer.NewEngine(config.IndexerConfig{DataDir: dir, SnapshotName: "index.spdx"})
	if err != nil {
		t.Fatal(err)
	}
	for url, words := range pages {
		if err := e.IndexPage(url, words); err != nil {
			t.Fatal(err)
		}
	}
	_, path, err := e.Freeze()
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func TestHandleSwapsIndex(t *testing.T) {
	dir := t.TempDir()
	exec := executor.New(nil)
	r := New(exec, nil, nil)
	ctx := context.Background()

	path := writeSnapshot(t, dir, map[string][]string{"file:///p1.html": {"cat"}})
	if err := r.Handle(ctx, path, indexer.IndexComplete{Path: path, Generation: 1}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	res, err := exec.Execute(ctx, "cat", 0)
	if err != nil || res.TotalHits != 1 {
		t.Fatalf("Execute(cat) = %+v, %v", res, err)
	}
	if p, at := r.Loaded(); p != path || at.IsZero() {
		t.Errorf("Loaded() = %q, %v", p, at)
	}

	path = writeSnapshot(t, dir, map[string][]string{"file:///p2.html": {"dog"}})
	if err := r.Handle(ctx, path, indexer.IndexComplete{Path: path, Generation: 2}); err != nil {
		t.Fatal(err)
	}
	if res, _ := exec.Execute(ctx, "cat", 0); res.TotalHits != 0 {
		t.Errorf("old index still served: %+v", res)
	}
	if res, _ := exec.Execute(ctx, "dog", 0); res.TotalHits != 1 {
		t.Errorf("new index not served: %+v", res)
	}
}

func TestHandleSkipsUnusableSnapshots(t *testing.T) {
	dir := t.TempDir()
	exec := executor.New(nil)
	r := New(exec, nil, nil)

	missing := filepath.Join(dir, "missing.spdx")
	if err := r.Handle(context.Background(), "", indexer.IndexComplete{Path: missing}); err != nil {
		t.Errorf("missing snapshot: %v", err)
	}
	garbage := filepath.Join(dir, "garbage.spdx")
	if err := os.WriteFile(garbage, make([]byte, 256), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.Handle(context.Background(), "", indexer.IndexComplete{Path: garbage}); err != nil {
		t.Errorf("corrupt snapshot: %v", err)
	}
	// A well-formed file whose header claims a negative postings size.
	data, err := os.ReadFile(writeSnapshot(t, dir, map[string][]string{"file:///p1.html": {"cat"}}))
	if err != nil {
		t.Fatal(err)
	}
	binary.LittleEndian.PutUint64(data[40:48], math.MaxUint64)
	badSize := filepath.Join(dir, "bad-size.spdx")
	if err := os.WriteFile(badSize, data, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := r.Handle(context.Background(), "", indexer.IndexComplete{Path: badSize}); err != nil {
		t.Errorf("snapshot with bad header sizes: %v", err)
	}
	if exec.Index() != nil {
		t.Error("no index should be installed")
	}
	if err := r.Load(context.Background(), garbage); err == nil {
		t.Error("Load should report the corrupt snapshot")
	}
	if _, at := r.Loaded(); !at.Equal(time.Time{}) {
		t.Error("nothing was loaded")
	}
}
