package segment

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/errors"
)

func buildIndex() *index.InvertedIndex {
	ix := index.New()
	words := map[string][]string{
		"file:///corpus/doc0.html": {"the", "quick", "brown", "fox"},
		"file:///corpus/doc1.html": {"the", "lazy", "dog", "the", "end"},
		"file:///corpus/doc2.html": {"quick", "dog"},
	}
	for url, ws := range words {
		page := index.MustPage(url)
		for pos, w := range ws {
			ix.Add(w, page, uint32(pos))
		}
	}
	ix.Freeze()
	return ix
}

func TestWriteLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	ix := buildIndex()

	path, err := NewWriter(dir).Write("index.spdx", ix.Snapshot())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}

	r, err := OpenReader(path)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer r.Close()
	if r.Terms() != len(ix.Terms()) {
		t.Errorf("Terms() = %d, want %d", r.Terms(), len(ix.Terms()))
	}
	if r.PageCount() != 3 {
		t.Errorf("PageCount() = %d, want 3", r.PageCount())
	}

	loaded, err := r.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !loaded.Frozen() {
		t.Error("loaded index should be frozen")
	}
	for _, term := range ix.Terms() {
		want := ix.Resolve(ix.PagesWith(term))
		got := loaded.Resolve(loaded.PagesWith(term))
		if !reflect.DeepEqual(got, want) {
			t.Errorf("PagesWith(%q) = %v, want %v", term, got, want)
		}
		for _, page := range want {
			if g, w := loaded.PositionsOf(term, page).ToArray(), ix.PositionsOf(term, page).ToArray(); !reflect.DeepEqual(g, w) {
				t.Errorf("PositionsOf(%q, %s) = %v, want %v", term, page, g, w)
			}
		}
	}
}

func TestReaderSearch(t *testing.T) {
	dir := t.TempDir()
	path, err := NewWriter(dir).Write("index.spdx", buildIndex().Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	r, err := OpenReader(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	postings, err := r.Search("the")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	want := index.PostingList{
		{Page: "file:///corpus/doc0.html", Positions: []uint32{0}},
		{Page: "file:///corpus/doc1.html", Positions: []uint32{0, 3}},
	}
	if !reflect.DeepEqual(postings, want) {
		t.Errorf("Search(the) = %+v, want %+v", postings, want)
	}
	missing, err := r.Search("zebra")
	if err != nil || missing != nil {
		t.Errorf("Search(zebra) = %v, %v; want nil, nil", missing, err)
	}
}

func TestEmptyIndexRoundTrip(t *testing.T) {
	ix := index.New()
	ix.Freeze()
	path, err := NewWriter(t.TempDir()).Write("empty.spdx", ix.Snapshot())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if stats := loaded.Stats(); stats.Terms != 0 || stats.Pages != 0 {
		t.Errorf("Stats = %+v, want empty", stats)
	}
}

func TestCorruptSegments(t *testing.T) {
	dir := t.TempDir()
	path, err := NewWriter(dir).Write("index.spdx", buildIndex().Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"bad magic", func(b []byte) []byte { b[0] ^= 0xff; return b }},
		{"flipped postings byte", func(b []byte) []byte { b[HeaderSize+2] ^= 0x01; return b }},
		{"flipped dictionary byte", func(b []byte) []byte { b[len(b)-FooterSize-2] ^= 0x01; return b }},
		{"truncated", func(b []byte) []byte { return b[:HeaderSize/2] }},
		{"truncated postings", func(b []byte) []byte { return b[:HeaderSize+4] }},
		{"negative dictionary size", rewriteHeader(func(h *SegmentHeader) {
			h.DictOffset += 10
			h.DictSize = -10
		})},
		{"negative postings size", rewriteHeader(func(h *SegmentHeader) { h.PostSize = -1 })},
		{"huge dictionary size", rewriteHeader(func(h *SegmentHeader) { h.DictSize = math.MaxInt64 })},
		{"huge postings size", rewriteHeader(func(h *SegmentHeader) { h.PostSize = 1 << 40 })},
		{"dictionary offset inside header", rewriteHeader(func(h *SegmentHeader) { h.DictOffset = 0 })},
		{"negative postings offset", rewriteHeader(func(h *SegmentHeader) { h.PostOffset = -8 })},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			corrupt := tt.mutate(append([]byte(nil), data...))
			p := filepath.Join(dir, "corrupt.spdx")
			if err := os.WriteFile(p, corrupt, 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadFile(p)
			if !errors.Is(err, apperrors.ErrCorruptSegment) {
				t.Errorf("LoadFile error = %v, want ErrCorruptSegment", err)
			}
		})
	}
}

func rewriteHeader(edit func(*SegmentHeader)) func([]byte) []byte {
	return func(b []byte) []byte {
		h := decodeHeader(b[:HeaderSize])
		edit(&h)
		encodeHeader(b[:HeaderSize], h)
		return b
	}
}

func TestFailedWriteRemovesTempFile(t *testing.T) {
	dir := t.TempDir()
	// A directory at the final path makes the rename fail after the temp file
	// has been fully written.
	if err := os.Mkdir(filepath.Join(dir, "index.spdx"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "index.spdx", "keep"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewWriter(dir).Write("index.spdx", buildIndex().Snapshot()); err == nil {
		t.Fatal("Write over a non-empty directory should fail")
	}
	if _, err := os.Stat(filepath.Join(dir, "index.spdx.tmp")); !os.IsNotExist(err) {
		t.Errorf("temp file left behind after failed write: %v", err)
	}
}
