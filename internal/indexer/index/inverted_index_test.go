package index

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/errors"
)

func TestNewPageCanonicalizes(t *testing.T) {
	a := MustPage("file:///tmp/corpus/doc1.html")
	b := MustPage("  file:///tmp/corpus/doc1.html#section ")
	if a != b {
		t.Errorf("expected %q and %q to be the same page", a, b)
	}
	if a.URL() != "file:///tmp/corpus/doc1.html" {
		t.Errorf("URL() = %q", a.URL())
	}

	_, err := NewPage("   ")
	if !errors.Is(err, apperrors.ErrInvalidPage) {
		t.Errorf("NewPage(blank) error = %v, want ErrInvalidPage", err)
	}
	_, err = NewPage("http://[::1")
	if !errors.Is(err, apperrors.ErrInvalidPage) {
		t.Errorf("NewPage(bad) error = %v, want ErrInvalidPage", err)
	}
}

func TestAddIsIdempotent(t *testing.T) {
	ix := New()
	p := MustPage("http://example.com/a.html")
	ix.Add("cat", p, 3)
	once := ix.PositionsOf("cat", p).ToArray()
	ix.Add("cat", p, 3)
	twice := ix.PositionsOf("cat", p).ToArray()
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("positions after repeated add = %v, want %v", twice, once)
	}
	if got := ix.Stats().Postings; got != 1 {
		t.Errorf("Postings = %d, want 1", got)
	}
}

func TestLookupCompleteness(t *testing.T) {
	type triple struct {
		term string
		page string
		pos  uint32
	}
	triples := []triple{
		{"The", "http://x/1.html", 0},
		{"quick", "http://x/1.html", 1},
		{"the", "http://x/1.html", 5},
		{"quick", "http://x/2.html", 0},
		{"fox", "http://x/2.html", 7},
	}
	ix := New()
	for _, tr := range triples {
		ix.Add(tr.term, MustPage(tr.page), tr.pos)
	}
	for _, tr := range triples {
		page := MustPage(tr.page)
		id, ok := ix.PageID(page)
		if !ok {
			t.Fatalf("page %s not interned", page)
		}
		if !ix.PagesWith(tr.term).Contains(id) {
			t.Errorf("PagesWith(%q) missing %s", tr.term, page)
		}
		if !ix.PositionsOf(tr.term, page).Contains(tr.pos) {
			t.Errorf("PositionsOf(%q, %s) missing %d", tr.term, page, tr.pos)
		}
	}
	if got := ix.PositionsOf("the", MustPage("http://x/1.html")).ToArray(); !reflect.DeepEqual(got, []uint32{0, 5}) {
		t.Errorf("positions of the = %v, want [0 5]", got)
	}
	if got := ix.AllPages().GetCardinality(); got != 2 {
		t.Errorf("AllPages cardinality = %d, want 2", got)
	}
}

func TestUnknownLookupsAreEmpty(t *testing.T) {
	ix := New()
	if !ix.AllPages().IsEmpty() {
		t.Error("AllPages of empty index should be empty")
	}
	ix.Add("dog", MustPage("http://x/1.html"), 0)
	if !ix.PagesWith("cat").IsEmpty() {
		t.Error("PagesWith(unknown) should be empty")
	}
	if !ix.PositionsOf("dog", MustPage("http://x/2.html")).IsEmpty() {
		t.Error("PositionsOf on unindexed page should be empty")
	}
	if !ix.PositionsOf("cat", MustPage("http://x/1.html")).IsEmpty() {
		t.Error("PositionsOf(unknown term) should be empty")
	}
}

func TestPositionsArePerPage(t *testing.T) {
	ix := New()
	a, b := MustPage("http://x/a.html"), MustPage("http://x/b.html")
	ix.Add("word", a, 0)
	ix.Add("word", b, 9)
	if ix.PositionsOf("word", a).Contains(9) || ix.PositionsOf("word", b).Contains(0) {
		t.Error("positions leaked across pages")
	}
}

func TestFreeze(t *testing.T) {
	ix := New()
	ix.Add("cat", MustPage("http://x/1.html"), 0)
	ix.Freeze()
	ix.Freeze()
	if !ix.Frozen() || !ix.Stats().Frozen {
		t.Fatal("expected frozen index")
	}
	defer func() {
		if recover() == nil {
			t.Error("Add on frozen index should panic")
		}
	}()
	ix.Add("dog", MustPage("http://x/1.html"), 1)
}

func TestResolveSortsByLocator(t *testing.T) {
	ix := New()
	for _, u := range []string{"http://x/c.html", "http://x/a.html", "http://x/b.html"} {
		ix.Add("w", MustPage(u), 0)
	}
	got := ix.Resolve(ix.AllPages())
	want := []Page{MustPage("http://x/a.html"), MustPage("http://x/b.html"), MustPage("http://x/c.html")}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve = %v, want %v", got, want)
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	ix := New()
	p1, p2 := MustPage("http://x/1.html"), MustPage("http://x/2.html")
	ix.Add("cat", p1, 0)
	ix.Add("dog", p1, 1)
	ix.Add("dog", p2, 0)
	ix.Add("dog", p2, 4)

	restored, err := Restore(ix.Snapshot())
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !restored.Frozen() {
		t.Error("restored index should be frozen")
	}
	if !reflect.DeepEqual(restored.Terms(), ix.Terms()) {
		t.Fatalf("terms = %v, want %v", restored.Terms(), ix.Terms())
	}
	for _, term := range ix.Terms() {
		if got, want := restored.Resolve(restored.PagesWith(term)), ix.Resolve(ix.PagesWith(term)); !reflect.DeepEqual(got, want) {
			t.Errorf("PagesWith(%q) = %v, want %v", term, got, want)
		}
		for _, page := range []Page{p1, p2} {
			got := restored.PositionsOf(term, page).ToArray()
			want := ix.PositionsOf(term, page).ToArray()
			if !reflect.DeepEqual(got, want) {
				t.Errorf("PositionsOf(%q, %s) = %v, want %v", term, page, got, want)
			}
		}
	}
}

func TestRestoreRejectsBadEntries(t *testing.T) {
	_, err := Restore([]TermEntry{{Term: "x", Postings: PostingList{{Page: "", Positions: []uint32{1}}}}})
	if !errors.Is(err, apperrors.ErrInvalidPage) {
		t.Errorf("expected ErrInvalidPage, got %v", err)
	}
	_, err = Restore([]TermEntry{{Term: "x", Postings: PostingList{{Page: "http://x/1.html"}}}})
	if err == nil {
		t.Error("expected error for empty position set")
	}
}

func benchIndex(pages int) *InvertedIndex {
	ix := New()
	words := []string{"search", "engine", "with", "boolean", "and", "phrase", "queries"}
	for i := 0; i < pages; i++ {
		page := MustPage(fmt.Sprintf("file:///bench/page%d.html", i))
		for pos, w := range words {
			ix.Add(w, page, uint32(pos))
		}
		ix.Add(fmt.Sprintf("unique%d", i), page, uint32(len(words)))
	}
	ix.Freeze()
	return ix
}

func BenchmarkAdd(b *testing.B) {
	ix := New()
	page := MustPage("file:///bench/page.html")
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ix.Add("term", page, uint32(i))
	}
}

func BenchmarkPagesWithParallel(b *testing.B) {
	ix := benchIndex(10000)
	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = ix.PagesWith("phrase")
		}
	})
}

func BenchmarkSnapshot(b *testing.B) {
	ix := benchIndex(5000)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ix.Snapshot()
	}
}
