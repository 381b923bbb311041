// Package index holds the word-level inverted index: for every normalized
// term, the set of pages containing it and, per page, the ordinal positions
// at which it occurs.
//
// Pages are interned to dense uint32 ids when first seen, so both page sets
// and position sets are roaring bitmaps and boolean query evaluation is
// bitmap algebra. The index has two phases: a single-writer build phase
// (Add) and a read-only phase entered by Freeze. A frozen index may be
// queried from any number of goroutines without locking.
package index

import (
	"sort"
	"strings"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
)

type postings struct {
	pages     *roaring.Bitmap
	positions map[uint32]*roaring.Bitmap
}

type InvertedIndex struct {
	pages   []Page
	pageIDs map[Page]uint32
	terms   map[string]*postings
	all     *roaring.Bitmap
	entries int
	frozen  atomic.Bool
}

// Stats summarizes the size of an index.
type Stats struct {
	Terms    int  `json:"terms"`
	Pages    int  `json:"pages"`
	Postings int  `json:"postings"`
	Frozen   bool `json:"frozen"`
}

func New() *InvertedIndex {
	return &InvertedIndex{
		pageIDs: make(map[Page]uint32),
		terms:   make(map[string]*postings),
		all:     roaring.New(),
	}
}

// Normalize returns the index key for a word.
func Normalize(term string) string {
	return strings.ToLower(term)
}

// Add records that term occurs on page at position. Repeated triples are
// no-ops. Add must only be called by the single build-phase writer and
// panics once the index is frozen.
func (ix *InvertedIndex) Add(term string, page Page, position uint32) {
	if ix.frozen.Load() {
		panic("index: Add called on frozen index")
	}
	term = Normalize(term)
	if term == "" || page.IsZero() {
		return
	}
	id := ix.intern(page)
	p, ok := ix.terms[term]
	if !ok {
		p = &postings{
			pages:     roaring.New(),
			positions: make(map[uint32]*roaring.Bitmap),
		}
		ix.terms[term] = p
	}
	p.pages.Add(id)
	pos, ok := p.positions[id]
	if !ok {
		pos = roaring.New()
		p.positions[id] = pos
	}
	if pos.CheckedAdd(position) {
		ix.entries++
	}
}

func (ix *InvertedIndex) intern(page Page) uint32 {
	if id, ok := ix.pageIDs[page]; ok {
		return id
	}
	id := uint32(len(ix.pages))
	ix.pages = append(ix.pages, page)
	ix.pageIDs[page] = id
	ix.all.Add(id)
	return id
}

// Freeze ends the build phase. It is idempotent.
func (ix *InvertedIndex) Freeze() {
	if ix.frozen.Load() {
		return
	}
	for _, p := range ix.terms {
		p.pages.RunOptimize()
	}
	ix.all.RunOptimize()
	ix.frozen.Store(true)
}

func (ix *InvertedIndex) Frozen() bool {
	return ix.frozen.Load()
}

// PagesWith returns the ids of the pages containing term. The bitmap is
// shared with the index and must not be modified; unknown terms yield an
// empty bitmap.
func (ix *InvertedIndex) PagesWith(term string) *roaring.Bitmap {
	p, ok := ix.terms[Normalize(term)]
	if !ok {
		return roaring.New()
	}
	return p.pages
}

// AllPages returns the ids of every page ever indexed. Read-only.
func (ix *InvertedIndex) AllPages() *roaring.Bitmap {
	return ix.all
}

// PositionsAt returns the positions of term on the page with the given id.
// Read-only; empty if the term never occurs there.
func (ix *InvertedIndex) PositionsAt(term string, id uint32) *roaring.Bitmap {
	p, ok := ix.terms[Normalize(term)]
	if !ok {
		return roaring.New()
	}
	pos, ok := p.positions[id]
	if !ok {
		return roaring.New()
	}
	return pos
}

// PositionsOf returns the positions of term on page. Read-only.
func (ix *InvertedIndex) PositionsOf(term string, page Page) *roaring.Bitmap {
	id, ok := ix.pageIDs[page]
	if !ok {
		return roaring.New()
	}
	return ix.PositionsAt(term, id)
}

// PageID returns the interned id for page.
func (ix *InvertedIndex) PageID(page Page) (uint32, bool) {
	id, ok := ix.pageIDs[page]
	return id, ok
}

// Page returns the page interned under id.
func (ix *InvertedIndex) Page(id uint32) (Page, bool) {
	if int(id) >= len(ix.pages) {
		return Page{}, false
	}
	return ix.pages[id], true
}

// Resolve maps a set of page ids to pages, sorted by locator.
func (ix *InvertedIndex) Resolve(ids *roaring.Bitmap) []Page {
	result := make([]Page, 0, ids.GetCardinality())
	it := ids.Iterator()
	for it.HasNext() {
		if page, ok := ix.Page(it.Next()); ok {
			result = append(result, page)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].url < result[j].url
	})
	return result
}

// Terms returns every indexed term in sorted order.
func (ix *InvertedIndex) Terms() []string {
	terms := make([]string, 0, len(ix.terms))
	for term := range ix.terms {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

func (ix *InvertedIndex) Stats() Stats {
	return Stats{
		Terms:    len(ix.terms),
		Pages:    len(ix.pages),
		Postings: ix.entries,
		Frozen:   ix.frozen.Load(),
	}
}
