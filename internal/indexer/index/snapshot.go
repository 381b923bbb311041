package index

import (
	"fmt"
	"sort"
)

// Posting is the persisted form of one (term, page) pair.
type Posting struct {
	Page      string   `json:"p"`
	Positions []uint32 `json:"x"`
}

type PostingList []Posting

// TermEntry is one term with all of its postings, sorted by page.
type TermEntry struct {
	Term     string
	Postings PostingList
}

// Snapshot flattens the index into term entries sorted by term. Used by the
// segment writer.
func (ix *InvertedIndex) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(ix.terms))
	for term, p := range ix.terms {
		list := make(PostingList, 0, len(p.positions))
		for id, pos := range p.positions {
			list = append(list, Posting{
				Page:      ix.pages[id].url,
				Positions: pos.ToArray(),
			})
		}
		sort.Slice(list, func(i, j int) bool {
			return list[i].Page < list[j].Page
		})
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: list,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}

// Restore rebuilds a frozen index from snapshot entries.
func Restore(entries []TermEntry) (*InvertedIndex, error) {
	ix := New()
	for _, entry := range entries {
		for _, posting := range entry.Postings {
			page, err := NewPage(posting.Page)
			if err != nil {
				return nil, fmt.Errorf("restoring term %q: %w", entry.Term, err)
			}
			if len(posting.Positions) == 0 {
				return nil, fmt.Errorf("restoring term %q on %s: empty position set", entry.Term, page)
			}
			for _, pos := range posting.Positions {
				ix.Add(entry.Term, page, pos)
			}
		}
	}
	ix.Freeze()
	return ix, nil
}
