package executor

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/errors"
)

// Evaluate resolves node against a frozen index and returns the ids of the
// matching pages. Only non-mutating bitmap operations are used, so any
// number of goroutines may evaluate against the same index. A nil node
// matches nothing.
func Evaluate(ctx context.Context, ix *index.InvertedIndex, node parser.Node) (*roaring.Bitmap, error) {
	if node == nil {
		return roaring.New(), nil
	}
	result, err := eval(ctx, ix, node)
	if err != nil {
		return nil, err
	}
	// Leaves alias index storage; hand the caller its own copy.
	return result.Clone(), nil
}

func eval(ctx context.Context, ix *index.InvertedIndex, node parser.Node) (*roaring.Bitmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch n := node.(type) {
	case parser.Word:
		return ix.PagesWith(n.Term), nil

	case parser.Not:
		child, err := eval(ctx, ix, n.Child)
		if err != nil {
			return nil, err
		}
		return roaring.AndNot(ix.AllPages(), child), nil

	case parser.And:
		left, err := eval(ctx, ix, n.Left)
		if err != nil {
			return nil, err
		}
		if left.IsEmpty() {
			return left, nil
		}
		right, err := eval(ctx, ix, n.Right)
		if err != nil {
			return nil, err
		}
		return roaring.And(left, right), nil

	case parser.Or:
		left, err := eval(ctx, ix, n.Left)
		if err != nil {
			return nil, err
		}
		right, err := eval(ctx, ix, n.Right)
		if err != nil {
			return nil, err
		}
		return roaring.Or(left, right), nil

	case parser.Phrase:
		return evalPhrase(ctx, ix, n.Words)

	default:
		return nil, fmt.Errorf("evaluating %T: unsupported node: %w", node, apperrors.ErrInternal)
	}
}

// evalPhrase returns the pages on which words appear at consecutive
// positions. The rarest word seeds the scan: for each of its positions p
// on a candidate page, the phrase would start at p minus the word's offset
// in the phrase, and every other word must sit at its own offset from there.
func evalPhrase(ctx context.Context, ix *index.InvertedIndex, words []string) (*roaring.Bitmap, error) {
	result := roaring.New()
	if len(words) == 0 {
		return result, nil
	}

	seed := 0
	var seedCard uint64
	for i, w := range words {
		card := ix.PagesWith(w).GetCardinality()
		if card == 0 {
			return result, nil
		}
		if i == 0 || card < seedCard {
			seed, seedCard = i, card
		}
	}

	offset := uint32(seed)
	positions := make([]*roaring.Bitmap, len(words))
	pages := ix.PagesWith(words[seed]).Iterator()
	for pages.HasNext() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := pages.Next()

		missing := false
		for i, w := range words {
			positions[i] = ix.PositionsAt(w, id)
			if positions[i].IsEmpty() {
				missing = true
				break
			}
		}
		if missing {
			continue
		}

		it := positions[seed].Iterator()
		for it.HasNext() {
			p := it.Next()
			if p < offset {
				continue
			}
			start := p - offset
			if phraseAt(positions, start) {
				result.Add(id)
				break
			}
		}
	}
	return result, nil
}

func phraseAt(positions []*roaring.Bitmap, start uint32) bool {
	for i, pos := range positions {
		if !pos.Contains(start + uint32(i)) {
			return false
		}
	}
	return true
}
