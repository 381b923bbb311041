// Package tokenizer splits page text into index terms. A term is a maximal
// run of ASCII letters, digits, '_' or '-', lower-cased. Every other rune
// separates terms. Positions count terms in document order.
package tokenizer

import "strings"

// Token is a single normalised term and its position on the page.
type Token struct {
	Term     string
	Position uint32
}

// IsWordRune reports whether r may appear inside a term. The query parser
// uses the same rule so queries and pages agree on word boundaries.
func IsWordRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '_' || r == '-':
		return true
	}
	return false
}

// Tokenize breaks a standalone text into tokens numbered from zero.
func Tokenize(text string) []Token {
	var s Stream
	return s.Feed(text)
}

// Stream numbers tokens across several chunks of one page, e.g. the text
// nodes of an HTML document, so positions keep increasing across chunk
// boundaries. A word split across two chunks counts as two words.
type Stream struct {
	next uint32
}

// Feed tokenizes chunk, continuing the position count of earlier chunks.
func (s *Stream) Feed(chunk string) []Token {
	words := strings.FieldsFunc(chunk, func(r rune) bool {
		return !IsWordRune(r)
	})
	tokens := make([]Token, 0, len(words))
	for _, word := range words {
		tokens = append(tokens, Token{
			Term:     strings.ToLower(word),
			Position: s.next,
		})
		s.next++
	}
	return tokens
}

// Count is the number of tokens produced so far.
func (s *Stream) Count() uint32 {
	return s.next
}
