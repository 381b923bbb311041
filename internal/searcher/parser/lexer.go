package parser

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/internal/indexer/tokenizer"
)

// Tokenize lexes query into tokens, lower-casing words and inserting
// implicit AND tokens between adjacent operands outside of phrases.
//
// Runes that are neither word runes nor operator symbols separate words.
// Inside a phrase only words and the closing quote are significant; the
// other operator symbols act as separators there. An unterminated phrase
// is a *SyntaxError.
func Tokenize(query string) ([]Token, error) {
	tokens := make([]Token, 0, len(query)/2)
	inPhrase := false
	phraseStart := 0
	wordStart := -1

	emit := func(tok Token) {
		if !inPhrase && len(tokens) > 0 && tokens[len(tokens)-1].endsOperand() && tok.startsOperand() {
			tokens = append(tokens, Token{Kind: KindAnd, Text: "&", Pos: tok.Pos, Implicit: true})
		}
		tokens = append(tokens, tok)
	}
	flush := func(end int) {
		if wordStart < 0 {
			return
		}
		emit(Token{Kind: KindWord, Text: strings.ToLower(query[wordStart:end]), Pos: wordStart})
		wordStart = -1
	}

	for i, r := range query {
		if tokenizer.IsWordRune(r) {
			if wordStart < 0 {
				wordStart = i
			}
			continue
		}
		flush(i)
		if r == '"' {
			if inPhrase {
				inPhrase = false
				emit(Token{Kind: KindPhraseClose, Text: `"`, Pos: i})
			} else {
				emit(Token{Kind: KindPhraseOpen, Text: `"`, Pos: i})
				inPhrase = true
				phraseStart = i
			}
			continue
		}
		if inPhrase {
			continue
		}
		switch r {
		case '&':
			emit(Token{Kind: KindAnd, Text: "&", Pos: i})
		case '|':
			emit(Token{Kind: KindOr, Text: "|", Pos: i})
		case '!':
			emit(Token{Kind: KindNot, Text: "!", Pos: i})
		case '(':
			emit(Token{Kind: KindLParen, Text: "(", Pos: i})
		case ')':
			emit(Token{Kind: KindRParen, Text: ")", Pos: i})
		}
	}
	flush(len(query))

	if inPhrase {
		return nil, &SyntaxError{Query: query, Pos: phraseStart, Reason: "unterminated phrase"}
	}
	return tokens, nil
}
