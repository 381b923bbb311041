// Package parser turns a raw query string into an abstract syntax tree.
//
// Grammar (case-insensitive):
//
//	expr := term | "(" expr ")" | expr "&" expr | expr "|" expr | "!" expr | '"' term* '"'
//
// Adjacent operands without an operator are joined by an implicit AND, so
// `cat dog` means `cat & dog` and `(a) b` means `(a) & b`. Precedence, from
// tightest to loosest binding: ! (NOT), & (AND), | (OR). Binary operators
// are left-associative; parentheses bind first. Words inside double quotes
// form a phrase and must occur at consecutive positions on a page.
package parser

import "fmt"

type Kind int

const (
	KindWord Kind = iota
	KindAnd
	KindOr
	KindNot
	KindLParen
	KindRParen
	KindPhraseOpen
	KindPhraseClose
)

// Operator precedence; higher binds tighter.
const (
	PrecNone = 0
	PrecOr   = 1
	PrecAnd  = 2
	PrecNot  = 3
)

var kindNames = map[Kind]string{
	KindWord:        "WORD",
	KindAnd:         "AND",
	KindOr:          "OR",
	KindNot:         "NOT",
	KindLParen:      "LPAREN",
	KindRParen:      "RPAREN",
	KindPhraseOpen:  "QUOTE_OPEN",
	KindPhraseClose: "QUOTE_CLOSE",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Token is one lexical unit of a query. Pos is the byte offset in the raw
// query; implicit AND tokens carry the offset of the operand they precede.
type Token struct {
	Kind     Kind
	Text     string
	Pos      int
	Implicit bool
}

func (t Token) Precedence() int {
	switch t.Kind {
	case KindOr:
		return PrecOr
	case KindAnd:
		return PrecAnd
	case KindNot:
		return PrecNot
	default:
		return PrecNone
	}
}

func (t Token) String() string {
	if t.Kind == KindWord {
		return t.Text
	}
	return t.Kind.String()
}

func (t Token) startsOperand() bool {
	switch t.Kind {
	case KindWord, KindLParen, KindPhraseOpen, KindNot:
		return true
	}
	return false
}

func (t Token) endsOperand() bool {
	switch t.Kind {
	case KindWord, KindRParen, KindPhraseClose:
		return true
	}
	return false
}
