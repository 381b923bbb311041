package parser

import (
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/Web-Query-Engine/pkg/errors"
)

// SyntaxError reports a query that cannot be parsed. It matches
// apperrors.ErrMalformedQuery under errors.Is.
type SyntaxError struct {
	Query  string
	Pos    int
	Reason string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("malformed query %q at offset %d: %s", e.Query, e.Pos, e.Reason)
}

func (e *SyntaxError) Is(target error) bool {
	return target == apperrors.ErrMalformedQuery
}

// Parse tokenizes and parses query. A query without any tokens parses to a
// nil Node and a nil error.
func Parse(query string) (Node, error) {
	tokens, err := Tokenize(query)
	if err != nil {
		return nil, err
	}
	return ParseTokens(query, tokens)
}

// ParseTokens builds an AST from tokens with the shunting-yard algorithm,
// keeping an operand stack of finished subtrees and an operator stack of
// pending operators. query is only used in error messages.
func ParseTokens(query string, tokens []Token) (Node, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	var (
		operands  []Node
		operators []Token
	)
	fail := func(pos int, reason string) error {
		return &SyntaxError{Query: query, Pos: pos, Reason: reason}
	}
	reduce := func(op Token) error {
		switch op.Kind {
		case KindNot:
			if len(operands) < 1 {
				return fail(op.Pos, "missing operand for !")
			}
			child := operands[len(operands)-1]
			operands[len(operands)-1] = Not{Child: child}
		case KindAnd, KindOr:
			if len(operands) < 2 {
				return fail(op.Pos, fmt.Sprintf("missing operand for %s", op.Text))
			}
			left, right := operands[len(operands)-2], operands[len(operands)-1]
			operands = operands[:len(operands)-2]
			if op.Kind == KindAnd {
				operands = append(operands, And{Left: left, Right: right})
			} else {
				operands = append(operands, Or{Left: left, Right: right})
			}
		default:
			return fail(op.Pos, fmt.Sprintf("unexpected %s", op.Kind))
		}
		return nil
	}

	// expectOperand tracks whether the next token must begin an operand.
	expectOperand := true
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch tok.Kind {
		case KindWord:
			if !expectOperand {
				return nil, fail(tok.Pos, "missing operator before "+tok.Text)
			}
			operands = append(operands, Word{Term: tok.Text})
			expectOperand = false

		case KindPhraseOpen:
			if !expectOperand {
				return nil, fail(tok.Pos, "missing operator before phrase")
			}
			var words []string
			j := i + 1
			for ; j < len(tokens) && tokens[j].Kind == KindWord; j++ {
				words = append(words, tokens[j].Text)
			}
			if j >= len(tokens) || tokens[j].Kind != KindPhraseClose {
				return nil, fail(tok.Pos, "unterminated phrase")
			}
			operands = append(operands, Phrase{Words: words})
			expectOperand = false
			i = j

		case KindPhraseClose:
			return nil, fail(tok.Pos, "unexpected closing quote")

		case KindLParen:
			if !expectOperand {
				return nil, fail(tok.Pos, "missing operator before (")
			}
			operators = append(operators, tok)

		case KindRParen:
			if expectOperand {
				return nil, fail(tok.Pos, "missing operand before )")
			}
			matched := false
			for len(operators) > 0 {
				top := operators[len(operators)-1]
				operators = operators[:len(operators)-1]
				if top.Kind == KindLParen {
					matched = true
					break
				}
				if err := reduce(top); err != nil {
					return nil, err
				}
			}
			if !matched {
				return nil, fail(tok.Pos, "unbalanced )")
			}

		case KindNot:
			// Prefix operator: it has no left operand, so nothing is
			// reduced before it is pushed.
			if !expectOperand {
				return nil, fail(tok.Pos, "missing operator before !")
			}
			operators = append(operators, tok)

		case KindAnd, KindOr:
			if expectOperand {
				return nil, fail(tok.Pos, fmt.Sprintf("missing operand before %s", tok.Text))
			}
			for len(operators) > 0 {
				top := operators[len(operators)-1]
				if top.Kind == KindLParen || top.Precedence() < tok.Precedence() {
					break
				}
				operators = operators[:len(operators)-1]
				if err := reduce(top); err != nil {
					return nil, err
				}
			}
			operators = append(operators, tok)
			expectOperand = true

		default:
			return nil, fail(tok.Pos, fmt.Sprintf("unexpected %s", tok.Kind))
		}
	}

	if expectOperand {
		return nil, fail(tokens[len(tokens)-1].Pos, "query ends without an operand")
	}
	for len(operators) > 0 {
		top := operators[len(operators)-1]
		operators = operators[:len(operators)-1]
		if top.Kind == KindLParen {
			return nil, fail(top.Pos, "unbalanced (")
		}
		if err := reduce(top); err != nil {
			return nil, err
		}
	}
	if len(operands) != 1 {
		return nil, fail(0, fmt.Sprintf("expected one expression, found %d", len(operands)))
	}
	return operands[0], nil
}
