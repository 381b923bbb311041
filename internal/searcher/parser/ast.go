package parser

import "strings"

// Node is a query AST node. String renders the canonical, fully
// parenthesised form, which is stable across equivalent spellings of the
// same query (`cat dog`, `CAT & dog`) and is used as the cache key.
type Node interface {
	String() string
	node()
}

type Word struct {
	Term string
}

type Not struct {
	Child Node
}

type And struct {
	Left, Right Node
}

type Or struct {
	Left, Right Node
}

// Phrase matches pages where Words occur at consecutive positions in order.
// An empty phrase matches nothing.
type Phrase struct {
	Words []string
}

func (Word) node()   {}
func (Not) node()    {}
func (And) node()    {}
func (Or) node()     {}
func (Phrase) node() {}

func (w Word) String() string { return w.Term }

func (n Not) String() string { return "!" + n.Child.String() }

func (a And) String() string {
	return "(" + a.Left.String() + " & " + a.Right.String() + ")"
}

func (o Or) String() string {
	return "(" + o.Left.String() + " | " + o.Right.String() + ")"
}

func (p Phrase) String() string {
	return `"` + strings.Join(p.Words, " ") + `"`
}

// Terms lists the distinct words referenced anywhere under n, in first-seen
// order.
func Terms(n Node) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(t string) {
		if _, ok := seen[t]; !ok {
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	var walk func(Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case Word:
			add(v.Term)
		case Phrase:
			for _, w := range v.Words {
				add(w)
			}
		case Not:
			walk(v.Child)
		case And:
			walk(v.Left)
			walk(v.Right)
		case Or:
			walk(v.Left)
			walk(v.Right)
		}
	}
	if n != nil {
		walk(n)
	}
	return out
}
