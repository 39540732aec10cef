// Package uquery implements the query language used to search and sort
// songs: Query := ComposedFilter ('@' SongOrder)?, with Or lower
// precedence than And and brackets regrouping, per SPEC_FULL.md §4.4 and
// §3, grounded on original_source/src/core/query/mod.rs.
package uquery

import (
	"strings"

	"github.com/arung-agamani/uamp/internal/uerr"
	"github.com/arung-agamani/uamp/internal/usong"
)

// QueryKind discriminates a Query node.
type QueryKind int

const (
	QFilter QueryKind = iota
	QAnd
	QOr
)

// Query is either a single Filter leaf or an And/Or combination of
// sub-queries.
type Query struct {
	Kind     QueryKind
	Filter   Filter
	Children []Query
}

// Matches evaluates the query against a song, canonicalizing both sides
// inside Filter.Matches as spec §3 requires.
func (q Query) Matches(s usong.Song) bool {
	switch q.Kind {
	case QFilter:
		return q.Filter.Matches(s)
	case QAnd:
		for _, c := range q.Children {
			if !c.Matches(s) {
				return false
			}
		}
		return true
	case QOr:
		for _, c := range q.Children {
			if c.Matches(s) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Render produces the canonical text form of q. This is the query half
// of the control-message/query round-trip property (spec §8).
func (q Query) Render() string {
	switch q.Kind {
	case QFilter:
		return q.Filter.render()
	case QAnd:
		parts := make([]string, len(q.Children))
		for i, c := range q.Children {
			parts[i] = renderChild(c, QAnd)
		}
		return strings.Join(parts, ".")
	case QOr:
		parts := make([]string, len(q.Children))
		for i, c := range q.Children {
			parts[i] = renderChild(c, QOr)
		}
		return strings.Join(parts, "+")
	default:
		return "none"
	}
}

// renderChild brackets a child whose precedence is lower than parent's
// (an Or nested directly inside an And must be bracketed to round-trip).
func renderChild(c Query, parentKind QueryKind) string {
	if parentKind == QAnd && c.Kind == QOr {
		return "[" + c.Render() + "]"
	}
	return c.Render()
}

// Parse parses the full Query := ComposedFilter ('@' SongOrder)? form
// and returns the filter tree plus the requested order (SongOrder{} /
// the zero value if none was given).
func Parse(s string) (Query, SongOrder, error) {
	p := &parser{input: s}
	q, err := p.parseOr()
	if err != nil {
		return Query{}, SongOrder{}, err
	}
	if p.peek() == '@' {
		p.pos++
		order, err := parseOrder(p.input[p.pos:])
		if err != nil {
			return Query{}, SongOrder{}, err
		}
		return q, order, nil
	}
	if p.pos != len(p.input) {
		return Query{}, SongOrder{}, uerr.ArgParsef("unexpected trailing input %q", p.input[p.pos:])
	}
	return q, SongOrder{}, nil
}

// Render renders q followed by "@"+order.Render() when order is not the
// zero value.
func Render(q Query, order SongOrder) string {
	s := q.Render()
	if !order.IsZero() {
		s += "@" + order.Render()
	}
	return s
}

type parser struct {
	input string
	pos   int
}

func (p *parser) peek() byte {
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

// parseOr := And ('+' And)*
func (p *parser) parseOr() (Query, error) {
	first, err := p.parseAnd()
	if err != nil {
		return Query{}, err
	}
	children := []Query{first}
	for p.peek() == '+' {
		p.pos++
		next, err := p.parseAnd()
		if err != nil {
			return Query{}, err
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return Query{Kind: QOr, Children: children}, nil
}

// parseAnd := Atom ('.' Atom)*
func (p *parser) parseAnd() (Query, error) {
	first, err := p.parseAtom()
	if err != nil {
		return Query{}, err
	}
	children := []Query{first}
	for p.peek() == '.' {
		p.pos++
		next, err := p.parseAtom()
		if err != nil {
			return Query{}, err
		}
		children = append(children, next)
	}
	if len(children) == 1 {
		return children[0], nil
	}
	return Query{Kind: QAnd, Children: children}, nil
}

// parseAtom := Filter | '[' Or ']'
func (p *parser) parseAtom() (Query, error) {
	if p.peek() == '[' {
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return Query{}, err
		}
		if p.peek() != ']' {
			return Query{}, uerr.ArgParsef("expected ']' at position %d", p.pos)
		}
		p.pos++
		return inner, nil
	}

	tok, err := p.readFilterToken()
	if err != nil {
		return Query{}, err
	}
	f, err := parseFilter(tok)
	if err != nil {
		return Query{}, err
	}
	return Query{Kind: QFilter, Filter: f}, nil
}

// readFilterToken reads one filter token: everything up to (not
// including) the next unquoted reserved character ('.', '+', '[', ']',
// '@') or end of input. A '/'-delimited span is read verbatim with '//'
// unescaped to a single '/', per spec §4.4's quoting rule.
func (p *parser) readFilterToken() (string, error) {
	var b strings.Builder
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		switch c {
		case '.', '+', '[', ']', '@':
			return b.String(), nil
		case '/':
			p.pos++
			for p.pos < len(p.input) {
				if p.input[p.pos] == '/' {
					if p.pos+1 < len(p.input) && p.input[p.pos+1] == '/' {
						b.WriteByte('/')
						p.pos += 2
						continue
					}
					p.pos++
					break
				}
				b.WriteByte(p.input[p.pos])
				p.pos++
			}
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return b.String(), nil
}
