package smt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// Node is one SMT-LIB s-expression: an atom or a list.
type Node struct {
	Atom   string
	Quoted bool // Atom came from a string literal
	IsList bool
	List   []Node
}

// Head returns the leading atom of a list, or "".
func (n Node) Head() string {
	if !n.IsList || len(n.List) == 0 || n.List[0].IsList {
		return ""
	}
	return n.List[0].Atom
}

// Len returns the number of children of a list.
func (n Node) Len() int {
	return len(n.List)
}

func (n Node) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n Node) write(b *strings.Builder) {
	switch {
	case n.IsList:
		b.WriteByte('(')
		for i, c := range n.List {
			if i > 0 {
				b.WriteByte(' ')
			}
			c.write(b)
		}
		b.WriteByte(')')
	case n.Quoted:
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(n.Atom, `"`, `""`))
		b.WriteByte('"')
	default:
		b.WriteString(n.Atom)
	}
}

// Reader decodes a stream of s-expressions, as printed by the solver.
type Reader struct {
	r *bufio.Reader
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next top-level expression, or io.EOF.
func (r *Reader) Next() (Node, error) {
	if err := r.skipSpace(); err != nil {
		return Node{}, err
	}
	c, _, err := r.r.ReadRune()
	if err != nil {
		return Node{}, err
	}
	switch c {
	case '(':
		n := Node{IsList: true}
		for {
			if err := r.skipSpace(); err != nil {
				return Node{}, truncated(err)
			}
			c, _, err := r.r.ReadRune()
			if err != nil {
				return Node{}, truncated(err)
			}
			if c == ')' {
				return n, nil
			}
			_ = r.r.UnreadRune()
			child, err := r.Next()
			if err != nil {
				return Node{}, truncated(err)
			}
			n.List = append(n.List, child)
		}
	case ')':
		return Node{}, errors.New("unbalanced ')'")
	case '"':
		return r.readString()
	case '|':
		return r.readQuotedSymbol()
	default:
		_ = r.r.UnreadRune()
		return r.readAtom()
	}
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) {
		return io.ErrUnexpectedEOF
	}
	return err
}

func (r *Reader) skipSpace() error {
	for {
		c, _, err := r.r.ReadRune()
		if err != nil {
			return err
		}
		switch {
		case unicode.IsSpace(c):
		case c == ';':
			if _, err := r.r.ReadString('\n'); err != nil {
				return err
			}
		default:
			return r.r.UnreadRune()
		}
	}
}

func (r *Reader) readAtom() (Node, error) {
	var b strings.Builder
	for {
		c, _, err := r.r.ReadRune()
		if err == io.EOF && b.Len() > 0 {
			break
		}
		if err != nil {
			return Node{}, err
		}
		if unicode.IsSpace(c) || c == '(' || c == ')' || c == '"' || c == ';' {
			_ = r.r.UnreadRune()
			break
		}
		b.WriteRune(c)
	}
	return Node{Atom: b.String()}, nil
}

// readString reads a string literal; "" inside it is an escaped quote.
func (r *Reader) readString() (Node, error) {
	var b strings.Builder
	for {
		c, _, err := r.r.ReadRune()
		if err != nil {
			return Node{}, truncated(err)
		}
		if c != '"' {
			b.WriteRune(c)
			continue
		}
		next, _, err := r.r.ReadRune()
		if err == nil && next == '"' {
			b.WriteRune('"')
			continue
		}
		if err == nil {
			_ = r.r.UnreadRune()
		}
		return Node{Atom: b.String(), Quoted: true}, nil
	}
}

// readQuotedSymbol keeps the bars so the symbol prints back unchanged.
func (r *Reader) readQuotedSymbol() (Node, error) {
	var b strings.Builder
	b.WriteRune('|')
	for {
		c, _, err := r.r.ReadRune()
		if err != nil {
			return Node{}, truncated(err)
		}
		b.WriteRune(c)
		if c == '|' {
			return Node{Atom: b.String()}, nil
		}
	}
}

// Parse reads every expression in s.
func Parse(s string) ([]Node, error) {
	rd := NewReader(strings.NewReader(s))
	var out []Node
	for {
		n, err := rd.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, n)
	}
}

// ParseOne reads exactly one expression from s.
func ParseOne(s string) (Node, error) {
	nodes, err := Parse(s)
	if err != nil {
		return Node{}, err
	}
	if len(nodes) != 1 {
		return Node{}, fmt.Errorf("expected one expression, found %d", len(nodes))
	}
	return nodes[0], nil
}

const symbolPunct = "~!@$%^&*_-+=<>.?/"

// IsSymbol reports whether s is an SMT-LIB simple symbol.
func IsSymbol(s string) bool {
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		return false
	}
	for _, c := range s {
		isAlnum := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
		if !isAlnum && !strings.ContainsRune(symbolPunct, c) {
			return false
		}
	}
	return true
}

// Symbol renders name as an SMT-LIB symbol, quoting it with bars when it is
// not a simple symbol.
func Symbol(name string) (string, error) {
	if IsSymbol(name) {
		return name, nil
	}
	if name == "" || strings.ContainsAny(name, `|\`) {
		return "", fmt.Errorf("%q cannot be written as an SMT-LIB symbol", name)
	}
	return "|" + name + "|", nil
}
