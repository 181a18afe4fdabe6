package smt

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAtomsAndLists(t *testing.T) {
	nodes, err := Parse("sat\n(error \"line 3: unknown constant \"\"x\"\"\") ; trailing comment\n(|odd name| 1.5 :named)")
	require.NoError(t, err)
	require.Len(t, nodes, 3)

	assert.Equal(t, "sat", nodes[0].Atom)
	assert.False(t, nodes[0].IsList)

	assert.Equal(t, "error", nodes[1].Head())
	assert.True(t, nodes[1].List[1].Quoted)
	assert.Equal(t, `line 3: unknown constant "x"`, nodes[1].List[1].Atom)

	assert.Equal(t, "|odd name|", nodes[2].List[0].Atom)
	assert.Equal(t, `(|odd name| 1.5 :named)`, nodes[2].String())
}

func TestNodeStringRoundTrip(t *testing.T) {
	src := `(define-fun f ((x!0 Int)) Int (ite (= x!0 1) 2 3))`
	n, err := ParseOne(src)
	require.NoError(t, err)
	assert.Equal(t, src, n.String())

	again, err := ParseOne(n.String())
	require.NoError(t, err)
	assert.Equal(t, n, again)
}

func TestParseTruncated(t *testing.T) {
	_, err := Parse("(model (define-fun x () Int")
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	_, err = Parse(")")
	assert.Error(t, err)
}

func TestParseOneRejectsMultiple(t *testing.T) {
	_, err := ParseOne("(a) (b)")
	assert.Error(t, err)
}

func TestIsSymbol(t *testing.T) {
	cases := map[string]bool{
		"V_H":         true,
		"dot_product": true,
		"solve-eqs":   true,
		"x!0":         true,
		"":            false,
		"1abc":        false,
		"has space":   false,
		"(paren":      false,
		"ℝeal":        false,
	}
	for in, want := range cases {
		assert.Equal(t, want, IsSymbol(in), in)
	}
}

func TestSymbolQuoting(t *testing.T) {
	s, err := Symbol("Pocket")
	require.NoError(t, err)
	assert.Equal(t, "Pocket", s)

	s, err = Symbol("𝔻oc")
	require.NoError(t, err)
	assert.Equal(t, "|𝔻oc|", s)

	_, err = Symbol("bad|name")
	assert.Error(t, err)
}
