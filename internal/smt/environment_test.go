package smt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aispverify/internal/document"
)

func typesDoc(defs ...document.TypeDefinition) *document.Document {
	return &document.Document{Blocks: []document.Block{{Kind: document.BlockTypes, Types: defs}}}
}

func TestBuildEnvironmentSorts(t *testing.T) {
	doc := typesDoc(
		document.TypeDefinition{Name: "Count", Type: document.BasicOf(document.Natural)},
		document.TypeDefinition{Name: "Score", Type: document.BasicOf(document.Real)},
		document.TypeDefinition{Name: "Flag", Type: document.BasicOf(document.Boolean)},
		document.TypeDefinition{Name: "Label", Type: document.BasicOf(document.String)},
		document.TypeDefinition{Name: "Pocket", Type: document.ProductOf(document.CustomOf("Score"), document.CustomOf("Label"))},
	)
	doc.Blocks = append(doc.Blocks, document.Block{
		Kind:      document.BlockFunctions,
		Functions: []document.FunctionDefinition{{Name: "rank", Signature: "Pocket → Score"}},
	})

	env, err := BuildEnvironment(doc)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"(declare-sort Vector 0)",
		"(declare-sort Signal 0)",
		"(declare-sort Any 0)",
		"(define-sort doc_Count () Int)",
		"(define-sort doc_Score () Real)",
		"(define-sort doc_Flag () Bool)",
		"(declare-sort doc_Label 0)",
		"(declare-sort doc_Pocket 0)",
		"(declare-fun doc_rank (Any) Any)",
	}, env.Declarations())

	s, ok := env.Sort("natural")
	require.True(t, ok)
	assert.Equal(t, "Int", s)

	s, ok = env.Sort("Pocket")
	require.True(t, ok)
	assert.Equal(t, "doc_Pocket", s)

	fn, ok := env.Function("rank")
	require.True(t, ok)
	assert.Equal(t, "doc_rank", fn.Symbol)
	assert.Equal(t, []string{SortAny}, fn.Domain)
	assert.Equal(t, SortAny, fn.Codomain)

	assert.True(t, env.Declares("doc_Pocket"))
	assert.False(t, env.Declares("Pocket"))
	assert.False(t, env.Declares("Space"))
	assert.Equal(t, 8, env.SortCount())
}

func TestBuildEnvironmentUnresolvedType(t *testing.T) {
	doc := typesDoc(document.TypeDefinition{Name: "Bag", Type: document.SetOf(document.CustomOf("Missing"))})

	_, err := BuildEnvironment(doc)
	require.Error(t, err)

	var setupErr *SetupError
	require.True(t, errors.As(err, &setupErr))
	assert.Contains(t, setupErr.Error(), "Missing")
}

func TestBuildEnvironmentQuotesNonSymbolNames(t *testing.T) {
	doc := typesDoc(document.TypeDefinition{Name: "𝔻oc", Type: document.BasicOf(document.Symbol)})

	env, err := BuildEnvironment(doc)
	require.NoError(t, err)
	assert.Contains(t, env.Declarations(), "(declare-sort |doc_𝔻oc| 0)")
}

func TestBuildEnvironmentDoesNotMutateDocument(t *testing.T) {
	doc := typesDoc(document.TypeDefinition{Name: "A", Type: document.BasicOf(document.Real)})
	before := len(doc.Blocks)

	_, err := BuildEnvironment(doc)
	require.NoError(t, err)
	assert.Len(t, doc.Blocks, before)
	assert.Equal(t, document.BasicOf(document.Real), doc.TypeDefinitions()[0].Type)
}

func TestBuildEnvironmentFixedSortNames(t *testing.T) {
	doc := typesDoc(
		document.TypeDefinition{Name: "Signal", Type: document.BasicOf(document.Real)},
		document.TypeDefinition{Name: "Vector", Type: document.ProductOf(document.CustomOf("Signal"), document.CustomOf("Signal"))},
	)

	env, err := BuildEnvironment(doc)
	require.NoError(t, err)

	decls := env.Declarations()
	assert.Contains(t, decls, "(declare-sort Signal 0)")
	assert.Contains(t, decls, "(declare-sort Vector 0)")
	assert.Contains(t, decls, "(define-sort doc_Signal () Real)")
	assert.Contains(t, decls, "(declare-sort doc_Vector 0)")

	s, ok := env.Sort("Signal")
	require.True(t, ok)
	assert.Equal(t, "doc_Signal", s)
}

func TestBuildEnvironmentLastDefinitionWins(t *testing.T) {
	doc := typesDoc(
		document.TypeDefinition{Name: "Score", Type: document.BasicOf(document.Real)},
		document.TypeDefinition{Name: "Score", Type: document.BasicOf(document.Natural)},
	)

	env, err := BuildEnvironment(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"(declare-sort Vector 0)",
		"(declare-sort Signal 0)",
		"(declare-sort Any 0)",
		"(define-sort doc_Score () Int)",
	}, env.Declarations())
	assert.Equal(t, 4, env.SortCount())
}

func TestEnvironmentResolve(t *testing.T) {
	env, err := BuildEnvironment(&document.Document{})
	require.NoError(t, err)

	provided, err := env.Resolve("(declare-sort Vector 0)")
	require.NoError(t, err)
	assert.True(t, provided)

	provided, err = env.Resolve("(declare-sort Space 0)")
	require.NoError(t, err)
	assert.False(t, provided)

	// a constant may share a name with a sort
	provided, err = env.Resolve("(declare-const Vector Int)")
	require.NoError(t, err)
	assert.False(t, provided)

	_, err = env.Resolve("(define-sort Vector () Int)")
	assert.ErrorContains(t, err, "conflicts with (declare-sort Vector 0)")
}
