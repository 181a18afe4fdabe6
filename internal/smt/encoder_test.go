package smt

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aispverify/internal/document"
)

func sampleTriVector() *document.TriVector {
	return &document.TriVector{
		Semantic:   document.VectorSpace{Name: "V_H", Dimension: 768},
		Structural: document.VectorSpace{Name: "V_L", Dimension: 512},
		Safety:     document.VectorSpace{Name: "V_S", Dimension: 256, Offset: 768},
		Isolation:  document.SafetyIsolation{Isolated: true},
	}
}

func premiseNames(ob Obligation) []string {
	names := make([]string, len(ob.Premises))
	for i, p := range ob.Premises {
		names[i] = p.Name
	}
	return names
}

func TestOrthogonalityFormulaText(t *testing.T) {
	f := OrthogonalityFormula("V_H", "V_S")
	assert.Contains(t, f, "V_H")
	assert.Contains(t, f, "V_S")
	assert.Contains(t, f, "forall")
	assert.Contains(t, f, "dot_product")

	_, err := ParseOne(f)
	assert.NoError(t, err)
}

func TestFormulasAreWellFormed(t *testing.T) {
	for _, f := range []string{SafetyIsolationFormula("V_S"), DecompositionFormula()} {
		_, err := ParseOne(f)
		assert.NoError(t, err, f)
	}
}

func TestEncodeTriVector(t *testing.T) {
	env, err := BuildEnvironment(&document.Document{})
	require.NoError(t, err)

	obs := NewEncoder(env).TriVector(sampleTriVector())
	require.Len(t, obs, 4)

	ids := []string{obs[0].ID, obs[1].ID, obs[2].ID, obs[3].ID}
	assert.Equal(t, []string{"orthogonality_V_H_V_S", "orthogonality_V_L_V_S", "safety_isolation", "decomposition_uniqueness"}, ids)

	for _, ob := range obs {
		assert.NoError(t, ob.Err)
		assert.NoError(t, validate(ob), ob.ID)
		assert.Equal(t, CategoryTriVectorOrthogonality, ob.Category)
	}
	assert.Contains(t, obs[0].Declarations, "(declare-sort Vector 0)")
	assert.Contains(t, obs[3].Declarations, "(declare-sort Signal 0)")

	// the engine leaves out what the environment already declares
	e := NewEngine(testConfig(), nil)
	e.SetEnvironment(env)
	body := e.Query(obs[0]).Body
	assert.False(t, strings.Contains(body, "declare-sort Vector"))
	assert.True(t, strings.Contains(body, "(declare-sort Space 0)"))

	orth := obs[0]
	assert.Equal(t, []string{"range_V_H", "range_V_S", "disjoint_support"}, premiseNames(orth))
	assert.Equal(t, "(and (= (lo V_S) 768) (= (hi V_S) 1024))", orth.Premises[1].Formula)
	assert.NotEmpty(t, orth.Certificate)
}

func TestSafetyIsolationPremises(t *testing.T) {
	enc := NewEncoder(nil)

	isolated := enc.SafetyIsolation(sampleTriVector())
	assert.Contains(t, premiseNames(isolated), "optimizations_target_semantics")
	assert.Equal(t, SafetyIsolationFormula("V_S"), isolated.Goal)

	leaky := sampleTriVector()
	leaky.Isolation = document.SafetyIsolation{Optimizations: []string{"prune heads", "distill"}}
	ob := enc.SafetyIsolation(leaky)
	assert.NotContains(t, premiseNames(ob), "optimizations_target_semantics")
	assert.Contains(t, premiseNames(ob), "observed_0_distill")
	assert.Contains(t, premiseNames(ob), "observed_1_prune_heads")
	assert.Contains(t, ob.Declarations, "(declare-const opt_1 SemanticOpt)")

	// a reported optimization outweighs the isolated flag
	contradictory := sampleTriVector()
	contradictory.Isolation.Optimizations = []string{"quantize"}
	assert.NotContains(t, premiseNames(enc.SafetyIsolation(contradictory)), "optimizations_target_semantics")
}

func TestDecompositionNeedsContiguousCover(t *testing.T) {
	enc := NewEncoder(nil)

	full := enc.Decomposition(sampleTriVector())
	assert.Equal(t, []string{"lossless_reconstruction"}, premiseNames(full))
	assert.Equal(t, DecompositionFormula(), full.Goal)

	gap := sampleTriVector()
	gap.Safety.Offset = 900
	assert.Empty(t, enc.Decomposition(gap).Premises)
}

func TestOrthogonalityEncodingErrors(t *testing.T) {
	enc := NewEncoder(nil)
	tv := sampleTriVector()

	ob := enc.Orthogonality(tv, document.OrthogonalityConstraint{Space1: "V_H", Space2: "V_X"})
	assert.Error(t, ob.Err)

	ob = enc.Orthogonality(tv, document.OrthogonalityConstraint{Space1: "V_H", Space2: "V_H"})
	assert.Error(t, ob.Err)

	// document names live under their own prefix
	env, err := BuildEnvironment(typesDoc(document.TypeDefinition{Name: "V_S", Type: document.BasicOf(document.Real)}))
	require.NoError(t, err)
	assert.NoError(t, NewEncoder(env).SafetyIsolation(tv).Err)

	taken := sampleTriVector()
	taken.Safety.Name = "doc_V_S"
	clash := NewEncoder(env).SafetyIsolation(taken)
	assert.ErrorContains(t, clash.Err, "clashes with a document declaration")

	for _, name := range []string{"lo", "target", "Space", "opt_0"} {
		reserved := sampleTriVector()
		reserved.Safety.Name = name
		assert.ErrorContains(t, enc.SafetyIsolation(reserved).Err, "reserved", name)
		assert.ErrorContains(t, enc.Orthogonality(reserved, document.OrthogonalityConstraint{Space1: "V_H", Space2: name}).Err, "reserved", name)
	}
}

func TestDeclsRejectsConflictingRedeclaration(t *testing.T) {
	d := newDecls()
	d.constant("x", "Space")
	d.constant("x", "Space")
	require.NoError(t, d.err)
	assert.Len(t, d.out, 1)

	d.fun("x", "Space", "Int")
	assert.ErrorContains(t, d.err, "conflicts with (declare-const x Space)")
	assert.Len(t, d.out, 1)
}

// rangeGuard evaluates the disjointness guard of the disjoint_support premise
// for spaces a and b, using the coordinate ranges pinned by the range premises.
func rangeGuard(t *testing.T, ob Obligation, a, b string) bool {
	t.Helper()
	bounds := map[string]int{}
	var guard Node
	for _, p := range ob.Premises {
		n, err := ParseOne(p.Formula)
		require.NoError(t, err, p.Name)
		switch {
		case strings.HasPrefix(p.Name, "range_"):
			for _, eq := range n.List[1:] {
				v, err := strconv.Atoi(eq.List[2].Atom)
				require.NoError(t, err)
				bounds[eq.List[1].Head()+" "+eq.List[1].List[1].Atom] = v
			}
		case p.Name == "disjoint_support":
			// (forall vars (! (=> (and in1 in2 guard) concl) :pattern ...))
			guard = n.List[2].List[1].List[1].List[3]
		}
	}
	require.True(t, guard.IsList, "disjoint_support premise present")

	vars := map[string]string{"a": a, "b": b}
	var eval func(n Node) int
	eval = func(n Node) int {
		switch n.Head() {
		case "lo", "hi":
			v, ok := bounds[n.Head()+" "+vars[n.List[1].Atom]]
			require.True(t, ok, n.String())
			return v
		case "<=":
			if eval(n.List[1]) <= eval(n.List[2]) {
				return 1
			}
			return 0
		case "or":
			for _, c := range n.List[1:] {
				if eval(c) == 1 {
					return 1
				}
			}
			return 0
		}
		t.Fatalf("unexpected guard term %s", n)
		return 0
	}
	return eval(guard) == 1
}

func TestOrthogonalityOverlapCannotBeProven(t *testing.T) {
	enc := NewEncoder(nil)
	c := document.OrthogonalityConstraint{Space1: "V_H", Space2: "V_S"}

	disjoint := enc.Orthogonality(sampleTriVector(), c)
	require.NoError(t, disjoint.Err)
	assert.True(t, rangeGuard(t, disjoint, "V_H", "V_S"))
	assert.NotEmpty(t, disjoint.Certificate)

	tv := sampleTriVector()
	tv.Safety.Offset = 700
	overlap := enc.Orthogonality(tv, c)
	require.NoError(t, overlap.Err)

	// the only premise about dot products cannot fire for the overlapping pair
	// in either order, so nothing closes the goal
	assert.False(t, rangeGuard(t, overlap, "V_H", "V_S"))
	assert.False(t, rangeGuard(t, overlap, "V_S", "V_H"))
	for _, p := range overlap.Premises {
		if p.Name != "disjoint_support" {
			assert.NotContains(t, p.Formula, "dot_product", p.Name)
		}
	}
	assert.Empty(t, overlap.Certificate)
}

func TestStubEncodersReturnNothing(t *testing.T) {
	enc := NewEncoder(nil)
	doc := &document.Document{}
	assert.Empty(t, enc.Temporal(doc))
	assert.Empty(t, enc.TypeSafety(doc))
	assert.Empty(t, enc.Correctness(doc))
}
