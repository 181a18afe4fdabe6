package mangle

import (
	"fmt"
	"strings"

	"aispverify/internal/logging"
)

// Property names used by the layer stack.
const (
	PropStable        = "stable"
	PropDeterministic = "deterministic"
	PropIntegrity     = "integrity"
	PropZeroCopy      = "zero_copy"
	PropBounded       = "bounded"
)

// Layer is one level of the stack with the properties it needs.
type Layer struct {
	Name     string
	Symbol   string
	Requires []string
}

// Edge says that Left and Right holding in From yields Conclusion for To.
type Edge struct {
	From       string
	To         string
	Left       string
	Right      string
	Conclusion string
}

// Property renders the edge as "left∧right⇒conclusion".
func (e Edge) Property() string {
	return e.Left + "∧" + e.Right + "⇒" + e.Conclusion
}

// Layers is the ordered three-layer stack.
var Layers = []Layer{
	{Name: "L0_Signal", Symbol: "/signal", Requires: []string{PropStable, PropDeterministic}},
	{Name: "L1_Pocket", Symbol: "/pocket", Requires: []string{PropIntegrity, PropZeroCopy}},
	{Name: "L2_Intelligence", Symbol: "/intelligence", Requires: []string{PropBounded}},
}

// Edges are the composition edges between consecutive layers.
var Edges = []Edge{
	{From: "L0_Signal", To: "L1_Pocket", Left: PropStable, Right: PropDeterministic, Conclusion: PropIntegrity},
	{From: "L1_Pocket", To: "L2_Intelligence", Left: PropIntegrity, Right: PropZeroCopy, Conclusion: PropBounded},
}

const layerProgram = `
Decl layer(Layer).
Decl requires(Layer, Property).
Decl edge(From, To, Left, Right, Conclusion).
Decl base(Property).
Decl holds(Property).
Decl edge_enabled(From, To).
Decl layer_gap(Layer).
Decl layer_verified(Layer).

holds(P) :- base(P).
holds(C) :- edge(From, To, A, B, C), holds(A), holds(B).
edge_enabled(From, To) :- edge(From, To, A, B, C), holds(A), holds(B).
layer_gap(L) :- requires(L, P), !holds(P).
layer_verified(L) :- layer(L), !layer_gap(L).
`

// Composition is what the kernel derived for one set of base properties.
type Composition struct {
	Holds         map[string]bool
	Verified      map[string]bool
	EdgeEnabled   map[string]bool
	VerifiedCount int
}

// Compose derives which properties hold, which layers have all their required
// properties and which edges fire, starting from base.
func Compose(base map[string]bool) (*Composition, error) {
	k, err := NewKernel(layerProgram, 0)
	if err != nil {
		return nil, err
	}

	symbols := make(map[string]string, len(Layers))
	var facts []Fact
	for _, l := range Layers {
		symbols[l.Name] = l.Symbol
		facts = append(facts, Fact{Predicate: "layer", Args: []interface{}{l.Symbol}})
		for _, p := range l.Requires {
			facts = append(facts, Fact{Predicate: "requires", Args: []interface{}{l.Symbol, "/" + p}})
		}
	}
	for _, e := range Edges {
		facts = append(facts, Fact{Predicate: "edge", Args: []interface{}{
			symbols[e.From], symbols[e.To], "/" + e.Left, "/" + e.Right, "/" + e.Conclusion,
		}})
	}
	if err := k.AddFacts(facts); err != nil {
		return nil, err
	}
	for p, ok := range base {
		if !ok {
			continue
		}
		if err := k.AddFact("base", "/"+p); err != nil {
			return nil, err
		}
	}
	if err := k.Evaluate(); err != nil {
		return nil, err
	}
	st := k.Stats()
	logging.KernelDebug("Layer derivation: %d facts, %d holds", st.TotalFacts, st.PredicateCounts["holds"])

	c := &Composition{
		Holds:       make(map[string]bool),
		Verified:    make(map[string]bool),
		EdgeEnabled: make(map[string]bool),
	}
	held, err := k.Facts("holds")
	if err != nil {
		return nil, err
	}
	for _, f := range held {
		c.Holds[nameOf(f.Args[0])] = true
	}
	for _, l := range Layers {
		ok, err := k.Holds("layer_verified", l.Symbol)
		if err != nil {
			return nil, err
		}
		c.Verified[l.Name] = ok
		if ok {
			c.VerifiedCount++
		}
	}
	for _, e := range Edges {
		ok, err := k.Holds("edge_enabled", symbols[e.From], symbols[e.To])
		if err != nil {
			return nil, err
		}
		c.EdgeEnabled[e.From+"->"+e.To] = ok
	}
	return c, nil
}

func nameOf(v interface{}) string {
	return strings.TrimPrefix(fmt.Sprint(v), "/")
}
