package smt

import (
	"fmt"
	"sort"
	"strings"

	"aispverify/internal/document"
)

// Premise is a named hypothesis asserted alongside an obligation. Names show
// up in unsat cores.
type Premise struct {
	Name    string
	Formula string
}

// Obligation is one property to check. The engine asserts every premise and
// the negated goal: unsat means the goal follows from the premises (Proven),
// sat yields a counterexample (Disproven).
type Obligation struct {
	ID           string
	Category     PropertyCategory
	Description  string
	Declarations []string
	Premises     []Premise
	Goal         string
	// Certificate is attached to the property when it is proven.
	Certificate string
	// Err records an encoding failure; the property becomes an Error result.
	Err error
}

// OrthogonalityFormula states that every pair of vectors drawn from s1 and s2
// has a zero dot product. Space names are inserted verbatim.
func OrthogonalityFormula(s1, s2 string) string {
	return fmt.Sprintf("(forall ((v1 Vector) (v2 Vector)) (=> (and (in_space v1 %s) (in_space v2 %s)) (= (dot_product v1 v2) 0.0)))", s1, s2)
}

// SafetyIsolationFormula states that no semantic optimization affects the
// safety space.
func SafetyIsolationFormula(safety string) string {
	return fmt.Sprintf("(forall ((optimization SemanticOpt)) (not (affects optimization %s)))", safety)
}

// DecompositionFormula states that every signal splits into exactly the
// projections onto the three spaces.
func DecompositionFormula() string {
	return "(forall ((s Signal)) (exists ((vh SemanticVec) (vl StructuralVec) (vs SafetyVec)) " +
		"(and (= s (direct_sum vh vl vs)) (= vh (project_H s)) (= vl (project_L s)) (= vs (project_S s)))))"
}

// Encoder builds obligations against one environment. It never talks to the
// solver. Obligations carry every declaration they use; the engine drops the
// ones its environment already provides verbatim.
type Encoder struct {
	env *Environment
}

// vocabulary holds the symbols the tri-vector encodings declare themselves.
// Space names are inserted verbatim next to them and must not reuse one.
var vocabulary = map[string]bool{
	SortVector: true, SortSignal: true, SortAny: true,
	"Space": true, "SemanticOpt": true, "SemanticVec": true, "StructuralVec": true, "SafetyVec": true,
	"in_space": true, "dot_product": true, "lo": true, "hi": true, "target": true, "affects": true,
	"direct_sum": true, "project_H": true, "project_L": true, "project_S": true,
}

// NewEncoder binds an encoder to env. A nil env is allowed.
func NewEncoder(env *Environment) *Encoder {
	return &Encoder{env: env}
}

// checkSpaces rejects space names that are not symbols or that clash with the
// encoding vocabulary or a document declaration.
func (e *Encoder) checkSpaces(spaces ...document.VectorSpace) error {
	for _, s := range spaces {
		if !IsSymbol(s.Name) {
			return fmt.Errorf("space name %q is not a solver symbol", s.Name)
		}
		if vocabulary[s.Name] || strings.HasPrefix(s.Name, "opt_") {
			return fmt.Errorf("space name %q is reserved by the encoding", s.Name)
		}
		if e.env != nil && e.env.Declares(s.Name) {
			return fmt.Errorf("space name %q clashes with a document declaration", s.Name)
		}
	}
	return nil
}

// decls collects declarations once each. Declaring a symbol twice with
// different commands is recorded in err.
type decls struct {
	seen map[string]string
	out  []string
	err  error
}

func newDecls() *decls {
	return &decls{seen: make(map[string]string)}
}

func (d *decls) add(symbol, command string) {
	if prev, ok := d.seen[symbol]; ok {
		if prev != command && d.err == nil {
			d.err = fmt.Errorf("%s conflicts with %s", command, prev)
		}
		return
	}
	d.seen[symbol] = command
	d.out = append(d.out, command)
}

func (d *decls) sort(name string) {
	d.add(name, fmt.Sprintf("(declare-sort %s 0)", name))
}

func (d *decls) fun(name, domain, codomain string) {
	d.add(name, fmt.Sprintf("(declare-fun %s (%s) %s)", name, domain, codomain))
}

func (d *decls) constant(name, sort string) {
	d.add(name, fmt.Sprintf("(declare-const %s %s)", name, sort))
}

// TriVector encodes the orthogonality constraints, safety isolation and
// decomposition obligations of a complete tri-vector analysis.
func (e *Encoder) TriVector(tv *document.TriVector) []Obligation {
	var out []Obligation
	for _, c := range tv.OrthogonalityConstraints() {
		out = append(out, e.Orthogonality(tv, c))
	}
	out = append(out, e.SafetyIsolation(tv), e.Decomposition(tv))
	return out
}

// Orthogonality encodes one constraint. Premises pin each space to its basis
// coordinate range and state that vectors supported on disjoint ranges have a
// zero dot product, so the goal holds exactly when the ranges do not overlap.
func (e *Encoder) Orthogonality(tv *document.TriVector, c document.OrthogonalityConstraint) Obligation {
	ob := Obligation{
		ID:          "orthogonality_" + c.Space1 + "_" + c.Space2,
		Category:    CategoryTriVectorOrthogonality,
		Description: fmt.Sprintf("Orthogonality constraint '%s'", c.Label()),
	}
	s1, ok1 := tv.Space(c.Space1)
	s2, ok2 := tv.Space(c.Space2)
	if !ok1 || !ok2 {
		ob.Err = fmt.Errorf("constraint %s references an unknown space", c.Label())
		return ob
	}
	if err := e.checkSpaces(s1, s2); err != nil {
		ob.Err = err
		return ob
	}
	if s1.Name == s2.Name {
		ob.Err = fmt.Errorf("constraint %s pairs a space with itself", c.Label())
		return ob
	}

	d := newDecls()
	d.sort(SortVector)
	d.sort("Space")
	d.constant(s1.Name, "Space")
	d.constant(s2.Name, "Space")
	d.fun("in_space", SortVector+" Space", "Bool")
	d.fun("dot_product", SortVector+" "+SortVector, "Real")
	d.fun("lo", "Space", "Int")
	d.fun("hi", "Space", "Int")
	if d.err != nil {
		ob.Err = d.err
		return ob
	}
	ob.Declarations = d.out

	ob.Premises = []Premise{
		rangePremise(s1),
		rangePremise(s2),
		{
			Name: "disjoint_support",
			Formula: "(forall ((v1 Vector) (v2 Vector) (a Space) (b Space)) " +
				"(! (=> (and (in_space v1 a) (in_space v2 b) (or (<= (hi a) (lo b)) (<= (hi b) (lo a)))) " +
				"(= (dot_product v1 v2) 0.0)) :pattern ((in_space v1 a) (in_space v2 b))))",
		},
	}
	ob.Goal = OrthogonalityFormula(s1.Name, s2.Name)
	if !s1.Overlaps(s2) {
		ob.Certificate = fmt.Sprintf("%s: coordinates [%d,%d) and [%d,%d) are disjoint",
			c.Label(), s1.Offset, s1.End(), s2.Offset, s2.End())
	}
	return ob
}

func rangePremise(s document.VectorSpace) Premise {
	return Premise{
		Name:    "range_" + s.Name,
		Formula: fmt.Sprintf("(and (= (lo %s) %d) (= (hi %s) %d))", s.Name, s.Offset, s.Name, s.End()),
	}
}

// SafetyIsolation encodes non-interference with the safety space. When the
// analysis reports isolation every optimization targets a non-safety space;
// otherwise each observed optimization is declared with the safety space as
// its target.
func (e *Encoder) SafetyIsolation(tv *document.TriVector) Obligation {
	ob := Obligation{
		ID:          "safety_isolation",
		Category:    CategoryTriVectorOrthogonality,
		Description: "Safety constraints isolated from semantic optimization",
	}
	if err := e.checkSpaces(tv.Spaces()...); err != nil {
		ob.Err = err
		return ob
	}
	safety := tv.Safety.Name

	d := newDecls()
	d.sort("Space")
	d.sort("SemanticOpt")
	names := make([]string, 0, 3)
	for _, s := range tv.Spaces() {
		d.constant(s.Name, "Space")
		names = append(names, s.Name)
	}
	d.fun("target", "SemanticOpt", "Space")
	d.fun("affects", "SemanticOpt Space", "Bool")

	ob.Premises = []Premise{
		{Name: "affects_def", Formula: "(forall ((o SemanticOpt) (s Space)) (= (affects o s) (= (target o) s)))"},
		{Name: "distinct_spaces", Formula: "(distinct " + strings.Join(names, " ") + ")"},
	}

	iso := tv.Isolation
	if iso.Isolated && len(iso.Optimizations) == 0 {
		ob.Premises = append(ob.Premises, Premise{
			Name: "optimizations_target_semantics",
			Formula: fmt.Sprintf("(forall ((o SemanticOpt)) (or (= (target o) %s) (= (target o) %s)))",
				tv.Semantic.Name, tv.Structural.Name),
		})
	}
	opts := append([]string(nil), iso.Optimizations...)
	sort.Strings(opts)
	for i, name := range opts {
		c := fmt.Sprintf("opt_%d", i)
		d.constant(c, "SemanticOpt")
		ob.Premises = append(ob.Premises, Premise{
			Name:    fmt.Sprintf("observed_%d_%s", i, sanitizeName(name)),
			Formula: fmt.Sprintf("(= (target %s) %s)", c, safety),
		})
	}
	if d.err != nil {
		ob.Err = d.err
		return ob
	}
	ob.Declarations = d.out
	ob.Goal = SafetyIsolationFormula(safety)
	ob.Certificate = fmt.Sprintf("no semantic optimization can affect %s", safety)
	return ob
}

// Decomposition encodes unique tri-vector decomposition. The lossless
// reconstruction axiom is only available when the three spaces jointly cover
// the signal's coordinates without a gap.
func (e *Encoder) Decomposition(tv *document.TriVector) Obligation {
	ob := Obligation{
		ID:          "decomposition_uniqueness",
		Category:    CategoryTriVectorOrthogonality,
		Description: "Signal decomposes uniquely into V_H ⊕ V_L ⊕ V_S",
	}
	d := newDecls()
	d.sort(SortSignal)
	d.sort("SemanticVec")
	d.sort("StructuralVec")
	d.sort("SafetyVec")
	d.fun("direct_sum", "SemanticVec StructuralVec SafetyVec", SortSignal)
	d.fun("project_H", SortSignal, "SemanticVec")
	d.fun("project_L", SortSignal, "StructuralVec")
	d.fun("project_S", SortSignal, "SafetyVec")
	ob.Declarations = d.out

	if end, ok := contiguousCover(tv.Spaces()); ok {
		ob.Premises = append(ob.Premises, Premise{
			Name:    "lossless_reconstruction",
			Formula: "(forall ((s Signal)) (= (direct_sum (project_H s) (project_L s) (project_S s)) s))",
		})
		ob.Certificate = fmt.Sprintf("spaces cover coordinates [0,%d) without gaps", end)
	}
	ob.Goal = DecompositionFormula()
	return ob
}

// sanitizeName maps free text onto a simple symbol for use in premise names.
func sanitizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < 128 && IsSymbol(string(r)) || r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// contiguousCover reports whether the spaces cover [0, end) without a gap.
func contiguousCover(spaces []document.VectorSpace) (int, bool) {
	sorted := append([]document.VectorSpace(nil), spaces...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })
	end := 0
	for _, s := range sorted {
		if s.Offset > end {
			return 0, false
		}
		if s.End() > end {
			end = s.End()
		}
	}
	return end, end > 0
}

// Temporal encodes temporal safety and liveness obligations. None are
// derived yet.
func (e *Encoder) Temporal(doc *document.Document) []Obligation {
	return nil
}

// TypeSafety encodes type soundness obligations. None are derived yet.
func (e *Encoder) TypeSafety(doc *document.Document) []Obligation {
	return nil
}

// Correctness encodes functional correctness obligations. None are derived
// yet.
func (e *Encoder) Correctness(doc *document.Document) []Obligation {
	return nil
}
