package document

import (
	"fmt"
	"math"
)

// SemanticAnalysis is the upstream analysis attached to a document: the
// measured ambiguity, observed execution-token cost and tri-vector
// decomposition. None of it is computed by this module.
type SemanticAnalysis struct {
	Ambiguity       float64    `yaml:"ambiguity" json:"ambiguity"`
	ExecutionTokens int        `yaml:"execution_tokens" json:"execution_tokens"`
	TriVector       *TriVector `yaml:"tri_vector,omitempty" json:"tri_vector,omitempty"`
}

// TriVector is the decomposition of a signal into semantic (V_H),
// structural (V_L) and safety (V_S) spaces.
type TriVector struct {
	Semantic    VectorSpace               `yaml:"semantic" json:"semantic"`
	Structural  VectorSpace               `yaml:"structural" json:"structural"`
	Safety      VectorSpace               `yaml:"safety" json:"safety"`
	Constraints []OrthogonalityConstraint `yaml:"constraints,omitempty" json:"constraints,omitempty"`
	Isolation   SafetyIsolation           `yaml:"isolation" json:"isolation"`
}

// VectorSpace spans basis coordinates [Offset, Offset+Dimension).
type VectorSpace struct {
	Name      string `yaml:"name" json:"name"`
	Dimension int    `yaml:"dimension" json:"dimension"`
	Offset    int    `yaml:"offset" json:"offset"`
}

// End returns the first coordinate past the space.
func (v VectorSpace) End() int {
	return v.Offset + v.Dimension
}

// Overlaps reports whether two spaces share a basis coordinate.
func (v VectorSpace) Overlaps(o VectorSpace) bool {
	return v.Offset < o.End() && o.Offset < v.End()
}

// OrthogonalityConstraint names two spaces that must be orthogonal.
type OrthogonalityConstraint struct {
	Space1 string `yaml:"space1" json:"space1"`
	Space2 string `yaml:"space2" json:"space2"`
}

// Label renders the constraint the way documents write it.
func (c OrthogonalityConstraint) Label() string {
	return c.Space1 + " ⊥ " + c.Space2
}

// SafetyIsolation records whether semantic optimizations stay out of the
// safety space, and which ones were seen touching it.
type SafetyIsolation struct {
	Isolated      bool     `yaml:"isolated" json:"isolated"`
	Optimizations []string `yaml:"optimizations,omitempty" json:"optimizations,omitempty"`
}

// Complete reports whether all three spaces are present.
func (t *TriVector) Complete() bool {
	if t == nil {
		return false
	}
	return t.Semantic.Dimension > 0 && t.Structural.Dimension > 0 && t.Safety.Dimension > 0
}

// Spaces returns the three spaces in V_H, V_L, V_S order.
func (t *TriVector) Spaces() []VectorSpace {
	return []VectorSpace{t.Semantic, t.Structural, t.Safety}
}

// Space looks a space up by name.
func (t *TriVector) Space(name string) (VectorSpace, bool) {
	for _, s := range t.Spaces() {
		if s.Name == name {
			return s, true
		}
	}
	return VectorSpace{}, false
}

// OrthogonalityConstraints returns the declared constraints, defaulting to
// the two mandatory disjoint pairs V_H ⊥ V_S and V_L ⊥ V_S.
func (t *TriVector) OrthogonalityConstraints() []OrthogonalityConstraint {
	if len(t.Constraints) > 0 {
		return t.Constraints
	}
	return []OrthogonalityConstraint{
		{Space1: t.Semantic.Name, Space2: t.Safety.Name},
		{Space1: t.Structural.Name, Space2: t.Safety.Name},
	}
}

// Validate checks the analysis ranges.
func (a *SemanticAnalysis) Validate() error {
	if math.IsNaN(a.Ambiguity) || a.Ambiguity < 0 || a.Ambiguity > 1 {
		return fmt.Errorf("ambiguity %v outside [0, 1]", a.Ambiguity)
	}
	if a.ExecutionTokens < 0 {
		return fmt.Errorf("execution tokens must be >= 0, got %d", a.ExecutionTokens)
	}
	if a.TriVector == nil {
		return nil
	}
	seen := make(map[string]bool)
	for _, s := range a.TriVector.Spaces() {
		if s.Name == "" {
			return fmt.Errorf("tri-vector space without a name")
		}
		if seen[s.Name] {
			return fmt.Errorf("duplicate tri-vector space %q", s.Name)
		}
		seen[s.Name] = true
		if s.Dimension < 0 || s.Offset < 0 {
			return fmt.Errorf("space %s: negative dimension or offset", s.Name)
		}
	}
	for _, c := range a.TriVector.Constraints {
		if !seen[c.Space1] || !seen[c.Space2] {
			return fmt.Errorf("constraint %s references an unknown space", c.Label())
		}
	}
	return nil
}
