// Package compliance scores a document against the reference feature set in
// four independent phases: mathematical foundations, tri-vector
// orthogonality, feature compliance and layer composition.
package compliance

import (
	"encoding/json"
	"fmt"
	"time"
)

// Level is the compliance tier derived from the score.
type Level string

const (
	LevelPerfect Level = "perfect"
	LevelHigh    Level = "high"
	LevelPartial Level = "partial"
	LevelLow     Level = "low"
	LevelFailed  Level = "failed"
)

// LevelFor maps a score in [0, 1] to its tier.
func LevelFor(score float64) Level {
	switch {
	case score >= 1.0:
		return LevelPerfect
	case score >= 0.85:
		return LevelHigh
	case score >= 0.60:
		return LevelPartial
	case score >= 0.30:
		return LevelLow
	default:
		return LevelFailed
	}
}

// PipelineProof compares baseline and target success rates over a number of
// chained steps.
type PipelineProof struct {
	Steps             int     `json:"steps"`
	ProseRate         float64 `json:"prose_rate"`
	TargetRate        float64 `json:"target_rate"`
	ImprovementFactor float64 `json:"improvement_factor"`
	SolverVerified    bool    `json:"solver_verified"`
}

// TokenEfficiency relates the one-off cost of reading a document to the
// per-use cost of executing it.
type TokenEfficiency struct {
	CompilationTokens int      `json:"compilation_tokens"`
	ExecutionTokens   int      `json:"execution_tokens"`
	EfficiencyRatio   *float64 `json:"efficiency_ratio,omitempty"`
	MeetsTarget       bool     `json:"meets_target"`
}

// MathFoundations is the phase 1 result.
type MathFoundations struct {
	AmbiguityVerified   bool            `json:"ambiguity_verified"`
	CalculatedAmbiguity float64         `json:"calculated_ambiguity"`
	PipelineProofs      []PipelineProof `json:"pipeline_proofs"`
	TokenEfficiency     TokenEfficiency `json:"token_efficiency"`
}

// Orthogonality is the phase 2 result.
type Orthogonality struct {
	VHVSOrthogonal     bool     `json:"vh_vs_orthogonal"`
	VLVSOrthogonal     bool     `json:"vl_vs_orthogonal"`
	VHVLOverlapAllowed bool     `json:"vh_vl_overlap_allowed"`
	Certificates       []string `json:"certificates"`
}

// FeatureResult is one registry entry's outcome.
type FeatureResult struct {
	ID                    int    `json:"id"`
	Name                  string `json:"name"`
	Implemented           bool   `json:"implemented"`
	SolverVerified        bool   `json:"solver_verified"`
	MathematicallyCorrect bool   `json:"mathematically_correct"`
	Details               string `json:"details"`
}

// FeatureCompliance is the phase 3 result. Results keep registry order.
type FeatureCompliance struct {
	Implemented int             `json:"implemented"`
	Specified   int             `json:"specified"`
	Percentage  float64         `json:"percentage"`
	Results     []FeatureResult `json:"results"`
}

// Feature looks a result up by name.
func (f FeatureCompliance) Feature(name string) (FeatureResult, bool) {
	for _, r := range f.Results {
		if r.Name == name {
			return r, true
		}
	}
	return FeatureResult{}, false
}

// LayerStatus says whether one layer has all its required properties.
type LayerStatus struct {
	Name     string `json:"name"`
	Verified bool   `json:"verified"`
}

// CompositionProof records one layer edge.
type CompositionProof struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Property string `json:"property"`
	// Enabled is set when the layer derivation fires the edge.
	Enabled        bool   `json:"enabled"`
	SolverVerified bool   `json:"solver_verified"`
	Certificate    string `json:"certificate,omitempty"`
}

// LayerComposition is the phase 4 result.
type LayerComposition struct {
	Layers []LayerStatus      `json:"layers"`
	Proofs []CompositionProof `json:"proofs"`
}

// VerifiedCount returns how many layers are verified.
func (l LayerComposition) VerifiedCount() int {
	n := 0
	for _, s := range l.Layers {
		if s.Verified {
			n++
		}
	}
	return n
}

// Result is the full compliance report.
type Result struct {
	Level         Level             `json:"level"`
	Score         float64           `json:"score"`
	Math          MathFoundations   `json:"math_foundations"`
	Orthogonality Orthogonality     `json:"trivector_orthogonality"`
	Features      FeatureCompliance `json:"feature_compliance"`
	Layers        LayerComposition  `json:"layer_composition"`
	Issues        []string          `json:"issues"`
	Elapsed       time.Duration     `json:"elapsed"`
}

// JSON renders the report.
func (r *Result) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// PhaseError is a failure inside one phase. The phase's fallback value is
// used instead and the error is listed in the issues.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s error: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}
