package compliance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"aispverify/internal/document"
	"aispverify/internal/smt"
)

// AmbiguityBound is the largest ambiguity a compliant document may have.
const AmbiguityBound = 0.02

// PipelineSteps are the chain lengths the pipeline proofs cover.
var PipelineSteps = []int{1, 5, 10, 20}

const (
	proseStepRate  = 0.62
	targetStepRate = 0.98
	maxExecTokens  = 10
)

// decimal renders f as an SMT-LIB decimal literal.
func decimal(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// AmbiguityObligation states that a document measured at ambiguity stays
// under the bound, with ambiguity = 1 - unique/total.
func AmbiguityObligation(ambiguity float64) smt.Obligation {
	return smt.Obligation{
		ID:          "ambiguity_bound",
		Category:    smt.CategoryCorrectness,
		Description: fmt.Sprintf("ambiguity below %s", decimal(AmbiguityBound)),
		Declarations: []string{
			"(declare-const ambiguity Real)",
			"(declare-const unique_parses Real)",
			"(declare-const total_parses Real)",
		},
		Premises: []smt.Premise{
			{Name: "ambiguity_def", Formula: "(= ambiguity (- 1.0 (/ unique_parses total_parses)))"},
			{Name: "unique_nonneg", Formula: "(>= unique_parses 0.0)"},
			{Name: "total_positive", Formula: "(>= total_parses 1.0)"},
			{Name: "unique_le_total", Formula: "(<= unique_parses total_parses)"},
			{Name: "measured_ambiguity", Formula: "(= ambiguity " + decimal(ambiguity) + ")"},
		},
		Goal:        "(< ambiguity " + decimal(AmbiguityBound) + ")",
		Certificate: fmt.Sprintf("measured ambiguity %s < %s", decimal(ambiguity), decimal(AmbiguityBound)),
	}
}

// PipelineObligation states that over steps chained steps the target rate
// beats the baseline and the improvement factor exceeds one.
func PipelineObligation(p PipelineProof) smt.Obligation {
	return smt.Obligation{
		ID:          fmt.Sprintf("pipeline_%d", p.Steps),
		Category:    smt.CategoryCorrectness,
		Description: fmt.Sprintf("%d-step pipeline improves on prose", p.Steps),
		Declarations: []string{
			"(declare-const prose_rate Real)",
			"(declare-const target_rate Real)",
			"(declare-const improvement Real)",
		},
		Premises: []smt.Premise{
			{Name: "prose_def", Formula: "(= prose_rate " + decimal(p.ProseRate) + ")"},
			{Name: "target_def", Formula: "(= target_rate " + decimal(p.TargetRate) + ")"},
			{Name: "improvement_def", Formula: "(= improvement (/ target_rate prose_rate))"},
		},
		Goal: "(and (> target_rate prose_rate) (> improvement 1.0))",
	}
}

// PipelineRates computes the rates for one chain length.
func PipelineRates(steps int) PipelineProof {
	prose := math.Pow(proseStepRate, float64(steps))
	target := math.Pow(targetStepRate, float64(steps))
	improvement := math.Inf(1)
	if prose > 0 {
		improvement = target / prose
	}
	return PipelineProof{
		Steps:             steps,
		ProseRate:         prose,
		TargetRate:        target,
		ImprovementFactor: improvement,
	}
}

// TokenMetrics computes token efficiency from the document source and the
// observed execution cost.
func TokenMetrics(source string, executionTokens int) TokenEfficiency {
	te := TokenEfficiency{
		CompilationTokens: len(source) / 4,
		ExecutionTokens:   executionTokens,
		MeetsTarget:       executionTokens <= maxExecTokens,
	}
	if executionTokens > 0 {
		ratio := float64(te.CompilationTokens) / float64(executionTokens)
		te.EfficiencyRatio = &ratio
	}
	return te
}

func mathFallback() MathFoundations {
	return MathFoundations{
		CalculatedAmbiguity: 1.0,
		TokenEfficiency:     TokenEfficiency{ExecutionTokens: 1000},
	}
}

func (v *Validator) mathFoundations(ctx context.Context, in *Input) (MathFoundations, error) {
	if in.Analysis == nil {
		return MathFoundations{}, errors.New("no semantic analysis")
	}
	amb := in.Analysis.Ambiguity
	if math.IsNaN(amb) || amb < 0 || amb > 1 {
		return MathFoundations{}, fmt.Errorf("ambiguity %v outside [0, 1]", amb)
	}

	res := MathFoundations{
		CalculatedAmbiguity: amb,
		TokenEfficiency:     TokenMetrics(in.Source, in.Analysis.ExecutionTokens),
	}
	res.AmbiguityVerified = v.backend.Check(ctx, AmbiguityObligation(amb)).Result == smt.Proven

	for _, steps := range PipelineSteps {
		p := PipelineRates(steps)
		p.SolverVerified = v.backend.Check(ctx, PipelineObligation(p)).Result == smt.Proven
		res.PipelineProofs = append(res.PipelineProofs, p)
	}
	return res, nil
}

func orthogonalityFallback() Orthogonality {
	return Orthogonality{}
}

// Certificates issued for the two mandatory disjoint pairs.
const (
	CertVHVS = "VH_VS_ORTHOGONAL_VERIFIED"
	CertVLVS = "VL_VS_ORTHOGONAL_VERIFIED"
)

func (v *Validator) orthogonality(ctx context.Context, in *Input) (Orthogonality, error) {
	if in.Analysis == nil || !in.Analysis.TriVector.Complete() {
		return Orthogonality{}, errors.New("no complete tri-vector analysis")
	}
	tv := in.Analysis.TriVector
	enc := smt.NewEncoder(nil)

	res := Orthogonality{VHVLOverlapAllowed: true, Certificates: []string{}}
	check := func(space document.VectorSpace) bool {
		ob := enc.Orthogonality(tv, document.OrthogonalityConstraint{Space1: space.Name, Space2: tv.Safety.Name})
		return v.backend.Check(ctx, ob).Result == smt.Proven
	}
	if check(tv.Semantic) {
		res.VHVSOrthogonal = true
		res.Certificates = append(res.Certificates, CertVHVS)
	}
	if check(tv.Structural) {
		res.VLVSOrthogonal = true
		res.Certificates = append(res.Certificates, CertVLVS)
	}
	return res, nil
}
