package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aispverify/internal/batch"
	"aispverify/internal/compliance"
	"aispverify/internal/smt"
)

func sampleOutcomes() []batch.Outcome {
	res := &smt.Result{
		RunID:    "run-1",
		Document: "alpha",
		Status:   smt.VerificationStatus{Kind: smt.StatusPartiallyVerified},
		Properties: []smt.VerifiedProperty{
			{ID: "tri_vector_orthogonality", Category: smt.CategoryTriVectorOrthogonality, Result: smt.Proven, Certificate: "ORTHOGONALITY_VERIFIED"},
			{ID: "safety_isolation", Category: smt.CategoryTemporalSafety, Result: smt.Disproven},
		},
		Counterexamples: map[string]smt.CounterexampleModel{
			"safety_isolation": {ID: "safety_isolation", Assignments: map[string]string{"v_s": "3"}},
		},
		UnsatCores: map[string]smt.UnsatCore{
			"tri_vector_orthogonality": {Assertions: []string{"disjoint", "dims"}},
		},
		Diagnostics: []smt.Diagnostic{{Level: smt.DiagnosticPerformance, Message: "slow query"}},
		Stats:       smt.Stats{Queries: 2, Proofs: 1, Counterexamples: 1},
		Elapsed:     1500 * time.Millisecond,
	}
	return []batch.Outcome{
		{Job: "alpha", Result: res},
		{Job: "beta", Err: errors.New("unknown type Missing")},
	}
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"":         FormatText,
		"TEXT":     FormatText,
		"md":       FormatMarkdown,
		"markdown": FormatMarkdown,
		" json ":   FormatJSON,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestVerificationText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, FormatText).Verification(sampleOutcomes()))

	out := buf.String()
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "partially_verified")
	assert.Contains(t, out, "ORTHOGONALITY_VERIFIED")
	assert.Contains(t, out, "v_s = 3")
	assert.Contains(t, out, "disjoint, dims")
	assert.Contains(t, out, "[performance] slow query")
	assert.Contains(t, out, "queries=2 proofs=1")
	assert.Contains(t, out, "setup error: unknown type Missing")
}

func TestVerificationMarkdown(t *testing.T) {
	md := VerificationMarkdown(sampleOutcomes())
	assert.Contains(t, md, "# Verification Report")
	assert.Contains(t, md, "| tri_vector_orthogonality | tri_vector_orthogonality | proven | 0s |")
	assert.Contains(t, md, "### Counterexample for safety_isolation")
	assert.Contains(t, md, "**Setup error:** unknown type Missing")

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, FormatMarkdown, WithWidth(120)).Verification(sampleOutcomes()))
	assert.Contains(t, buf.String(), "Verification Report")
	assert.Contains(t, buf.String(), "safety_isolation")
}

func TestVerificationJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, FormatJSON).Verification(sampleOutcomes()))

	var decoded []struct {
		Document string          `json:"document"`
		Error    string          `json:"error"`
		Result   json.RawMessage `json:"result"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "alpha", decoded[0].Document)
	assert.Empty(t, decoded[0].Error)
	assert.Equal(t, "unknown type Missing", decoded[1].Error)
	assert.Nil(t, decoded[1].Result)
}

func sampleCompliance() *compliance.Result {
	return &compliance.Result{
		Level: compliance.LevelHigh,
		Score: 0.875,
		Math: compliance.MathFoundations{
			CalculatedAmbiguity: 0.01,
			PipelineProofs:      []compliance.PipelineProof{{Steps: 10, ProseRate: 0.0084, TargetRate: 0.817, ImprovementFactor: 97.3, SolverVerified: true}},
		},
		Orthogonality: compliance.Orthogonality{VHVSOrthogonal: true, VLVSOrthogonal: true, Certificates: []string{compliance.CertVHVS}},
		Features: compliance.FeatureCompliance{
			Implemented: 1, Specified: 2, Percentage: 50,
			Results: []compliance.FeatureResult{
				{ID: 1, Name: "TriVectorDecomposition", Implemented: true},
				{ID: 2, Name: "PocketArchitecture", Details: "no pocket type"},
			},
		},
		Layers: compliance.LayerComposition{
			Layers: []compliance.LayerStatus{{Name: "L0_Signal", Verified: true}, {Name: "L1_Pocket"}},
			Proofs: []compliance.CompositionProof{{From: "L0_Signal", To: "L1_Pocket", Property: "stable∧deterministic⇒integrity"}},
		},
		Issues: []string{"Tri-vector error: boom"},
	}
}

func TestComplianceText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, FormatText).Compliance("alpha", sampleCompliance()))

	out := buf.String()
	assert.Contains(t, out, "HIGH")
	assert.Contains(t, out, "87.5%")
	assert.Contains(t, out, "Features 1/2 (50%)")
	assert.Contains(t, out, "PocketArchitecture")
	assert.Contains(t, out, "Layers 1/2")
	assert.Contains(t, out, "Tri-vector error: boom")
}

func TestComplianceMarkdown(t *testing.T) {
	md := ComplianceMarkdown("alpha", sampleCompliance())
	assert.Contains(t, md, "# Compliance: alpha")
	assert.Contains(t, md, "| 10 | 0.0084 | 0.8170 | 97.3 | yes |")
	assert.Contains(t, md, "| 2 | PocketArchitecture | no | no | no pocket type |")
	assert.Contains(t, md, "`stable∧deterministic⇒integrity` enabled: no, verified: no")
	assert.Contains(t, md, "## Issues")
}

func TestComplianceJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf, FormatJSON).Compliance("alpha", sampleCompliance()))
	assert.Contains(t, buf.String(), `"level": "high"`)
}
