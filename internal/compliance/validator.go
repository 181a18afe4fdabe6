package compliance

import (
	"context"
	"fmt"
	"math"
	"time"

	"aispverify/internal/document"
	"aispverify/internal/logging"
	"aispverify/internal/smt"
)

// Score weights. They sum to one.
const (
	weightAmbiguity = 0.125
	weightTokens    = 0.125
	weightVHVS      = 0.125
	weightVLVS      = 0.125
	weightFeatures  = 0.35
	weightLayers    = 0.15
)

// Validator runs the four compliance phases against one backend.
type Validator struct {
	backend  smt.Backend
	registry *Registry
}

// Option configures a Validator.
type Option func(*Validator)

// WithRegistry replaces the default feature registry.
func WithRegistry(r *Registry) Option {
	return func(v *Validator) { v.registry = r }
}

// NewValidator returns a validator checking obligations through backend. A
// nil backend behaves like a disabled one.
func NewValidator(backend smt.Backend, opts ...Option) *Validator {
	if backend == nil {
		backend = smt.NewDisabled()
	}
	v := &Validator{backend: backend, registry: DefaultRegistry()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate always returns a complete report. A failing phase contributes its
// fallback value and one entry in Issues.
func (v *Validator) Validate(ctx context.Context, doc *document.Document, source string, analysis *document.SemanticAnalysis) *Result {
	start := time.Now()
	in := &Input{Document: doc, Analysis: analysis, Source: source, Backend: v.backend}
	res := &Result{Issues: []string{}}

	var err error
	if res.Math, err = runPhase(ctx, "Math foundations", in, v.mathFoundations); err != nil {
		res.Math = mathFallback()
		res.Issues = append(res.Issues, err.Error())
	}
	if res.Orthogonality, err = runPhase(ctx, "Tri-vector", in, v.orthogonality); err != nil {
		res.Orthogonality = orthogonalityFallback()
		res.Issues = append(res.Issues, err.Error())
	}
	if res.Features, err = runPhase(ctx, "Feature compliance", in, v.registry.Run); err != nil {
		res.Features = featureFallback(v.registry.Len())
		res.Issues = append(res.Issues, err.Error())
	}
	if res.Layers, err = runPhase(ctx, "Layer composition", in, v.layerComposition); err != nil {
		res.Layers = layerFallback()
		res.Issues = append(res.Issues, err.Error())
	}

	res.Score = Score(res)
	res.Level = LevelFor(res.Score)
	res.Elapsed = time.Since(start)

	logging.Compliance("Compliance %s: score=%.3f issues=%d in %v", res.Level, res.Score, len(res.Issues), res.Elapsed)
	return res
}

// runPhase contains errors and panics of a single phase.
func runPhase[T any](ctx context.Context, phase string, in *Input, fn func(context.Context, *Input) (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			out = zero
			err = &PhaseError{Phase: phase, Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			logging.ComplianceWarn("%v", err)
		}
	}()

	out, err = fn(ctx, in)
	if err != nil {
		var zero T
		return zero, &PhaseError{Phase: phase, Err: err}
	}
	return out, nil
}

// Score combines the four phases into [0, 1].
func Score(r *Result) float64 {
	score := 0.0
	if r.Math.AmbiguityVerified {
		score += weightAmbiguity
	}
	if r.Math.TokenEfficiency.MeetsTarget {
		score += weightTokens
	}
	if r.Orthogonality.VHVSOrthogonal {
		score += weightVHVS
	}
	if r.Orthogonality.VLVSOrthogonal {
		score += weightVLVS
	}
	score += weightFeatures * r.Features.Percentage / 100

	if n := len(r.Layers.Layers); n > 0 {
		score += weightLayers * float64(r.Layers.VerifiedCount()) / float64(n)
	}

	total := weightAmbiguity + weightTokens + weightVHVS + weightVLVS + weightFeatures + weightLayers
	// keep float noise from moving a score across a tier boundary
	return math.Round(score/total*1e9) / 1e9
}
