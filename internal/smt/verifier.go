package smt

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"aispverify/internal/document"
	"aispverify/internal/logging"
)

// Verifier runs every obligation of a document through one engine.
type Verifier struct {
	cfg    Config
	engine *Engine
}

// NewVerifier builds a verifier over its own engine.
func NewVerifier(cfg Config, solver Solver, opts ...EngineOption) *Verifier {
	return &Verifier{cfg: cfg, engine: NewEngine(cfg, solver, opts...)}
}

// Obligations builds the environment for doc and encodes its properties.
// Tri-vector obligations need a complete signal in the analysis; a document
// with no type or function declarations carries none at all.
func Obligations(doc *document.Document, analysis *document.SemanticAnalysis) (*Environment, []Obligation, error) {
	env, err := BuildEnvironment(doc)
	if err != nil {
		return nil, nil, err
	}
	if !doc.HasDeclarations() {
		return env, nil, nil
	}
	enc := NewEncoder(env)
	var obs []Obligation
	if analysis != nil && analysis.TriVector.Complete() {
		obs = append(obs, enc.TriVector(analysis.TriVector)...)
	}
	obs = append(obs, enc.Temporal(doc)...)
	obs = append(obs, enc.TypeSafety(doc)...)
	obs = append(obs, enc.Correctness(doc)...)
	return env, obs, nil
}

// VerifyDocument checks every obligation of doc in order. Only environment
// setup failures are returned as errors; everything else is reported in the
// result. The document's environment is only installed for the duration of
// the call.
func (v *Verifier) VerifyDocument(ctx context.Context, doc *document.Document, analysis *document.SemanticAnalysis) (*Result, error) {
	start := time.Now()
	result := newResult(uuid.NewString(), doc.Header.Name)
	log := logging.Get(logging.CategorySMT).With("run_id", result.RunID, "document", doc.Header.Name)

	env, obligations, err := Obligations(doc, analysis)
	if err != nil {
		log.Error("Environment setup failed: %v", err)
		return nil, err
	}
	prev := v.engine.Environment()
	v.engine.SetEnvironment(env)
	defer v.engine.SetEnvironment(prev)
	result.addDiagnostic(DiagnosticInfo, fmt.Sprintf("environment declares %d sorts and %d functions",
		env.SortCount(), len(env.FunctionNames())), "")
	log.Info("Verifying %d properties", len(obligations))

	runCtx := ctx
	if v.cfg.TotalTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, v.cfg.TotalTimeout)
		defer cancel()
	}

	for _, ob := range obligations {
		prop := VerifiedProperty{
			ID:          ob.ID,
			Category:    ob.Category,
			Description: ob.Description,
			Formula:     ob.Goal,
		}

		if runCtx.Err() != nil {
			v.engine.unreached()
			prop.Result = UnknownResult("run deadline exceeded")
			result.Properties = append(result.Properties, prop)
			result.addDiagnostic(DiagnosticWarning, "not checked before the run deadline", ob.ID)
			continue
		}

		out := v.engine.Check(runCtx, ob)
		prop.Result = out.Result
		prop.Elapsed = out.Elapsed
		if out.Result.Kind == ResultProven {
			prop.Certificate = ob.Certificate
			if prop.Certificate == "" {
				prop.Certificate = ob.Description + " holds"
			}
		}
		result.Properties = append(result.Properties, prop)

		if out.Proof != nil {
			result.Proofs[ob.ID] = *out.Proof
		}
		if out.Model != nil {
			result.Counterexamples[ob.ID] = *out.Model
		}
		if out.Core != nil {
			result.UnsatCores[ob.ID] = *out.Core
		}

		switch out.Result.Kind {
		case ResultUnknown:
			result.addDiagnostic(DiagnosticWarning, "solver could not decide: "+out.Result.Reason, ob.ID)
		case ResultError:
			result.addDiagnostic(DiagnosticError, out.Result.Reason, ob.ID)
		}
		if v.cfg.SlowQueryThreshold > 0 && out.Elapsed > v.cfg.SlowQueryThreshold {
			result.addDiagnostic(DiagnosticPerformance,
				fmt.Sprintf("query took %v (threshold %v)", out.Elapsed, v.cfg.SlowQueryThreshold), ob.ID)
		}
	}

	result.Status = Aggregate(result.Properties)
	result.Stats = v.engine.Stats()
	result.Elapsed = time.Since(start)
	log.Info("Verification finished: %s (%d properties, %v)", result.Status, len(result.Properties), result.Elapsed)
	return result, nil
}

func (r *Result) addDiagnostic(level DiagnosticLevel, msg, where string) {
	r.Diagnostics = append(r.Diagnostics, Diagnostic{
		Level:     level,
		Message:   msg,
		Context:   where,
		Timestamp: time.Now(),
	})
}

// Close releases the engine's solver.
func (v *Verifier) Close() error {
	return v.engine.Close()
}
