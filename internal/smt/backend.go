package smt

import (
	"context"
	"os/exec"

	"github.com/google/uuid"

	"aispverify/internal/document"
	"aispverify/internal/logging"
)

// Backend is the single verification entry point. Callers hold it whether or
// not a solver is installed.
type Backend interface {
	// Available reports whether checks reach a real solver.
	Available() bool
	// Verify checks a bare goal formula.
	Verify(ctx context.Context, formula, propertyID string) PropertyResult
	// Check verifies one obligation with its premises.
	Check(ctx context.Context, ob Obligation) Outcome
	// VerifyDocument verifies every obligation derived from doc.
	VerifyDocument(ctx context.Context, doc *document.Document, analysis *document.SemanticAnalysis) (*Result, error)
	Stats() Stats
	ResetStats()
	Close() error
}

// IsAvailable reports whether the configured solver binary can be found.
func IsAvailable(cfg Config) bool {
	_, err := exec.LookPath(cfg.SolverPath)
	return err == nil
}

// NewBackend returns a solver-backed backend when the solver is installed
// and the disabled stand-in otherwise. A solver that is present but cannot
// be started is an error.
func NewBackend(cfg Config, opts ...EngineOption) (Backend, error) {
	if !IsAvailable(cfg) {
		logging.SolverWarn("Solver %q not found; verification disabled", cfg.SolverPath)
		return NewDisabled(), nil
	}
	solver, err := NewSolver(cfg)
	if err != nil {
		return nil, err
	}
	return NewSolverBackend(cfg, solver, opts...), nil
}

// NewSolverBackend wraps an already started solver.
func NewSolverBackend(cfg Config, solver Solver, opts ...EngineOption) Backend {
	return &solverBackend{verifier: NewVerifier(cfg, solver, opts...)}
}

// NewDisabled returns the stand-in used when no solver is wanted or present.
func NewDisabled() Backend {
	return disabledBackend{}
}

type solverBackend struct {
	verifier *Verifier
}

func (b *solverBackend) Available() bool { return true }

func (b *solverBackend) Verify(ctx context.Context, formula, propertyID string) PropertyResult {
	return b.verifier.engine.Verify(ctx, formula, propertyID)
}

func (b *solverBackend) Check(ctx context.Context, ob Obligation) Outcome {
	return b.verifier.engine.Check(ctx, ob)
}

func (b *solverBackend) VerifyDocument(ctx context.Context, doc *document.Document, analysis *document.SemanticAnalysis) (*Result, error) {
	return b.verifier.VerifyDocument(ctx, doc, analysis)
}

func (b *solverBackend) Stats() Stats { return b.verifier.engine.Stats() }
func (b *solverBackend) ResetStats() { b.verifier.engine.ResetStats() }
func (b *solverBackend) Close() error { return b.verifier.Close() }

type disabledBackend struct{}

func (disabledBackend) Available() bool { return false }

func (disabledBackend) Verify(context.Context, string, string) PropertyResult {
	return Unsupported
}

func (disabledBackend) Check(context.Context, Obligation) Outcome {
	return Outcome{Result: Unsupported}
}

func (disabledBackend) VerifyDocument(_ context.Context, doc *document.Document, _ *document.SemanticAnalysis) (*Result, error) {
	result := newResult(uuid.NewString(), doc.Header.Name)
	result.Status = VerificationStatus{Kind: StatusDisabled}
	return result, nil
}

func (disabledBackend) Stats() Stats { return Stats{} }
func (disabledBackend) ResetStats() {}
func (disabledBackend) Close() error { return nil }
