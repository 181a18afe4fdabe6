package smt

import (
	"errors"
	"fmt"
	"time"
)

// Config controls how obligations are sent to the solver.
type Config struct {
	QueryTimeout       time.Duration
	Incremental        bool
	GenerateProofs     bool
	GenerateModels     bool
	GenerateUnsatCores bool
	Tactics            []string
	MaxMemoryMB        int
	RandomSeed         int

	// SolverPath is looked up on PATH when it is not absolute.
	SolverPath string
	// SolverArgs replaces the default z3 flags when non-empty.
	SolverArgs []string

	SlowQueryThreshold time.Duration
	TotalTimeout       time.Duration
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		QueryTimeout:       30 * time.Second,
		Incremental:        true,
		GenerateProofs:     true,
		GenerateModels:     true,
		GenerateUnsatCores: true,
		Tactics:            []string{"simplify", "solve-eqs", "smt"},
		MaxMemoryMB:        4096,
		RandomSeed:         42,
		SolverPath:         "z3",
		SlowQueryThreshold: 5 * time.Second,
		TotalTimeout:       300 * time.Second,
	}
}

// ErrSolverUnavailable is returned when the solver binary cannot be found.
var ErrSolverUnavailable = errors.New("smt solver not available")

// SetupError aborts a verification run before any property is checked.
type SetupError struct {
	Subject string
	Err     error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("verification setup failed for %s: %v", e.Subject, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }
