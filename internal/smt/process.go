package smt

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"aispverify/internal/logging"
)

// ProcessSolver runs one solver process per query. It is the non-incremental
// mode: nothing carries over between checks.
type ProcessSolver struct {
	path string
	args []string
}

// NewProcessSolver resolves the solver binary for one-shot use.
func NewProcessSolver(cfg Config) (*ProcessSolver, error) {
	path, err := LookupSolver(cfg)
	if err != nil {
		return nil, err
	}
	logging.SolverDebug("Using one-shot solver %s %v", path, solverArgs(cfg))
	return &ProcessSolver{path: path, args: solverArgs(cfg)}, nil
}

// Check writes the whole script to a fresh process and decodes its output.
func (p *ProcessSolver) Check(ctx context.Context, q Query) (*Response, error) {
	script := q.Script() + "(exit)\n"

	cmd := exec.CommandContext(ctx, p.path, p.args...)
	cmd.WaitDelay = time.Second
	cmd.Stdin = strings.NewReader(script)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if ctx.Err() != nil {
		logging.SolverDebug("Solver process killed: %v", ctx.Err())
		return nil, ctx.Err()
	}

	nodes, err := Parse(stdout.String())
	if err != nil {
		return nil, fmt.Errorf("malformed solver output: %w", err)
	}
	resp := decodeResponse(nodes, q.Requests)

	// z3 exits non-zero after reporting script errors; only a missing answer
	// means the process itself failed.
	if runErr != nil && resp.Status == "" && len(resp.Errors) == 0 {
		return nil, fmt.Errorf("solver exited: %w: %s", runErr, strings.TrimSpace(stderr.String()))
	}
	return resp, nil
}

// Close is a no-op; processes do not outlive a query.
func (p *ProcessSolver) Close() error { return nil }
