package smt

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os/exec"
	"strings"
)

// SatStatus is the solver's three-valued answer.
type SatStatus string

const (
	Sat     SatStatus = "sat"
	Unsat   SatStatus = "unsat"
	Unknown SatStatus = "unknown"
)

// Request is a command issued after check-sat. Each produces exactly one
// response expression, which may be an error.
type Request string

const (
	RequestProof         Request = "(get-proof)"
	RequestUnsatCore     Request = "(get-unsat-core)"
	RequestModel         Request = "(get-model)"
	RequestReasonUnknown Request = "(get-info :reason-unknown)"
	RequestStatistics    Request = "(get-info :all-statistics)"
)

// Query is one satisfiability check. Preamble holds options and the
// environment and stays constant across a run; Body holds the obligation.
type Query struct {
	Preamble string
	Body     string
	Check    string
	Requests []Request
}

// Script renders the query as one standalone SMT-LIB script.
func (q Query) Script() string {
	var b strings.Builder
	b.WriteString(q.Preamble)
	b.WriteString(q.Body)
	q.writeCheck(&b)
	return b.String()
}

func (q Query) writeCheck(b *strings.Builder) {
	b.WriteString(q.Check)
	b.WriteByte('\n')
	for _, r := range q.Requests {
		b.WriteString(string(r))
		b.WriteByte('\n')
	}
}

// Key identifies the query for the proof cache.
func (q Query) Key() string {
	sum := sha256.Sum256([]byte(q.Script()))
	return hex.EncodeToString(sum[:])
}

// Response is the decoded solver output for one query.
type Response struct {
	Status SatStatus
	// Errors are solver errors raised before the check was answered.
	Errors []string
	// Answers holds the successful answers to the query's requests.
	Answers map[Request]Node
}

// Answer returns the response to r, if the solver gave one.
func (r *Response) Answer(req Request) (Node, bool) {
	n, ok := r.Answers[req]
	return n, ok
}

// Solver answers queries. Implementations serialize their own traffic, but a
// solver is still owned by one engine.
type Solver interface {
	Check(ctx context.Context, q Query) (*Response, error)
	Close() error
}

// NewSolver starts the solver backend selected by cfg.
func NewSolver(cfg Config) (Solver, error) {
	if cfg.Incremental {
		return NewSessionSolver(cfg)
	}
	return NewProcessSolver(cfg)
}

// LookupSolver resolves the solver binary.
func LookupSolver(cfg Config) (string, error) {
	path, err := exec.LookPath(cfg.SolverPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSolverUnavailable, err)
	}
	return path, nil
}

// solverArgs returns the z3 command line for cfg.
func solverArgs(cfg Config) []string {
	if len(cfg.SolverArgs) > 0 {
		return append([]string(nil), cfg.SolverArgs...)
	}
	args := []string{"-in", "-smt2"}
	if cfg.QueryTimeout > 0 {
		args = append(args, fmt.Sprintf("-t:%d", cfg.QueryTimeout.Milliseconds()))
	}
	if cfg.MaxMemoryMB > 0 {
		args = append(args, fmt.Sprintf("-memory:%d", cfg.MaxMemoryMB))
	}
	return args
}

// decodeResponse splits solver output into errors raised before the check,
// the status, and one answer per request.
func decodeResponse(nodes []Node, reqs []Request) *Response {
	resp := &Response{Answers: make(map[Request]Node)}
	i := 0
	for ; i < len(nodes); i++ {
		n := nodes[i]
		if n.Head() == "error" {
			resp.Errors = append(resp.Errors, errorText(n))
			continue
		}
		if !n.IsList {
			switch SatStatus(n.Atom) {
			case Sat, Unsat, Unknown:
				resp.Status = SatStatus(n.Atom)
			}
		}
		if resp.Status != "" {
			i++
			break
		}
	}
	for j, req := range reqs {
		if i+j >= len(nodes) {
			break
		}
		n := nodes[i+j]
		if n.Head() == "error" {
			continue
		}
		resp.Answers[req] = n
	}
	return resp
}

func errorText(n Node) string {
	if n.Len() < 2 {
		return "solver error"
	}
	return n.List[1].Atom
}
