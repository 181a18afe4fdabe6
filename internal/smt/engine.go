// Package smt checks document obligations with an external SMT-LIB solver.
// An obligation is proven by asserting its premises and the negated goal and
// receiving unsat.
package smt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"aispverify/internal/logging"
)

// queryGrace is added to the solver's own timeout before the process is
// killed, so the solver can answer unknown by itself first.
const queryGrace = time.Second

// Outcome is the result of checking one obligation plus its artifacts.
type Outcome struct {
	Result  PropertyResult
	Elapsed time.Duration
	Proof   *FormalProof
	Model   *CounterexampleModel
	Core    *UnsatCore
	Cached  bool
}

// Engine checks obligations against one solver. It owns the solver, the
// environment preamble and the statistics; checks run in submission order.
type Engine struct {
	cfg      Config
	solver   Solver
	cache    Cache
	env      *Environment
	preamble string
	stats    Stats
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithCache enables the proof cache.
func WithCache(c Cache) EngineOption {
	return func(e *Engine) { e.cache = c }
}

// NewEngine wraps solver. A nil solver makes every check Unsupported.
func NewEngine(cfg Config, solver Solver, opts ...EngineOption) *Engine {
	e := &Engine{cfg: cfg, solver: solver}
	for _, opt := range opts {
		opt(e)
	}
	e.preamble = e.buildPreamble()
	return e
}

// SetEnvironment installs the declarations every following query sees.
func (e *Engine) SetEnvironment(env *Environment) {
	e.env = env
	e.preamble = e.buildPreamble()
}

// Environment returns the installed environment, if any.
func (e *Engine) Environment() *Environment {
	return e.env
}

func (e *Engine) buildPreamble() string {
	var b strings.Builder
	b.WriteString("(set-option :print-success false)\n")
	if e.cfg.GenerateProofs {
		b.WriteString("(set-option :produce-proofs true)\n")
	}
	if e.cfg.GenerateModels {
		b.WriteString("(set-option :produce-models true)\n")
	}
	if e.cfg.GenerateUnsatCores {
		b.WriteString("(set-option :produce-unsat-cores true)\n")
	}
	fmt.Fprintf(&b, "(set-option :random-seed %d)\n", e.cfg.RandomSeed)
	if e.env != nil {
		for _, d := range e.env.Declarations() {
			b.WriteString(d)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// checkCommand uses the configured tactic pipeline only when no proof or core
// is wanted; tactic pipelines do not produce either.
func (e *Engine) checkCommand() string {
	if len(e.cfg.Tactics) == 0 || e.cfg.GenerateProofs || e.cfg.GenerateUnsatCores {
		return "(check-sat)"
	}
	if len(e.cfg.Tactics) == 1 {
		return "(check-sat-using " + e.cfg.Tactics[0] + ")"
	}
	return "(check-sat-using (then " + strings.Join(e.cfg.Tactics, " ") + "))"
}

func (e *Engine) requests() []Request {
	var reqs []Request
	if e.cfg.GenerateProofs {
		reqs = append(reqs, RequestProof)
	}
	if e.cfg.GenerateUnsatCores {
		reqs = append(reqs, RequestUnsatCore)
	}
	if e.cfg.GenerateModels {
		reqs = append(reqs, RequestModel)
	}
	return append(reqs, RequestReasonUnknown, RequestStatistics)
}

// Query renders the solver query for ob. Declarations the environment
// already carries verbatim are left to the preamble.
func (e *Engine) Query(ob Obligation) Query {
	var b strings.Builder
	for _, d := range ob.Declarations {
		if e.env != nil {
			if provided, _ := e.env.Resolve(d); provided {
				continue
			}
		}
		b.WriteString(d)
		b.WriteByte('\n')
	}
	for _, p := range ob.Premises {
		e.writeAssert(&b, p.Formula, p.Name)
	}
	e.writeAssert(&b, "(not "+ob.Goal+")", "goal")
	return Query{
		Preamble: e.preamble,
		Body:     b.String(),
		Check:    e.checkCommand(),
		Requests: e.requests(),
	}
}

func (e *Engine) writeAssert(b *strings.Builder, formula, name string) {
	if e.cfg.GenerateUnsatCores && name != "" {
		fmt.Fprintf(b, "(assert (! %s :named %s))\n", formula, name)
		return
	}
	fmt.Fprintf(b, "(assert %s)\n", formula)
}

// conflicts reports an obligation declaration that redeclares an
// environment symbol with a different signature.
func (e *Engine) conflicts(ob Obligation) error {
	if e.env == nil {
		return nil
	}
	for _, d := range ob.Declarations {
		if _, err := e.env.Resolve(d); err != nil {
			return err
		}
	}
	return nil
}

// validate catches malformed formula text before it reaches the solver.
func validate(ob Obligation) error {
	if ob.Err != nil {
		return ob.Err
	}
	if strings.TrimSpace(ob.Goal) == "" {
		return errors.New("empty goal formula")
	}
	if _, err := ParseOne(ob.Goal); err != nil {
		return fmt.Errorf("goal: %w", err)
	}
	for _, p := range ob.Premises {
		if !IsSymbol(p.Name) {
			return fmt.Errorf("premise name %q is not a symbol", p.Name)
		}
		if _, err := ParseOne(p.Formula); err != nil {
			return fmt.Errorf("premise %s: %w", p.Name, err)
		}
	}
	for _, d := range ob.Declarations {
		if _, err := ParseOne(d); err != nil {
			return fmt.Errorf("declaration: %w", err)
		}
	}
	return nil
}

// Check verifies one obligation and updates the statistics.
func (e *Engine) Check(ctx context.Context, ob Obligation) Outcome {
	if e.solver == nil {
		return Outcome{Result: Unsupported}
	}

	start := time.Now()
	out := e.check(ctx, ob)
	out.Elapsed = time.Since(start)

	e.stats.Queries++
	e.stats.TotalTime += out.Elapsed
	if out.Cached {
		e.stats.CacheHits++
	}
	switch out.Result.Kind {
	case ResultProven:
		e.stats.Proofs++
	case ResultDisproven:
		e.stats.Counterexamples++
	case ResultUnknown:
		e.stats.Timeouts++
	case ResultError:
		e.stats.Errors++
	}

	logging.SMTDebug("Property %s: %s in %v (cached=%t)", ob.ID, out.Result, out.Elapsed, out.Cached)
	if e.cfg.SlowQueryThreshold > 0 && out.Elapsed > e.cfg.SlowQueryThreshold {
		logging.Get(logging.CategorySMT).Warn("Slow query for %s: %v", ob.ID, out.Elapsed)
	}
	return out
}

func (e *Engine) check(ctx context.Context, ob Obligation) Outcome {
	if err := validate(ob); err != nil {
		return Outcome{Result: ErrorResult("formula error: " + err.Error())}
	}
	if err := e.conflicts(ob); err != nil {
		return Outcome{Result: ErrorResult("declaration error: " + err.Error())}
	}
	q := e.Query(ob)

	var key string
	if e.cache != nil {
		key = q.Key()
		entry, err := e.cache.Lookup(ctx, key)
		if err != nil {
			logging.Get(logging.CategorySMT).Warn("Proof cache lookup failed: %v", err)
		} else if entry != nil {
			out := e.interpret(ob, entry.response())
			out.Cached = true
			return out
		}
	}

	qctx := ctx
	if e.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, e.cfg.QueryTimeout+queryGrace)
		defer cancel()
	}

	resp, err := e.solver.Check(qctx, q)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			return Outcome{Result: UnknownResult("timeout")}
		case errors.Is(err, context.Canceled):
			return Outcome{Result: UnknownResult("canceled")}
		default:
			return Outcome{Result: ErrorResult("solver failure: " + err.Error())}
		}
	}
	if len(resp.Errors) > 0 {
		return Outcome{Result: ErrorResult(strings.Join(resp.Errors, "; "))}
	}
	if n, ok := resp.Answer(RequestStatistics); ok {
		e.mergeSolverStats(DecodeInfo(n))
	}

	out := e.interpret(ob, resp)
	if e.cache != nil && (resp.Status == Sat || resp.Status == Unsat) {
		if err := e.cache.Save(ctx, key, entryFromResponse(resp)); err != nil {
			logging.Get(logging.CategorySMT).Warn("Proof cache save failed: %v", err)
		}
	}
	return out
}

// interpret maps the solver answer to a result and decodes the artifacts the
// configuration asks for.
func (e *Engine) interpret(ob Obligation, resp *Response) Outcome {
	var out Outcome
	switch resp.Status {
	case Unsat:
		out.Result = Proven
		var core []string
		if e.cfg.GenerateUnsatCores {
			if n, ok := resp.Answer(RequestUnsatCore); ok {
				core = DecodeCore(n)
				out.Core = &UnsatCore{
					ID:          "core_" + ob.ID,
					Assertions:  core,
					Explanation: fmt.Sprintf("%d of %d assertions are needed to refute the negated goal", len(core), len(ob.Premises)+1),
					Suggestions: coreSuggestions(ob, core),
				}
			}
		}
		if e.cfg.GenerateProofs {
			if n, ok := resp.Answer(RequestProof); ok {
				p := DecodeProof(ob.ID, n, core)
				out.Proof = &p
			}
		}
	case Sat:
		out.Result = Disproven
		if e.cfg.GenerateModels {
			m := CounterexampleModel{
				ID:          "cex_" + ob.ID,
				Assignments: map[string]string{},
				Functions:   map[string]FunctionInterpretation{},
				Evaluation:  "empty model",
			}
			if n, ok := resp.Answer(RequestModel); ok {
				m = DecodeModel(ob.ID, n)
			}
			m.Explanation = ob.Description + " is violated under this assignment"
			out.Model = &m
		}
	case Unknown:
		reason := "unknown"
		if n, ok := resp.Answer(RequestReasonUnknown); ok {
			if r := DecodeInfo(n)["reason-unknown"]; r != "" {
				reason = r
			}
		}
		out.Result = UnknownResult(reason)
	default:
		out.Result = ErrorResult("solver returned no satisfiability answer")
	}
	return out
}

func coreSuggestions(ob Obligation, core []string) []string {
	used := make(map[string]bool, len(core))
	for _, name := range core {
		used[name] = true
	}
	var unused []string
	for _, p := range ob.Premises {
		if !used[p.Name] {
			unused = append(unused, p.Name)
		}
	}
	if len(unused) == 0 {
		return nil
	}
	return []string{"premises not needed for this proof: " + strings.Join(unused, ", ")}
}

func (e *Engine) mergeSolverStats(info map[string]string) {
	if len(info) == 0 {
		return
	}
	if e.stats.Solver == nil {
		e.stats.Solver = make(map[string]string, len(info))
	}
	for k, v := range info {
		e.stats.Solver[k] = v
	}
}

// unreached records a property the run deadline cut off.
func (e *Engine) unreached() {
	e.stats.Timeouts++
}

// Verify checks a bare goal formula with no premises.
func (e *Engine) Verify(ctx context.Context, formula, propertyID string) PropertyResult {
	return e.Check(ctx, Obligation{
		ID:          propertyID,
		Category:    CategoryCorrectness,
		Description: propertyID,
		Goal:        formula,
	}).Result
}

// Stats returns a snapshot of the cumulative counters.
func (e *Engine) Stats() Stats {
	return e.stats.clone()
}

// ResetStats zeroes the counters.
func (e *Engine) ResetStats() {
	e.stats = Stats{}
}

// Close releases the solver.
func (e *Engine) Close() error {
	if e.solver == nil {
		return nil
	}
	return e.solver.Close()
}
