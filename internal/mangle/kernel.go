// Package mangle wraps the Google Mangle Datalog engine for the small
// knowledge bases the validator derives facts from.
package mangle

import (
	"bytes"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"aispverify/internal/logging"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
)

// Fact is one ground atom.
type Fact struct {
	Predicate string        `json:"predicate"`
	Args      []interface{} `json:"args"`
}

// String returns the Datalog representation of the fact.
func (f Fact) String() string {
	args := make([]string, len(f.Args))
	for i, arg := range f.Args {
		switch v := arg.(type) {
		case string:
			if strings.HasPrefix(v, "/") {
				args[i] = v
			} else {
				args[i] = fmt.Sprintf("%q", v)
			}
		case int64:
			args[i] = fmt.Sprintf("%d", v)
		case float64:
			args[i] = fmt.Sprintf("%f", v)
		default:
			args[i] = fmt.Sprintf("%v", v)
		}
	}
	return fmt.Sprintf("%s(%s).", f.Predicate, strings.Join(args, ", "))
}

// Stats contains kernel statistics.
type Stats struct {
	TotalFacts      int            `json:"total_facts"`
	PredicateCounts map[string]int `json:"predicate_counts"`
}

// Kernel holds one analyzed program and its fact store. Facts are added, the
// program is evaluated to a fixpoint, then derived facts are read back.
type Kernel struct {
	mu             sync.RWMutex
	store          factstore.ConcurrentFactStore
	programInfo    *analysis.ProgramInfo
	predicateIndex map[string]ast.PredicateSym
	factLimit      int
	factCount      int
}

// NewKernel parses and analyzes program. factLimit caps inserted facts; zero
// means unlimited.
func NewKernel(program string, factLimit int) (*Kernel, error) {
	unit, err := parse.Unit(bytes.NewReader([]byte(program)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse program: %w", err)
	}
	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze program: %w", err)
	}

	k := &Kernel{
		store:          factstore.NewConcurrentFactStore(factstore.NewSimpleInMemoryStore()),
		programInfo:    programInfo,
		predicateIndex: make(map[string]ast.PredicateSym, len(programInfo.Decls)),
		factLimit:      factLimit,
	}
	for sym := range programInfo.Decls {
		k.predicateIndex[sym.Symbol] = sym
	}
	logging.KernelDebug("Kernel program analyzed: %d predicates, %d rules", len(k.predicateIndex), len(programInfo.Rules))
	return k, nil
}

// AddFact inserts a single fact.
func (k *Kernel) AddFact(predicate string, args ...interface{}) error {
	return k.AddFacts([]Fact{{Predicate: predicate, Args: args}})
}

// AddFacts inserts facts without evaluating rules.
func (k *Kernel) AddFacts(facts []Fact) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, fact := range facts {
		if k.factLimit > 0 && k.factCount >= k.factLimit {
			return fmt.Errorf("fact limit exceeded: %d", k.factLimit)
		}
		atom, err := k.factToAtomLocked(fact)
		if err != nil {
			return err
		}
		if k.store.Add(atom) {
			k.factCount++
		}
	}
	return nil
}

// Evaluate runs the program's rules to a fixpoint over the current facts.
func (k *Kernel) Evaluate() error {
	timer := logging.StartTimer(logging.CategoryKernel, "Evaluate")
	defer timer.Stop()

	k.mu.Lock()
	defer k.mu.Unlock()

	stats, err := mengine.EvalProgramWithStats(k.programInfo, k.store)
	if err != nil {
		return fmt.Errorf("rule evaluation failed: %w", err)
	}
	logging.KernelDebug("Evaluation complete: %+v", stats)
	return nil
}

// Facts returns every fact of predicate, sorted by their Datalog text.
func (k *Kernel) Facts(predicate string) ([]Fact, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	sym, ok := k.predicateIndex[predicate]
	if !ok {
		return nil, fmt.Errorf("predicate %s is not declared", predicate)
	}

	var results []Fact
	err := k.store.GetFacts(ast.NewQuery(sym), func(atom ast.Atom) error {
		args := make([]interface{}, len(atom.Args))
		for i, arg := range atom.Args {
			args[i] = convertBaseTermToInterface(arg)
		}
		results = append(results, Fact{Predicate: predicate, Args: args})
		return nil
	})
	sort.Slice(results, func(i, j int) bool { return results[i].String() < results[j].String() })
	return results, err
}

// Holds reports whether the exact ground fact is in the store.
func (k *Kernel) Holds(predicate string, args ...interface{}) (bool, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	atom, err := k.factToAtomLocked(Fact{Predicate: predicate, Args: args})
	if err != nil {
		return false, err
	}
	return k.store.Contains(atom), nil
}

// Stats counts facts per predicate.
func (k *Kernel) Stats() Stats {
	k.mu.RLock()
	defer k.mu.RUnlock()

	counts := make(map[string]int)
	for _, sym := range k.store.ListPredicates() {
		n := 0
		_ = k.store.GetFacts(ast.NewQuery(sym), func(ast.Atom) error {
			n++
			return nil
		})
		counts[sym.Symbol] = n
	}
	return Stats{
		TotalFacts:      k.store.EstimateFactCount(),
		PredicateCounts: counts,
	}
}

func (k *Kernel) factToAtomLocked(fact Fact) (ast.Atom, error) {
	sym, ok := k.predicateIndex[fact.Predicate]
	if !ok {
		return ast.Atom{}, fmt.Errorf("predicate %s is not declared", fact.Predicate)
	}
	if len(fact.Args) != sym.Arity {
		return ast.Atom{}, fmt.Errorf("predicate %s expects %d args, got %d", fact.Predicate, sym.Arity, len(fact.Args))
	}

	args := make([]ast.BaseTerm, len(fact.Args))
	for i, raw := range fact.Args {
		term, err := convertValueToBaseTerm(raw)
		if err != nil {
			return ast.Atom{}, fmt.Errorf("predicate %s arg %d: %w", fact.Predicate, i, err)
		}
		args[i] = term
	}
	return ast.Atom{Predicate: sym, Args: args}, nil
}

// convertValueToBaseTerm maps Go values to Mangle constants. Strings starting
// with "/" become names, other strings stay strings.
func convertValueToBaseTerm(value interface{}) (ast.BaseTerm, error) {
	switch v := value.(type) {
	case ast.BaseTerm:
		return v, nil
	case string:
		if strings.HasPrefix(v, "/") {
			return ast.Name(v)
		}
		return ast.String(v), nil
	case int:
		return ast.Number(int64(v)), nil
	case int64:
		return ast.Number(v), nil
	case float64:
		return ast.Float64(v), nil
	case bool:
		if v {
			return ast.TrueConstant, nil
		}
		return ast.FalseConstant, nil
	default:
		return nil, fmt.Errorf("unsupported fact argument type %T", v)
	}
}

func convertBaseTermToInterface(term ast.BaseTerm) interface{} {
	c, ok := term.(ast.Constant)
	if !ok {
		return fmt.Sprintf("%v", term)
	}
	switch c.Type {
	case ast.StringType, ast.NameType, ast.BytesType:
		return c.Symbol
	case ast.NumberType:
		return c.NumValue
	case ast.Float64Type:
		return math.Float64frombits(uint64(c.NumValue))
	default:
		return c.String()
	}
}
