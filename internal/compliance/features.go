package compliance

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"aispverify/internal/document"
	"aispverify/internal/smt"
)

// Input is what every phase and feature check reads.
type Input struct {
	Document *document.Document
	Analysis *document.SemanticAnalysis
	Source   string
	Backend  smt.Backend
}

// FeatureOutcome is what a single check reports.
type FeatureOutcome struct {
	Implemented           bool
	SolverVerified        bool
	MathematicallyCorrect bool
	Details               string
}

// FeatureCheck verifies one reference feature. Checks are independent of
// each other.
type FeatureCheck interface {
	Name() string
	Check(ctx context.Context, in *Input) (FeatureOutcome, error)
}

// Registry is an ordered list of uniquely named feature checks.
type Registry struct {
	checks []FeatureCheck
	names  map[string]bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]bool)}
}

// Register appends a check. Names must be unique.
func (r *Registry) Register(c FeatureCheck) error {
	if r.names[c.Name()] {
		return fmt.Errorf("feature %q already registered", c.Name())
	}
	r.names[c.Name()] = true
	r.checks = append(r.checks, c)
	return nil
}

// Len returns the number of registered checks.
func (r *Registry) Len() int {
	return len(r.checks)
}

// Names returns the check names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.checks))
	for i, c := range r.checks {
		names[i] = c.Name()
	}
	return names
}

// Run executes every check in order. The first error fails the whole run.
func (r *Registry) Run(ctx context.Context, in *Input) (FeatureCompliance, error) {
	res := FeatureCompliance{Specified: len(r.checks)}
	for i, c := range r.checks {
		out, err := c.Check(ctx, in)
		if err != nil {
			return FeatureCompliance{}, fmt.Errorf("feature %s: %w", c.Name(), err)
		}
		if out.Implemented {
			res.Implemented++
		}
		res.Results = append(res.Results, FeatureResult{
			ID:                    i + 1,
			Name:                  c.Name(),
			Implemented:           out.Implemented,
			SolverVerified:        out.SolverVerified,
			MathematicallyCorrect: out.MathematicallyCorrect,
			Details:               out.Details,
		})
	}
	if res.Specified > 0 {
		res.Percentage = 100 * float64(res.Implemented) / float64(res.Specified)
	}
	return res, nil
}

func featureFallback(specified int) FeatureCompliance {
	return FeatureCompliance{Specified: specified}
}

// DefaultRegistry returns the twenty reference features in their canonical
// order.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, c := range []FeatureCheck{
		triVectorCheck{},
		ambiguityCheck{},
		keywordCheck{name: "PocketArchitecture", keywords: []string{"pocket"}, details: "pocket structure declared"},
		keywordCheck{name: "FourStateBinding", keywords: []string{"binding", "bind"}, details: "binding states declared"},
		keywordCheck{name: "GhostIntentSearch", keywords: []string{"ghost", "intent"}, details: "ghost intent search declared"},
		keywordCheck{name: "RossNetScoring", keywords: []string{"rossnet", "score"}, details: "scoring function declared"},
		keywordCheck{name: "HebbianLearning", keywords: []string{"hebbian"}, details: "hebbian update declared"},
		tierCheck{},
		proofCarryingCheck{},
		keywordCheck{name: "ErrorAlgebra", keywords: []string{"error"}, details: "error algebra declared"},
		keywordCheck{name: "CategoryFunctors", keywords: []string{"functor"}, details: "functor declared"},
		rulesCheck{},
		keywordCheck{name: "RosettaStone", keywords: []string{"rosetta"}, details: "prose/code mapping declared"},
		keywordCheck{name: "AntiDriftProtocol", keywords: []string{"drift"}, details: "drift protocol declared"},
		keywordCheck{name: "RecursiveOptimization", keywords: []string{"optimi"}, details: "optimization loop declared"},
		keywordCheck{name: "BridgeSynthesis", keywords: []string{"bridge", "adapter"}, details: "bridge synthesis declared"},
		safetyGateCheck{},
		keywordCheck{name: "DPPBeamInit", keywords: []string{"dpp", "beam"}, details: "beam initialisation declared"},
		keywordCheck{name: "ContrastiveLearning", keywords: []string{"contrastive"}, details: "contrastive update declared"},
		glossaryCheck{},
	} {
		// names above are unique
		_ = r.Register(c)
	}
	return r
}

var errNoDocument = errors.New("no document")

// identifiers returns every declared name and rule text, lowercased.
func identifiers(doc *document.Document) []string {
	var ids []string
	for _, t := range doc.TypeDefinitions() {
		ids = append(ids, strings.ToLower(t.Name))
	}
	for _, f := range doc.Functions() {
		ids = append(ids, strings.ToLower(f.Name))
	}
	for _, r := range doc.Rules() {
		ids = append(ids, strings.ToLower(r.Name), strings.ToLower(r.Expression))
	}
	return ids
}

// keywordCheck is implemented when a declaration or rule mentions one of its
// keywords.
type keywordCheck struct {
	name     string
	keywords []string
	details  string
}

func (k keywordCheck) Name() string { return k.name }

func (k keywordCheck) Check(_ context.Context, in *Input) (FeatureOutcome, error) {
	if in.Document == nil {
		return FeatureOutcome{}, errNoDocument
	}
	for _, id := range identifiers(in.Document) {
		for _, kw := range k.keywords {
			if strings.Contains(id, kw) {
				return FeatureOutcome{Implemented: true, MathematicallyCorrect: true, Details: k.details}, nil
			}
		}
	}
	return FeatureOutcome{Details: "not declared"}, nil
}

// triVectorCheck needs a complete decomposition, solver-checked when the
// spaces cover the signal.
type triVectorCheck struct{}

func (triVectorCheck) Name() string { return "TriVectorDecomposition" }

func (triVectorCheck) Check(ctx context.Context, in *Input) (FeatureOutcome, error) {
	if in.Document == nil {
		return FeatureOutcome{}, errNoDocument
	}
	if in.Analysis == nil || !in.Analysis.TriVector.Complete() {
		return FeatureOutcome{Details: "no tri-vector decomposition"}, nil
	}
	ob := smt.NewEncoder(nil).Decomposition(in.Analysis.TriVector)
	verified := in.Backend.Check(ctx, ob).Result == smt.Proven
	return FeatureOutcome{
		Implemented:           true,
		SolverVerified:        verified,
		MathematicallyCorrect: verified,
		Details:               "Signal→V_H⊕V_L⊕V_S",
	}, nil
}

// ambiguityCheck needs a measured ambiguity; it is correct below the bound.
type ambiguityCheck struct{}

func (ambiguityCheck) Name() string { return "MeasurableAmbiguity" }

func (ambiguityCheck) Check(ctx context.Context, in *Input) (FeatureOutcome, error) {
	if in.Document == nil {
		return FeatureOutcome{}, errNoDocument
	}
	if in.Analysis == nil {
		return FeatureOutcome{Details: "ambiguity not measured"}, nil
	}
	amb := in.Analysis.Ambiguity
	verified := in.Backend.Check(ctx, AmbiguityObligation(amb)).Result == smt.Proven
	return FeatureOutcome{
		Implemented:           true,
		SolverVerified:        verified,
		MathematicallyCorrect: amb < AmbiguityBound,
		Details:               fmt.Sprintf("Ambig(D)=%s", decimal(amb)),
	}, nil
}

// tierCheck looks for a quality tier in the evidence block.
type tierCheck struct{}

func (tierCheck) Name() string { return "QualityTiers" }

func (tierCheck) Check(_ context.Context, in *Input) (FeatureOutcome, error) {
	if in.Document == nil {
		return FeatureOutcome{}, errNoDocument
	}
	if ev := in.Document.Evidence(); ev != nil && ev.Tau != "" {
		return FeatureOutcome{Implemented: true, MathematicallyCorrect: true, Details: "tier " + ev.Tau}, nil
	}
	return FeatureOutcome{Details: "no tier in evidence"}, nil
}

// proofCarryingCheck needs density and proof count in the evidence block.
type proofCarryingCheck struct{}

func (proofCarryingCheck) Name() string { return "ProofCarryingDocs" }

func (proofCarryingCheck) Check(_ context.Context, in *Input) (FeatureOutcome, error) {
	if in.Document == nil {
		return FeatureOutcome{}, errNoDocument
	}
	ev := in.Document.Evidence()
	if ev == nil || ev.Delta == nil || ev.Phi == nil {
		return FeatureOutcome{Details: "evidence incomplete"}, nil
	}
	return FeatureOutcome{
		Implemented:           true,
		MathematicallyCorrect: *ev.Delta >= 0 && *ev.Delta <= 1,
		Details:               fmt.Sprintf("δ=%v φ=%d", *ev.Delta, *ev.Phi),
	}, nil
}

// rulesCheck needs at least one inference rule.
type rulesCheck struct{}

func (rulesCheck) Name() string { return "NaturalDeduction" }

func (rulesCheck) Check(_ context.Context, in *Input) (FeatureOutcome, error) {
	if in.Document == nil {
		return FeatureOutcome{}, errNoDocument
	}
	n := len(in.Document.Rules())
	if n == 0 {
		return FeatureOutcome{Details: "no rules"}, nil
	}
	return FeatureOutcome{Implemented: true, MathematicallyCorrect: true, Details: fmt.Sprintf("%d inference rules", n)}, nil
}

// safetyGateCheck needs a tri-vector analysis and proves safety isolation.
type safetyGateCheck struct{}

func (safetyGateCheck) Name() string { return "SafetyGate" }

func (safetyGateCheck) Check(ctx context.Context, in *Input) (FeatureOutcome, error) {
	if in.Document == nil {
		return FeatureOutcome{}, errNoDocument
	}
	if in.Analysis == nil || !in.Analysis.TriVector.Complete() {
		return FeatureOutcome{Details: "no safety space"}, nil
	}
	ob := smt.NewEncoder(nil).SafetyIsolation(in.Analysis.TriVector)
	verified := in.Backend.Check(ctx, ob).Result == smt.Proven
	return FeatureOutcome{
		Implemented:           true,
		SolverVerified:        verified,
		MathematicallyCorrect: verified,
		Details:               "optimizations never touch " + in.Analysis.TriVector.Safety.Name,
	}, nil
}

// glossaryCheck needs a meta block with entries.
type glossaryCheck struct{}

func (glossaryCheck) Name() string { return "Sigma512Glossary" }

func (glossaryCheck) Check(_ context.Context, in *Input) (FeatureOutcome, error) {
	if in.Document == nil {
		return FeatureOutcome{}, errNoDocument
	}
	n := 0
	for _, b := range in.Document.Blocks {
		if b.Kind == document.BlockMeta {
			n += len(b.Entries)
		}
	}
	if n == 0 {
		return FeatureOutcome{Details: "no glossary entries"}, nil
	}
	return FeatureOutcome{Implemented: true, MathematicallyCorrect: true, Details: fmt.Sprintf("%d glossary entries", n)}, nil
}
