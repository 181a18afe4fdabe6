package smt

import (
	"encoding/json"
	"time"
)

// PropertyCategory classifies a verified obligation.
type PropertyCategory string

const (
	CategoryTriVectorOrthogonality PropertyCategory = "tri_vector_orthogonality"
	CategoryTemporalSafety         PropertyCategory = "temporal_safety"
	CategoryTemporalLiveness       PropertyCategory = "temporal_liveness"
	CategoryTypeSafety             PropertyCategory = "type_safety"
	CategoryCorrectness            PropertyCategory = "correctness"
	CategoryResourceConstraints    PropertyCategory = "resource_constraints"
	CategoryProtocolCompliance     PropertyCategory = "protocol_compliance"
)

// ResultKind is the four-valued outcome of one obligation, plus Unsupported
// when no backend is present.
type ResultKind string

const (
	ResultProven      ResultKind = "proven"
	ResultDisproven   ResultKind = "disproven"
	ResultUnknown     ResultKind = "unknown"
	ResultError       ResultKind = "error"
	ResultUnsupported ResultKind = "unsupported"
)

// PropertyResult is the outcome of verifying one property. Reason is set for
// Error and, when the solver gives one, for Unknown.
type PropertyResult struct {
	Kind   ResultKind `json:"kind"`
	Reason string     `json:"reason,omitempty"`
}

var (
	Proven      = PropertyResult{Kind: ResultProven}
	Disproven   = PropertyResult{Kind: ResultDisproven}
	Unsupported = PropertyResult{Kind: ResultUnsupported}
)

// UnknownResult builds an Unknown result with the solver's reason.
func UnknownResult(reason string) PropertyResult {
	return PropertyResult{Kind: ResultUnknown, Reason: reason}
}

// ErrorResult builds an Error result.
func ErrorResult(reason string) PropertyResult {
	return PropertyResult{Kind: ResultError, Reason: reason}
}

func (r PropertyResult) String() string {
	if r.Reason != "" {
		return string(r.Kind) + ": " + r.Reason
	}
	return string(r.Kind)
}

// VerifiedProperty is one checked obligation. Certificate is only set when
// the result is Proven.
type VerifiedProperty struct {
	ID          string           `json:"id"`
	Category    PropertyCategory `json:"category"`
	Description string           `json:"description"`
	Formula     string           `json:"formula"`
	Result      PropertyResult   `json:"result"`
	Elapsed     time.Duration    `json:"elapsed"`
	Certificate string           `json:"certificate,omitempty"`
}

// StatusKind is the document-level verdict.
type StatusKind string

const (
	StatusAllVerified       StatusKind = "all_verified"
	StatusPartiallyVerified StatusKind = "partially_verified"
	StatusIncomplete        StatusKind = "incomplete"
	StatusFailed            StatusKind = "failed"
	StatusDisabled          StatusKind = "disabled"
)

// VerificationStatus is derived from a property set; Reason is set for Failed.
type VerificationStatus struct {
	Kind   StatusKind `json:"kind"`
	Reason string     `json:"reason,omitempty"`
}

func (s VerificationStatus) String() string {
	if s.Reason != "" {
		return string(s.Kind) + ": " + s.Reason
	}
	return string(s.Kind)
}

// FormalProof is a decoded solver proof object for a Proven property.
type FormalProof struct {
	ID           string   `json:"id"`
	Format       string   `json:"format"`
	Content      string   `json:"content"`
	Size         int      `json:"size"`
	Dependencies []string `json:"dependencies,omitempty"`
	Valid        bool     `json:"valid"`
}

// CounterexampleModel is a decoded satisfying assignment for a Disproven
// property.
type CounterexampleModel struct {
	ID          string                            `json:"id"`
	Assignments map[string]string                 `json:"assignments"`
	Functions   map[string]FunctionInterpretation `json:"functions,omitempty"`
	Evaluation  string                            `json:"evaluation"`
	Explanation string                            `json:"explanation"`
}

// FunctionInterpretation is one function's table in a model.
type FunctionInterpretation struct {
	Name     string            `json:"name"`
	Domain   []string          `json:"domain"`
	Codomain string            `json:"codomain"`
	Mapping  map[string]string `json:"mapping,omitempty"`
	Default  string            `json:"default,omitempty"`
}

// UnsatCore names the assertions a proof needed.
type UnsatCore struct {
	ID          string   `json:"id"`
	Assertions  []string `json:"assertions"`
	Explanation string   `json:"explanation"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// DiagnosticLevel grades a diagnostic.
type DiagnosticLevel string

const (
	DiagnosticInfo        DiagnosticLevel = "info"
	DiagnosticWarning     DiagnosticLevel = "warning"
	DiagnosticError       DiagnosticLevel = "error"
	DiagnosticPerformance DiagnosticLevel = "performance"
)

// Diagnostic is a note produced while verifying.
type Diagnostic struct {
	Level     DiagnosticLevel `json:"level"`
	Message   string          `json:"message"`
	Context   string          `json:"context,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Stats are cumulative counters owned by one engine.
type Stats struct {
	Queries         int               `json:"queries"`
	Proofs          int               `json:"proofs"`
	Counterexamples int               `json:"counterexamples"`
	Timeouts        int               `json:"timeouts"`
	Errors          int               `json:"errors"`
	CacheHits       int               `json:"cache_hits"`
	TotalTime       time.Duration     `json:"total_time"`
	Solver          map[string]string `json:"solver,omitempty"`
}

// clone returns a copy the caller may keep.
func (s Stats) clone() Stats {
	out := s
	if s.Solver != nil {
		out.Solver = make(map[string]string, len(s.Solver))
		for k, v := range s.Solver {
			out.Solver[k] = v
		}
	}
	return out
}

// Result is the outcome of verifying one document.
type Result struct {
	RunID           string                         `json:"run_id"`
	Document        string                         `json:"document"`
	Status          VerificationStatus             `json:"status"`
	Properties      []VerifiedProperty             `json:"properties"`
	Proofs          map[string]FormalProof         `json:"proofs"`
	Counterexamples map[string]CounterexampleModel `json:"counterexamples"`
	UnsatCores      map[string]UnsatCore           `json:"unsat_cores"`
	Diagnostics     []Diagnostic                   `json:"diagnostics,omitempty"`
	Stats           Stats                          `json:"stats"`
	Elapsed         time.Duration                  `json:"elapsed"`
}

func newResult(runID, name string) *Result {
	return &Result{
		RunID:           runID,
		Document:        name,
		Proofs:          make(map[string]FormalProof),
		Counterexamples: make(map[string]CounterexampleModel),
		UnsatCores:      make(map[string]UnsatCore),
	}
}

// Count returns how many properties have the given result kind.
func (r *Result) Count(kind ResultKind) int {
	n := 0
	for _, p := range r.Properties {
		if p.Result.Kind == kind {
			n++
		}
	}
	return n
}

// Property finds a property by ID.
func (r *Result) Property(id string) (VerifiedProperty, bool) {
	for _, p := range r.Properties {
		if p.ID == id {
			return p, true
		}
	}
	return VerifiedProperty{}, false
}

// JSON renders the result for machine consumption.
func (r *Result) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
