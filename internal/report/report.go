package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"aispverify/internal/batch"
	"aispverify/internal/compliance"
	"aispverify/internal/smt"
)

// Format selects how results are written.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// ParseFormat accepts the names used on the command line.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text, markdown or json)", s)
}

// Writer renders results in one format.
type Writer struct {
	out    io.Writer
	format Format
	styles Styles
	width  int
	color  bool
}

// Option configures a Writer.
type Option func(*Writer)

// WithWidth sets the word wrap width for markdown output.
func WithWidth(n int) Option {
	return func(w *Writer) {
		if n > 0 {
			w.width = n
		}
	}
}

// WithColor renders markdown with a terminal-detected style instead of the
// plain one.
func WithColor(on bool) Option {
	return func(w *Writer) { w.color = on }
}

// NewWriter returns a Writer for out.
func NewWriter(out io.Writer, format Format, opts ...Option) *Writer {
	w := &Writer{out: out, format: format, styles: DefaultStyles(), width: 100}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Verification writes one report for a batch of verified documents.
func (w *Writer) Verification(outcomes []batch.Outcome) error {
	switch w.format {
	case FormatJSON:
		return w.writeJSON(verificationJSON(outcomes))
	case FormatMarkdown:
		return w.markdown(VerificationMarkdown(outcomes))
	default:
		_, err := io.WriteString(w.out, w.verificationText(outcomes))
		return err
	}
}

// Compliance writes a compliance report for the named document.
func (w *Writer) Compliance(name string, res *compliance.Result) error {
	switch w.format {
	case FormatJSON:
		data, err := res.JSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w.out, "%s\n", data)
		return err
	case FormatMarkdown:
		return w.markdown(ComplianceMarkdown(name, res))
	default:
		_, err := io.WriteString(w.out, w.complianceText(name, res))
		return err
	}
}

func (w *Writer) writeJSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (w *Writer) markdown(md string) error {
	style := glamour.WithStandardStyle("notty")
	if w.color {
		style = glamour.WithAutoStyle()
	}
	renderer, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(w.width))
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := renderer.Render(md)
	if err != nil {
		return fmt.Errorf("failed to render markdown: %w", err)
	}
	_, err = io.WriteString(w.out, out)
	return err
}

// =============================================================================
// VERIFICATION
// =============================================================================

type outcomeJSON struct {
	Document string      `json:"document"`
	Error    string      `json:"error,omitempty"`
	Result   *smt.Result `json:"result,omitempty"`
}

func verificationJSON(outcomes []batch.Outcome) []outcomeJSON {
	out := make([]outcomeJSON, 0, len(outcomes))
	for _, o := range outcomes {
		entry := outcomeJSON{Document: o.Job, Result: o.Result}
		if o.Err != nil {
			entry.Error = o.Err.Error()
		}
		out = append(out, entry)
	}
	return out
}

func (w *Writer) statusStyle(kind smt.StatusKind) func(...string) string {
	switch kind {
	case smt.StatusAllVerified:
		return w.styles.Success.Render
	case smt.StatusPartiallyVerified, smt.StatusIncomplete:
		return w.styles.Warning.Render
	case smt.StatusDisabled:
		return w.styles.Muted.Render
	default:
		return w.styles.Error.Render
	}
}

func (w *Writer) resultStyle(kind smt.ResultKind) func(...string) string {
	switch kind {
	case smt.ResultProven:
		return w.styles.Success.Render
	case smt.ResultDisproven, smt.ResultError:
		return w.styles.Error.Render
	case smt.ResultUnknown:
		return w.styles.Warning.Render
	default:
		return w.styles.Muted.Render
	}
}

func (w *Writer) verificationText(outcomes []batch.Outcome) string {
	var sb strings.Builder
	for i, o := range outcomes {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(w.styles.Title.Render(o.Job))
		sb.WriteString("\n")

		if o.Err != nil {
			sb.WriteString(w.styles.Error.Render("setup error: " + o.Err.Error()))
			sb.WriteString("\n")
			continue
		}
		res := o.Result
		fmt.Fprintf(&sb, "%s%s\n", w.styles.Label.Render("Status"), w.statusStyle(res.Status.Kind)(res.Status.String()))
		fmt.Fprintf(&sb, "%s%s\n", w.styles.Label.Render("Elapsed"), formatDuration(res.Elapsed))

		if len(res.Properties) > 0 {
			sb.WriteString(w.styles.Section.Render("Properties"))
			sb.WriteString("\n")
			for _, p := range res.Properties {
				fmt.Fprintf(&sb, "  %s %s %s\n",
					w.resultStyle(p.Result.Kind)(fmt.Sprintf("%-12s", p.Result.Kind)),
					p.ID,
					w.styles.Muted.Render(p.Description))
				if p.Result.Reason != "" {
					fmt.Fprintf(&sb, "      %s\n", w.styles.Muted.Render(p.Result.Reason))
				}
				if p.Certificate != "" {
					fmt.Fprintf(&sb, "      %s\n", w.styles.Info.Render(p.Certificate))
				}
			}
		}

		for _, id := range sortedKeys(res.Counterexamples) {
			ce := res.Counterexamples[id]
			sb.WriteString(w.styles.Section.Render("Counterexample " + id))
			sb.WriteString("\n")
			for _, name := range sortedKeys(ce.Assignments) {
				fmt.Fprintf(&sb, "  %s = %s\n", name, ce.Assignments[name])
			}
		}
		for _, id := range sortedKeys(res.UnsatCores) {
			core := res.UnsatCores[id]
			sb.WriteString(w.styles.Section.Render("Unsat core " + id))
			sb.WriteString("\n")
			fmt.Fprintf(&sb, "  %s\n", strings.Join(core.Assertions, ", "))
		}

		if len(res.Diagnostics) > 0 {
			sb.WriteString(w.styles.Section.Render("Diagnostics"))
			sb.WriteString("\n")
			for _, d := range res.Diagnostics {
				fmt.Fprintf(&sb, "  [%s] %s\n", d.Level, d.Message)
			}
		}

		sb.WriteString(w.styles.Muted.Render(fmt.Sprintf(
			"queries=%d proofs=%d counterexamples=%d timeouts=%d errors=%d cache_hits=%d",
			res.Stats.Queries, res.Stats.Proofs, res.Stats.Counterexamples,
			res.Stats.Timeouts, res.Stats.Errors, res.Stats.CacheHits)))
		sb.WriteString("\n")
	}
	return sb.String()
}

// VerificationMarkdown builds the raw markdown for a batch of results.
func VerificationMarkdown(outcomes []batch.Outcome) string {
	var sb strings.Builder
	sb.WriteString("# Verification Report\n\n")
	for _, o := range outcomes {
		fmt.Fprintf(&sb, "## %s\n\n", o.Job)
		if o.Err != nil {
			fmt.Fprintf(&sb, "**Setup error:** %s\n\n", o.Err)
			continue
		}
		res := o.Result
		fmt.Fprintf(&sb, "**Status:** `%s`  \n", res.Status)
		fmt.Fprintf(&sb, "**Run:** `%s`  \n", res.RunID)
		fmt.Fprintf(&sb, "**Elapsed:** %s\n\n", formatDuration(res.Elapsed))

		if len(res.Properties) > 0 {
			sb.WriteString("| Property | Category | Result | Time |\n")
			sb.WriteString("|---|---|---|---|\n")
			for _, p := range res.Properties {
				fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", p.ID, p.Category, p.Result, formatDuration(p.Elapsed))
			}
			sb.WriteString("\n")
		}

		for _, id := range sortedKeys(res.Counterexamples) {
			ce := res.Counterexamples[id]
			fmt.Fprintf(&sb, "### Counterexample for %s\n\n", id)
			for _, name := range sortedKeys(ce.Assignments) {
				fmt.Fprintf(&sb, "- `%s = %s`\n", name, ce.Assignments[name])
			}
			sb.WriteString("\n")
		}
		for _, id := range sortedKeys(res.UnsatCores) {
			fmt.Fprintf(&sb, "### Unsat core for %s\n\n", id)
			for _, a := range res.UnsatCores[id].Assertions {
				fmt.Fprintf(&sb, "- `%s`\n", a)
			}
			sb.WriteString("\n")
		}
		if len(res.Diagnostics) > 0 {
			sb.WriteString("### Diagnostics\n\n")
			for _, d := range res.Diagnostics {
				fmt.Fprintf(&sb, "- **%s** %s\n", d.Level, d.Message)
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// =============================================================================
// COMPLIANCE
// =============================================================================

func (w *Writer) levelStyle(level compliance.Level) func(...string) string {
	switch level {
	case compliance.LevelPerfect, compliance.LevelHigh:
		return w.styles.Success.Render
	case compliance.LevelPartial:
		return w.styles.Warning.Render
	default:
		return w.styles.Error.Render
	}
}

func (w *Writer) check(ok bool) string {
	if ok {
		return w.styles.Success.Render("✓")
	}
	return w.styles.Error.Render("✗")
}

func (w *Writer) complianceText(name string, res *compliance.Result) string {
	var sb strings.Builder
	header := fmt.Sprintf("%s\n%s%s\n%s%.1f%%",
		w.styles.Title.Render(name),
		w.styles.Label.Render("Level"), w.levelStyle(res.Level)(strings.ToUpper(string(res.Level))),
		w.styles.Label.Render("Score"), res.Score*100)
	sb.WriteString(w.styles.Box.Render(header))
	sb.WriteString("\n")

	m := res.Math
	sb.WriteString(w.styles.Section.Render("Mathematical foundations"))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  %s ambiguity %.4f < %.2f\n", w.check(m.AmbiguityVerified), m.CalculatedAmbiguity, compliance.AmbiguityBound)
	for _, p := range m.PipelineProofs {
		fmt.Fprintf(&sb, "  %s pipeline %2d steps: %.4f -> %.4f (x%.1f)\n",
			w.check(p.SolverVerified), p.Steps, p.ProseRate, p.TargetRate, p.ImprovementFactor)
	}
	fmt.Fprintf(&sb, "  %s tokens: compile %d, execute %d\n",
		w.check(m.TokenEfficiency.MeetsTarget), m.TokenEfficiency.CompilationTokens, m.TokenEfficiency.ExecutionTokens)

	o := res.Orthogonality
	sb.WriteString(w.styles.Section.Render("Tri-vector orthogonality"))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  %s V_H ∩ V_S = ∅\n", w.check(o.VHVSOrthogonal))
	fmt.Fprintf(&sb, "  %s V_L ∩ V_S = ∅\n", w.check(o.VLVSOrthogonal))
	fmt.Fprintf(&sb, "  %s V_H ∩ V_L overlap allowed\n", w.check(o.VHVLOverlapAllowed))

	f := res.Features
	sb.WriteString(w.styles.Section.Render(fmt.Sprintf("Features %d/%d (%.0f%%)", f.Implemented, f.Specified, f.Percentage)))
	sb.WriteString("\n")
	for _, r := range f.Results {
		fmt.Fprintf(&sb, "  %s %2d %s %s\n", w.check(r.Implemented), r.ID, r.Name, w.styles.Muted.Render(r.Details))
	}

	l := res.Layers
	sb.WriteString(w.styles.Section.Render(fmt.Sprintf("Layers %d/%d", l.VerifiedCount(), len(l.Layers))))
	sb.WriteString("\n")
	for _, s := range l.Layers {
		fmt.Fprintf(&sb, "  %s %s\n", w.check(s.Verified), s.Name)
	}
	for _, p := range l.Proofs {
		fmt.Fprintf(&sb, "  %s %s -> %s %s\n", w.check(p.SolverVerified), p.From, p.To, w.styles.Muted.Render(p.Property))
	}

	if len(res.Issues) > 0 {
		sb.WriteString(w.styles.Section.Render("Issues"))
		sb.WriteString("\n")
		for _, issue := range res.Issues {
			fmt.Fprintf(&sb, "  %s\n", w.styles.Warning.Render(issue))
		}
	}
	return sb.String()
}

func mark(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}

// ComplianceMarkdown builds the raw markdown for a compliance result.
func ComplianceMarkdown(name string, res *compliance.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Compliance: %s\n\n", name)
	fmt.Fprintf(&sb, "**Level:** %s  \n**Score:** %.1f%%\n\n", strings.ToUpper(string(res.Level)), res.Score*100)

	sb.WriteString("## Mathematical foundations\n\n")
	fmt.Fprintf(&sb, "- Ambiguity %.4f verified: %s\n", res.Math.CalculatedAmbiguity, mark(res.Math.AmbiguityVerified))
	fmt.Fprintf(&sb, "- Token efficiency meets target: %s\n\n", mark(res.Math.TokenEfficiency.MeetsTarget))
	if len(res.Math.PipelineProofs) > 0 {
		sb.WriteString("| Steps | Prose | Target | Factor | Verified |\n")
		sb.WriteString("|---|---|---|---|---|\n")
		for _, p := range res.Math.PipelineProofs {
			fmt.Fprintf(&sb, "| %d | %.4f | %.4f | %.1f | %s |\n", p.Steps, p.ProseRate, p.TargetRate, p.ImprovementFactor, mark(p.SolverVerified))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Tri-vector orthogonality\n\n")
	fmt.Fprintf(&sb, "- V_H ∩ V_S = ∅: %s\n", mark(res.Orthogonality.VHVSOrthogonal))
	fmt.Fprintf(&sb, "- V_L ∩ V_S = ∅: %s\n", mark(res.Orthogonality.VLVSOrthogonal))
	for _, c := range res.Orthogonality.Certificates {
		fmt.Fprintf(&sb, "- `%s`\n", c)
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "## Features (%d/%d)\n\n", res.Features.Implemented, res.Features.Specified)
	sb.WriteString("| # | Feature | Implemented | Solver | Details |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, r := range res.Features.Results {
		fmt.Fprintf(&sb, "| %d | %s | %s | %s | %s |\n", r.ID, r.Name, mark(r.Implemented), mark(r.SolverVerified), r.Details)
	}
	sb.WriteString("\n")

	fmt.Fprintf(&sb, "## Layers (%d/%d)\n\n", res.Layers.VerifiedCount(), len(res.Layers.Layers))
	for _, s := range res.Layers.Layers {
		fmt.Fprintf(&sb, "- %s: %s\n", s.Name, mark(s.Verified))
	}
	for _, p := range res.Layers.Proofs {
		fmt.Fprintf(&sb, "- %s → %s `%s` enabled: %s, verified: %s\n", p.From, p.To, p.Property, mark(p.Enabled), mark(p.SolverVerified))
	}
	sb.WriteString("\n")

	if len(res.Issues) > 0 {
		sb.WriteString("## Issues\n\n")
		for _, issue := range res.Issues {
			fmt.Fprintf(&sb, "- %s\n", issue)
		}
	}
	return sb.String()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return d.String()
	}
	return d.Round(time.Millisecond).String()
}
