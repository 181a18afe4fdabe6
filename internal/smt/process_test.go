package smt

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"aispverify/internal/document"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// writeScript installs a shell script standing in for the solver binary.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell solver stand-ins need a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	path := filepath.Join(t.TempDir(), "fake-solver")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func scriptConfig(path string) Config {
	cfg := testConfig()
	cfg.SolverPath = path
	return cfg
}

const oneShotUnsat = `cat > /dev/null
echo 'unsat'
echo '(mp (asserted (> x 10)) false)'
echo '(x_big goal)'
echo '(error "line 9 column 10: model is not available")'
echo '(:reason-unknown "unknown")'
echo '(:time 0.01 :rlimit-count 77)'
`

func TestProcessSolverDecodesOutput(t *testing.T) {
	path := writeScript(t, oneShotUnsat)
	solver, err := NewProcessSolver(scriptConfig(path))
	require.NoError(t, err)

	e := NewEngine(scriptConfig(path), solver)
	defer e.Close()

	out := e.Check(context.Background(), goalObligation("positive"))
	assert.Equal(t, Proven, out.Result)
	require.NotNil(t, out.Core)
	assert.Equal(t, []string{"x_big", "goal"}, out.Core.Assertions)
	require.NotNil(t, out.Proof)
	assert.Equal(t, 3, out.Proof.Size)
	assert.Equal(t, "77", e.Stats().Solver["rlimit-count"])
}

func TestProcessSolverReportsScriptErrors(t *testing.T) {
	path := writeScript(t, `cat > /dev/null
echo '(error "line 3 column 12: unknown constant y")'
echo 'sat'
exit 1
`)
	solver, err := NewProcessSolver(scriptConfig(path))
	require.NoError(t, err)

	out := NewEngine(scriptConfig(path), solver).Check(context.Background(), goalObligation("p"))
	assert.Equal(t, ResultError, out.Result.Kind)
	assert.Contains(t, out.Result.Reason, "unknown constant y")
}

func TestProcessSolverTimeout(t *testing.T) {
	path := writeScript(t, "cat > /dev/null\nexec sleep 10\n")
	cfg := scriptConfig(path)
	cfg.QueryTimeout = 50 * time.Millisecond
	solver, err := NewProcessSolver(cfg)
	require.NoError(t, err)

	start := time.Now()
	out := NewEngine(cfg, solver).Check(context.Background(), goalObligation("slow"))
	assert.Equal(t, ResultUnknown, out.Result.Kind)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSolverArgs(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, []string{"-in", "-smt2", "-t:30000", "-memory:4096"}, solverArgs(cfg))

	cfg.SolverArgs = []string{"--lang", "smt2"}
	assert.Equal(t, []string{"--lang", "smt2"}, solverArgs(cfg))
}

func sessionScript(logPath string) string {
	return `while IFS= read -r line; do
  echo "$line" >> '` + logPath + `'
  case "$line" in
    "(check-sat"*) echo unsat ;;
    "(get-proof)") echo "(asserted false)" ;;
    "(get-unsat-core)") echo "(goal)" ;;
    "(get-model)") echo '(error "model is not available")' ;;
    "(get-info :reason-unknown)") echo '(:reason-unknown "unknown")' ;;
    "(get-info :all-statistics)") echo '(:time 0.00)' ;;
    "(echo "*) echo "$line" | sed -e 's/^(echo "//' -e 's/")$//' ;;
    "(exit)") exit 0 ;;
  esac
done
`
}

func TestSessionSolverReusesPreamble(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "session.log")
	path := writeScript(t, sessionScript(logPath))
	solver, err := NewSessionSolver(scriptConfig(path))
	require.NoError(t, err)
	defer solver.Close()

	e := NewEngine(scriptConfig(path), solver)
	for i := 0; i < 3; i++ {
		out := e.Check(context.Background(), goalObligation("p"))
		assert.Equal(t, Proven, out.Result)
		require.NotNil(t, out.Proof)
	}

	env, err := BuildEnvironment(typesDoc())
	require.NoError(t, err)
	e.SetEnvironment(env)
	assert.Equal(t, Proven, e.Check(context.Background(), goalObligation("p")).Result)

	require.NoError(t, solver.Close())
	log, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(log), "(reset)"))
	assert.Equal(t, 4, strings.Count(string(log), "(push 1)"))
	assert.Equal(t, 4, strings.Count(string(log), "(pop 1)"))
	assert.Contains(t, string(log), "(exit)")
}

func TestSessionSolverRecoversFromTimeout(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "session.log")
	hang := strings.Replace(sessionScript(logPath), `"(check-sat"*) echo unsat ;;`,
		`"(check-sat"*) [ -f '`+logPath+`.ok' ] || sleep 3; echo unsat ;;`, 1)
	path := writeScript(t, hang)

	cfg := scriptConfig(path)
	cfg.QueryTimeout = 50 * time.Millisecond
	solver, err := NewSessionSolver(cfg)
	require.NoError(t, err)
	defer solver.Close()

	e := NewEngine(cfg, solver)
	out := e.Check(context.Background(), goalObligation("p"))
	assert.Equal(t, UnknownResult("timeout"), out.Result)

	require.NoError(t, os.WriteFile(logPath+".ok", nil, 0o644))
	assert.Equal(t, Proven, e.Check(context.Background(), goalObligation("p")).Result)
	assert.Equal(t, 1, e.Stats().Timeouts)
}

func TestNewSolverMissingBinary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SolverPath = "aispv-no-such-solver"
	_, err := NewSolver(cfg)
	assert.ErrorIs(t, err, ErrSolverUnavailable)

	cfg.Incremental = false
	_, err = NewSolver(cfg)
	assert.ErrorIs(t, err, ErrSolverUnavailable)
}

// The tests below talk to a real z3 and are skipped when it is not installed.

func requireZ3(t *testing.T) Config {
	t.Helper()
	if _, err := exec.LookPath("z3"); err != nil {
		t.Skip("z3 not installed")
	}
	cfg := DefaultConfig()
	cfg.QueryTimeout = 10 * time.Second
	return cfg
}

func TestZ3TriVectorObligations(t *testing.T) {
	base := requireZ3(t)
	for _, incremental := range []bool{false, true} {
		cfg := base
		cfg.Incremental = incremental
		name := "one-shot"
		if incremental {
			name = "session"
		}
		t.Run(name, func(t *testing.T) {
			b, err := NewBackend(cfg)
			require.NoError(t, err)
			defer b.Close()
			require.True(t, b.Available())

			enc := NewEncoder(nil)
			ctx := context.Background()

			tv := sampleTriVector()
			isolated := b.Check(ctx, enc.SafetyIsolation(tv))
			assert.Equal(t, Proven, isolated.Result)

			tv.Isolation = document.SafetyIsolation{Optimizations: []string{"quantize"}}
			leaky := b.Check(ctx, enc.SafetyIsolation(tv))
			assert.Equal(t, Disproven, leaky.Result)
			assert.NotNil(t, leaky.Model)

			disjoint := b.Check(ctx, enc.Orthogonality(tv, document.OrthogonalityConstraint{Space1: "V_H", Space2: "V_S"}))
			assert.Equal(t, Proven, disjoint.Result)

			overlap := b.Check(ctx, enc.Orthogonality(tv, document.OrthogonalityConstraint{Space1: "V_H", Space2: "V_L"}))
			assert.NotEqual(t, ResultProven, overlap.Result.Kind)
			assert.NotEqual(t, ResultError, overlap.Result.Kind)
		})
	}
}

func TestZ3VerifyDocument(t *testing.T) {
	cfg := requireZ3(t)
	b, err := NewBackend(cfg)
	require.NoError(t, err)
	defer b.Close()

	doc := declaredDoc()
	doc.Blocks = append(doc.Blocks, document.Block{
		Kind:      document.BlockFunctions,
		Functions: []document.FunctionDefinition{{Name: "rank"}},
	})
	res, err := b.VerifyDocument(context.Background(), doc, &document.SemanticAnalysis{TriVector: sampleTriVector()})
	require.NoError(t, err)
	for _, p := range res.Properties {
		assert.NotEqual(t, ResultError, p.Result.Kind, "%s: %s", p.ID, p.Result)
	}
}
