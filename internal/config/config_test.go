package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// UNIFIED CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 30000, cfg.Verification.QueryTimeoutMs)
	assert.True(t, cfg.Verification.Incremental)
	assert.True(t, cfg.Verification.GenerateProofs)
	assert.True(t, cfg.Verification.GenerateModels)
	assert.True(t, cfg.Verification.GenerateUnsatCores)
	assert.Equal(t, []string{"simplify", "solve-eqs", "smt"}, cfg.Verification.Tactics)
	assert.Equal(t, 4096, cfg.Verification.MaxMemoryMB)
	assert.Equal(t, 42, cfg.Verification.RandomSeed)
	assert.Equal(t, "z3", cfg.Solver.Path)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("AISPV_SOLVER_PATH", "")
	t.Setenv("AISPV_CACHE_PATH", "")
	t.Setenv("AISPV_LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "nested", "aispv.yaml")

	cfg := DefaultConfig()
	cfg.Verification.QueryTimeoutMs = 1500
	cfg.Verification.Tactics = []string{"smt"}
	cfg.Run.WorkerThreads = 8

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1500, loaded.Verification.QueryTimeoutMs)
	assert.Equal(t, []string{"smt"}, loaded.Verification.Tactics)
	assert.Equal(t, 8, loaded.Run.WorkerThreads)
}

func TestConfig_LoadMissingReturnsDefaults(t *testing.T) {
	t.Setenv("AISPV_SOLVER_PATH", "")
	t.Setenv("AISPV_CACHE_PATH", "")
	t.Setenv("AISPV_LOG_LEVEL", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfig_LoadPartialKeepsDefaults(t *testing.T) {
	t.Setenv("AISPV_SOLVER_PATH", "")
	t.Setenv("AISPV_CACHE_PATH", "")
	t.Setenv("AISPV_LOG_LEVEL", "")

	path := filepath.Join(t.TempDir(), "aispv.yaml")
	content := "verification:\n  query_timeout_ms: 250\n  incremental: false\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Verification.QueryTimeoutMs)
	assert.False(t, cfg.Verification.Incremental)
	assert.Equal(t, 42, cfg.Verification.RandomSeed)
	assert.Equal(t, 250*time.Millisecond, cfg.GetQueryTimeout())
}

func TestConfig_LoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aispv.yaml")
	require.NoError(t, os.WriteFile(path, []byte("verification: [unterminated"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("AISPV_SOLVER_PATH", "/opt/z3/bin/z3")
	t.Setenv("AISPV_CACHE_PATH", "/tmp/proofs.db")
	t.Setenv("AISPV_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "/opt/z3/bin/z3", cfg.Solver.Path)
	assert.Equal(t, "/tmp/proofs.db", cfg.Cache.Path)
	assert.True(t, cfg.Cache.EnableProofCache)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative timeout", func(c *Config) { c.Verification.QueryTimeoutMs = -1 }},
		{"empty solver path", func(c *Config) { c.Solver.Path = "" }},
		{"no workers", func(c *Config) { c.Run.WorkerThreads = 0 }},
		{"bad total timeout", func(c *Config) { c.Run.TotalTimeout = "soon" }},
		{"bad tactic", func(c *Config) { c.Verification.Tactics = []string{"smt", "(evil)"} }},
		{"cache without path", func(c *Config) {
			c.Cache.EnableProofCache = true
			c.Cache.Path = ""
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfig_DurationFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Run.TotalTimeout = "garbage"
	cfg.Verification.SlowQueryThreshold = ""
	cfg.Cache.MaxAge = "x"
	cfg.Verification.QueryTimeoutMs = 0

	assert.Equal(t, 300*time.Second, cfg.GetTotalTimeout())
	assert.Equal(t, 5*time.Second, cfg.GetSlowQueryThreshold())
	assert.Equal(t, 30*24*time.Hour, cfg.GetCacheMaxAge())
	assert.Equal(t, 30*time.Second, cfg.GetQueryTimeout())
}

func TestConfig_SMTConversion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Solver.Args = []string{"-v:0"}

	sc := cfg.SMT()
	assert.Equal(t, 30*time.Second, sc.QueryTimeout)
	assert.Equal(t, "z3", sc.SolverPath)
	assert.Equal(t, []string{"-v:0"}, sc.SolverArgs)
	assert.Equal(t, 42, sc.RandomSeed)

	// The conversion copies slices so callers cannot alias config state.
	sc.Tactics[0] = "changed"
	assert.Equal(t, "simplify", cfg.Verification.Tactics[0])
}
