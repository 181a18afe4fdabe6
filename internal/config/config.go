package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"aispverify/internal/smt"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for configuration when --config is not given.
const DefaultPath = "aispv.yaml"

// Config holds all aispverify configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Solver query behaviour
	Verification VerificationConfig `yaml:"verification"`

	// External solver binary
	Solver SolverConfig `yaml:"solver"`

	// Run orchestration (caller-side parallelism and deadlines)
	Run RunConfig `yaml:"run"`

	// Proof cache
	Cache CacheConfig `yaml:"cache"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// VerificationConfig configures how each obligation is checked.
type VerificationConfig struct {
	QueryTimeoutMs     int      `yaml:"query_timeout_ms"`
	Incremental        bool     `yaml:"incremental"`
	GenerateProofs     bool     `yaml:"generate_proofs"`
	GenerateModels     bool     `yaml:"generate_models"`
	GenerateUnsatCores bool     `yaml:"generate_unsat_cores"`
	Tactics            []string `yaml:"tactics"`
	MaxMemoryMB        int      `yaml:"max_memory_mb"`
	RandomSeed         int      `yaml:"random_seed"`
	SlowQueryThreshold string   `yaml:"slow_query_threshold"`
}

// SolverConfig locates the solver executable.
type SolverConfig struct {
	Path string   `yaml:"path"`
	Args []string `yaml:"args"`
}

// RunConfig configures batch orchestration.
type RunConfig struct {
	TotalTimeout         string `yaml:"total_timeout"`
	WorkerThreads        int    `yaml:"worker_threads"`
	ParallelVerification bool   `yaml:"parallel_verification"`
}

// CacheConfig configures the SQLite proof cache.
type CacheConfig struct {
	EnableProofCache bool   `yaml:"enable_proof_cache"`
	Path             string `yaml:"path"`
	MaxAge           string `yaml:"max_age"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "aispverify",
		Version: "0.4.0",

		Verification: VerificationConfig{
			QueryTimeoutMs:     30000,
			Incremental:        true,
			GenerateProofs:     true,
			GenerateModels:     true,
			GenerateUnsatCores: true,
			Tactics:            []string{"simplify", "solve-eqs", "smt"},
			MaxMemoryMB:        4096,
			RandomSeed:         42,
			SlowQueryThreshold: "5s",
		},

		Solver: SolverConfig{
			Path: "z3",
		},

		Run: RunConfig{
			TotalTimeout:         "300s",
			WorkerThreads:        4,
			ParallelVerification: true,
		},

		Cache: CacheConfig{
			EnableProofCache: false,
			Path:             filepath.Join(".aispv", "proofs.db"),
			MaxAge:           "720h",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("AISPV_SOLVER_PATH"); path != "" {
		c.Solver.Path = path
	}
	if path := os.Getenv("AISPV_CACHE_PATH"); path != "" {
		c.Cache.Path = path
		c.Cache.EnableProofCache = true
	}
	if level := os.Getenv("AISPV_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// GetQueryTimeout returns the per-query solver timeout as a duration.
func (c *Config) GetQueryTimeout() time.Duration {
	if c.Verification.QueryTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Verification.QueryTimeoutMs) * time.Millisecond
}

// GetTotalTimeout returns the whole-run deadline as a duration.
func (c *Config) GetTotalTimeout() time.Duration {
	d, err := time.ParseDuration(c.Run.TotalTimeout)
	if err != nil {
		return 300 * time.Second
	}
	return d
}

// GetSlowQueryThreshold returns the duration above which a query is reported as slow.
func (c *Config) GetSlowQueryThreshold() time.Duration {
	d, err := time.ParseDuration(c.Verification.SlowQueryThreshold)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// GetCacheMaxAge returns how long cached proofs stay valid.
func (c *Config) GetCacheMaxAge() time.Duration {
	d, err := time.ParseDuration(c.Cache.MaxAge)
	if err != nil {
		return 30 * 24 * time.Hour
	}
	return d
}

// SMT converts the file-level settings into the engine configuration.
func (c *Config) SMT() smt.Config {
	return smt.Config{
		QueryTimeout:       c.GetQueryTimeout(),
		Incremental:        c.Verification.Incremental,
		GenerateProofs:     c.Verification.GenerateProofs,
		GenerateModels:     c.Verification.GenerateModels,
		GenerateUnsatCores: c.Verification.GenerateUnsatCores,
		Tactics:            append([]string(nil), c.Verification.Tactics...),
		MaxMemoryMB:        c.Verification.MaxMemoryMB,
		RandomSeed:         c.Verification.RandomSeed,
		SolverPath:         c.Solver.Path,
		SolverArgs:         append([]string(nil), c.Solver.Args...),
		SlowQueryThreshold: c.GetSlowQueryThreshold(),
		TotalTimeout:       c.GetTotalTimeout(),
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Verification.QueryTimeoutMs < 0 {
		return fmt.Errorf("query_timeout_ms must be >= 0, got %d", c.Verification.QueryTimeoutMs)
	}
	if c.Verification.MaxMemoryMB < 0 {
		return fmt.Errorf("max_memory_mb must be >= 0, got %d", c.Verification.MaxMemoryMB)
	}
	if c.Solver.Path == "" {
		return fmt.Errorf("solver.path must not be empty")
	}
	if c.Run.WorkerThreads < 1 {
		return fmt.Errorf("worker_threads must be >= 1, got %d", c.Run.WorkerThreads)
	}
	if _, err := time.ParseDuration(c.Run.TotalTimeout); err != nil {
		return fmt.Errorf("invalid total_timeout %q: %w", c.Run.TotalTimeout, err)
	}
	for _, tactic := range c.Verification.Tactics {
		if !smt.IsSymbol(tactic) {
			return fmt.Errorf("invalid tactic name %q", tactic)
		}
	}
	if c.Cache.EnableProofCache && c.Cache.Path == "" {
		return fmt.Errorf("cache.path must be set when the proof cache is enabled")
	}
	return nil
}
