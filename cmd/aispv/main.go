package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"aispverify/internal/config"
	"aispverify/internal/logging"
)

var (
	// Global flags
	configPath string
	verbose    bool
	noSolver   bool

	// Loaded in PersistentPreRunE
	cfg *config.Config
)

// errVerificationFailed makes the process exit non-zero after the report has
// been written.
var errVerificationFailed = errors.New("verification failed")

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "aispv",
	Short: "aispv - formal verification for AISP documents",
	Long: `aispv checks AISP documents with an external SMT solver (z3).

Each declared property is encoded as an SMT-LIB obligation and proven by
refuting its negation. Proofs, counterexamples and unsat cores are decoded
from the solver and reported per property.

Without a solver on PATH every command still runs; properties are reported
as unsupported.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", configPath, err)
		}

		opts := loaded.Logging.Options()
		if verbose {
			opts.Level = "debug"
			opts.DebugMode = true
		}
		if err := logging.Initialize(opts); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		cfg = loaded
		logging.Boot("Configuration loaded from %s", configPath)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().BoolVar(&noSolver, "no-solver", false, "Skip the solver and report properties as unsupported")

	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(solverCmd)
	rootCmd.AddCommand(cacheCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errVerificationFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// commandContext returns a context cancelled on SIGINT or SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
