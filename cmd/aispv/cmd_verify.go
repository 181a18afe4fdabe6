package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"aispverify/internal/batch"
	"aispverify/internal/config"
	"aispverify/internal/document"
	"aispverify/internal/logging"
	"aispverify/internal/report"
	"aispverify/internal/smt"
	"aispverify/internal/store"
)

var (
	outputFormat string
	colorOutput  bool
)

// verifyCmd formally verifies one or more documents
var verifyCmd = &cobra.Command{
	Use:   "verify <doc.yaml>...",
	Short: "Formally verify documents with the SMT solver",
	Long: `Verify every property a document declares. Several documents are
verified in parallel, one solver per worker (see run.worker_threads).

The command exits non-zero when a document fails to load, fails setup, or
has a disproven property.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	for _, c := range []*cobra.Command{verifyCmd, validateCmd, watchCmd} {
		c.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text, markdown or json")
		c.Flags().BoolVar(&colorOutput, "color", false, "Style markdown output for the current terminal")
	}
}

func runVerify(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	outcomes, err := verifyPaths(ctx, cfg, args)
	if err != nil {
		return err
	}
	if err := writer(cmd.OutOrStdout(), format).Verification(outcomes); err != nil {
		return err
	}
	return verdict(outcomes)
}

func writer(out io.Writer, format report.Format) *report.Writer {
	return report.NewWriter(out, format, report.WithColor(colorOutput))
}

// loadJobs reads every document before any solver is started, so a typo in
// the last path fails fast.
func loadJobs(paths []string) ([]batch.Job, error) {
	jobs := make([]batch.Job, 0, len(paths))
	for _, path := range paths {
		f, _, err := document.Load(path)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, batch.Job{Name: path, Document: &f.Document, Analysis: f.Analysis})
	}
	return jobs, nil
}

// verifyPaths loads and verifies documents with the configured backend.
func verifyPaths(ctx context.Context, c *config.Config, paths []string) ([]batch.Outcome, error) {
	jobs, err := loadJobs(paths)
	if err != nil {
		return nil, err
	}

	cache, err := openCache(c)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		defer cache.Close()
	}

	timer := logging.StartTimer(logging.CategoryBatch, "verify")
	defer timer.Stop()

	return batch.Run(ctx, jobs, backendFactory(c, cache), batch.Options{
		Workers:  c.Run.WorkerThreads,
		Parallel: c.Run.ParallelVerification,
	})
}

// backendFactory builds one backend per batch worker. The proof cache is
// shared; it serializes its own access.
func backendFactory(c *config.Config, cache *store.ProofCache) batch.Factory {
	return func() (smt.Backend, error) {
		if noSolver {
			return smt.NewDisabled(), nil
		}
		var opts []smt.EngineOption
		if cache != nil {
			opts = append(opts, smt.WithCache(cache))
		}
		return smt.NewBackend(c.SMT(), opts...)
	}
}

// openCache returns nil when the proof cache is disabled.
func openCache(c *config.Config) (*store.ProofCache, error) {
	if !c.Cache.EnableProofCache || noSolver {
		return nil, nil
	}
	cache, err := store.OpenProofCache(c.Cache.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open proof cache: %w", err)
	}
	return cache, nil
}

// verdict fails the command when any document could not be verified.
func verdict(outcomes []batch.Outcome) error {
	for _, o := range outcomes {
		if o.Err != nil || o.Result.Status.Kind == smt.StatusFailed {
			return errVerificationFailed
		}
	}
	return nil
}
