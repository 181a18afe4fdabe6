// Package batch verifies independent documents in parallel. Each worker owns
// its own backend, so solver sessions are never shared between goroutines.
package batch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"aispverify/internal/document"
	"aispverify/internal/logging"
	"aispverify/internal/smt"
)

// Job is one document to verify.
type Job struct {
	Name     string
	Document *document.Document
	Analysis *document.SemanticAnalysis
}

// Outcome is the verification of one job. Err holds a setup failure for that
// document only.
type Outcome struct {
	Job     string
	Result  *smt.Result
	Err     error
	Elapsed time.Duration
}

// Factory builds a fresh backend for one worker.
type Factory func() (smt.Backend, error)

// Options controls parallelism.
type Options struct {
	Workers  int
	Parallel bool
}

func (o Options) workers(jobs int) int {
	n := o.Workers
	if !o.Parallel || n < 1 {
		n = 1
	}
	if n > jobs {
		n = jobs
	}
	return n
}

// Run verifies jobs and returns their outcomes in job order. It fails only
// when a backend cannot be built or ctx ends before every job was taken.
func Run(ctx context.Context, jobs []Job, factory Factory, opts Options) ([]Outcome, error) {
	if len(jobs) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	workers := opts.workers(len(jobs))
	logging.Batch("Verifying %d documents with %d workers", len(jobs), workers)

	outcomes := make([]Outcome, len(jobs))
	queue := make(chan int)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer close(queue)
		for i := range jobs {
			if err := egCtx.Err(); err != nil {
				return err
			}
			select {
			case queue <- i:
			case <-egCtx.Done():
				return egCtx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		eg.Go(func() error {
			backend, err := factory()
			if err != nil {
				return fmt.Errorf("worker %d: failed to create backend: %w", w, err)
			}
			defer func() {
				if err := backend.Close(); err != nil {
					logging.Get(logging.CategoryBatch).Warn("worker %d: closing backend: %v", w, err)
				}
			}()

			for i := range queue {
				outcomes[i] = verify(egCtx, backend, jobs[i])
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

func verify(ctx context.Context, backend smt.Backend, job Job) Outcome {
	start := time.Now()
	res, err := backend.VerifyDocument(ctx, job.Document, job.Analysis)
	out := Outcome{Job: job.Name, Result: res, Err: err, Elapsed: time.Since(start)}
	if err != nil {
		logging.Get(logging.CategoryBatch).Warn("%s: %v", job.Name, err)
	} else {
		logging.Get(logging.CategoryBatch).Debug("%s: %s in %v", job.Name, res.Status.Kind, out.Elapsed)
	}
	return out
}
