package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"aispverify/internal/logging"
	"aispverify/internal/report"
	"aispverify/internal/watch"
)

var debounce time.Duration

// watchCmd re-verifies documents as they change
var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Re-verify *.yaml documents in a directory when they change",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Quiet period before a changed file is verified")
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	w, err := watch.New(args[0], verifyHandler(cmd.OutOrStdout(), cmd.ErrOrStderr(), format), watch.WithDebounce(debounce))
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Stop()

	if err := w.Start(ctx); err != nil {
		return fmt.Errorf("failed to watch %s: %w", args[0], err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl+C to stop)\n", args[0])

	select {
	case <-ctx.Done():
	case <-w.Done():
	}
	stats := w.Stats()
	logging.Watch("Watch ended: %d verifications, %d errors", stats.Verifications, stats.Errors)
	return nil
}

// verifyHandler verifies one changed document and writes its report. Errors
// are printed rather than returned so the watch keeps running.
func verifyHandler(out, errOut io.Writer, format report.Format) watch.Handler {
	return func(ctx context.Context, path string) {
		outcomes, err := verifyPaths(ctx, cfg, []string{path})
		if err != nil {
			fmt.Fprintf(errOut, "%s: %v\n", path, err)
			return
		}
		if err := writer(out, format).Verification(outcomes); err != nil {
			logging.Get(logging.CategoryWatch).Error("failed to write report: %v", err)
		}
	}
}
