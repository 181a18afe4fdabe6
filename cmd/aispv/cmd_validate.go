package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"aispverify/internal/compliance"
	"aispverify/internal/config"
	"aispverify/internal/document"
	"aispverify/internal/report"
)

var sourcePath string

// validateCmd scores a document against the reference feature set
var validateCmd = &cobra.Command{
	Use:   "validate <doc.yaml>",
	Short: "Score a document against the reference feature set",
	Long: `Run the four compliance phases (mathematical foundations, tri-vector
orthogonality, feature compliance, layer composition) and print the
compliance level and score.

Token metrics are measured on --source, which defaults to the document file.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&sourcePath, "source", "", "Source text used for token metrics (default: the document file)")
}

func runValidate(cmd *cobra.Command, args []string) error {
	format, err := report.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	res, err := validatePath(ctx, cfg, args[0], sourcePath)
	if err != nil {
		return err
	}
	return writer(cmd.OutOrStdout(), format).Compliance(args[0], res)
}

func validatePath(ctx context.Context, c *config.Config, path, source string) (*compliance.Result, error) {
	f, data, err := document.Load(path)
	if err != nil {
		return nil, err
	}
	if source != "" {
		if data, err = os.ReadFile(source); err != nil {
			return nil, fmt.Errorf("failed to read source: %w", err)
		}
	}

	backend, err := backendFactory(c, nil)()
	if err != nil {
		return nil, err
	}
	defer backend.Close()

	return compliance.NewValidator(backend).Validate(ctx, &f.Document, string(data), f.Analysis), nil
}

