package main

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"aispverify/internal/smt"
)

// solverCmd reports whether the solver can be used
var solverCmd = &cobra.Command{
	Use:   "solver",
	Short: "Show solver availability, path and version",
	Args:  cobra.NoArgs,
	RunE:  runSolver,
}

func runSolver(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	out := cmd.OutOrStdout()
	scfg := cfg.SMT()

	path, err := smt.LookupSolver(scfg)
	if err != nil {
		fmt.Fprintf(out, "available: no\nsolver:    %s\nreason:    %v\n", scfg.SolverPath, err)
		return nil
	}

	version, err := solverVersion(ctx, path)
	if err != nil {
		version = "unknown (" + err.Error() + ")"
	}
	fmt.Fprintf(out, "available: yes\npath:      %s\nversion:   %s\n", path, version)
	if noSolver {
		fmt.Fprintln(out, "note:      --no-solver is set; verification will not use it")
	}
	return nil
}

// solverVersion runs `<solver> -version` and returns its first line.
func solverVersion(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var stdout bytes.Buffer
	c := exec.CommandContext(ctx, path, "-version")
	c.Stdout = &stdout
	if err := c.Run(); err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(strings.TrimSpace(stdout.String()), "\n")
	return line, nil
}
