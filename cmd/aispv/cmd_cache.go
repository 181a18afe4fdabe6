package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"aispverify/internal/store"
)

var olderThan time.Duration

// cacheCmd groups proof cache maintenance
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and prune the proof cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete cached solver answers older than --older-than",
	Args:  cobra.NoArgs,
	RunE:  runCachePrune,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show proof cache statistics",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

func init() {
	cachePruneCmd.Flags().DurationVar(&olderThan, "older-than", 0, "Age threshold (default: cache.max_age)")

	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
}

func runCachePrune(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	age := olderThan
	if age <= 0 {
		age = cfg.GetCacheMaxAge()
	}

	cache, err := store.OpenProofCache(cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("failed to open proof cache: %w", err)
	}
	defer cache.Close()

	n, err := cache.Prune(ctx, age)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d entries older than %s from %s\n", n, age, cache.Path())
	return nil
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	cache, err := store.OpenProofCache(cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("failed to open proof cache: %w", err)
	}
	defer cache.Close()

	stats, err := cache.Stats(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "path:      %s\n", cache.Path())
	fmt.Fprintf(out, "entries:   %d\n", stats.Entries)
	fmt.Fprintf(out, "proven:    %d\n", stats.Proven)
	fmt.Fprintf(out, "disproven: %d\n", stats.Disproven)
	fmt.Fprintf(out, "hits:      %d\n", stats.Hits)
	if !stats.Oldest.IsZero() {
		fmt.Fprintf(out, "oldest:    %s\n", stats.Oldest.Format(time.RFC3339))
	}
	return nil
}
