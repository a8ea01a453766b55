package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/derickschaefer/timefilter/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the local database",
	Long: `Commands for inspecting and clearing the local bbolt database.

The database holds resolved time ranges (bucket resolutions), which expire
after cache_ttl, and named ranges (bucket saved_ranges), which persist until
deleted.`,
}

// ─── cache stats ──────────────────────────────────────────────────────────────

var cacheStatsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show row counts and sizes for each bucket",
	Example: `  timefilter cache stats`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		stats, err := deps.Store.Stats()
		if err != nil {
			return fmt.Errorf("reading store stats: %w", err)
		}
		sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Database: %s\n", deps.Store.Path())
		if size, err := deps.Store.FileSize(); err == nil {
			fmt.Fprintf(out, "File size: %s\n", humanize.Bytes(uint64(size)))
		}
		fmt.Fprintln(out)
		printSimpleTable(out, []string{"BUCKET", "ROWS", "SIZE"}, func(add func(...string)) {
			for _, s := range stats {
				add(s.Name, humanize.Comma(int64(s.Count)), humanize.Bytes(uint64(s.Bytes)))
			}
		})
		return nil
	},
}

// ─── cache clear ──────────────────────────────────────────────────────────────

var (
	cacheClearAll    bool
	cacheClearBucket string
)

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete entries from the local database",
	Long: `Delete entries from one or all buckets.

bbolt does not shrink the database file after clearing. Free pages are reused
on the next write; run 'timefilter cache compact' to reclaim disk space.`,
	Example: `  timefilter cache clear --all
  timefilter cache clear --bucket resolutions`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cacheClearAll && cacheClearBucket == "" {
			return fmt.Errorf("specify --all or --bucket <name>\n\nBuckets: %s", strings.Join(store.AllBuckets, ", "))
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		if cacheClearAll {
			if err := deps.Store.ClearAll(); err != nil {
				return fmt.Errorf("clearing all buckets: %w", err)
			}
			infof(cmd, "✓ Cleared all buckets\n")
			infof(cmd, "  Run 'timefilter cache compact' to reclaim disk space.\n")
			return nil
		}

		if err := deps.Store.ClearBucket(cacheClearBucket); err != nil {
			return fmt.Errorf("clearing bucket %q: %w", cacheClearBucket, err)
		}
		infof(cmd, "✓ Cleared bucket %q\n", cacheClearBucket)
		infof(cmd, "  Run 'timefilter cache compact' to reclaim disk space.\n")
		return nil
	},
}

// ─── cache prune ──────────────────────────────────────────────────────────────

var cachePruneOlderThan time.Duration

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete resolutions older than a given age",
	Long: `Delete stored resolutions older than --older-than (default: cache_ttl).
Saved ranges are never pruned.`,
	Example: `  timefilter cache prune
  timefilter cache prune --older-than 24h`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		maxAge := deps.Config.CacheTTL
		if cmd.Flags().Changed("older-than") {
			maxAge = cachePruneOlderThan
		}
		if maxAge < 0 {
			return fmt.Errorf("--older-than must not be negative")
		}

		now := time.Now()
		n, err := deps.Store.PruneResolutions(maxAge, now)
		if err != nil {
			return fmt.Errorf("pruning resolutions: %w", err)
		}
		infof(cmd, "✓ Pruned %s resolution(s) stored before %s\n",
			humanize.Comma(int64(n)), humanize.Time(now.Add(-maxAge)))
		return nil
	},
}

// ─── cache compact ────────────────────────────────────────────────────────────

var cacheCompactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Rewrite the database file to reclaim freed disk space",
	Long: `Compact rewrites the bbolt database to a new file, recovering space freed
by prior 'cache clear' and 'cache prune' runs.

Live data is copied to a temporary file first, then the original is replaced.
The database remains usable after compaction completes.`,
	Example: `  timefilter cache compact`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		// Compact reopens the underlying bolt.DB; the Store handle stays valid.
		defer deps.Close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Compacting %s ...\n", deps.Store.Path())

		before, after, err := deps.Store.Compact()
		if err != nil {
			return fmt.Errorf("compaction failed: %w", err)
		}

		fmt.Fprintf(out, "✓ Compaction complete\n")
		fmt.Fprintf(out, "  Before: %s\n", humanize.Bytes(uint64(before)))
		fmt.Fprintf(out, "  After:  %s\n", humanize.Bytes(uint64(after)))
		if saved := before - after; saved > 0 {
			fmt.Fprintf(out, "  Saved:  %s\n", humanize.Bytes(uint64(saved)))
		} else {
			fmt.Fprintln(out, "  No space reclaimed (database was already compact).")
		}
		return nil
	},
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheCompactCmd)

	cacheClearCmd.Flags().BoolVar(&cacheClearAll, "all", false, "clear all buckets")
	cacheClearCmd.Flags().StringVar(&cacheClearBucket, "bucket", "",
		"clear a specific bucket: "+strings.Join(store.AllBuckets, "|"))
	cachePruneCmd.Flags().DurationVar(&cachePruneOlderThan, "older-than", 0,
		"maximum age to keep (default: cache_ttl)")
}
