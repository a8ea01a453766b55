package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// ─── resolve ──────────────────────────────────────────────────────────────────

var resolveSaved []string

var resolveCmd = &cobra.Command{
	Use:   "resolve <expression...>",
	Short: "Resolve time-range expressions to absolute bounds",
	Long: `Resolve each expression through Superset's time_range endpoint and show the
label a date-filter control would display.

Successful resolutions are cached in the local database for cache_ttl
(default 10m). Use --refresh to bypass and overwrite cached entries.
"No filter" resolves locally without a request.`,
	Example: `  timefilter resolve "Last week"
  timefilter resolve "Last week" "previous calendar month" --format json
  timefilter resolve --saved weekly --verbose`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.Config.Validate(); err != nil {
			return err
		}
		if len(resolveSaved) > 0 {
			if err := deps.RequireStore(); err != nil {
				return err
			}
		} else {
			deps.OpenCache()
		}
		defer deps.Close()

		exprs := append([]string(nil), args...)
		for _, name := range resolveSaved {
			r, ok, err := deps.Store.GetSavedRange(name)
			if err != nil {
				return fmt.Errorf("reading saved range %q: %w", name, err)
			}
			if !ok {
				return fmt.Errorf("no saved range named %q", name)
			}
			exprs = append(exprs, r.Expression)
		}
		exprs = normaliseExprs(exprs)
		if len(exprs) == 0 {
			return fmt.Errorf("at least one expression or --saved name is required")
		}

		resolver, err := deps.NewResolver()
		if err != nil {
			return err
		}

		start := time.Now()
		rows := batchResolve(cmd.Context(), deps, resolver, exprs)
		result := buildTimeRangeResult("resolve "+strings.Join(exprs, " "), rows, start)
		return renderResult(cmd, deps, result)
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().StringSliceVar(&resolveSaved, "saved", nil, "resolve a saved range by name (repeatable)")
}
