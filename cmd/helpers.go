package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/derickschaefer/timefilter/internal/app"
	"github.com/derickschaefer/timefilter/internal/model"
	"github.com/derickschaefer/timefilter/internal/render"
	"github.com/derickschaefer/timefilter/internal/timerange"
)

// normaliseExprs trims expressions and removes duplicates while preserving
// order. Empty arguments are dropped.
func normaliseExprs(exprs []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(exprs))
	for _, e := range exprs {
		e = strings.TrimSpace(e)
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

// resolveFormat returns the effective format string, falling back to "table".
func resolveFormat(cfgFormat string) string {
	if globalFlags.Format != "" {
		return globalFlags.Format
	}
	if cfgFormat != "" {
		return cfgFormat
	}
	return render.FormatTable
}

// outputWriter returns stdout, or the --out file when set. The close
// function must always be called.
func outputWriter(stdout io.Writer) (io.Writer, func() error, error) {
	if globalFlags.Out == "" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(globalFlags.Out)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

// renderResult writes result in the configured format and prints the
// warnings/stats footer.
func renderResult(cmd *cobra.Command, deps *app.Deps, result *model.Result) error {
	format := resolveFormat(deps.Config.Format)
	if !render.ValidFormat(format) {
		return fmt.Errorf("unknown format %q (valid: %s)", format, strings.Join(render.Formats, ", "))
	}
	w, closeFn, err := outputWriter(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := render.Render(w, result, format); err != nil {
		closeFn()
		return err
	}
	if err := closeFn(); err != nil {
		return err
	}
	if !deps.Config.Quiet {
		render.PrintFooter(cmd.ErrOrStderr(), result, deps.Config.Verbose)
	}
	return nil
}

// infof prints a status line unless --quiet is set.
func infof(cmd *cobra.Command, format string, args ...interface{}) {
	if globalFlags.Quiet {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

// batchResolve resolves expressions concurrently. It respects
// deps.Config.Concurrency and returns rows in input order. Resolution
// failures are carried in the rows, never returned.
func batchResolve(ctx context.Context, deps *app.Deps, resolver *timerange.Resolver, exprs []string) []model.TimeRangeRow {
	concurrency := deps.Config.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	sem := make(chan struct{}, concurrency)
	rows := make([]model.TimeRangeRow, len(exprs))
	var wg sync.WaitGroup

	for i, expr := range exprs {
		i, expr := i, expr
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			rows[i] = app.TimeRangeRow(expr, resolver.Resolve(ctx, expr))
		}()
	}
	wg.Wait()
	return rows
}

// rowWarnings lists the resolution errors in rows.
func rowWarnings(rows []model.TimeRangeRow) []string {
	var warnings []string
	for _, r := range rows {
		if r.Error != "" {
			warnings = append(warnings, fmt.Sprintf("%s: %s", r.Expression, r.Error))
		}
	}
	return warnings
}

// printSimpleTable renders a simple table with headers using tablewriter.
// The add callback is called with row values as variadic strings.
func printSimpleTable(w io.Writer, headers []string, fill func(add func(...string))) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)

	fill(func(cols ...string) {
		tw.Append(cols)
	})
	tw.Render()
}

// parseIntID parses a string as a non-negative integer ID, with a descriptive label for errors.
func parseIntID(s, label string) (int, error) {
	var id int
	if _, err := fmt.Sscanf(s, "%d", &id); err != nil || id < 0 {
		return 0, fmt.Errorf("invalid %s %q: expected a positive integer", label, s)
	}
	return id, nil
}

// buildTimeRangeResult wraps resolved rows in a Result envelope.
func buildTimeRangeResult(command string, rows []model.TimeRangeRow, start time.Time) *model.Result {
	hit := len(rows) > 0
	for _, r := range rows {
		hit = hit && r.CacheHit
	}
	return &model.Result{
		Kind:        model.KindTimeRange,
		GeneratedAt: time.Now(),
		Command:     command,
		Data:        rows,
		Warnings:    rowWarnings(rows),
		Stats: model.ResultStats{
			CacheHit:   hit,
			DurationMs: time.Since(start).Milliseconds(),
			Items:      len(rows),
		},
	}
}

// buildFrameResult wraps frame rows in a Result envelope.
func buildFrameResult(command string, rows []model.FrameRow) *model.Result {
	return &model.Result{
		Kind:        model.KindFrame,
		GeneratedAt: time.Now(),
		Command:     command,
		Data:        rows,
		Stats:       model.ResultStats{Items: len(rows)},
	}
}
