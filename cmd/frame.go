package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/timefilter/internal/app"
	"github.com/derickschaefer/timefilter/internal/model"
	"github.com/derickschaefer/timefilter/internal/timerange"
)

// ─── frame ────────────────────────────────────────────────────────────────────

var frameList bool

var frameCmd = &cobra.Command{
	Use:   "frame <expression...>",
	Short: "Classify time-range expressions by frame",
	Long: `Guess the frame (range type) of each expression without contacting Superset.

Frames:
  Common     Last day, Last week, Last month, Last quarter, Last year
  Calendar   previous calendar week, month, or year
  Custom     expressions in the custom editor grammar (specific or DATEADD bounds)
  Advanced   anything else
  No filter  the literal "No filter"`,
	Example: `  timefilter frame "Last week"
  timefilter frame "2021-01-01T00:00:00 : now" --format json
  timefilter frame --list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if frameList {
			printFrameOptions(cmd)
			return nil
		}
		if len(args) == 0 {
			return fmt.Errorf("at least one expression is required (or use --list)")
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}

		exprs := normaliseExprs(args)
		rows := make([]model.FrameRow, 0, len(exprs))
		for _, e := range exprs {
			rows = append(rows, app.FrameRow(e))
		}
		return renderResult(cmd, deps, buildFrameResult("frame "+strings.Join(exprs, " "), rows))
	},
}

func printFrameOptions(cmd *cobra.Command) {
	printSimpleTable(cmd.OutOrStdout(), []string{"FRAME", "LABEL", "VALUES"}, func(add func(...string)) {
		for _, o := range timerange.FrameOptions {
			var values []string
			switch timerange.Frame(o.Value) {
			case timerange.FrameCommon:
				values = optionValues(timerange.CommonOptions)
			case timerange.FrameCalendar:
				values = optionValues(timerange.CalendarOptions)
			case timerange.FrameNoFilter:
				values = []string{timerange.NoFilter}
			}
			add(o.Value, o.Label, strings.Join(values, ", "))
		}
	})
}

func optionValues(opts []timerange.Option) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Value
	}
	return out
}

func init() {
	rootCmd.AddCommand(frameCmd)
	frameCmd.Flags().BoolVar(&frameList, "list", false, "list frames and their preset values")
}
