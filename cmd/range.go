package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/timefilter/internal/app"
	"github.com/derickschaefer/timefilter/internal/model"
	"github.com/derickschaefer/timefilter/internal/timerange"
)

var rangeCmd = &cobra.Command{
	Use:   "range",
	Short: "Build and manage named time ranges",
	Long: `Commands for building custom expressions and keeping named ranges in the
local database.

Saved ranges can be resolved with 'timefilter resolve --saved <name>' and
edited with 'timefilter edit --saved <name>'.`,
}

// ─── range save ───────────────────────────────────────────────────────────────

var rangeSaveCheck bool

var rangeSaveCmd = &cobra.Command{
	Use:   "save <name> <expression>",
	Short: "Save an expression under a name",
	Example: `  timefilter range save weekly "Last week"
  timefilter range save q1 "2024-01-01T00:00:00 : 2024-04-01T00:00:00" --check`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		name, expr := args[0], args[1]
		if rangeSaveCheck {
			if err := deps.Config.Validate(); err != nil {
				return err
			}
			resolver, err := deps.NewResolver()
			if err != nil {
				return err
			}
			if res := resolver.Resolve(cmd.Context(), expr); !res.OK() {
				return fmt.Errorf("expression does not resolve: %s", res.Error)
			}
		}

		if err := deps.Store.PutSavedRange(model.SavedRange{Name: name, Expression: expr}); err != nil {
			return fmt.Errorf("saving range: %w", err)
		}
		infof(cmd, "✓ Saved %q (%s)\n", name, timerange.Classify(expr))
		return nil
	},
}

// ─── range list ───────────────────────────────────────────────────────────────

var rangeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved ranges",
	Example: `  timefilter range list
  timefilter range list --format yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		ranges, err := deps.Store.ListSavedRanges()
		if err != nil {
			return fmt.Errorf("reading saved ranges: %w", err)
		}
		if len(ranges) == 0 && resolveFormat(deps.Config.Format) == "table" {
			infof(cmd, "No saved ranges.\n")
			infof(cmd, "  Use: timefilter range save <name> <expression>\n")
			return nil
		}

		result := &model.Result{
			Kind:        model.KindSavedRange,
			GeneratedAt: time.Now(),
			Command:     "range list",
			Data:        ranges,
			Stats:       model.ResultStats{Items: len(ranges)},
		}
		return renderResult(cmd, deps, result)
	},
}

// ─── range delete ─────────────────────────────────────────────────────────────

var rangeDeleteCmd = &cobra.Command{
	Use:     "delete <name...>",
	Short:   "Delete saved ranges",
	Example: `  timefilter range delete weekly q1`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		var missing []string
		for _, name := range args {
			existed, err := deps.Store.DeleteSavedRange(name)
			if err != nil {
				return fmt.Errorf("deleting %q: %w", name, err)
			}
			if !existed {
				missing = append(missing, name)
				continue
			}
			infof(cmd, "✓ Deleted %q\n", name)
		}
		if len(missing) > 0 {
			return fmt.Errorf("no saved range named %s", strings.Join(missing, ", "))
		}
		return nil
	},
}

// ─── range build ──────────────────────────────────────────────────────────────

var rangeBuild struct {
	Since      string
	SinceMode  string
	SinceGrain string
	SinceValue int
	Until      string
	UntilMode  string
	UntilGrain string
	UntilValue int
	Anchor     string
}

var rangeBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a custom-range expression from its parts",
	Long: `Assemble an expression the way the custom range editor does.

Each bound has a mode:
  specific  a datetime literal (--since / --until, YYYY-MM-DDTHH:MM:SS)
  relative  DATEADD of the other bound by --*-value units of --*-grain
  now       the literal now
  today     the literal today

Unset datetimes default to midnight today; the default range is the seven
days leading up to today.`,
	Example: `  timefilter range build
  timefilter range build --since 2024-01-01T00:00:00 --until-mode now
  timefilter range build --since-mode relative --since-value -3 --since-grain month --until-mode today`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}

		cr, err := customRangeFromFlags(cmd, time.Now())
		if err != nil {
			return err
		}
		expr := timerange.EncodeCustom(cr)
		row := app.FrameRow(expr)
		return renderResult(cmd, deps, buildFrameResult("range build", []model.FrameRow{row}))
	},
}

// customRangeFromFlags starts from the default custom range and applies the
// flags that were set.
func customRangeFromFlags(cmd *cobra.Command, now time.Time) (timerange.CustomRange, error) {
	cr := timerange.DefaultCustomRange(now)
	f := cmd.Flags()

	if f.Changed("since") {
		if _, err := time.Parse(timerange.DatetimeLayout, rangeBuild.Since); err != nil {
			return cr, fmt.Errorf("invalid --since %q: expected YYYY-MM-DDTHH:MM:SS", rangeBuild.Since)
		}
		cr.SinceDatetime = rangeBuild.Since
		cr.SinceMode = timerange.ModeSpecific
	}
	if f.Changed("until") {
		if _, err := time.Parse(timerange.DatetimeLayout, rangeBuild.Until); err != nil {
			return cr, fmt.Errorf("invalid --until %q: expected YYYY-MM-DDTHH:MM:SS", rangeBuild.Until)
		}
		cr.UntilDatetime = rangeBuild.Until
		cr.UntilMode = timerange.ModeSpecific
	}
	if f.Changed("since-mode") {
		m, err := timerange.ParseMode(rangeBuild.SinceMode)
		if err != nil {
			return cr, err
		}
		cr.SinceMode = m
	}
	if f.Changed("until-mode") {
		m, err := timerange.ParseMode(rangeBuild.UntilMode)
		if err != nil {
			return cr, err
		}
		cr.UntilMode = m
	}
	if f.Changed("since-grain") {
		g, err := timerange.ParseGrain(rangeBuild.SinceGrain)
		if err != nil {
			return cr, err
		}
		cr.SinceGrain = g
	}
	if f.Changed("until-grain") {
		g, err := timerange.ParseGrain(rangeBuild.UntilGrain)
		if err != nil {
			return cr, err
		}
		cr.UntilGrain = g
	}
	if f.Changed("since-value") {
		cr.SinceGrainValue = rangeBuild.SinceValue
	}
	if f.Changed("until-value") {
		cr.UntilGrainValue = rangeBuild.UntilValue
	}
	if f.Changed("anchor") {
		cr.AnchorValue = rangeBuild.Anchor
		cr.AnchorMode = "specific"
		if rangeBuild.Anchor == "now" {
			cr.AnchorMode = "now"
		}
	}
	return cr, nil
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(rangeCmd)
	rangeCmd.AddCommand(rangeSaveCmd)
	rangeCmd.AddCommand(rangeListCmd)
	rangeCmd.AddCommand(rangeDeleteCmd)
	rangeCmd.AddCommand(rangeBuildCmd)

	rangeSaveCmd.Flags().BoolVar(&rangeSaveCheck, "check", false, "resolve the expression before saving and refuse invalid ones")

	bf := rangeBuildCmd.Flags()
	bf.StringVar(&rangeBuild.Since, "since", "", "start datetime (YYYY-MM-DDTHH:MM:SS)")
	bf.StringVar(&rangeBuild.SinceMode, "since-mode", "", "start mode: specific|relative|now|today")
	bf.StringVar(&rangeBuild.SinceGrain, "since-grain", "", "start grain for relative mode (second..year)")
	bf.IntVar(&rangeBuild.SinceValue, "since-value", 0, "start offset for relative mode")
	bf.StringVar(&rangeBuild.Until, "until", "", "end datetime (YYYY-MM-DDTHH:MM:SS)")
	bf.StringVar(&rangeBuild.UntilMode, "until-mode", "", "end mode: specific|relative|now|today")
	bf.StringVar(&rangeBuild.UntilGrain, "until-grain", "", "end grain for relative mode (second..year)")
	bf.IntVar(&rangeBuild.UntilValue, "until-value", 0, "end offset for relative mode")
	bf.StringVar(&rangeBuild.Anchor, "anchor", "", "anchor when both bounds are relative (now or a datetime)")
}
