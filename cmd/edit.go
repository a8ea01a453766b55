package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/timefilter/internal/model"
	"github.com/derickschaefer/timefilter/internal/tui"
)

// ─── edit ─────────────────────────────────────────────────────────────────────

var (
	editSaved string
	editSave  string
)

var editCmd = &cobra.Command{
	Use:   "edit [expression]",
	Short: "Edit a time range interactively",
	Long: `Open the interactive time-range editor.

The draft is resolved through Superset after a short pause in typing
(debounce, default 500ms). Apply is only possible once the latest draft has
resolved successfully.

Keys:
  tab / shift+tab  switch frame (Last, Previous, Custom, Advanced, No filter)
  enter            apply the draft
  esc / ctrl+c     cancel

The applied expression is printed on exit. With --save it is also stored
as a named range.`,
	Example: `  timefilter edit
  timefilter edit "Last month"
  timefilter edit --saved weekly --save weekly`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.Config.Validate(); err != nil {
			return err
		}
		if editSaved != "" || editSave != "" {
			if err := deps.RequireStore(); err != nil {
				return err
			}
		} else {
			deps.OpenCache()
		}
		defer deps.Close()

		var value string
		if len(args) == 1 {
			value = args[0]
		}
		if editSaved != "" {
			r, ok, err := deps.Store.GetSavedRange(editSaved)
			if err != nil {
				return fmt.Errorf("reading saved range %q: %w", editSaved, err)
			}
			if !ok {
				return fmt.Errorf("no saved range named %q", editSaved)
			}
			value = r.Expression
		}

		resolver, err := deps.NewResolver()
		if err != nil {
			return err
		}

		applied, ok, err := tui.Run(cmd.Context(), resolver, value, tui.Options{Debounce: deps.Config.Debounce})
		if err != nil {
			return err
		}
		if !ok {
			infof(cmd, "Canceled.\n")
			return nil
		}

		fmt.Fprintln(cmd.OutOrStdout(), applied)
		if editSave != "" {
			if err := deps.Store.PutSavedRange(model.SavedRange{Name: editSave, Expression: applied}); err != nil {
				return fmt.Errorf("saving range: %w", err)
			}
			infof(cmd, "✓ Saved %q\n", editSave)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().StringVar(&editSaved, "saved", "", "start from a saved range")
	editCmd.Flags().StringVar(&editSave, "save", "", "store the applied expression under this name")
}
