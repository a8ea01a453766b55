package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/timefilter/internal/render"
	"github.com/derickschaefer/timefilter/internal/store"
	"github.com/derickschaefer/timefilter/internal/timerange"
)

// completionCmd wraps Cobra's shell completion generator.
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for timefilter.

  source <(timefilter completion bash)
  source <(timefilter completion zsh)
  timefilter completion fish | source

Saved range names, bucket names, formats and preset expressions complete
as well as commands and flags.`,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.ExactValidArgs(1),
	DisableFlagsInUseLine: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		root := cmd.Root()
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return root.GenBashCompletionV2(out, true)
		case "zsh":
			return root.GenZshCompletion(out)
		case "fish":
			return root.GenFishCompletion(out, true)
		case "powershell":
			return root.GenPowerShellCompletionWithDesc(out)
		default:
			return cmd.Help()
		}
	},
}

// registerCompletions attaches dynamic completions. It runs from Execute,
// after every command's flags exist.
func registerCompletions() {
	rootCmd.RegisterFlagCompletionFunc("format", fixedCompletion(render.Formats))
	rootCmd.RegisterFlagCompletionFunc("endpoints", fixedCompletion([]string{
		"inclusive,exclusive", "inclusive,inclusive", "exclusive,exclusive", "exclusive,inclusive",
	}))
	cacheClearCmd.RegisterFlagCompletionFunc("bucket", fixedCompletion(store.AllBuckets))
	resolveCmd.RegisterFlagCompletionFunc("saved", completeSavedRanges)
	editCmd.RegisterFlagCompletionFunc("saved", completeSavedRanges)
	rangeDeleteCmd.ValidArgsFunction = completeSavedRanges

	presets := presetExpressions()
	frameCmd.ValidArgsFunction = fixedCompletion(presets)
	resolveCmd.ValidArgsFunction = fixedCompletion(presets)
}

func fixedCompletion(values []string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		var out []string
		for _, v := range values {
			if strings.HasPrefix(v, toComplete) {
				out = append(out, v)
			}
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
}

// completeSavedRanges offers saved range names with their expressions as
// descriptions. Any failure yields no candidates.
func completeSavedRanges(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	deps, err := buildDeps()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	if err := deps.RequireStore(); err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer deps.Close()

	ranges, err := deps.Store.ListSavedRanges()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var out []string
	for _, r := range ranges {
		if strings.HasPrefix(r.Name, toComplete) {
			out = append(out, r.Name+"\t"+r.Expression)
		}
	}
	return out, cobra.ShellCompDirectiveNoFileComp
}

func presetExpressions() []string {
	out := optionValues(timerange.CommonOptions)
	out = append(out, optionValues(timerange.CalendarOptions)...)
	return append(out, timerange.NoFilter)
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
