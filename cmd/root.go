// Package cmd implements the timefilter CLI command tree.
// This file defines the root command and registers all global persistent flags.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/timefilter/internal/app"
	"github.com/derickschaefer/timefilter/internal/config"
)

// globalFlags holds the parsed values of all persistent (global) flags.
// Commands read from this struct via the deps they receive.
var globalFlags struct {
	URL         string
	Token       string
	Format      string
	Out         string
	NoCache     bool
	Refresh     bool
	Timeout     string
	Concurrency int
	Rate        float64
	Endpoints   string
	Quiet       bool
	Verbose     bool
	Debug       bool
}

// rootCmd is the base command. Running `timefilter` with no subcommand
// prints help.
var rootCmd = &cobra.Command{
	Use:   "timefilter",
	Short: "timefilter — Superset time-range filter toolkit",
	Long: `timefilter interprets Apache Superset time-range expressions.

It guesses the frame an expression belongs to, resolves it to absolute
bounds through a Superset instance, edits ranges interactively, and keeps
named ranges and resolved results in a local database.

Quick start:
  timefilter config init                   # create a config.json
  timefilter frame "Last week"             # classify an expression
  timefilter resolve "Last week"           # resolve through Superset
  timefilter edit "previous calendar week" # open the interactive editor`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if globalFlags.Debug {
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		}
	},
}

// Execute is the entry point called by main.
func Execute() {
	registerCompletions()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// buildDeps resolves config and constructs the dependency container.
// Called at the start of each command's RunE.
func buildDeps() (*app.Deps, error) {
	cfg, err := config.Load(globalFlags.URL, globalFlags.Token)
	if err != nil {
		return nil, err
	}

	// Apply CLI flag overrides
	cfg.NoCache = globalFlags.NoCache
	cfg.Refresh = globalFlags.Refresh
	cfg.Quiet = globalFlags.Quiet
	cfg.Verbose = globalFlags.Verbose
	cfg.Debug = globalFlags.Debug

	if globalFlags.Format != "" {
		cfg.Format = globalFlags.Format
	}
	if globalFlags.Timeout != "" {
		d, err := time.ParseDuration(globalFlags.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid --timeout %q: %w", globalFlags.Timeout, err)
		}
		cfg.Timeout = d
	}
	if globalFlags.Concurrency > 0 {
		cfg.Concurrency = globalFlags.Concurrency
	}
	if globalFlags.Rate > 0 {
		cfg.Rate = globalFlags.Rate
	}
	if globalFlags.Endpoints != "" {
		cfg.Endpoints = globalFlags.Endpoints
	}

	return app.New(cfg), nil
}

func init() {
	pf := rootCmd.PersistentFlags()

	pf.StringVar(&globalFlags.URL, "url", "",
		"Superset base URL (overrides env SUPERSET_URL and config.json)")
	pf.StringVar(&globalFlags.Token, "token", "",
		"Superset access token (overrides env SUPERSET_ACCESS_TOKEN and config.json)")
	pf.StringVar(&globalFlags.Format, "format", "",
		"output format: table|json|jsonl|csv|tsv|md|yaml (default: table)")
	pf.StringVar(&globalFlags.Out, "out", "",
		"write output to file instead of stdout")
	pf.BoolVar(&globalFlags.NoCache, "no-cache", false,
		"bypass cache reads (still writes results to cache)")
	pf.BoolVar(&globalFlags.Refresh, "refresh", false,
		"force re-resolution and overwrite cached entries")
	pf.StringVar(&globalFlags.Timeout, "timeout", "",
		"HTTP request timeout (e.g. 30s, 2m)")
	pf.IntVar(&globalFlags.Concurrency, "concurrency", 0,
		"max parallel requests for batch operations (default: 4)")
	pf.Float64Var(&globalFlags.Rate, "rate", 0,
		"max API requests per second (default: 5.0)")
	pf.StringVar(&globalFlags.Endpoints, "endpoints", "",
		"bound inclusivity as start,end (e.g. inclusive,exclusive)")
	pf.BoolVar(&globalFlags.Quiet, "quiet", false,
		"suppress all non-error output")
	pf.BoolVar(&globalFlags.Verbose, "verbose", false,
		"show cache/timing stats after output")
	pf.BoolVar(&globalFlags.Debug, "debug", false,
		"log HTTP requests and responses (token redacted)")
}
