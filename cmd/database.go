package cmd

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/timefilter/internal/app"
	"github.com/derickschaefer/timefilter/internal/model"
	"github.com/derickschaefer/timefilter/internal/superset"
	"github.com/derickschaefer/timefilter/internal/util"
)

var databaseCmd = &cobra.Command{
	Use:     "database",
	Aliases: []string{"db"},
	Short:   "List, inspect, and delete Superset database connections",
	Long: `Commands for the database connections registered in Superset.

Deleting a database also breaks the charts and dashboards built on it, so
'database delete' shows their counts and requires --yes.`,
}

// ─── database list ────────────────────────────────────────────────────────────

var databaseList struct {
	Page     int
	PageSize int
	OrderBy  string
	Asc      bool
	Name     string
	SQLLab   bool
	Async    bool
}

var databaseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List database connections, one page at a time",
	Example: `  timefilter database list
  timefilter database list --name prod --page 1 --page-size 50
  timefilter database list --order database_name --asc --format csv
  timefilter database list --expose-in-sqllab --async=false`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.Config.Validate(); err != nil {
			return err
		}

		start := time.Now()
		page, err := deps.Client.ListDatabases(cmd.Context(), listQueryFromFlags(cmd))
		if err != nil {
			return fmt.Errorf("listing databases: %s", superset.ErrorMessage(err))
		}

		result := &model.Result{
			Kind:        model.KindDatabase,
			GeneratedAt: time.Now(),
			Command:     "database list",
			Data:        page,
			Stats: model.ResultStats{
				DurationMs: time.Since(start).Milliseconds(),
				Items:      len(page.Databases),
			},
		}
		return renderResult(cmd, deps, result)
	},
}

// listQueryFromFlags maps the list flags to a query. The boolean filters
// apply only when their flag was given.
func listQueryFromFlags(cmd *cobra.Command) superset.ListQuery {
	q := superset.ListQuery{
		Page:      databaseList.Page,
		PageSize:  databaseList.PageSize,
		OrderBy:   databaseList.OrderBy,
		Ascending: databaseList.Asc,
		Name:      databaseList.Name,
	}
	f := cmd.Flags()
	if f.Changed("expose-in-sqllab") {
		v := databaseList.SQLLab
		q.ExposeInSQLLab = &v
	}
	if f.Changed("async") {
		v := databaseList.Async
		q.AllowRunAsync = &v
	}
	return q
}

// ─── database get ─────────────────────────────────────────────────────────────

var databaseGetCmd = &cobra.Command{
	Use:     "get <id...>",
	Short:   "Show database connections by ID",
	Example: `  timefilter database get 1 2`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.Config.Validate(); err != nil {
			return err
		}
		ids, err := util.ParseIDs(args)
		if err != nil {
			return err
		}

		start := time.Now()
		var dbs []model.Database
		var warnings []string
		for _, id := range ids {
			db, err := deps.Client.GetDatabase(cmd.Context(), id)
			if err != nil {
				warnings = append(warnings, fmt.Sprintf("database %d: %s", id, superset.ErrorMessage(err)))
				continue
			}
			dbs = append(dbs, *db)
		}
		if len(dbs) == 0 {
			return fmt.Errorf("no databases found: %s", strings.Join(warnings, "; "))
		}

		result := &model.Result{
			Kind:        model.KindDatabase,
			GeneratedAt: time.Now(),
			Command:     "database get",
			Data:        dbs,
			Warnings:    warnings,
			Stats: model.ResultStats{
				DurationMs: time.Since(start).Milliseconds(),
				Items:      len(dbs),
			},
		}
		return renderResult(cmd, deps, result)
	},
}

// ─── database related ─────────────────────────────────────────────────────────

var databaseRelatedCmd = &cobra.Command{
	Use:     "related <id>",
	Short:   "Count the charts and dashboards that use a database",
	Example: `  timefilter database related 3`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.Config.Validate(); err != nil {
			return err
		}
		id, err := parseIntID(args[0], "database ID")
		if err != nil {
			return err
		}

		start := time.Now()
		rel, err := deps.Client.DatabaseRelatedObjects(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("database %d: %s", id, superset.ErrorMessage(err))
		}
		result := &model.Result{
			Kind:        model.KindRelated,
			GeneratedAt: time.Now(),
			Command:     fmt.Sprintf("database related %d", id),
			Data:        rel,
			Stats: model.ResultStats{
				DurationMs: time.Since(start).Milliseconds(),
				Items:      1,
			},
		}
		return renderResult(cmd, deps, result)
	},
}

// ─── database delete ──────────────────────────────────────────────────────────

var databaseDeleteYes bool

var databaseDeleteCmd = &cobra.Command{
	Use:   "delete <id...>",
	Short: "Delete database connections",
	Long: `Delete one or more database connections.

Without --yes the command only prints how many charts and dashboards use each
database. With --yes the deletions run concurrently; every failure is
reported.`,
	Example: `  timefilter database delete 3
  timefilter database delete 3,4 --yes`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.Config.Validate(); err != nil {
			return err
		}
		ids, err := util.ParseIDs(args)
		if err != nil {
			return err
		}

		related := batchRelated(cmd.Context(), deps, ids)
		printSimpleTable(cmd.OutOrStdout(), []string{"DATABASE", "CHARTS", "DASHBOARDS"}, func(add func(...string)) {
			for i, id := range ids {
				if related[i] == nil {
					add(fmt.Sprintf("%d", id), "?", "?")
					continue
				}
				add(fmt.Sprintf("%d", id), fmt.Sprintf("%d", related[i].ChartCount), fmt.Sprintf("%d", related[i].DashboardCount))
			}
		})

		if !databaseDeleteYes {
			fmt.Fprintln(cmd.OutOrStdout(), "\nNothing deleted. Re-run with --yes to delete.")
			return nil
		}

		if err := batchDeleteDatabases(cmd.Context(), deps, ids); err != nil {
			return err
		}
		infof(cmd, "✓ Deleted %d database(s)\n", len(ids))
		return nil
	},
}

// ─── database export-url ──────────────────────────────────────────────────────

var databaseExportURLCmd = &cobra.Command{
	Use:     "export-url <id...>",
	Short:   "Print the URL that downloads an export bundle for databases",
	Example: `  timefilter database export-url 1 2`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		ids, err := util.ParseIDs(args)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), deps.Client.ExportDatabasesURL(ids))
		return nil
	},
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

// batchRelated fetches related-object counts concurrently. Entries are nil
// where the lookup failed.
func batchRelated(ctx context.Context, deps *app.Deps, ids []int) []*model.RelatedObjects {
	out := make([]*model.RelatedObjects, len(ids))
	forEachID(ctx, deps, ids, func(ctx context.Context, i, id int) error {
		rel, err := deps.Client.DatabaseRelatedObjects(ctx, id)
		if err == nil {
			out[i] = rel
		}
		return err
	})
	return out
}

// batchDeleteDatabases deletes concurrently and collects every failure.
func batchDeleteDatabases(ctx context.Context, deps *app.Deps, ids []int) error {
	errs := forEachID(ctx, deps, ids, func(ctx context.Context, _, id int) error {
		return deps.Client.DeleteDatabase(ctx, id)
	})
	var me util.MultiError
	for i, err := range errs {
		if err != nil {
			me.Add(fmt.Errorf("database %d: %s", ids[i], superset.ErrorMessage(err)))
		}
	}
	return me.Err()
}

// forEachID runs fn for every id with at most Config.Concurrency in flight
// and returns the per-id errors in input order.
func forEachID(ctx context.Context, deps *app.Deps, ids []int, fn func(ctx context.Context, i, id int) error) []error {
	concurrency := deps.Config.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	sem := make(chan struct{}, concurrency)
	errs := make([]error, len(ids))
	var wg sync.WaitGroup

	for i, id := range ids {
		i, id := i, id
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			errs[i] = fn(ctx, i, id)
		}()
	}
	wg.Wait()
	return errs
}

// ─── Registration ─────────────────────────────────────────────────────────────

func init() {
	rootCmd.AddCommand(databaseCmd)
	databaseCmd.AddCommand(databaseListCmd)
	databaseCmd.AddCommand(databaseGetCmd)
	databaseCmd.AddCommand(databaseRelatedCmd)
	databaseCmd.AddCommand(databaseDeleteCmd)
	databaseCmd.AddCommand(databaseExportURLCmd)

	lf := databaseListCmd.Flags()
	lf.IntVar(&databaseList.Page, "page", 0, "zero-based page number")
	lf.IntVar(&databaseList.PageSize, "page-size", superset.DefaultPageSize, "rows per page")
	lf.StringVar(&databaseList.OrderBy, "order", "", "order column (default: changed_on_delta_humanized)")
	lf.BoolVar(&databaseList.Asc, "asc", false, "sort ascending (default: descending)")
	lf.StringVar(&databaseList.Name, "name", "", "only databases whose name contains this text")
	lf.BoolVar(&databaseList.SQLLab, "expose-in-sqllab", false, "only databases exposed (or, with =false, hidden) in SQL Lab")
	lf.BoolVar(&databaseList.Async, "async", false, "only databases that do (or, with =false, do not) run queries asynchronously")

	databaseDeleteCmd.Flags().BoolVar(&databaseDeleteYes, "yes", false, "confirm deletion")
}
