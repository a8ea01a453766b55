package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/derickschaefer/timefilter/internal/chartmenu"
	"github.com/derickschaefer/timefilter/internal/model"
)

// menuInput is the document read by `timefilter menu`. JSON is accepted
// too, since it parses as YAML.
type menuInput struct {
	Slice       chartmenu.Slice       `yaml:"slice"`
	Permissions chartmenu.Permissions `yaml:"permissions"`
}

// ─── menu ─────────────────────────────────────────────────────────────────────

var (
	menuFile     string
	menuDispatch string
)

var menuCmd = &cobra.Command{
	Use:   "menu",
	Short: "Build the header menu of a dashboard chart",
	Long: `Build the header menu a dashboard shows for one chart, from a YAML or JSON
description of the chart and the viewer's permissions:

  slice:
    slice_id: 42
    slice_name: Sales
    viz_type: echarts_timeseries
    dashboard_id: 7
    component_id: CHART-abc
    is_cached: [true, false]
    cached_at: [2024-03-01T10:00:00Z]
    updated_at: 2024-03-01T10:05:00Z
  permissions:
    can_explore: true
    can_share: true
    can_csv: true
    cross_filters: true

Cross-filter scoping is offered only for chart types the registry marks
INTERACTIVE_CHART; set registry_path to use a custom registry file.

With --dispatch the action behind a menu key is run and described instead.`,
	Example: `  timefilter menu --file chart.yaml
  timefilter menu --file chart.yaml --format json
  timefilter menu --file chart.yaml --dispatch copy_url`,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		in, err := readMenuInput(menuFile)
		if err != nil {
			return err
		}
		reg, err := deps.Registry()
		if err != nil {
			return err
		}

		if menuDispatch != "" {
			a := &menuPrinter{w: cmd.OutOrStdout(), baseURL: deps.Client.BaseURL()}
			return chartmenu.Dispatch(menuDispatch, in.Slice, in.Permissions, reg, deps.Client.BaseURL(), a)
		}

		items := chartmenu.Build(in.Slice, in.Permissions, reg, time.Now())
		result := &model.Result{
			Kind:        model.KindMenu,
			GeneratedAt: time.Now(),
			Command:     fmt.Sprintf("menu %d", in.Slice.ID),
			Data:        items,
			Stats:       model.ResultStats{Items: len(items)},
		}
		return renderResult(cmd, deps, result)
	},
}

func readMenuInput(path string) (*menuInput, error) {
	if path == "" {
		return nil, fmt.Errorf("--file is required")
	}
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var in menuInput
	if err := yaml.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &in, nil
}

// menuPrinter describes each action instead of performing it.
type menuPrinter struct {
	w       io.Writer
	baseURL string
}

func (p *menuPrinter) ForceRefresh(sliceID, dashboardID int) error {
	_, err := fmt.Fprintf(p.w, "refresh chart %d on dashboard %d\n", sliceID, dashboardID)
	return err
}

func (p *menuPrinter) ToggleExpand(sliceID int) error {
	_, err := fmt.Fprintf(p.w, "toggle description of chart %d\n", sliceID)
	return err
}

func (p *menuPrinter) Explore(sliceID int) error {
	_, err := fmt.Fprintf(p.w, "%sexplore/?slice_id=%d\n", p.baseURL, sliceID)
	return err
}

func (p *menuPrinter) CopyURL(url string) error {
	_, err := fmt.Fprintln(p.w, url)
	return err
}

func (p *menuPrinter) ShareByEmail(mailto string) error {
	_, err := fmt.Fprintln(p.w, mailto)
	return err
}

func (p *menuPrinter) ToggleFullSize(sliceID int) error {
	_, err := fmt.Fprintf(p.w, "toggle full size of chart %d\n", sliceID)
	return err
}

func (p *menuPrinter) DownloadImage(sliceID int, name string) error {
	_, err := fmt.Fprintf(p.w, "download chart %d as image %q\n", sliceID, name+".jpg")
	return err
}

func (p *menuPrinter) ExportCSV(sliceID int) error {
	_, err := fmt.Fprintf(p.w, "export chart %d as CSV\n", sliceID)
	return err
}

func (p *menuPrinter) OpenCrossFilterScoping(sliceID int) error {
	_, err := fmt.Fprintf(p.w, "open cross-filter scoping for chart %d\n", sliceID)
	return err
}

func init() {
	rootCmd.AddCommand(menuCmd)
	menuCmd.Flags().StringVar(&menuFile, "file", "", "chart and permission description (YAML or JSON; - for stdin)")
	menuCmd.Flags().StringVar(&menuDispatch, "dispatch", "", "run the action behind a menu key")
}
