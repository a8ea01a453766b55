package chartmenu_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/derickschaefer/timefilter/internal/chartmenu"
	"github.com/derickschaefer/timefilter/internal/model"
)

var now = time.Date(2021, 4, 12, 12, 0, 0, 0, time.UTC)

func keys(items []model.MenuItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Key
	}
	return out
}

// ─── Registry ─────────────────────────────────────────────────────────────────

func TestDefaultRegistryInteractive(t *testing.T) {
	reg := chartmenu.DefaultRegistry()
	if !chartmenu.HasBehavior(reg, "table", chartmenu.InteractiveChart) {
		t.Error("table should be interactive")
	}
	if chartmenu.HasBehavior(reg, "big_number", chartmenu.InteractiveChart) {
		t.Error("big_number should not be interactive")
	}
	if chartmenu.HasBehavior(reg, "unknown_viz", chartmenu.InteractiveChart) {
		t.Error("unknown viz types have no behaviors")
	}
	if chartmenu.HasBehavior(nil, "table", chartmenu.InteractiveChart) {
		t.Error("nil registry has no behaviors")
	}
}

func TestLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charts.yaml")
	body := `charts:
  - viz_type: my_chart
    name: My Chart
    behaviors: [INTERACTIVE_CHART, NATIVE_FILTER]
  - viz_type: plain
    name: Plain
`
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	reg, err := chartmenu.LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if got := reg.Behaviors("my_chart"); !reflect.DeepEqual(got, []chartmenu.Behavior{chartmenu.InteractiveChart, chartmenu.NativeFilter}) {
		t.Errorf("my_chart behaviors: %v", got)
	}
	if len(reg.Behaviors("plain")) != 0 {
		t.Error("plain should have no behaviors")
	}
	charts := reg.Charts()
	if len(charts) != 2 || charts[0].VizType != "my_chart" {
		t.Errorf("Charts: %+v", charts)
	}
}

func TestParseRegistryErrors(t *testing.T) {
	if _, err := chartmenu.ParseRegistry([]byte("charts: [")); err == nil {
		t.Error("expected YAML error")
	}
	if _, err := chartmenu.ParseRegistry([]byte("charts:\n  - name: nameless\n")); err == nil {
		t.Error("expected error for missing viz_type")
	}
	if _, err := chartmenu.LoadRegistry(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

// ─── Build ────────────────────────────────────────────────────────────────────

func TestBuildMinimal(t *testing.T) {
	items := chartmenu.Build(chartmenu.Slice{ID: 1, VizType: "big_number"}, chartmenu.Permissions{}, chartmenu.DefaultRegistry(), now)
	want := []string{"force_refresh", "divider", "resize_label", "download_as_image"}
	if got := keys(items); !reflect.DeepEqual(got, want) {
		t.Errorf("keys: expected %v, got %v", want, got)
	}
	if items[2].Label != "Maximize chart" {
		t.Errorf("resize label: got %q", items[2].Label)
	}
}

func TestBuildFullOrder(t *testing.T) {
	s := chartmenu.Slice{ID: 1, VizType: "table", Description: "d", FullSize: true}
	perms := chartmenu.Permissions{CanExplore: true, CanShare: true, CanCSV: true, CrossFilters: true}
	items := chartmenu.Build(s, perms, chartmenu.DefaultRegistry(), now)
	want := []string{
		"force_refresh", "divider", "toggle_chart_description", "explore_chart",
		"copy_url", "share_email", "resize_label", "download_as_image",
		"export_csv", "cross_filter_scoping",
	}
	if got := keys(items); !reflect.DeepEqual(got, want) {
		t.Errorf("keys:\n  expected %v\n  got      %v", want, got)
	}
	if items[6].Label != "Minimize chart" {
		t.Errorf("resize label: got %q", items[6].Label)
	}
}

func TestBuildCrossFilterNeedsFlagAndBehavior(t *testing.T) {
	reg := chartmenu.DefaultRegistry()
	has := func(s chartmenu.Slice, p chartmenu.Permissions) bool {
		for _, it := range chartmenu.Build(s, p, reg, now) {
			if it.Key == chartmenu.KeyCrossFilterScoping {
				return true
			}
		}
		return false
	}
	if has(chartmenu.Slice{VizType: "table"}, chartmenu.Permissions{}) {
		t.Error("flag off: no cross-filter item")
	}
	if has(chartmenu.Slice{VizType: "big_number"}, chartmenu.Permissions{CrossFilters: true}) {
		t.Error("non-interactive viz: no cross-filter item")
	}
	if !has(chartmenu.Slice{VizType: "pie"}, chartmenu.Permissions{CrossFilters: true}) {
		t.Error("flag on and interactive: expected cross-filter item")
	}
}

func TestBuildRefreshDisabledWhileLoading(t *testing.T) {
	items := chartmenu.Build(chartmenu.Slice{Status: chartmenu.ChartStatusLoading}, chartmenu.Permissions{}, nil, now)
	if !items[0].Disabled {
		t.Error("force refresh should be disabled while loading")
	}
	items = chartmenu.Build(chartmenu.Slice{Status: "success"}, chartmenu.Permissions{}, nil, now)
	if items[0].Disabled {
		t.Error("force refresh should be enabled once loaded")
	}
}

// ─── RefreshTooltip ───────────────────────────────────────────────────────────

func TestRefreshTooltipSingleCached(t *testing.T) {
	s := chartmenu.Slice{IsCached: []bool{true}, CachedAt: []time.Time{now.Add(-2 * time.Minute)}}
	got := chartmenu.RefreshTooltip(s, now)
	if !reflect.DeepEqual(got, []string{"Cached 2 minutes ago"}) {
		t.Errorf("got %v", got)
	}
}

func TestRefreshTooltipMergesIdenticalLines(t *testing.T) {
	at := now.Add(-3 * time.Hour)
	s := chartmenu.Slice{IsCached: []bool{true, true}, CachedAt: []time.Time{at, at}}
	got := chartmenu.RefreshTooltip(s, now)
	if !reflect.DeepEqual(got, []string{"Cached 3 hours ago"}) {
		t.Errorf("identical lines should merge without a prefix, got %v", got)
	}
}

func TestRefreshTooltipNumbersDistinctLines(t *testing.T) {
	s := chartmenu.Slice{
		IsCached:  []bool{true, false},
		CachedAt:  []time.Time{now.Add(-2 * time.Minute), {}},
		UpdatedAt: now.Add(-time.Hour),
	}
	got := chartmenu.RefreshTooltip(s, now)
	want := []string{"Query 1: Cached 2 minutes ago", "Query 2: Fetched 1 hour ago"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestRefreshTooltipNeverFetched(t *testing.T) {
	got := chartmenu.RefreshTooltip(chartmenu.Slice{IsCached: []bool{false}}, now)
	if !reflect.DeepEqual(got, []string{""}) {
		t.Errorf("expected a single empty line, got %q", got)
	}
	if got := chartmenu.RefreshTooltip(chartmenu.Slice{}, now); len(got) != 0 {
		t.Errorf("no queries: expected no lines, got %q", got)
	}
}

// ─── URLs ─────────────────────────────────────────────────────────────────────

func TestChartURLs(t *testing.T) {
	s := chartmenu.Slice{DashboardID: 5, ComponentID: "CHART-abc"}
	u := chartmenu.ChartURL("http://superset/", s)
	if u != "http://superset/superset/dashboard/5/#CHART-abc" {
		t.Errorf("ChartURL: got %q", u)
	}
	mail := chartmenu.ShareEmailURL(u)
	if !strings.HasPrefix(mail, "mailto:?") || !strings.Contains(mail, "Subject=Superset+chart") {
		t.Errorf("ShareEmailURL: got %q", mail)
	}
}

// ─── Dispatch ─────────────────────────────────────────────────────────────────

type recorder struct{ calls []string }

func (r *recorder) rec(s string) error { r.calls = append(r.calls, s); return nil }

func (r *recorder) ForceRefresh(int, int) error { return r.rec("refresh") }
func (r *recorder) ToggleExpand(int) error { return r.rec("expand") }
func (r *recorder) Explore(int) error { return r.rec("explore") }
func (r *recorder) CopyURL(u string) error { return r.rec("copy " + u) }
func (r *recorder) ShareByEmail(string) error { return r.rec("email") }
func (r *recorder) ToggleFullSize(int) error { return r.rec("resize") }
func (r *recorder) DownloadImage(int, string) error { return r.rec("image") }
func (r *recorder) ExportCSV(int) error { return r.rec("csv") }
func (r *recorder) OpenCrossFilterScoping(int) error { return r.rec("scoping") }

func TestDispatch(t *testing.T) {
	s := chartmenu.Slice{ID: 3, DashboardID: 5, VizType: "table", UpdatedAt: now}
	perms := chartmenu.Permissions{CanShare: true, CanCSV: true, CrossFilters: true}
	reg := chartmenu.DefaultRegistry()
	r := &recorder{}

	for _, k := range []string{chartmenu.KeyForceRefresh, chartmenu.KeyCopyURL, chartmenu.KeyExportCSV, chartmenu.KeyCrossFilterScoping} {
		if err := chartmenu.Dispatch(k, s, perms, reg, "http://superset/", r); err != nil {
			t.Errorf("Dispatch(%s): %v", k, err)
		}
	}
	want := []string{"refresh", "copy http://superset/superset/dashboard/5/", "csv", "scoping"}
	if !reflect.DeepEqual(r.calls, want) {
		t.Errorf("calls: expected %v, got %v", want, r.calls)
	}
}

func TestDispatchRejectsAbsentItems(t *testing.T) {
	r := &recorder{}
	s := chartmenu.Slice{ID: 3, VizType: "table"}
	err := chartmenu.Dispatch(chartmenu.KeyExploreChart, s, chartmenu.Permissions{}, nil, "", r)
	if !errors.Is(err, chartmenu.ErrUnknownKey) {
		t.Errorf("explore without permission: expected ErrUnknownKey, got %v", err)
	}
	err = chartmenu.Dispatch(chartmenu.KeyForceRefresh, chartmenu.Slice{Status: chartmenu.ChartStatusLoading}, chartmenu.Permissions{}, nil, "", r)
	if !errors.Is(err, chartmenu.ErrUnknownKey) {
		t.Errorf("disabled refresh: expected ErrUnknownKey, got %v", err)
	}
	if len(r.calls) != 0 {
		t.Errorf("no actions expected, got %v", r.calls)
	}
}

func TestDispatchRefreshNeverFetchedIsNoop(t *testing.T) {
	r := &recorder{}
	if err := chartmenu.Dispatch(chartmenu.KeyForceRefresh, chartmenu.Slice{ID: 1}, chartmenu.Permissions{}, nil, "", r); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(r.calls) != 0 {
		t.Errorf("refresh of an unfetched chart should be a no-op, got %v", r.calls)
	}
}
