package chartmenu

import (
	"fmt"
	"net/url"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/derickschaefer/timefilter/internal/model"
)

// Menu item keys.
const (
	KeyForceRefresh       = "force_refresh"
	KeyDivider            = "divider"
	KeyToggleDescription  = "toggle_chart_description"
	KeyExploreChart       = "explore_chart"
	KeyCopyURL            = "copy_url"
	KeyShareEmail         = "share_email"
	KeyResize             = "resize_label"
	KeyDownloadAsImage    = "download_as_image"
	KeyExportCSV          = "export_csv"
	KeyCrossFilterScoping = "cross_filter_scoping"
)

// ChartStatusLoading is the chart status that disables force refresh.
const ChartStatusLoading = "loading"

// Slice is the chart a menu is built for.
type Slice struct {
	ID          int    `yaml:"slice_id" json:"slice_id"`
	Name        string `yaml:"slice_name" json:"slice_name"`
	VizType     string `yaml:"viz_type" json:"viz_type"`
	Description string `yaml:"description" json:"description"`
	DashboardID int    `yaml:"dashboard_id" json:"dashboard_id"`
	ComponentID string `yaml:"component_id" json:"component_id"`
	Status      string `yaml:"status" json:"status"`
	FullSize    bool   `yaml:"full_size" json:"full_size"`

	// One entry per query of the chart.
	IsCached  []bool      `yaml:"is_cached" json:"is_cached"`
	CachedAt  []time.Time `yaml:"cached_at" json:"cached_at"`
	UpdatedAt time.Time   `yaml:"updated_at" json:"updated_at"`
}

// Permissions are the viewer's capabilities and enabled feature flags.
type Permissions struct {
	CanExplore   bool `yaml:"can_explore" json:"can_explore"`
	CanShare     bool `yaml:"can_share" json:"can_share"`
	CanCSV       bool `yaml:"can_csv" json:"can_csv"`
	CrossFilters bool `yaml:"cross_filters" json:"cross_filters"`
}

// Build returns the menu items for s in display order.
func Build(s Slice, perms Permissions, reg Registry, now time.Time) []model.MenuItem {
	items := []model.MenuItem{
		{
			Key:      KeyForceRefresh,
			Label:    "Force refresh",
			Disabled: s.Status == ChartStatusLoading,
			Tooltip:  RefreshTooltip(s, now),
		},
		{Key: KeyDivider},
	}
	if s.Description != "" {
		items = append(items, model.MenuItem{Key: KeyToggleDescription, Label: "Toggle chart description"})
	}
	if perms.CanExplore {
		items = append(items, model.MenuItem{Key: KeyExploreChart, Label: "View chart in Explore"})
	}
	if perms.CanShare {
		items = append(items,
			model.MenuItem{Key: KeyCopyURL, Label: "Copy chart URL"},
			model.MenuItem{Key: KeyShareEmail, Label: "Share chart by email"},
		)
	}
	resize := "Maximize chart"
	if s.FullSize {
		resize = "Minimize chart"
	}
	items = append(items,
		model.MenuItem{Key: KeyResize, Label: resize},
		model.MenuItem{Key: KeyDownloadAsImage, Label: "Download as image"},
	)
	if perms.CanCSV {
		items = append(items, model.MenuItem{Key: KeyExportCSV, Label: "Export CSV"})
	}
	if perms.CrossFilters && HasBehavior(reg, s.VizType, InteractiveChart) {
		items = append(items, model.MenuItem{Key: KeyCrossFilterScoping, Label: "Cross-filter scoping"})
	}
	return items
}

// RefreshTooltip describes when each query's data was obtained. Identical
// lines are merged; when more than one distinct line remains each is
// prefixed with its position.
func RefreshTooltip(s Slice, now time.Time) []string {
	seen := make(map[string]bool, len(s.IsCached))
	var lines []string
	for i, cached := range s.IsCached {
		line := ""
		switch {
		case cached && i < len(s.CachedAt) && !s.CachedAt[i].IsZero():
			line = "Cached " + humanize.RelTime(s.CachedAt[i], now, "ago", "from now")
		case cached:
			line = "Cached"
		case !s.UpdatedAt.IsZero():
			line = "Fetched " + humanize.RelTime(s.UpdatedAt, now, "ago", "from now")
		}
		if seen[line] {
			continue
		}
		seen[line] = true
		lines = append(lines, line)
	}
	if len(lines) > 1 {
		for i := range lines {
			lines[i] = fmt.Sprintf("Query %d: %s", i+1, lines[i])
		}
	}
	return lines
}

// ChartURL is the dashboard permalink that scrolls to the chart.
func ChartURL(baseURL string, s Slice) string {
	u := fmt.Sprintf("%ssuperset/dashboard/%d/", baseURL, s.DashboardID)
	if s.ComponentID != "" {
		u += "#" + url.PathEscape(s.ComponentID)
	}
	return u
}

// ShareEmailURL is the mailto link offered by "Share chart by email".
func ShareEmailURL(chartURL string) string {
	q := url.Values{}
	q.Set("Subject", "Superset chart")
	q.Set("Body", "Check out this chart: "+chartURL)
	return "mailto:?" + q.Encode()
}
