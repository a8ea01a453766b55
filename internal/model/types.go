// Package model defines the data types shared by the client, the store, the
// renderers and the command tree, plus the result envelope every command
// returns.
package model

import (
	"time"
)

// ─── Superset Entity Types ────────────────────────────────────────────────────

// User is the abbreviated user object Superset embeds in list responses.
type User struct {
	ID        int    `json:"id,omitempty" yaml:"id,omitempty"`
	FirstName string `json:"first_name" yaml:"first_name"`
	LastName  string `json:"last_name" yaml:"last_name"`
}

// FullName returns "First Last", or "" for a nil user.
func (u *User) FullName() string {
	if u == nil {
		return ""
	}
	return u.FirstName + " " + u.LastName
}

// Database is one row of the database list.
type Database struct {
	ID                      int    `json:"id" yaml:"id"`
	DatabaseName            string `json:"database_name" yaml:"database_name"`
	Backend                 string `json:"backend" yaml:"backend"`
	AllowRunAsync           bool   `json:"allow_run_async" yaml:"allow_run_async"`
	AllowDML                bool   `json:"allow_dml" yaml:"allow_dml"`
	AllowCSVUpload          bool   `json:"allow_csv_upload" yaml:"allow_csv_upload"`
	ExposeInSQLLab          bool   `json:"expose_in_sqllab" yaml:"expose_in_sqllab"`
	CreatedBy               *User  `json:"created_by,omitempty" yaml:"created_by,omitempty"`
	ChangedOnDeltaHumanized string `json:"changed_on_delta_humanized" yaml:"changed_on_delta_humanized"`
}

// DatabasePage is one page of a database listing.
type DatabasePage struct {
	Count     int        `json:"count" yaml:"count"`
	Page      int        `json:"page" yaml:"page"`
	PageSize  int        `json:"page_size" yaml:"page_size"`
	Databases []Database `json:"result" yaml:"result"`
}

// RelatedObjects counts the charts and dashboards that depend on a database.
type RelatedObjects struct {
	DatabaseID     int `json:"database_id" yaml:"database_id"`
	ChartCount     int `json:"chart_count" yaml:"chart_count"`
	DashboardCount int `json:"dashboard_count" yaml:"dashboard_count"`
}

// ─── Time Range Types ─────────────────────────────────────────────────────────

// TimeRangeRow is one resolved expression as the CLI and server report it.
type TimeRangeRow struct {
	Expression string `json:"expression" yaml:"expression"`
	Frame      string `json:"frame" yaml:"frame"`
	Since      string `json:"since" yaml:"since"`
	Until      string `json:"until" yaml:"until"`
	Control    string `json:"control" yaml:"control"`
	Tooltip    string `json:"tooltip" yaml:"tooltip"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
	CacheHit   bool   `json:"cache_hit" yaml:"cache_hit"`
}

// FrameRow is the classification of one expression.
type FrameRow struct {
	Expression string      `json:"expression" yaml:"expression"`
	Frame      string      `json:"frame" yaml:"frame"`
	Label      string      `json:"label" yaml:"label"`
	Custom     interface{} `json:"custom,omitempty" yaml:"custom,omitempty"`
}

// SavedRange is a named expression kept in the local store.
type SavedRange struct {
	Name       string    `json:"name" yaml:"name"`
	Expression string    `json:"expression" yaml:"expression"`
	Frame      string    `json:"frame" yaml:"frame"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

// ─── Chart Menu Types ─────────────────────────────────────────────────────────

// MenuItem is one entry of a chart header menu. Dividers have only Key set
// to "divider".
type MenuItem struct {
	Key      string   `json:"key" yaml:"key"`
	Label    string   `json:"label,omitempty" yaml:"label,omitempty"`
	Disabled bool     `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Tooltip  []string `json:"tooltip,omitempty" yaml:"tooltip,omitempty"`
}

// ─── Result Envelope ─────────────────────────────────────────────────────────

// ResultStats carries performance and cache metadata for a command result.
type ResultStats struct {
	CacheHit   bool  `json:"cache_hit" yaml:"cache_hit"`
	DurationMs int64 `json:"duration_ms" yaml:"duration_ms"`
	Items      int   `json:"items" yaml:"items"`
}

// Result is the uniform envelope returned by every command.
// The Data field holds the typed payload; Kind identifies what is in it.
// Renderers switch on Kind to format output appropriately.
type Result struct {
	Kind        string      `json:"kind" yaml:"kind"`
	GeneratedAt time.Time   `json:"generated_at" yaml:"generated_at"`
	Command     string      `json:"command" yaml:"command"`
	Data        interface{} `json:"data" yaml:"data"`
	Warnings    []string    `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Stats       ResultStats `json:"stats" yaml:"stats"`
}

// Kind constants for Result.Kind.
const (
	KindTimeRange  = "time_range"
	KindFrame      = "frame"
	KindDatabase   = "database"
	KindRelated    = "related_objects"
	KindMenu       = "menu"
	KindSavedRange = "saved_range"
)
