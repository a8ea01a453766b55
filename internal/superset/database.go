package superset

import (
	"context"
	"fmt"
	"net/url"

	"github.com/derickschaefer/timefilter/internal/model"
	"github.com/derickschaefer/timefilter/internal/rison"
)

// ─── Databases ────────────────────────────────────────────────────────────────

// DefaultPageSize matches the page size of the database list view.
const DefaultPageSize = 25

// ListQuery holds optional parameters for ListDatabases.
type ListQuery struct {
	Page      int
	PageSize  int
	OrderBy   string // default changed_on_delta_humanized
	Ascending bool
	Name      string // database_name contains

	// Nil leaves the column unfiltered.
	ExposeInSQLLab *bool
	AllowRunAsync  *bool
}

type listFilter struct {
	Col   string      `json:"col"`
	Opr   string      `json:"opr"`
	Value interface{} `json:"value"`
}

type listParams struct {
	OrderColumn    string       `json:"order_column"`
	OrderDirection string       `json:"order_direction"`
	Page           int          `json:"page"`
	PageSize       int          `json:"page_size"`
	Filters        []listFilter `json:"filters,omitempty"`
}

// encode builds the rison q parameter for a list request.
func (q ListQuery) encode() (string, error) {
	p := listParams{
		OrderColumn:    q.OrderBy,
		OrderDirection: "desc",
		Page:           q.Page,
		PageSize:       q.PageSize,
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.OrderColumn == "" {
		p.OrderColumn = "changed_on_delta_humanized"
	}
	if q.Ascending {
		p.OrderDirection = "asc"
	}
	if q.ExposeInSQLLab != nil {
		p.Filters = append(p.Filters, listFilter{Col: "expose_in_sqllab", Opr: "eq", Value: *q.ExposeInSQLLab})
	}
	if q.AllowRunAsync != nil {
		p.Filters = append(p.Filters, listFilter{Col: "allow_run_async", Opr: "eq", Value: *q.AllowRunAsync})
	}
	if q.Name != "" {
		p.Filters = append(p.Filters, listFilter{Col: "database_name", Opr: "ct", Value: q.Name})
	}
	return rison.Encode(p)
}

// ListDatabases returns one page of databases.
func (c *Client) ListDatabases(ctx context.Context, q ListQuery) (*model.DatabasePage, error) {
	enc, err := q.encode()
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("q", enc)

	var raw struct {
		Count  int              `json:"count"`
		Result []model.Database `json:"result"`
	}
	if err := c.get(ctx, "api/v1/database/", params, &raw); err != nil {
		return nil, fmt.Errorf("database list: %w", err)
	}
	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	return &model.DatabasePage{
		Count:     raw.Count,
		Page:      q.Page,
		PageSize:  size,
		Databases: raw.Result,
	}, nil
}

// GetDatabase fetches a single database by ID.
func (c *Client) GetDatabase(ctx context.Context, id int) (*model.Database, error) {
	var raw struct {
		ID     int            `json:"id"`
		Result model.Database `json:"result"`
	}
	if err := c.get(ctx, fmt.Sprintf("api/v1/database/%d", id), nil, &raw); err != nil {
		return nil, fmt.Errorf("database %d: %w", id, err)
	}
	db := raw.Result
	if db.ID == 0 {
		db.ID = id
	}
	return &db, nil
}

// DatabaseRelatedObjects counts the charts and dashboards using a database.
func (c *Client) DatabaseRelatedObjects(ctx context.Context, id int) (*model.RelatedObjects, error) {
	var raw struct {
		Charts struct {
			Count int `json:"count"`
		} `json:"charts"`
		Dashboards struct {
			Count int `json:"count"`
		} `json:"dashboards"`
	}
	if err := c.get(ctx, fmt.Sprintf("api/v1/database/%d/related_objects/", id), nil, &raw); err != nil {
		return nil, fmt.Errorf("database %d related objects: %w", id, err)
	}
	return &model.RelatedObjects{
		DatabaseID:     id,
		ChartCount:     raw.Charts.Count,
		DashboardCount: raw.Dashboards.Count,
	}, nil
}

// DeleteDatabase removes a database.
func (c *Client) DeleteDatabase(ctx context.Context, id int) error {
	if err := c.delete(ctx, fmt.Sprintf("api/v1/database/%d", id), nil); err != nil {
		return fmt.Errorf("deleting database %d: %w", id, err)
	}
	return nil
}

// ExportDatabasesURL returns the URL that downloads an export bundle of the
// given databases.
func (c *Client) ExportDatabasesURL(ids []int) string {
	params := url.Values{}
	params.Set("q", rison.MustEncode(ids))
	return c.baseURL + "api/v1/database/export/?" + params.Encode()
}
