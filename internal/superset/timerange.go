package superset

import (
	"context"
	"fmt"
	"net/url"

	"github.com/derickschaefer/timefilter/internal/rison"
)

// ─── Time Range ───────────────────────────────────────────────────────────────

// EvaluateTimeRange asks Superset to turn expr into absolute bounds. Missing
// bounds come back as empty strings.
func (c *Client) EvaluateTimeRange(ctx context.Context, expr string) (since, until string, err error) {
	q, err := rison.Encode(expr)
	if err != nil {
		return "", "", err
	}
	params := url.Values{}
	params.Set("q", q)

	var raw struct {
		Result struct {
			Since     *string `json:"since"`
			Until     *string `json:"until"`
			TimeRange string  `json:"timeRange"`
		} `json:"result"`
	}
	if err := c.get(ctx, "api/v1/time_range/", params, &raw); err != nil {
		return "", "", fmt.Errorf("time range %q: %w", expr, err)
	}
	if raw.Result.Since != nil {
		since = *raw.Result.Since
	}
	if raw.Result.Until != nil {
		until = *raw.Result.Until
	}
	return since, until, nil
}
