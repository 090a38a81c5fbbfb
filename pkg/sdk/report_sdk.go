package sdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// Dashboard builds the loss-control report for one account and window.
func (c *Client) Dashboard(ctx context.Context, q DashboardQuery) (*DashboardResponse, error) {
	query := url.Values{}
	query.Set("subdomain", q.Subdomain)
	if q.DateFrom != "" {
		query.Set("date_from", q.DateFrom)
	}
	if q.DateTo != "" {
		query.Set("date_to", q.DateTo)
	}
	if q.StaleDays > 0 {
		query.Set("stale_days", strconv.Itoa(q.StaleDays))
	}
	if q.ManagerID != 0 {
		query.Set("manager_id", strconv.FormatInt(q.ManagerID, 10))
	}
	if q.PipelineID != 0 {
		query.Set("pipeline_id", strconv.FormatInt(q.PipelineID, 10))
	}

	var out DashboardResponse
	if err := c.doJSON(ctx, http.MethodGet, "/report/dashboard", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
