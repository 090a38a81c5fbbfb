package sdk

import (
	"github.com/watereef7/loss-control-backend/pkg/report"
)

// DTOs mirroring the backend's JSON responses. Every payload carries an "ok"
// flag; error payloads carry "error" and "details" instead and are surfaced
// by the client as APIError.

// ServiceInfo is the service card from GET /.
type ServiceInfo struct {
	OK        bool     `json:"ok"`
	Service   string   `json:"service"`
	DataDir   string   `json:"data_dir"`
	Endpoints []string `json:"endpoints"`
}

// HealthResponse is the reply of GET /health.
type HealthResponse struct {
	OK bool `json:"ok"`
}

// User is one account user from GET /api/users.
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type UsersResponse struct {
	OK    bool   `json:"ok"`
	Users []User `json:"users"`
}

// LossReason is one configured loss reason from GET /api/loss_reasons.
type LossReason struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type LossReasonsResponse struct {
	OK      bool         `json:"ok"`
	Reasons []LossReason `json:"reasons"`
}

// SetLossReasonRequest is the body of POST /api/lead/set_loss_reason.
type SetLossReasonRequest struct {
	Subdomain    string `json:"subdomain"`
	LeadID       int64  `json:"lead_id"`
	LossReasonID int64  `json:"loss_reason_id"`
}

// ConnectedAccount is one row of GET /debug/tokens.
type ConnectedAccount struct {
	Subdomain      string `json:"subdomain"`
	HasAccessToken bool   `json:"has_access_token"`
	ExpiresAt      int64  `json:"expires_at"`
}

type TokensResponse struct {
	OK        bool               `json:"ok"`
	Connected []ConnectedAccount `json:"connected"`
}

// LastEventsResponse is the reply of GET /debug/last, the tail of the
// backend's event journal.
type LastEventsResponse struct {
	OK    bool     `json:"ok"`
	Lines []string `json:"lines"`
}

// DashboardQuery selects the report window for GET /report/dashboard.
type DashboardQuery struct {
	Subdomain  string
	DateFrom   string
	DateTo     string
	StaleDays  int
	ManagerID  int64
	PipelineID int64
}

// DashboardResponse is the reply of GET /report/dashboard. ManagerID echoes
// the raw filter value and is null when the request had none.
type DashboardResponse struct {
	OK        bool                `json:"ok"`
	Subdomain string              `json:"subdomain"`
	DateFrom  string              `json:"date_from"`
	DateTo    string              `json:"date_to"`
	StaleDays int                 `json:"stale_days"`
	ManagerID *string             `json:"manager_id"`
	Totals    report.Totals       `json:"totals"`
	Managers  []report.ManagerRow `json:"managers"`
	Warnings  []string            `json:"warnings,omitempty"`
	Note      string              `json:"note"`
}
