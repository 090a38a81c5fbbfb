package report

// Params selects the report window and optional manager and pipeline scope.
// DateFrom and DateTo are yyyy-mm-dd in the server's local time; empty means
// an open boundary on that side. ManagerID and PipelineID of 0 mean no
// filter. StaleDays of 0 falls back to the configured default.
type Params struct {
	Subdomain  string
	DateFrom   string
	DateTo     string
	StaleDays  int
	ManagerID  int64
	PipelineID int64
}

// LeadSummary is one deal row in the report. The same shape serves lost, won
// and stale listings. LossReason is a display name and only set on lost rows;
// elsewhere it stays null. For stale rows DaysNoActivity counts from the
// resolved last-activity timestamp, for closed rows from updated_at.
type LeadSummary struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	Price             int64   `json:"price"`
	ResponsibleUserID int64   `json:"responsible_user_id"`
	ResponsibleName   string  `json:"responsible_name"`
	StatusID          int64   `json:"status_id"`
	PipelineID        int64   `json:"pipeline_id"`
	LossReasonID      *int64  `json:"loss_reason_id"`
	LossReason        *string `json:"loss_reason"`
	UpdatedAt         int64   `json:"updated_at"`
	DaysNoActivity    int64   `json:"days_no_activity"`
	URL               string  `json:"url"`
}

// ReasonBucket aggregates the lost deals that share one loss reason name.
type ReasonBucket struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
	Sum    int64  `json:"sum"`
}

// ManagerRow is the per-manager breakdown. Every deal lands in exactly one
// of the won, lost or stale listings.
type ManagerRow struct {
	ManagerID    int64          `json:"manager_id"`
	ManagerName  string         `json:"manager_name"`
	WonCount     int            `json:"won_count"`
	WonSum       int64          `json:"won_sum"`
	WonLeads     []LeadSummary  `json:"won_leads"`
	LostCount    int            `json:"lost_count"`
	LostSum      int64          `json:"lost_sum"`
	LostByReason []ReasonBucket `json:"lost_by_reason"`
	LostLeads    []LeadSummary  `json:"lost_leads"`
	StaleCount   int            `json:"stale_count"`
	StaleSum     int64          `json:"stale_sum"`
	StaleLeads   []LeadSummary  `json:"stale_leads"`
}

// Totals is the account-wide rollup. TotalRiskSum is money already lost in
// the window plus money parked in stale open deals; RiskOpenStaleSum repeats
// the stale part under its historical name for older dashboard clients.
type Totals struct {
	WonCount         int   `json:"won_count"`
	WonSum           int64 `json:"won_sum"`
	LostCount        int   `json:"lost_count"`
	LostSum          int64 `json:"lost_sum"`
	StaleCount       int   `json:"stale_count"`
	StaleSum         int64 `json:"stale_sum"`
	TotalRiskSum     int64 `json:"total_risk_sum"`
	RiskOpenStaleSum int64 `json:"risk_open_stale_sum"`
}

// Report is the full loss-control payload for one account and window.
type Report struct {
	Totals   Totals       `json:"totals"`
	Managers []ManagerRow `json:"managers"`
	Warnings []string     `json:"warnings,omitempty"`
}
