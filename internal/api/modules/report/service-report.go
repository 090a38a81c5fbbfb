package report_module

import (
	"github.com/watereef7/loss-control-backend/internal/platform"
	"github.com/watereef7/loss-control-backend/internal/stores/eventlog"
	"github.com/watereef7/loss-control-backend/pkg/report"
)

// DASHBOARD_NOTE documents the staleness rule for dashboard consumers.
const DASHBOARD_NOTE = "stale uses: no open tasks AND no activity signals (tasks/notes/events) newer than N days (v3)."

// ReportService builds dashboards on request
type ReportService struct {
	builder *report.Builder
	events  *eventlog.Log
}

var service *ReportService

/** ---- INIT ---- */

// Init wires the report module to the platform
func Init(p *platform.Platform) error {
	service = &ReportService{
		builder: p.Report,
		events:  p.Events,
	}
	return nil
}
