package report_module

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/watereef7/loss-control-backend/pkg/report"
)

// getDashboard handles GET requests for the loss-control report
func getDashboard(c *gin.Context) {
	params := report.Params{
		Subdomain: strings.TrimSpace(c.Query("subdomain")),
		DateFrom:  strings.TrimSpace(c.Query("date_from")),
		DateTo:    strings.TrimSpace(c.Query("date_to")),
	}

	if raw := strings.TrimSpace(c.Query("stale_days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "bad_params", "details": "stale_days must be an integer"})
			return
		}
		params.StaleDays = n
	}
	if params.StaleDays <= 0 {
		params.StaleDays = service.builder.Settings().StaleDays
	}

	managerRaw := strings.TrimSpace(c.Query("manager_id"))
	if managerRaw != "" {
		id, err := strconv.ParseInt(managerRaw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "bad_params", "details": "manager_id must be an integer"})
			return
		}
		params.ManagerID = id
	}

	pipelineRaw := strings.TrimSpace(c.Query("pipeline_id"))
	if pipelineRaw != "" {
		id, err := strconv.ParseInt(pipelineRaw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "bad_params", "details": "pipeline_id must be an integer"})
			return
		}
		params.PipelineID = id
	}

	rep, err := service.builder.Build(c.Request.Context(), params)
	if err != nil {
		if errors.Is(err, report.ErrMissingSubdomain) {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing_subdomain"})
			return
		}
		service.events.Append("report_error", gin.H{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal_error", "details": err.Error()})
		return
	}

	resp := gin.H{
		"ok":          true,
		"subdomain":   params.Subdomain,
		"date_from":   params.DateFrom,
		"date_to":     params.DateTo,
		"stale_days":  params.StaleDays,
		"manager_id":  echoOrNil(managerRaw),
		"pipeline_id": echoOrNil(pipelineRaw),
		"totals":      rep.Totals,
		"managers":    rep.Managers,
		"note":        DASHBOARD_NOTE,
	}
	if len(rep.Warnings) > 0 {
		resp["warnings"] = rep.Warnings
	}
	c.JSON(http.StatusOK, resp)
}

// echoOrNil repeats a filter back to the caller, null when it was absent.
func echoOrNil(raw string) any {
	if raw == "" {
		return nil
	}
	return raw
}
