package crm_module

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/watereef7/loss-control-backend/internal/platform"
	"github.com/watereef7/loss-control-backend/internal/stores/eventlog"
	"github.com/watereef7/loss-control-backend/pkg/amocrm"
)

const (
	// DIRECTORY_PAGE_LIMIT is the page size for users and loss reasons.
	DIRECTORY_PAGE_LIMIT = 100

	// DIRECTORY_MAX_PAGES bounds directory pagination.
	DIRECTORY_MAX_PAGES = 10
)

// CrmService proxies the CRM directory lookups the widget frontend needs
type CrmService struct {
	client *amocrm.Client
	events *eventlog.Log
}

var service *CrmService

/** ---- INIT ---- */

// Init wires the crm module to the platform
func Init(p *platform.Platform) error {
	service = &CrmService{
		client: p.Client,
		events: p.Events,
	}
	return nil
}

/** ---- HANDLERS ---- */

// getUsers handles GET requests for the account's user directory
func getUsers(c *gin.Context) {
	subdomain := strings.TrimSpace(c.Query("subdomain"))
	if subdomain == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing_subdomain"})
		return
	}

	opts := amocrm.PageOptions{Limit: DIRECTORY_PAGE_LIMIT, MaxPages: DIRECTORY_MAX_PAGES}
	users, err := service.client.Users(c.Request.Context(), subdomain, nil, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal_error", "details": err.Error()})
		return
	}

	simplified := make([]gin.H, 0, len(users))
	for _, u := range users {
		if u.ID != 0 {
			simplified = append(simplified, gin.H{"id": u.ID, "name": u.Name})
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "users": simplified})
}

// getLossReasons handles GET requests for the account's loss reasons
func getLossReasons(c *gin.Context) {
	subdomain := strings.TrimSpace(c.Query("subdomain"))
	if subdomain == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing_subdomain"})
		return
	}

	opts := amocrm.PageOptions{Limit: DIRECTORY_PAGE_LIMIT, MaxPages: DIRECTORY_MAX_PAGES}
	reasons, err := service.client.LossReasons(c.Request.Context(), subdomain, nil, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal_error", "details": err.Error()})
		return
	}

	simplified := make([]gin.H, 0, len(reasons))
	for _, r := range reasons {
		if r.ID != 0 {
			simplified = append(simplified, gin.H{"id": r.ID, "name": r.Name})
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "reasons": simplified})
}

// postSetLossReason handles POST requests writing a loss reason onto a deal.
// Widgets send ids as numbers or strings, both are accepted.
func postSetLossReason(c *gin.Context) {
	data := map[string]any{}
	_ = c.ShouldBindJSON(&data)

	subdomain := strings.TrimSpace(asString(data["subdomain"]))
	leadID := asInt64(data["lead_id"])
	lossReasonID := asInt64(data["loss_reason_id"])

	if subdomain == "" || leadID == 0 || lossReasonID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"ok":       false,
			"error":    "missing_fields",
			"required": []string{"subdomain", "lead_id", "loss_reason_id"},
		})
		return
	}

	if err := service.client.SetLeadLossReason(c.Request.Context(), subdomain, leadID, lossReasonID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal_error", "details": err.Error()})
		return
	}

	service.events.Append("lead_loss_reason_set", gin.H{
		"subdomain":      subdomain,
		"lead_id":        leadID,
		"loss_reason_id": lossReasonID,
	})
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

/** ---- HELPERS ---- */

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case string:
		i, _ := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i
	}
	return 0
}
