package widget_module

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/watereef7/loss-control-backend/internal/platform"
	"github.com/watereef7/loss-control-backend/internal/stores/eventlog"
	"github.com/watereef7/loss-control-backend/pkg/telegram"
)

// WidgetService handles lifecycle callbacks from the CRM widget
type WidgetService struct {
	events   *eventlog.Log
	telegram *telegram.Notifier
}

var service *WidgetService

// requiredInstallFields is what an install callback must carry before it
// counts as a signed-up client.
var requiredInstallFields = []string{"account_id", "subdomain", "user_id", "fio", "email", "phone"}

/** ---- INIT ---- */

// Init wires the widget module to the platform
func Init(p *platform.Platform) error {
	service = &WidgetService{
		events:   p.Events,
		telegram: p.Telegram,
	}
	return nil
}

/** ---- HANDLERS ---- */

// postPing handles POST requests probing the backend from the widget
func postPing(c *gin.Context) {
	data := map[string]any{}
	_ = c.ShouldBindJSON(&data)

	service.events.Append("ping", data)
	c.JSON(http.StatusOK, gin.H{"ok": true, "received": data})
}

// postInstall handles POST requests fired when a client installs the widget.
// Consent and contact fields are mandatory; accepted installs go to the
// journal and to Telegram.
func postInstall(c *gin.Context) {
	data := map[string]any{}
	_ = c.ShouldBindJSON(&data)

	if !truthy(data["consent"]) {
		service.events.Append("install_rejected_no_consent", data)
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "consent_required"})
		return
	}

	missing := []string{}
	for _, k := range requiredInstallFields {
		if !truthy(data[k]) {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		service.events.Append("install_rejected_missing_fields", gin.H{"missing": missing, "data": data})
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing_fields", "missing": missing})
		return
	}

	service.events.Append("install", data)

	text := fmt.Sprintf(
		"🟦 Новый клиент установил Loss Control\n"+
			"subdomain: %v\n"+
			"account_id: %v\n"+
			"user_id: %v\n\n"+
			"ФИО: %v\n"+
			"Email: %v\n"+
			"Телефон: %v\n",
		data["subdomain"], data["account_id"], data["user_id"],
		data["fio"], data["email"], data["phone"])

	if err := service.telegram.Send(c.Request.Context(), text); err != nil {
		log.Printf("[WIDGET]: Warning, could not notify Telegram: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// truthy mirrors how loosely the widget fills its payloads: absent keys,
// empty strings, zero numbers and false all mean "not provided".
func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case float64:
		return x != 0
	case map[string]any:
		return len(x) > 0
	case []any:
		return len(x) > 0
	}
	return true
}
