package debug_module

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"github.com/watereef7/loss-control-backend/internal/platform"
	"github.com/watereef7/loss-control-backend/internal/stores/eventlog"
	"github.com/watereef7/loss-control-backend/pkg/amocrm"
)

// TAIL_LINES is how much of the event journal /debug/last returns.
const TAIL_LINES = 60

// DebugService exposes the service's internals for troubleshooting
type DebugService struct {
	events *eventlog.Log
	tokens amocrm.TokenStore
}

var service *DebugService

/** ---- INIT ---- */

// Init wires the debug module to the platform
func Init(p *platform.Platform) error {
	service = &DebugService{
		events: p.Events,
		tokens: p.Tokens,
	}
	return nil
}

/** ---- HANDLERS ---- */

// getLastEvents handles GET requests for the journal tail
func getLastEvents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "lines": service.events.Tail(TAIL_LINES)})
}

// getTokens handles GET requests for the connection overview. Tokens
// themselves never leave the store, only their presence and expiry.
func getTokens(c *gin.Context) {
	all, err := service.tokens.All()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal_error", "details": err.Error()})
		return
	}

	subdomains := make([]string, 0, len(all))
	for sd := range all {
		subdomains = append(subdomains, sd)
	}
	sort.Strings(subdomains)

	connected := make([]gin.H, 0, len(all))
	for _, sd := range subdomains {
		rec := all[sd]
		connected = append(connected, gin.H{
			"subdomain":        sd,
			"has_access_token": rec.AccessToken != "",
			"expires_at":       rec.ExpiresAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "connected": connected})
}
