package health

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/watereef7/loss-control-backend/internal/platform"
)

const serviceName = "loss-control-backend"

// endpoints is the service card listing shown on the root route.
var endpoints = []string{
	"/health (GET)",
	"/debug/last (GET)",
	"/debug/tokens (GET)",
	"/widget/ping (POST)",
	"/widget/install (POST)",
	"/oauth/start (GET)",
	"/oauth/callback (GET/POST)",
	"/api/users (GET)",
	"/api/loss_reasons (GET)",
	"/api/lead/set_loss_reason (POST)",
	"/report/dashboard (GET)",
}

var dataDir string

// Init wires the health module to the platform
func Init(p *platform.Platform) error {
	dataDir = p.DataDir
	return nil
}

// getService handles GET requests for the service card
func getService(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"service":   serviceName,
		"data_dir":  dataDir,
		"endpoints": endpoints,
	})
}

// getStatus handles GET requests for the liveness probe
func getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
