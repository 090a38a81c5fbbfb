package api

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/watereef7/loss-control-backend/internal/platform"
	"github.com/watereef7/loss-control-backend/pkg/utils"

	crm_module "github.com/watereef7/loss-control-backend/internal/api/modules/crm"
	debug_module "github.com/watereef7/loss-control-backend/internal/api/modules/debug"
	health_module "github.com/watereef7/loss-control-backend/internal/api/modules/health"
	oauth_module "github.com/watereef7/loss-control-backend/internal/api/modules/oauth"
	report_module "github.com/watereef7/loss-control-backend/internal/api/modules/report"
	widget_module "github.com/watereef7/loss-control-backend/internal/api/modules/widget"
)

func Start(cfg *utils.Config) {
	// Initialized configuration settings
	port := cfg.GetWithDefault("PORT", "5000")

	// Shared services every module works against
	p, err := platform.New(cfg)
	if err != nil {
		log.Fatal("[API-MAIN]: Failed to build platform: ", err)
	}

	// Add app level settings/routes
	engine := gin.Default()
	engine.NoRoute(noRouteHandler)

	// Add trusted proxies
	engine.SetTrustedProxies(nil)

	// Add CORS using gin-contrib/cors (https://github.com/gin-contrib/cors for documentation)
	engine.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.GetWithDefault("CORS_ALLOWED_ORIGINS", "*"), ","),
		AllowMethods:     []string{"OPTIONS", "GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Root group, module routes carry their own prefixes
	baseGroup := engine.Group("/")

	// Adding custom modules
	health_module.RegisterRoutes(baseGroup)
	if err := health_module.Init(p); err != nil {
		log.Fatal("[API-MAIN]: Failed to initialize health module: ", err)
	}

	debug_module.RegisterRoutes(baseGroup)
	if err := debug_module.Init(p); err != nil {
		log.Fatal("[API-MAIN]: Failed to initialize debug module: ", err)
	}

	widget_module.RegisterRoutes(baseGroup)
	if err := widget_module.Init(p); err != nil {
		log.Fatal("[API-MAIN]: Failed to initialize widget module: ", err)
	}

	oauth_module.RegisterRoutes(baseGroup)
	if err := oauth_module.Init(p); err != nil {
		log.Fatal("[API-MAIN]: Failed to initialize oauth module: ", err)
	}
	defer oauth_module.Stop()

	crm_module.RegisterRoutes(baseGroup)
	if err := crm_module.Init(p); err != nil {
		log.Fatal("[API-MAIN]: Failed to initialize crm module: ", err)
	}

	report_module.RegisterRoutes(baseGroup)
	if err := report_module.Init(p); err != nil {
		log.Fatal("[API-MAIN]: Failed to initialize report module: ", err)
	}

	// Then after performing initial setup, start the server
	if err := engine.Run(":" + port); err != nil {
		log.Fatal("[API-MAIN]: Failed to start server: ", err)
	}
}

// noRouteHandler replies to unknown paths with the standard error envelope
func noRouteHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "not_found", "details": c.Request.URL.Path})
}
