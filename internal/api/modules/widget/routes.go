package widget_module

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the routes for the widget module
func RegisterRoutes(g *gin.RouterGroup) {
	group := g.Group("/widget")

	group.POST("/ping", postPing)       // Connectivity check from the widget
	group.POST("/install", postInstall) // Install event with client contact data
}
