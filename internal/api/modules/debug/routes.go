package debug_module

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the routes for the debug module
func RegisterRoutes(g *gin.RouterGroup) {
	group := g.Group("/debug")

	group.GET("/last", getLastEvents) // Tail of the event journal
	group.GET("/tokens", getTokens)   // Which accounts are connected
}
