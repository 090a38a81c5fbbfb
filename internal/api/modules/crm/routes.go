package crm_module

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the routes for the crm module
func RegisterRoutes(g *gin.RouterGroup) {
	group := g.Group("/api")

	group.GET("/users", getUsers)                          // Account users for filter dropdowns
	group.GET("/loss_reasons", getLossReasons)             // Configured loss reasons
	group.POST("/lead/set_loss_reason", postSetLossReason) // Record why a deal was lost
}
