package report_module

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the routes for the report module
func RegisterRoutes(g *gin.RouterGroup) {
	group := g.Group("/report")

	group.GET("/dashboard", getDashboard) // Full loss-control report
}
