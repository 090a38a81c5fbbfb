package oauth_module

import "github.com/gin-gonic/gin"

// RegisterRoutes registers the routes for the oauth module
func RegisterRoutes(g *gin.RouterGroup) {
	group := g.Group("/oauth")

	group.GET("/start", getStart) // Hand out the provider consent URL

	// The provider redirects with GET, marketplace flows post the code
	group.GET("/callback", handleCallback)
	group.POST("/callback", handleCallback)
}
