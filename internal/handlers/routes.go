package handlers

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the API under basePath and the login flow under /auth
func RegisterRoutes(router *gin.Engine, basePath string, authHandler *AuthHandler, discoverHandler *DiscoverHandler, ratingsHandler *RatingsHandler) {
	// Authentication routes
	authRoutes := router.Group("/auth")
	{
		if authHandler.LoginEnabled() {
			authRoutes.GET("/login", authHandler.Login)
			authRoutes.GET("/callback", authHandler.Callback)
		}
		authRoutes.POST("/logout", authHandler.Logout)
		authRoutes.GET("/me", authHandler.AuthMiddleware(), authHandler.Me)
	}

	api := router.Group(basePath)

	// Public API routes (authentication optional)
	api.GET("/games/discover", authHandler.OptionalAuthMiddleware(), discoverHandler.GetDiscover)

	// API routes (protected)
	protected := api.Group("")
	protected.Use(authHandler.AuthMiddleware())
	{
		protected.POST("/rate", ratingsHandler.Rate)
		protected.GET("/me/ratings", ratingsHandler.MyRatings)

		// Admin endpoints
		protected.POST("/admin/refresh-catalog", ratingsHandler.RefreshCatalog)
	}
}
