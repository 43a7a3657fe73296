package http

import (
	"github.com/gin-gonic/gin"

	"github.com/keyproof/keyproof/service"
)

// SetupRouter sets up the Gin router
func SetupRouter(recovery *service.RecoveryService) *gin.Engine {
	router := gin.Default()

	handlers := NewRecoveryHandlers(recovery)

	// Recovery routes
	auth := router.Group("/recovery")
	{
		auth.POST("/challenge", handlers.Challenge)
		auth.POST("/verify", handlers.Verify)
	}

	// Protected API routes
	api := router.Group("/api")
	api.Use(AuthMiddleware(recovery))
	{
		api.GET("/me", handlers.Me)
	}

	return router
}
