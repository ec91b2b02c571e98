package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/avoronov/authkeeper-server/internal/logger"
)

// NewRouter builds the gin engine with the auth routes, the per-client rate
// limiter and the bearer middleware on the protected group.
func NewRouter(auth AuthService, limiter *RateLimiter, log *logger.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	handler := NewAuthHandler(auth, log)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/auth")
	api.Use(limiter.Handler())
	{
		api.POST("/register", handler.Register)
		api.POST("/login", handler.Login)
		api.POST("/refresh", handler.Refresh)
		api.POST("/logout", handler.Logout)

		protected := api.Group("")
		protected.Use(BearerAuth(auth))
		{
			protected.POST("/logout-all", handler.LogoutAll)
			protected.GET("/sessions", handler.Sessions)
		}
	}

	return router
}
