package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ivyscans/api/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(cfg.mode())

	router := gin.New()
	router.Use(RequestLogger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.EnableHSTS {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}

	router.NoRoute(func(c *gin.Context) {
		respondMessage(c, http.StatusNotFound, "Not found")
	})

	// Health endpoints
	health := NewHealthController(cfg.Health, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	api := router.Group("/api")
	requireAuth := cfg.AuthMiddleware.RequireAuth()

	if cfg.AuthController != nil {
		cfg.AuthController.RegisterRoutes(api.Group("/auth"), requireAuth)
	}

	NewComicsController(cfg.Catalog, cfg.Auditor).RegisterRoutes(api.Group("/comics"))
	NewGenresController(cfg.Genres, cfg.Auditor).RegisterRoutes(api.Group("/genres"), requireAuth)
	NewUserController(cfg.Library).RegisterRoutes(api.Group("/user", requireAuth))

	return router
}
