package http

import (
	"github.com/gin-gonic/gin"

	"github.com/ivyscans/api/internal/auth"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Catalog ComicCatalog
	Genres  GenreRegistry
	Library UserLibrary
	Health  Pinger

	// Authentication
	AuthController *auth.AuthController
	AuthMiddleware *auth.Middleware

	// Deletion audit trail (optional)
	Auditor DeleteAuditor

	// Send Strict-Transport-Security on every response.
	EnableHSTS bool

	// Application info
	Version string

	// Gin mode, defaults to release.
	Mode string
}

func (cfg RouterConfig) mode() string {
	if cfg.Mode == "" {
		return gin.ReleaseMode
	}
	return cfg.Mode
}
