package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys for user data
const (
	ContextKeyUserID   = "auth_user_id"
	ContextKeyUsername = "auth_username"
	ContextKeyEmail    = "auth_email"
)

// SessionTokenParser validates bearer tokens.
type SessionTokenParser interface {
	Parse(token string) (*Claims, error)
}

// Middleware authenticates requests carrying a bearer session token.
type Middleware struct {
	parser SessionTokenParser
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(parser SessionTokenParser) *Middleware {
	return &Middleware{parser: parser}
}

// RequireAuth rejects requests without a valid bearer token with 401.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := m.tryBearerAuth(c)
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "authentication required",
			})
			return
		}

		c.Set(ContextKeyUserID, claims.Subject)
		c.Set(ContextKeyUsername, claims.Username)
		c.Set(ContextKeyEmail, claims.Email)
		c.Next()
	}
}

// tryBearerAuth attempts to authenticate using the Authorization header.
func (m *Middleware) tryBearerAuth(c *gin.Context) *Claims {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil
	}

	// Extract token from "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return nil
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return nil
	}

	claims, err := m.parser.Parse(token)
	if err != nil {
		return nil
	}
	return claims
}

// GetUserID retrieves the authenticated user's ID from the context.
// Returns "" if the request is not authenticated.
func GetUserID(c *gin.Context) string {
	return c.GetString(ContextKeyUserID)
}

// GetUsername retrieves the authenticated user's username from the context.
func GetUsername(c *gin.Context) string {
	return c.GetString(ContextKeyUsername)
}
