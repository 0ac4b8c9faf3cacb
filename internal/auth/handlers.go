package auth

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ivyscans/api/internal/apperr"
	"github.com/ivyscans/api/internal/config"
)

// Auditor records authentication events.
type Auditor interface {
	LogAuth(userID, action, ipAddr, userAgent string, err error)
}

// AuthController handles authentication-related HTTP endpoints.
type AuthController struct {
	service  *Service
	auditor  Auditor
	throttle *LoginThrottle
}

// NewAuthController creates a new authentication controller.
// auditor may be nil.
func NewAuthController(service *Service, auditor Auditor, cfg config.Auth) *AuthController {
	return &AuthController{
		service:  service,
		auditor:  auditor,
		throttle: NewLoginThrottle(cfg),
	}
}

// RegisterRoutes registers authentication routes under the given group.
func (ac *AuthController) RegisterRoutes(group *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	group.POST("/login", ac.Login)
	group.POST("/register", ac.Register)
	group.POST("/refresh-token", ac.RefreshToken)
	group.POST("/logout", requireAuth, ac.Logout)
	group.GET("/me", requireAuth, ac.Me)
}

// Stop ends the login throttle's background sweep.
func (ac *AuthController) Stop() {
	ac.throttle.Stop()
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Login handles POST /api/auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}
	clientIP := c.ClientIP()

	if err := ac.throttle.Check(clientIP, req.Email); err != nil {
		ac.audit(c, "", "login", err)
		respondError(c, err)
		return
	}

	resp, err := ac.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			ac.throttle.Fail(clientIP, req.Email)
			ac.audit(c, "", "login", err)
		}
		respondError(c, err)
		return
	}

	ac.throttle.Reset(clientIP, req.Email)
	ac.audit(c, resp.User.ID, "login", nil)
	c.JSON(http.StatusOK, resp)
}

// Register handles POST /api/auth/register
func (ac *AuthController) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	resp, err := ac.service.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		if apperr.KindOf(err) != apperr.KindStorage {
			c.JSON(http.StatusBadRequest, gin.H{"message": apperr.MessageOf(err)})
			return
		}
		respondError(c, err)
		return
	}

	ac.audit(c, resp.User.ID, "register", nil)
	c.JSON(http.StatusOK, resp)
}

// Logout handles POST /api/auth/logout
func (ac *AuthController) Logout(c *gin.Context) {
	userID := GetUserID(c)
	if err := ac.service.Logout(c.Request.Context(), userID); err != nil {
		respondError(c, err)
		return
	}

	ac.audit(c, userID, "logout", nil)
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

// RefreshToken handles POST /api/auth/refresh-token
func (ac *AuthController) RefreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	pair, err := ac.service.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidOrExpiredToken) {
			ac.audit(c, "", "refresh_token", err)
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

// Me handles GET /api/auth/me
func (ac *AuthController) Me(c *gin.Context) {
	user, err := ac.service.GetUserByID(c.Request.Context(), GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"message": "User not found"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (ac *AuthController) audit(c *gin.Context, userID, action string, err error) {
	if ac.auditor == nil {
		return
	}
	ac.auditor.LogAuth(userID, action, c.ClientIP(), c.Request.UserAgent(), err)
}

func respondError(c *gin.Context, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"message": apperr.MessageOf(err)})
	case apperr.KindAuth:
		c.JSON(http.StatusUnauthorized, gin.H{"message": apperr.MessageOf(err)})
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"message": apperr.MessageOf(err)})
	case apperr.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"message": apperr.MessageOf(err)})
	case apperr.KindRateLimited:
		if wait := apperr.RetryAfterOf(err); wait > 0 {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		}
		c.JSON(http.StatusTooManyRequests, gin.H{"message": apperr.MessageOf(err)})
	default:
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Auth request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
	}
}
