package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ivyscans/api/internal/config"
	"github.com/ivyscans/api/internal/database"
	"github.com/ivyscans/api/internal/library"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testAuthConfig() config.Auth {
	return config.Auth{
		JWTSecret:        "test-secret",
		JWTIssuer:        "ivyscans-test",
		JWTAudience:      "ivyscans-test-clients",
		AccessTokenTTL:   time.Hour,
		RefreshTokenTTL:  7 * 24 * time.Hour,
		BcryptCost:       4,
		DefaultAvatar:    config.DefaultAvatar,
		MaxLoginAttempts: 3,
		RateLimitWindow:  time.Minute,
		LockoutDuration:  time.Minute,
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewDatabase(config.Database{
		Path:     filepath.Join(t.TempDir(), "auth.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db.DB
}

type dbStats struct{ db *gorm.DB }

func (s dbStats) ComputeReadingStats(ctx context.Context, userID string) (library.ReadingStats, error) {
	return library.ComputeReadingStats(ctx, s.db, userID)
}

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	cfg := testAuthConfig()
	return NewService(db, NewTokenIssuer(cfg), dbStats{db}, cfg), db
}
