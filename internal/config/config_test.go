package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")

	cfg := NewConfig()

	assert.Equal(t, int32(8080), cfg.HTTP.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, DefaultAvatar, cfg.Auth.DefaultAvatar)
	assert.Len(t, cfg.Auth.JWTSecret, 64, "random secret should be generated")
	assert.Equal(t, "0 * * * *", cfg.Maintenance.Schedule)
	assert.Equal(t, 30, cfg.Audit.RetentionDays)
}

func TestNewConfig_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DATABASE_DRIVER", "postgres")
	t.Setenv("DATABASE_DSN", "host=db user=ivy dbname=ivy")
	t.Setenv("JWT_SECRET_KEY", "s3cret")
	t.Setenv("AUTH_ACCESS_TOKEN_TTL", "15m")
	t.Setenv("LOG_FORMAT", "console")

	cfg := NewConfig()

	assert.Equal(t, int32(9090), cfg.HTTP.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "host=db user=ivy dbname=ivy", cfg.Database.DSN)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestTasksDatabasePath(t *testing.T) {
	cfg := &Config{Database: Database{Path: "./data/ivy.db"}}
	assert.Equal(t, "data/ivy-tasks.db", cfg.TasksDatabasePath())

	cfg.Tasks.DatabasePath = "/var/lib/ivy/tasks.db"
	assert.Equal(t, "/var/lib/ivy/tasks.db", cfg.TasksDatabasePath())
}
