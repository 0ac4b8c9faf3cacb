package config

import (
	"crypto/rand"
	"encoding/hex"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Auth
		Log
		Tasks
		Maintenance
		Audit
	}

	HTTP struct {
		Port       int32
		Host       string
		EnableHSTS bool // Only behind HTTPS
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Driver   string // "sqlite" or "postgres"
		Path     string // SQLite file, ":memory:" is allowed
		DSN      string // PostgreSQL connection string
		LogLevel string // GORM logger level: silent, error, warn, info
	}
	Auth struct {
		JWTSecret       string
		JWTIssuer       string
		JWTAudience     string
		AccessTokenTTL  time.Duration
		RefreshTokenTTL time.Duration
		BcryptCost      int
		DefaultAvatar   string

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	Log struct {
		Level  string
		Format string // "json" or "console"
	}
	Tasks struct {
		Enabled         bool
		DatabasePath    string // Empty means alongside the main database with a "-tasks" suffix
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Maintenance struct {
		Enabled  bool
		Schedule string // Cron format: "0 * * * *" = hourly
	}
	Audit struct {
		RetentionDays int // Days to keep audit events (default: 30)
	}
)

// NewConfig reads the configuration from the environment. A .env file in
// the working directory is loaded first when present; real environment
// variables take precedence over it.
func NewConfig() *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8080)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("http_enable_hsts", false)
	v.SetDefault("shutdown_timeout_in_seconds", 5)

	v.SetDefault("database_driver", DriverSQLite)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")
	v.SetDefault("database_log_level", "warn")

	// Auth defaults
	v.SetDefault("jwt_secret_key", "") // Auto-generated if empty
	v.SetDefault("jwt_issuer", "ivyscans")
	v.SetDefault("jwt_audience", "ivyscans-clients")
	v.SetDefault("auth_access_token_ttl", "1h")
	v.SetDefault("auth_refresh_token_ttl", "168h") // 7 days
	v.SetDefault("auth_bcrypt_cost", 12)
	v.SetDefault("default_avatar", DefaultAvatar)
	v.SetDefault("auth_max_login_attempts", 5)
	v.SetDefault("auth_rate_limit_window", "15m")
	v.SetDefault("auth_lockout_duration", "30m")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("tasks_database_path", "")
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("maintenance_enabled", true)
	v.SetDefault("maintenance_schedule", "0 * * * *") // Hourly at :00

	v.SetDefault("audit_retention_days", 30)

	cfg := &Config{
		HTTP: HTTP{
			Port:       v.GetInt32("PORT"),
			Host:       v.GetString("HOST"),
			EnableHSTS: v.GetBool("HTTP_ENABLE_HSTS"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Driver:   v.GetString("DATABASE_DRIVER"),
			Path:     v.GetString("DATABASE_PATH"),
			DSN:      v.GetString("DATABASE_DSN"),
			LogLevel: v.GetString("DATABASE_LOG_LEVEL"),
		},
		Auth: Auth{
			JWTSecret:        v.GetString("JWT_SECRET_KEY"),
			JWTIssuer:        v.GetString("JWT_ISSUER"),
			JWTAudience:      v.GetString("JWT_AUDIENCE"),
			AccessTokenTTL:   v.GetDuration("AUTH_ACCESS_TOKEN_TTL"),
			RefreshTokenTTL:  v.GetDuration("AUTH_REFRESH_TOKEN_TTL"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			DefaultAvatar:    v.GetString("DEFAULT_AVATAR"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Log: Log{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			DatabasePath:    v.GetString("TASKS_DATABASE_PATH"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Maintenance: Maintenance{
			Enabled:  v.GetBool("MAINTENANCE_ENABLED"),
			Schedule: v.GetString("MAINTENANCE_SCHEDULE"),
		},
		Audit: Audit{
			RetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
		},
	}

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = generateSecret()
		log.Warn().Msg("JWT_SECRET_KEY is not set, using a random key. Issued tokens will not survive a restart.")
	}

	return cfg
}

func generateSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("failed to generate JWT secret: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// TasksDatabasePath returns where the background task queue keeps its state.
func (c *Config) TasksDatabasePath() string {
	if c.Tasks.DatabasePath != "" {
		return c.Tasks.DatabasePath
	}
	dir := filepath.Dir(c.Database.Path)
	base := filepath.Base(c.Database.Path)
	ext := filepath.Ext(base)
	if ext == "" {
		ext = ".db"
	}
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+"-tasks"+ext)
}
