package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Auth
		Storage
		Engagement
		Metrics
		Maintenance
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Auth struct {
		SessionSecret    string
		SessionLifetime  time.Duration
		PBKDF2Iterations int
		SecureCookies    bool // Set to false for local dev without HTTPS

		// Login rate limiting
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	Storage struct {
		Backend        string // "database" or "minio"
		MaxUploadBytes int64
		MinioEndpoint  string
		MinioAccessKey string
		MinioSecretKey string
		MinioBucket    string
		MinioUseSSL    bool
	}
	Engagement struct {
		// ResetStreakAfterGap restarts the reading streak at 1 when more than
		// one calendar day passed since the previous read. Off keeps the
		// streak unchanged after a gap.
		ResetStreakAfterGap bool
		Location            *time.Location
	}
	Metrics struct {
		Enabled bool
		Path    string
	}
	Maintenance struct {
		Enabled            bool
		Workers            int
		AuditRetentionDays int
		AuditPruneSchedule string // five-field cron expression
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Auth defaults
	v.SetDefault("auth_session_secret", "")       // CSRF protection is off when empty
	v.SetDefault("auth_session_lifetime", "24h")  // 24 hours
	v.SetDefault("auth_pbkdf2_iterations", 260_000)
	v.SetDefault("auth_secure_cookies", false)    // HTTPS-only cookies
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration

	// Storage defaults
	v.SetDefault("storage_backend", StorageBackendDatabase)
	v.SetDefault("storage_max_upload_bytes", 50<<20)
	v.SetDefault("minio_endpoint", "localhost:9000")
	v.SetDefault("minio_access_key", "")
	v.SetDefault("minio_secret_key", "")
	v.SetDefault("minio_bucket", "bookverse")
	v.SetDefault("minio_use_ssl", false)

	v.SetDefault("engagement_reset_streak_after_gap", false)
	v.SetDefault("engagement_timezone", "UTC")

	v.SetDefault("metrics_enabled", true)
	v.SetDefault("metrics_path", "/metrics")

	v.SetDefault("maintenance_enabled", true)
	v.SetDefault("maintenance_workers", 1)
	v.SetDefault("audit_retention_days", 90)
	v.SetDefault("audit_prune_schedule", "0 3 * * *") // daily at 03:00

	iterations := v.GetInt("AUTH_PBKDF2_ITERATIONS")
	if iterations < MinPBKDF2Iterations {
		log.Printf("AUTH_PBKDF2_ITERATIONS=%d is below the minimum, using %d", iterations, MinPBKDF2Iterations)
		iterations = MinPBKDF2Iterations
	}

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Auth: Auth{
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			PBKDF2Iterations: iterations,
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Storage: Storage{
			Backend:        v.GetString("STORAGE_BACKEND"),
			MaxUploadBytes: v.GetInt64("STORAGE_MAX_UPLOAD_BYTES"),
			MinioEndpoint:  v.GetString("MINIO_ENDPOINT"),
			MinioAccessKey: v.GetString("MINIO_ACCESS_KEY"),
			MinioSecretKey: v.GetString("MINIO_SECRET_KEY"),
			MinioBucket:    v.GetString("MINIO_BUCKET"),
			MinioUseSSL:    v.GetBool("MINIO_USE_SSL"),
		},
		Engagement: Engagement{
			ResetStreakAfterGap: v.GetBool("ENGAGEMENT_RESET_STREAK_AFTER_GAP"),
			Location:            loadLocation(v.GetString("ENGAGEMENT_TIMEZONE")),
		},
		Metrics: Metrics{
			Enabled: v.GetBool("METRICS_ENABLED"),
			Path:    v.GetString("METRICS_PATH"),
		},
		Maintenance: Maintenance{
			Enabled:            v.GetBool("MAINTENANCE_ENABLED"),
			Workers:            v.GetInt("MAINTENANCE_WORKERS"),
			AuditRetentionDays: v.GetInt("AUDIT_RETENTION_DAYS"),
			AuditPruneSchedule: v.GetString("AUDIT_PRUNE_SCHEDULE"),
		},
	}
}

func loadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.Printf("Unknown ENGAGEMENT_TIMEZONE %q, falling back to UTC: %v", name, err)
		return time.UTC
	}
	return loc
}
