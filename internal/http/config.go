package http

import (
	"github.com/mrlokans/bookverse/internal/audit"
	"github.com/mrlokans/bookverse/internal/auth"
	"github.com/mrlokans/bookverse/internal/config"
	"github.com/mrlokans/bookverse/internal/database"
	"github.com/mrlokans/bookverse/internal/metrics"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database *database.Database
	Auditor  *audit.Service

	// Domain services
	Tracker  ReadTracker
	Catalog  BookCatalog
	Accounts AccountManager

	// Upload limit for book documents and avatars; 0 disables it
	MaxUploadBytes int64

	// Authentication
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthMiddleware *auth.Middleware
	AuthConfig     config.Auth
	CSRFSecret     []byte
	SecureCookies  bool

	// Metrics, optional
	Metrics     *metrics.Metrics
	MetricsPath string

	// Background maintenance, optional
	Maintenance MaintenanceRunner

	// Application info
	Version string
}
