package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/bookverse/internal/audit"
	"github.com/mrlokans/bookverse/internal/auth"
	auditRepo "github.com/mrlokans/bookverse/internal/database/audit"
	"github.com/mrlokans/bookverse/internal/engagement"
	"github.com/mrlokans/bookverse/internal/http"
	"github.com/mrlokans/bookverse/internal/metrics"
	"github.com/mrlokans/bookverse/internal/scheduler"
	"github.com/mrlokans/bookverse/internal/services"
	"github.com/mrlokans/bookverse/internal/storage"
	"github.com/mrlokans/bookverse/internal/tasks"
)

// =============================================================================
// Domain Services
// =============================================================================

var _ http.ReadTracker = (*engagement.Tracker)(nil)
var _ http.BookCatalog = (*services.CatalogService)(nil)
var _ http.AccountManager = (*services.AccountService)(nil)

// =============================================================================
// Authentication and Audit
// =============================================================================

var _ auth.UserLoader = (*auth.Service)(nil)
var _ http.AccessDenier = (*auth.Middleware)(nil)

var _ auth.Auditor = (*audit.Service)(nil)
var _ auth.AccessAuditor = (*audit.Service)(nil)
var _ http.Auditor = (*audit.Service)(nil)
var _ http.AuditReader = (*audit.Service)(nil)

// =============================================================================
// Infrastructure
// =============================================================================

var _ engagement.Recorder = (*metrics.Metrics)(nil)

var _ storage.BlobStore = (*storage.DatabaseStore)(nil)
var _ storage.BlobStore = (*storage.MinioStore)(nil)

// =============================================================================
// Background Maintenance
// =============================================================================

var _ scheduler.Enqueuer = (*tasks.Client)(nil)
var _ tasks.AuditPruner = (*auditRepo.Repository)(nil)
var _ http.MaintenanceRunner = (*scheduler.AuditPruneScheduler)(nil)
