// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Domain Services
//
//   - ReadTracker: read tracking, streaks and badges (internal/http/stores.go)
//   - BookCatalog: publishing books with their documents (internal/http/stores.go)
//   - AccountManager: profiles, avatars and account deletion (internal/http/stores.go)
//
// ## Authentication and Audit
//
//   - UserLoader: resolves the user behind a session (internal/auth/middleware.go)
//   - AccessDenier: refuses a request after an ownership check (internal/http/author.go)
//   - Auditor / AccessAuditor: authentication and refusal events (internal/auth)
//   - Auditor / AuditReader: content, moderation and support events (internal/http)
//
// ## Infrastructure
//
//   - BlobStore: document and avatar bytes (internal/storage/blob.go)
//   - Recorder: engagement metrics (internal/engagement/tracker.go)
//   - Enqueuer: hands tasks to the background queue (internal/scheduler)
//   - AuditPruner: audit retention (internal/tasks/prune_audit.go)
//   - MaintenanceRunner: on-demand maintenance runs (internal/http/maintenance.go)
//
// # Adding a New Blob Backend
//
//  1. Implement BlobStore in internal/storage/
//
//     type S3Store struct {
//         client *s3.Client
//         bucket string
//     }
//
//     func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error
//     func (s *S3Store) Get(ctx context.Context, key string) (*Blob, error)
//     func (s *S3Store) Delete(ctx context.Context, key string) error
//
//  2. Add a backend constant in internal/config and select it in entrypoint.NewBlobStore
//
// # Adding a New Database Domain
//
//  1. Create sub-package: internal/database/<domain>/
//
//  2. Define repository:
//
//     type Repository struct { db *gorm.DB }
//
//     func NewRepository(db *gorm.DB) *Repository
//     func (r *Repository) WithTx(tx *gorm.DB) *Repository
//
//  3. Register the table in a new migration step (internal/database/migrations.go)
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// See checks.go for the full list.
package interfaces
