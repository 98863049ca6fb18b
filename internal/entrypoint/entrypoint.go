package entrypoint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookverse/internal/audit"
	"github.com/mrlokans/bookverse/internal/auth"
	"github.com/mrlokans/bookverse/internal/config"
	"github.com/mrlokans/bookverse/internal/database"
	auditRepo "github.com/mrlokans/bookverse/internal/database/audit"
	"github.com/mrlokans/bookverse/internal/database/users"
	"github.com/mrlokans/bookverse/internal/engagement"
	http_controllers "github.com/mrlokans/bookverse/internal/http"
	"github.com/mrlokans/bookverse/internal/metrics"
	"github.com/mrlokans/bookverse/internal/scheduler"
	"github.com/mrlokans/bookverse/internal/services"
	"github.com/mrlokans/bookverse/internal/storage"
	"github.com/mrlokans/bookverse/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill (no param) sends SIGTERM, kill -2 is SIGINT
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	// Runs after in-flight requests have finished.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

// NewBlobStore returns the configured blob backend.
func NewBlobStore(ctx context.Context, cfg config.Storage, db *database.Database) (storage.BlobStore, error) {
	switch cfg.Backend {
	case "", config.StorageBackendDatabase:
		return storage.NewDatabaseStore(db.DB), nil
	case config.StorageBackendMinio:
		return storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// csrfSecret decodes AUTH_SESSION_SECRET. Hex is preferred; anything else is
// used as raw bytes. Empty disables CSRF protection.
func csrfSecret(secret string) []byte {
	if secret == "" {
		return nil
	}
	if decoded, err := hex.DecodeString(secret); err == nil {
		return decoded
	}
	return []byte(secret)
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Bookverse v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	blobs, err := NewBlobStore(context.Background(), cfg.Storage, db)
	if err != nil {
		log.Fatalf("Failed to initialize blob storage: %v", err)
	}
	log.Printf("Blob storage backend: %s", cfg.Storage.Backend)

	auditEvents := auditRepo.NewRepository(db.DB)
	auditor := audit.NewService(auditEvents)

	// Background maintenance runs from its own queue database.
	var taskClient *tasks.Client
	var pruneScheduler *scheduler.AuditPruneScheduler
	taskCtx, taskCancel := context.WithCancel(context.Background())
	defer taskCancel()
	if cfg.Maintenance.Enabled {
		taskCfg := tasks.DefaultConfig()
		taskCfg.Workers = cfg.Maintenance.Workers
		taskClient, err = tasks.NewClient(tasks.QueuePath(cfg.Database.Path), taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task queue: %v", err)
			}
		}()
		taskClient.Register(tasks.NewPruneAuditEventsQueue(auditEvents))
		taskClient.Start(taskCtx)

		pruneScheduler, err = scheduler.NewAuditPruneScheduler(taskClient, cfg.Maintenance.AuditPruneSchedule, cfg.Maintenance.AuditRetentionDays)
		if err != nil {
			log.Fatalf("Failed to initialize audit prune scheduler: %v", err)
		}
		if err := pruneScheduler.Start(); err != nil {
			log.Fatalf("Failed to start audit prune scheduler: %v", err)
		}
	}

	var m *metrics.Metrics
	var trackerOpts []engagement.TrackerOption
	if cfg.Metrics.Enabled {
		m = metrics.New()
		trackerOpts = append(trackerOpts, engagement.WithRecorder(m))
		log.Printf("Metrics exposed at %s", cfg.Metrics.Path)
	}

	authService := auth.NewService(users.NewRepository(db.DB), cfg.Auth)

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}
	sessionManager, err := auth.NewSessionManager(sqlDB, cfg.Auth.SessionLifetime, cfg.Auth.SecureCookies)
	if err != nil {
		log.Fatalf("Failed to initialize session manager: %v", err)
	}

	secret := csrfSecret(cfg.Auth.SessionSecret)
	if secret == nil {
		log.Printf("WARNING: AUTH_SESSION_SECRET is not set, CSRF protection is disabled")
		if example, err := auth.GenerateSessionSecret(); err == nil {
			log.Printf("Generate one for production, e.g. AUTH_SESSION_SECRET=%s", example)
		}
	}

	routerCfg := http_controllers.RouterConfig{
		Database:       db,
		Auditor:        auditor,
		Tracker:        engagement.NewTracker(db.DB, cfg.Engagement, trackerOpts...),
		Catalog:        services.NewCatalogService(db.DB, blobs, cfg.Storage.MaxUploadBytes),
		Accounts:       services.NewAccountService(db.DB, blobs, cfg.Storage.MaxUploadBytes),
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		AuthService:    authService,
		SessionManager: sessionManager,
		AuthMiddleware: auth.NewMiddleware(authService, sessionManager, auditor),
		AuthConfig:     cfg.Auth,
		CSRFSecret:     secret,
		SecureCookies:  cfg.Auth.SecureCookies,
		Metrics:        m,
		MetricsPath:    cfg.Metrics.Path,
		Version:        version,
	}
	if pruneScheduler != nil {
		routerCfg.Maintenance = pruneScheduler
	}

	router := http_controllers.NewRouter(routerCfg)

	Serve(router, cfg, func(ctx context.Context) {
		if pruneScheduler != nil {
			pruneScheduler.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
		}
		auditor.Flush()
	})
}
