package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookverse/internal/auth"
	"github.com/mrlokans/bookverse/internal/entities"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// AuthService, SessionManager and AuthMiddleware are required; Auditor and
// Metrics are optional.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.GinMiddleware())
	}

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}

	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}
	router.Use(cfg.SessionManager.SessionLoadSave())
	router.Use(cfg.AuthMiddleware.Handler())

	// A nil *audit.Service must not end up inside a non-nil interface.
	var auditor Auditor
	var events AuditReader
	var authAuditor auth.Auditor
	if cfg.Auditor != nil {
		auditor = cfg.Auditor
		events = cfg.Auditor
		authAuditor = cfg.Auditor
	}
	mw := cfg.AuthMiddleware
	maxUpload := cfg.MaxUploadBytes

	authController := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, authAuditor, cfg.AuthConfig)
	if cfg.Metrics != nil {
		authController.OnRegister = func(user *entities.User) {
			cfg.Metrics.ObserveRegistration(string(user.Role))
		}
	}

	health := NewHealthController(cfg.Database, cfg.Version)
	db := cfg.Database.DB
	booksController := NewBooksController(db, cfg.Catalog, cfg.Tracker)
	reviewsController := NewReviewsController(db, cfg.Tracker, auditor)
	discussionsController := NewDiscussionsController(db, auditor)
	libraryController := NewLibraryController(db)
	profileController := NewProfileController(cfg.Accounts, cfg.Tracker, maxUpload)
	authorController := NewAuthorController(db, cfg.Catalog, mw, auditor, maxUpload)
	adminController := NewAdminController(db, cfg.Accounts, auditor, events)
	supportController := NewSupportController(db, mw, auditor)

	// Public endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", Ping)
	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, gin.WrapH(cfg.Metrics.Handler()))
	}
	authController.RegisterRoutes(router)

	// Every signed-in role
	browse := router.Group("", mw.RequirePermission(auth.PermBrowse))
	browse.GET("/", booksController.Home)
	browse.GET("/browse", booksController.Browse)
	browse.GET("/books/:id", booksController.Show)
	browse.GET("/books/:id/reviews", reviewsController.List)
	browse.GET("/books/:id/discussions", discussionsController.ListForBook)
	browse.GET("/discussions", discussionsController.ListAll)
	browse.GET("/discussions/:id", discussionsController.Show)
	browse.GET("/profile", profileController.Show)
	browse.POST("/profile", profileController.Update)
	browse.GET("/profile/avatar", profileController.Avatar)
	browse.GET("/profile/badges", profileController.Badges)
	browse.POST("/profile/password", authController.ChangePassword)
	browse.GET("/support/:id", supportController.Show)

	reading := router.Group("", mw.RequirePermission(auth.PermRead))
	reading.GET("/books/:id/read", booksController.Read)
	reading.GET("/books/:id/download", booksController.Download)

	router.POST("/books/:id/reviews", mw.RequirePermission(auth.PermReview), reviewsController.Submit)

	discuss := router.Group("", mw.RequirePermission(auth.PermDiscuss))
	discuss.POST("/books/:id/discussions", discussionsController.Create)
	discuss.POST("/discussions/:id/replies", discussionsController.Reply)

	lib := router.Group("/library", mw.RequirePermission(auth.PermLibrary))
	lib.GET("", libraryController.List)
	lib.POST("/:bookId", libraryController.Add)
	lib.DELETE("/:bookId", libraryController.Remove)

	queries := router.Group("/support", mw.RequirePermission(auth.PermSubmitSupport))
	queries.POST("", supportController.Submit)
	queries.GET("", supportController.ListMine)

	// Authors; edits and deletes are also open to admins, ownership is
	// checked per book.
	author := router.Group("/author")
	author.GET("/dashboard", mw.RequirePermission(auth.PermAuthorDashboard), authorController.Dashboard)
	author.GET("/reviews", mw.RequirePermission(auth.PermAuthorDashboard), authorController.Reviews)
	author.GET("/discussions", mw.RequirePermission(auth.PermAuthorDashboard), authorController.Discussions)
	author.POST("/books", mw.RequirePermission(auth.PermUploadBook), authorController.Upload)
	author.PUT("/books/:id", mw.RequireAuth(), authorController.Update)
	author.DELETE("/books/:id", mw.RequireAuth(), authorController.Delete)

	admin := router.Group("/admin")
	admin.GET("/dashboard", mw.RequirePermission(auth.PermAdminDashboard), adminController.Dashboard)
	admin.GET("/audit", mw.RequirePermission(auth.PermAdminDashboard), adminController.AuditLog)
	moderation := admin.Group("", mw.RequirePermission(auth.PermModerate))
	moderation.GET("/reviews", adminController.Reviews)
	moderation.DELETE("/reviews/:id", adminController.DeleteReview)
	moderation.GET("/discussions", adminController.Discussions)
	moderation.DELETE("/discussions/:id", adminController.DeleteDiscussion)
	accounts := admin.Group("/users", mw.RequirePermission(auth.PermManageUsers))
	accounts.GET("", adminController.Users)
	accounts.DELETE("/:id", adminController.DeleteUser)
	if cfg.Maintenance != nil {
		maintenance := NewMaintenanceController(cfg.Maintenance, auditor)
		admin.POST("/maintenance/prune-audit", mw.RequirePermission(auth.PermManageUsers), maintenance.PruneAudit)
	}

	staff := router.Group("/support")
	staff.GET("/dashboard", mw.RequirePermission(auth.PermSupportDashboard), supportController.Dashboard)
	staff.POST("/:id/respond", mw.RequirePermission(auth.PermRespondSupport), supportController.Respond)
	staff.POST("/:id/status", mw.RequirePermission(auth.PermRespondSupport), supportController.SetStatus)

	return router
}
