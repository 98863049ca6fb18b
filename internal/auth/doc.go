// Package auth provides accounts, sessions and role-based access control.
//
// Credentials are PBKDF2-HMAC-SHA256 hashes with a per-password salt
// (see HashPassword). Sessions are server-side, kept by scs in the
// application's SQLite database and identified by a cookie.
//
// A request is either anonymous or authenticated with one of four roles
// (reader, author, admin, tech_support). Readers and authors sign up through
// POST /register; admin and tech_support accounts are provisioned with the
// create-user command. What each role may do is decided by Allows, and
// ownership of a book by CanManageBook.
//
// # Configuration
//
//	AUTH_SESSION_SECRET=<hex-32-bytes>     # enables CSRF protection
//	AUTH_SESSION_LIFETIME=24h
//	AUTH_PBKDF2_ITERATIONS=260000          # never below 100000
//	AUTH_SECURE_COOKIES=true               # HTTPS-only cookies
//	AUTH_MAX_LOGIN_ATTEMPTS=5
//	AUTH_RATE_LIMIT_WINDOW=15m
//	AUTH_LOCKOUT_DURATION=30m
//
// # Usage
//
//	svc := auth.NewService(users.NewRepository(db), cfg.Auth)
//	sm, _ := auth.NewSessionManager(sqlDB, cfg.Auth.SessionLifetime, cfg.Auth.SecureCookies)
//	mw := auth.NewMiddleware(svc, sm, auditService)
//	router.Use(sm.SessionLoadSave(), mw.Handler())
//	router.POST("/author/books", mw.RequirePermission(auth.PermUploadBook), upload)
//
// Extract user in handlers:
//
//	user := auth.CurrentUser(c) // nil when anonymous
package auth
