// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup (single SQLite connection, foreign keys on)
//	├── migrations.go    # Versioned schema steps recorded in schema_migrations
//	├── rebuild.go       # One-off rebuild of legacy users/books tables
//	├── users/           # Accounts, roles and cascading account deletion
//	├── books/           # Books and author listings
//	├── reviews/         # One review per user and book
//	├── discussions/     # Threads and replies
//	├── library/         # Per-user saved books
//	├── badges/          # Awarded badges
//	├── support/         # Support queries and responses
//	├── audit/           # Audit events
//	└── dbtest/          # Test helpers
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase("./bookverse.db")
//
//	booksRepo := books.NewRepository(db.DB)
//	book, err := booksRepo.GetByID(123)
//
// Repositories that take part in a larger transaction expose WithTx:
//
//	err := db.Transaction(func(tx *gorm.DB) error {
//		_, _, err := reviewsRepo.WithTx(tx).Upsert(userID, bookID, 5, "")
//		return err
//	})
//
// SQLite is opened with a single connection, so code inside a transaction
// must only use the tx handle. Touching db.DB there blocks forever.
//
// # Errors
//
// Repositories return ErrNotFound, ErrConflict or errors wrapping
// ErrValidation. TranslateError maps driver constraint failures onto these.
package database
