package database

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Database struct {
	DB *gorm.DB
}

// Options tune how the connection is opened. The zero value is what the
// service uses.
type Options struct {
	LogLevel logger.LogLevel
	// SkipMigrations opens the store without applying pending migrations.
	SkipMigrations bool
}

func NewDatabase(dbPath string) (*Database, error) {
	return Open(dbPath, Options{})
}

// Open connects to the SQLite file at dbPath with foreign keys enforced and
// applies pending schema migrations before returning.
func Open(dbPath string, opts Options) (*Database, error) {
	level := opts.LogLevel
	if level == 0 {
		level = logger.Warn
	}

	db, err := gorm.Open(sqlite.Open(dsn(dbPath)), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// One connection per process: requests are served one action at a time
	// and connection-scoped pragmas must stay in effect.
	sqlDB.SetMaxOpenConns(1)

	database := &Database{DB: db}

	if !opts.SkipMigrations {
		applied, err := Migrate(db)
		if err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		if applied > 0 {
			log.Printf("Applied %d schema migration(s)", applied)
		}
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return database, nil
}

func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_foreign_keys=on&_busy_timeout=5000"
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping reports whether the underlying connection is usable.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// Transaction runs fn inside a single transaction.
func (d *Database) Transaction(fn func(tx *gorm.DB) error) error {
	return d.DB.Transaction(fn)
}
