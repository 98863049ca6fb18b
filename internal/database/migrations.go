package database

import (
	"fmt"
	"log"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookverse/internal/entities"
)

// Migration is one ordered schema step. Each pending step runs in its own
// transaction and is recorded in schema_migrations once it commits.
type Migration struct {
	Version int
	Name    string
	// ForeignKeysOff disables foreign key enforcement while the step runs.
	// SQLite cannot toggle it inside a transaction, so the runner does it
	// around the step.
	ForeignKeysOff bool
	Up             func(tx *gorm.DB) error
}

// BaseModels are the tables every installation has.
var BaseModels = []any{
	&entities.User{},
	&entities.Book{},
	&entities.Review{},
	&entities.Discussion{},
	&entities.Reply{},
	&entities.LibraryEntry{},
	&entities.SupportQuery{},
	&entities.SupportResponse{},
	&entities.StoredBlob{},
	&entities.AuditEvent{},
}

var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_base_tables",
		Up: func(tx *gorm.DB) error {
			return EnsureSchema(tx, BaseModels...)
		},
	},
	{
		Version: 2,
		Name:    "add_engagement_counters",
		Up:      addEngagementCounters,
	},
	{
		Version: 3,
		Name:    "create_badges",
		Up: func(tx *gorm.DB) error {
			return EnsureSchema(tx, &entities.Badge{})
		},
	},
	{
		Version:        4,
		Name:           "rebuild_legacy_tables",
		ForeignKeysOff: true,
		Up:             rebuildLegacyTables,
	},
	{
		Version: 5,
		Name:    "review_unique_index",
		Up:      reviewUniqueIndex,
	},
}

// Migrations returns the registered steps in version order.
func Migrations() []Migration {
	steps := append([]Migration(nil), migrations...)
	sort.Slice(steps, func(i, j int) bool { return steps[i].Version < steps[j].Version })
	return steps
}

// Migrate applies every pending step and returns how many ran.
func Migrate(db *gorm.DB) (int, error) {
	return MigrateSteps(db, Migrations())
}

// MigrateSteps applies the given steps in version order, skipping the ones
// already recorded.
func MigrateSteps(db *gorm.DB, steps []Migration) (int, error) {
	if err := db.AutoMigrate(&entities.SchemaMigration{}); err != nil {
		return 0, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	applied, err := AppliedMigrations(db)
	if err != nil {
		return 0, err
	}
	done := make(map[int]bool, len(applied))
	for _, m := range applied {
		done[m.Version] = true
	}

	ordered := append([]Migration(nil), steps...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })

	count := 0
	for _, step := range ordered {
		if done[step.Version] {
			continue
		}
		if err := runStep(db, step); err != nil {
			return count, fmt.Errorf("migration %d (%s): %w", step.Version, step.Name, err)
		}
		log.Printf("Applied migration %d: %s", step.Version, step.Name)
		count++
	}
	return count, nil
}

// AppliedMigrations lists recorded steps, oldest version first.
func AppliedMigrations(db *gorm.DB) ([]entities.SchemaMigration, error) {
	var applied []entities.SchemaMigration
	if err := db.Order("version ASC").Find(&applied).Error; err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	return applied, nil
}

// PendingMigrations lists registered steps that have not been applied yet.
func PendingMigrations(db *gorm.DB) ([]Migration, error) {
	if !db.Migrator().HasTable(&entities.SchemaMigration{}) {
		return Migrations(), nil
	}
	applied, err := AppliedMigrations(db)
	if err != nil {
		return nil, err
	}
	done := make(map[int]bool, len(applied))
	for _, m := range applied {
		done[m.Version] = true
	}
	var pending []Migration
	for _, step := range Migrations() {
		if !done[step.Version] {
			pending = append(pending, step)
		}
	}
	return pending, nil
}

func runStep(db *gorm.DB, step Migration) error {
	if step.ForeignKeysOff {
		if err := db.Exec("PRAGMA foreign_keys = OFF").Error; err != nil {
			return fmt.Errorf("failed to disable foreign keys: %w", err)
		}
		defer func() {
			if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
				log.Printf("Failed to re-enable foreign keys after migration %d: %v", step.Version, err)
			}
		}()
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := step.Up(tx); err != nil {
			return err
		}
		if step.ForeignKeysOff {
			reportForeignKeyViolations(tx)
		}
		return tx.Create(&entities.SchemaMigration{
			Version:   step.Version,
			Name:      step.Name,
			AppliedAt: time.Now().UTC(),
		}).Error
	})
}

// EnsureSchema creates the tables for models that do not exist yet. Existing
// tables are left alone.
func EnsureSchema(tx *gorm.DB, models ...any) error {
	m := tx.Migrator()
	for _, model := range models {
		if m.HasTable(model) {
			continue
		}
		if err := m.CreateTable(model); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", model, err)
		}
	}
	return nil
}

func addEngagementCounters(tx *gorm.DB) error {
	m := tx.Migrator()
	for _, field := range []string{"ReadingStreak", "BooksRead"} {
		if m.HasColumn(&entities.User{}, field) {
			continue
		}
		if err := m.AddColumn(&entities.User{}, field); err != nil {
			return fmt.Errorf("failed to add users.%s: %w", field, err)
		}
	}
	return nil
}

const reviewUniqueIndexName = "idx_reviews_user_book"

func reviewUniqueIndex(tx *gorm.DB) error {
	m := tx.Migrator()
	if m.HasIndex(&entities.Review{}, reviewUniqueIndexName) {
		return nil
	}

	// Keep the newest review per (user, book) so the index can be built.
	res := tx.Exec(`DELETE FROM reviews WHERE id NOT IN (
		SELECT MAX(id) FROM reviews GROUP BY user_id, book_id
	)`)
	if res.Error != nil {
		return fmt.Errorf("failed to collapse duplicate reviews: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		log.Printf("Removed %d duplicate review(s) before adding unique index", res.RowsAffected)
	}

	return m.CreateIndex(&entities.Review{}, reviewUniqueIndexName)
}

type foreignKeyViolation struct {
	Table  string `gorm:"column:table"`
	RowID  *int64 `gorm:"column:rowid"`
	Parent string `gorm:"column:parent"`
	FKID   int    `gorm:"column:fkid"`
}

func reportForeignKeyViolations(tx *gorm.DB) {
	var violations []foreignKeyViolation
	if err := tx.Raw("PRAGMA foreign_key_check").Scan(&violations).Error; err != nil {
		log.Printf("Failed to run foreign key check: %v", err)
		return
	}
	for _, v := range violations {
		rowID := int64(-1)
		if v.RowID != nil {
			rowID = *v.RowID
		}
		log.Printf("Foreign key violation after migration: %s row %d references missing %s", v.Table, rowID, v.Parent)
	}
}
