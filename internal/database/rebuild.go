package database

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/bookverse/internal/entities"
)

// columnSource fills a current column from an expression over the legacy
// table, aliased as "legacy". It applies only when the legacy table has the
// Requires column.
type columnSource struct {
	Column   string
	Requires string
	Expr     string
}

// legacyTable describes a table whose older layout is rebuilt in place.
type legacyTable struct {
	Model   any
	Table   string
	Marker  string // column that only the current layout has
	Sources []columnSource
	// After runs once rows are copied, inside the same savepoint.
	After func(tx *gorm.DB, legacyName string, legacyCols map[string]bool) error
}

var legacyTables = []legacyTable{
	{
		Model:  &entities.User{},
		Table:  "users",
		Marker: "password_hash",
		Sources: []columnSource{
			{Column: "password_hash", Requires: "password", Expr: "legacy.password"},
			{Column: "display_name", Requires: "full_name", Expr: "COALESCE(legacy.full_name, '')"},
			{Column: "role", Requires: "user_type", Expr: "LOWER(REPLACE(TRIM(legacy.user_type), ' ', '_'))"},
			{Column: "reading_streak", Requires: "reading_streak", Expr: "COALESCE(legacy.reading_streak, 0)"},
			{Column: "books_read", Requires: "books_read", Expr: "COALESCE(legacy.books_read, 0)"},
		},
	},
	{
		Model:  &entities.Book{},
		Table:  "books",
		Marker: "document_key",
		Sources: []columnSource{
			{Column: "author_id", Requires: "author_email", Expr: "COALESCE((SELECT u.id FROM users u WHERE u.email = legacy.author_email), 0)"},
			{Column: "description", Requires: "description", Expr: "COALESCE(legacy.description, '')"},
			{Column: "purchase_link", Requires: "amazon_link", Expr: "COALESCE(legacy.amazon_link, '')"},
			{Column: "created_at", Requires: "upload_date", Expr: "legacy.upload_date"},
			{Column: "document_key", Requires: "pdf_data", Expr: "CASE WHEN legacy.pdf_data IS NOT NULL THEN 'books/legacy-' || legacy.id ELSE '' END"},
			{Column: "document_type", Requires: "pdf_data", Expr: "CASE WHEN legacy.pdf_data IS NOT NULL THEN 'application/pdf' ELSE '' END"},
			{Column: "document_size", Requires: "pdf_data", Expr: "COALESCE(LENGTH(legacy.pdf_data), 0)"},
		},
		After: moveLegacyDocuments,
	},
}

func rebuildLegacyTables(tx *gorm.DB) error {
	for _, lt := range legacyTables {
		if err := rebuildTable(tx, lt); err != nil {
			return fmt.Errorf("failed to rebuild %s: %w", lt.Table, err)
		}
	}
	return nil
}

// rebuildTable moves an outdated table aside, recreates it with the current
// layout and copies over what the two layouts share. A failed copy leaves the
// new table empty and is logged.
func rebuildTable(tx *gorm.DB, lt legacyTable) error {
	m := tx.Migrator()
	if !m.HasTable(lt.Table) {
		return nil
	}
	oldCols, err := columnNames(tx, lt.Table)
	if err != nil {
		return err
	}
	if oldCols[lt.Marker] {
		return nil
	}

	log.Printf("Rebuilding legacy %s table", lt.Table)
	legacyName := lt.Table + "_legacy"

	// Keep references from other tables pointing at the name, not the
	// renamed legacy table.
	if err := tx.Exec("PRAGMA legacy_alter_table = ON").Error; err != nil {
		return err
	}
	defer tx.Exec("PRAGMA legacy_alter_table = OFF")

	if err := dropIndexes(tx, lt.Table); err != nil {
		return err
	}
	if err := tx.Exec(fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quote(lt.Table), quote(legacyName))).Error; err != nil {
		return fmt.Errorf("failed to rename %s: %w", lt.Table, err)
	}
	if err := m.CreateTable(lt.Model); err != nil {
		return fmt.Errorf("failed to create %s: %w", lt.Table, err)
	}
	newCols, err := columnNames(tx, lt.Table)
	if err != nil {
		return err
	}

	targets, exprs := copyPlan(newCols, oldCols, lt.Sources)

	if err := tx.SavePoint("rebuild_copy").Error; err != nil {
		return err
	}
	copyErr := copyRows(tx, lt.Table, legacyName, targets, exprs)
	if copyErr == nil && lt.After != nil {
		copyErr = lt.After(tx, legacyName, oldCols)
	}
	if copyErr != nil {
		if err := tx.RollbackTo("rebuild_copy").Error; err != nil {
			return fmt.Errorf("failed to roll back copy into %s: %w", lt.Table, err)
		}
		log.Printf("Could not copy rows into rebuilt %s table, its previous data was lost: %v", lt.Table, copyErr)
	}

	if err := tx.Exec(fmt.Sprintf("DROP TABLE %s", quote(legacyName))).Error; err != nil {
		return fmt.Errorf("failed to drop %s: %w", legacyName, err)
	}
	return nil
}

// copyPlan pairs every current column with the legacy expression that fills
// it. Columns with no source keep their defaults.
func copyPlan(newCols, oldCols map[string]bool, sources []columnSource) (targets, exprs []string) {
	bySource := make(map[string]columnSource, len(sources))
	for _, s := range sources {
		if oldCols[s.Requires] {
			bySource[s.Column] = s
		}
	}
	for _, col := range sortedKeys(newCols) {
		if s, ok := bySource[col]; ok {
			targets = append(targets, quote(col))
			exprs = append(exprs, s.Expr)
			continue
		}
		if oldCols[col] {
			targets = append(targets, quote(col))
			exprs = append(exprs, "legacy."+quote(col))
		}
	}
	return targets, exprs
}

func copyRows(tx *gorm.DB, table, legacyName string, targets, exprs []string) error {
	if len(targets) == 0 {
		return nil
	}
	res := tx.Exec(fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s AS legacy",
		quote(table), strings.Join(targets, ", "), strings.Join(exprs, ", "), quote(legacyName)))
	if res.Error != nil {
		return res.Error
	}
	log.Printf("Copied %d row(s) into rebuilt %s table", res.RowsAffected, table)
	return nil
}

// moveLegacyDocuments turns inline book payloads into blob rows under the
// keys the copy assigned.
func moveLegacyDocuments(tx *gorm.DB, legacyName string, legacyCols map[string]bool) error {
	if !legacyCols["pdf_data"] {
		return nil
	}
	return tx.Exec(fmt.Sprintf(`INSERT INTO blobs ("key", content_type, size, data, created_at)
		SELECT 'books/legacy-' || id, 'application/pdf', LENGTH(pdf_data), pdf_data, CURRENT_TIMESTAMP
		FROM %s WHERE pdf_data IS NOT NULL`, quote(legacyName))).Error
}

func columnNames(tx *gorm.DB, table string) (map[string]bool, error) {
	types, err := tx.Migrator().ColumnTypes(table)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	cols := make(map[string]bool, len(types))
	for _, ct := range types {
		cols[ct.Name()] = true
	}
	return cols, nil
}

func dropIndexes(tx *gorm.DB, table string) error {
	var names []string
	err := tx.Raw("SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND sql IS NOT NULL", table).
		Scan(&names).Error
	if err != nil {
		return fmt.Errorf("failed to list indexes of %s: %w", table, err)
	}
	for _, name := range names {
		if err := tx.Exec(fmt.Sprintf("DROP INDEX %s", quote(name))).Error; err != nil {
			return fmt.Errorf("failed to drop index %s: %w", name, err)
		}
	}
	return nil
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
