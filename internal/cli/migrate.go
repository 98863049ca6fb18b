package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookverse/internal/config"
	"github.com/mrlokans/bookverse/internal/database"
)

// MigrateCommand applies pending schema migrations and exits.
type MigrateCommand struct {
	DatabasePath string
	Status       bool

	out io.Writer
}

func NewMigrateCommand() *MigrateCommand {
	return &MigrateCommand{out: os.Stdout}
}

func (cmd *MigrateCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)

	fs.StringVar(&cmd.DatabasePath, "db", envOr("DATABASE_PATH", config.DefaultDatabasePath), "Path to the database file")
	fs.BoolVar(&cmd.Status, "status", false, "List applied and pending migrations without applying anything")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s migrate [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Apply pending schema migrations, including the rebuild of legacy tables.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	return fs.Parse(args)
}

func (cmd *MigrateCommand) Run() error {
	db, err := database.Open(cmd.DatabasePath, database.Options{LogLevel: logger.Warn, SkipMigrations: true})
	if err != nil {
		return err
	}
	defer db.Close()

	if cmd.Status {
		return cmd.printStatus(db)
	}

	applied, err := database.Migrate(db.DB)
	if err != nil {
		return err
	}
	if applied == 0 {
		fmt.Fprintln(cmd.out, "Schema is up to date")
		return nil
	}
	fmt.Fprintf(cmd.out, "Applied %d migration(s)\n", applied)
	return nil
}

func (cmd *MigrateCommand) printStatus(db *database.Database) error {
	pending, err := database.PendingMigrations(db.DB)
	if err != nil {
		return err
	}
	if db.DB.Migrator().HasTable("schema_migrations") {
		applied, err := database.AppliedMigrations(db.DB)
		if err != nil {
			return err
		}
		for _, m := range applied {
			fmt.Fprintf(cmd.out, "applied  %3d  %s  (%s)\n", m.Version, m.Name, m.AppliedAt.Format("2006-01-02 15:04:05"))
		}
	}
	for _, m := range pending {
		fmt.Fprintf(cmd.out, "pending  %3d  %s\n", m.Version, m.Name)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
