package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookverse/internal/auth"
	"github.com/mrlokans/bookverse/internal/config"
	"github.com/mrlokans/bookverse/internal/database"
	"github.com/mrlokans/bookverse/internal/database/users"
)

// CreateUserCommand provisions an account of any role. It is the only way
// to create admin and tech_support accounts.
type CreateUserCommand struct {
	DatabasePath string
	Email        string
	Username     string
	Password     string
	DisplayName  string
	Role         string

	out io.Writer
}

func NewCreateUserCommand() *CreateUserCommand {
	return &CreateUserCommand{out: os.Stdout}
}

func (cmd *CreateUserCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)

	fs.StringVar(&cmd.DatabasePath, "db", envOr("DATABASE_PATH", config.DefaultDatabasePath), "Path to the database file")
	fs.StringVar(&cmd.Email, "email", "", "Email address (required)")
	fs.StringVar(&cmd.Username, "username", "", "Username (required)")
	fs.StringVar(&cmd.Password, "password", "", "Password (required, or set BOOKVERSE_PASSWORD)")
	fs.StringVar(&cmd.DisplayName, "name", "", "Display name")
	fs.StringVar(&cmd.Role, "role", "reader", "Role: reader, author, admin or tech_support")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-user -email <email> -username <name> -password <password> [-role admin] [-name <display name>]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create an account directly in the database.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s create-user -email ops@example.com -username ops -role tech_support -password '...'\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Password == "" {
		cmd.Password = os.Getenv("BOOKVERSE_PASSWORD")
	}
	switch {
	case cmd.Email == "":
		return fmt.Errorf("required flag -email not provided")
	case cmd.Username == "":
		return fmt.Errorf("required flag -username not provided")
	case cmd.Password == "":
		return fmt.Errorf("required flag -password not provided")
	}
	return nil
}

func (cmd *CreateUserCommand) Run() error {
	db, err := database.Open(cmd.DatabasePath, database.Options{LogLevel: logger.Warn})
	if err != nil {
		return err
	}
	defer db.Close()

	cfg := config.NewConfig()
	service := auth.NewService(users.NewRepository(db.DB), cfg.Auth)
	user, err := service.Provision(auth.Registration{
		Email:       cmd.Email,
		Username:    cmd.Username,
		Password:    cmd.Password,
		DisplayName: cmd.DisplayName,
		Role:        cmd.Role,
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(cmd.out, "Created %s account %q (id %d)\n", user.Role, user.Username, user.ID)
	return nil
}
