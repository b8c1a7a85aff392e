package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/akowalski/bibliotek/internal/auth"
	"github.com/akowalski/bibliotek/internal/config"
	"github.com/akowalski/bibliotek/internal/database"
	"github.com/akowalski/bibliotek/internal/entities"
)

// CreateUserCommand registers a library user from the command line.
type CreateUserCommand struct {
	DatabasePath string
	Username     string
	Password     string
	Role         string
	FirstName    string
	LastName     string
}

// NewCreateUserCommand creates a new CreateUserCommand.
func NewCreateUserCommand() *CreateUserCommand {
	return &CreateUserCommand{}
}

// ParseFlags parses command line flags.
func (cmd *CreateUserCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)

	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the library database file")
	fs.StringVar(&cmd.Username, "username", "", "Username for the new account (required)")
	fs.StringVar(&cmd.Password, "password", "", "Password, read from BIBLIOTEK_PASSWORD if empty")
	fs.StringVar(&cmd.Role, "role", "USER", "Account role: USER or ADMIN")
	fs.StringVar(&cmd.FirstName, "first-name", "", "First name")
	fs.StringVar(&cmd.LastName, "last-name", "", "Last name")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-user [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Register a library user.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s create-user -username jkowalski -first-name Jan -last-name Kowalski\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s create-user -username admin -role ADMIN\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Password == "" {
		cmd.Password = os.Getenv("BIBLIOTEK_PASSWORD")
	}
	return nil
}

// Run creates the user account.
func (cmd *CreateUserCommand) Run() error {
	if cmd.Username == "" {
		return fmt.Errorf("-username is required")
	}
	if cmd.Password == "" {
		return fmt.Errorf("no password given: use -password or BIBLIOTEK_PASSWORD")
	}

	role := entities.UserRole(strings.ToUpper(cmd.Role))

	cfg := config.NewConfig()
	db, err := database.NewDatabase(cmd.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	service := auth.NewService(db.DB, cfg.Auth)
	user, err := service.CreateUser(cmd.Username, cmd.Password, role, cmd.FirstName, cmd.LastName)
	if err != nil {
		return err
	}

	fmt.Printf("Created %s account %q (id %d)\n", user.Role, user.Username, user.ID)
	return nil
}
