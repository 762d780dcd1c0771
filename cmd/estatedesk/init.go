package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/estatedesk/internal/db"
	"github.com/erazemk/estatedesk/internal/model"
	"github.com/erazemk/estatedesk/internal/store"
)

func newInitCommand(ctx *commandContext) *cobra.Command {
	var adminUser string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database and the first admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if _, err := os.Stat(cfg.DB.Path); err == nil {
				return fmt.Errorf("database file %s already exists", cfg.DB.Path)
			}
			database, password, err := initDatabase(cfg.DB.Path, adminUser)
			if err != nil {
				return err
			}
			database.Close()
			printInitResult(cmd, cfg.DB.Path, adminUser, password)
			return nil
		},
	}
	cmd.Flags().StringVarP(&adminUser, "user", "u", "admin", "admin username")
	return cmd
}

// initDatabase creates a new database, applies migrations, and creates the admin user.
func initDatabase(path, adminUsername string) (*sql.DB, string, error) {
	database, err := db.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}

	fail := func(format string, err error) (*sql.DB, string, error) {
		database.Close()
		os.Remove(path)
		return nil, "", fmt.Errorf(format, err)
	}

	if err := db.Migrate(database); err != nil {
		return fail("running migrations: %w", err)
	}

	password, err := generatePassword(16)
	if err != nil {
		return fail("generating password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fail("hashing password: %w", err)
	}

	if _, err := store.CreateUser(context.Background(), database, adminUsername, string(hash), model.RoleAdmin); err != nil {
		return fail("creating admin user: %w", err)
	}

	return database, password, nil
}

// printInitResult prints the database initialization result.
func printInitResult(cmd *cobra.Command, dbPath, username, password string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Database created: %s\n", dbPath)
	fmt.Fprintln(out, "Schema initialized.")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Admin account created:")
	fmt.Fprintf(out, "  Username: %s\n", username)
	fmt.Fprintf(out, "  Password: %s\n", password)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Save this password, it cannot be recovered.")
	fmt.Fprintln(out, "The admin can change it after logging in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
