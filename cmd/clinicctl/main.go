// Command clinicctl runs one-off maintenance tasks against the clinic database.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/clinic-api/internal/config"
	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/repository/postgres"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "clinicctl",
		Short:         "Maintenance commands for the clinic API",
		SilenceUsage:  true,
	}
	root.AddCommand(newMigrateCmd(), newAdminCmd())
	return root
}

func newMigrateCmd() *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	migrate.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply the schema (idempotent)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(cmd.Context(), func(_ *config.Config, db *sqlx.DB) error {
				if err := postgres.Migrate(cmd.Context(), db); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
				return nil
			})
		},
	})
	return migrate
}

func newAdminCmd() *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}

	var name, email, password string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !security.IsStrongPassword(password) {
				return fmt.Errorf("password must be at least %d characters with an uppercase letter, a digit and a special character", security.MinPasswordLen)
			}
			return withDB(cmd.Context(), func(cfg *config.Config, db *sqlx.DB) error {
				hash, err := security.NewBcryptHasher(cfg.Auth.BcryptCost).Hash(password)
				if err != nil {
					return err
				}

				user := &model.User{
					Name:         strings.TrimSpace(name),
					Email:        strings.ToLower(strings.TrimSpace(email)),
					PasswordHash: hash,
					Role:         model.RoleAdmin,
				}
				err = postgres.NewUserRepository(db).Create(cmd.Context(), user)
				if errors.Is(err, repository.ErrDuplicate) {
					return fmt.Errorf("an account with email %s already exists", user.Email)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", user.Email, user.ID)
				return nil
			})
		},
	}
	create.Flags().StringVar(&name, "name", "", "display name")
	create.Flags().StringVar(&email, "email", "", "login email")
	create.Flags().StringVar(&password, "password", "", "initial password")
	for _, f := range []string{"name", "email", "password"} {
		_ = create.MarkFlagRequired(f)
	}

	admin.AddCommand(create)
	return admin
}

func withDB(ctx context.Context, fn func(cfg *config.Config, db *sqlx.DB) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to reach database: %w", err)
	}
	return fn(cfg, db)
}
