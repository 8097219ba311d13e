package cli

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reportly-app/reportly/pkg/config"
	"github.com/reportly-app/reportly/pkg/database"
	"github.com/reportly-app/reportly/pkg/logging"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrationDB(opts, func(db *sql.DB, logger *zap.Logger) error {
				return database.RunMigrations(db, logger)
			})
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrationDB(opts, func(db *sql.DB, logger *zap.Logger) error {
				return database.RollbackMigrations(db, steps, logger)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrationDB(opts, func(db *sql.DB, logger *zap.Logger) error {
				version, dirty, err := database.MigrationVersion(db, logger)
				if err != nil {
					return err
				}
				suffix := ""
				if dirty {
					suffix = " (dirty)"
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema version %d%s\n", version, suffix)
				return err
			})
		},
	})

	return cmd
}

func withMigrationDB(opts *rootOptions, fn func(db *sql.DB, logger *zap.Logger) error) error {
	cfg, err := config.Load(opts.configPath, opts.version)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	return openMigrationDB(cfg, logger, fn)
}

func openMigrationDB(cfg *config.Config, logger *zap.Logger, fn func(db *sql.DB, logger *zap.Logger) error) error {
	db, err := sql.Open("pgx", cfg.Database.URL())
	if err != nil {
		return fmt.Errorf("failed to open database: %s", logging.SanitizeError(err))
	}
	defer db.Close()

	return fn(db, logger.Named("migrations"))
}
