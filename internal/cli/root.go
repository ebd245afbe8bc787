package cli

import (
	"fmt"
	"log/slog"
	"os"

	"messaging-service/internal/config"
	"messaging-service/internal/database"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// NewRootCommand creates the messaging-service command tree.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "messaging-service",
		Short:         "Direct messages, groups and notifications over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newNotifyWorkerCommand())
	cmd.AddCommand(newCreateAdminCommand())

	return cmd
}

// bootstrap loads config, installs the slog handler and opens the database.
func bootstrap() (*config.Config, *gorm.DB, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	setupLogger(cfg.Log)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func setupLogger(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func closeDB(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, db, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeDB(db)

			slog.Info("Running database migration")
			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			slog.Info("Database migration completed")
			return nil
		},
	}
}
