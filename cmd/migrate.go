package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/work-permit/internal"
	"github.com/frahmantamala/work-permit/pkg/logger"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "run db migration files under db/migrations directory",
		Long:  `Apply or roll back goose SQL migrations. Only the postgres driver keeps a schema; mongo indexes are created on server start.`,
	}
	migrateRollback bool
	migrateDir      string
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "rollback the latest version of sql migration")
	migrateCmd.PersistentFlags().StringVarP(&migrateDir, "dir", "d", "db/migrations", "sql migrations directory")
}

func runMigration(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Database.Driver != internal.DriverPostgres {
		return fmt.Errorf("migrate: driver %q has no sql schema", cfg.Database.Driver)
	}

	db, err := goose.OpenDBWithDriver("pgx", cfg.Database.Source)
	if err != nil {
		return fmt.Errorf("goose: failed to open DB: %w", err)
	}
	defer db.Close()
	goose.SetTableName("schema_migrations")

	direction := "up"
	if migrateRollback {
		direction = "down"
	}
	logger.LoggerWrapper().Info("running migrations", "direction", direction, "dir", migrateDir)
	if err := goose.RunContext(ctx, direction, db, migrateDir); err != nil {
		return fmt.Errorf("goose %s: %w", direction, err)
	}
	return nil
}
