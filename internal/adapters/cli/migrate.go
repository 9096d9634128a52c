package cli

import (
	"context"

	"payables-engine/internal/db"
	"payables-engine/internal/logger"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long: `Apply the schema file to the database named by DATABASE_URL.
The schema uses IF NOT EXISTS guards throughout, so running migrate against
an already-initialized database is a no-op.`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.Flags().String("file", "migrations/schema.sql", "Path to the schema file")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("migrate")
	path, _ := cmd.Flags().GetString("file")

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool, path); err != nil {
		return err
	}
	log.Info().Str("file", path).Msg("schema applied")
	return nil
}
