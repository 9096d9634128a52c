package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"payables-engine/internal/app"
	"payables-engine/internal/db"
	"payables-engine/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "apctl",
	Short: "apctl - accounts-payable batch operations",
	Long: `apctl drives the accounts-payable engine from the command line:
import invoice batches, apply and void payments, void vouchers, and pull
voucher status, 1099 totals, and the trial balance.

All commands read DATABASE_URL from the environment (or a .env file in the
working directory).`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		return logger.Setup(logger.FromEnv())
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// withService opens the connection pool, builds the application service, and
// hands both to fn. The pool is closed when fn returns.
func withService(ctx context.Context, fn func(ctx context.Context, svc app.ApplicationService, pool *pgxpool.Pool) error) error {
	pool, err := db.NewPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, app.NewAppService(pool), pool)
}

// printJSON renders a result to stdout for scripting.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
