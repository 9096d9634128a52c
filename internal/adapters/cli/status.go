package cli

import (
	"context"
	"fmt"
	"strconv"

	"payables-engine/internal/app"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [voucher-id]",
	Short: "Show a voucher with its lines and outstanding balance",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var ten99Cmd = &cobra.Command{
	Use:   "ten99 [vendor-code] [tax-year]",
	Short: "Show the accumulated 1099 reportable total for a vendor and year",
	Args:  cobra.ExactArgs(2),
	RunE:  runTen99,
}

var balancesCmd = &cobra.Command{
	Use:   "balances",
	Short: "Show the trial balance computed from GL entry history",
	Args:  cobra.NoArgs,
	RunE:  runBalances,
}

var vendorsCmd = &cobra.Command{
	Use:   "vendors",
	Short: "List active vendors",
	Args:  cobra.NoArgs,
	RunE:  runVendors,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(ten99Cmd)
	rootCmd.AddCommand(balancesCmd)
	rootCmd.AddCommand(vendorsCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid voucher ID %q", args[0])
	}
	return withService(context.Background(), func(ctx context.Context, svc app.ApplicationService, _ *pgxpool.Pool) error {
		voucher, err := svc.GetVoucher(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(voucher)
	})
}

func runTen99(cmd *cobra.Command, args []string) error {
	year, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid tax year %q", args[1])
	}
	return withService(context.Background(), func(ctx context.Context, svc app.ApplicationService, _ *pgxpool.Pool) error {
		summary, err := svc.Get1099Summary(ctx, args[0], year)
		if err != nil {
			return err
		}
		return printJSON(summary)
	})
}

func runBalances(cmd *cobra.Command, args []string) error {
	return withService(context.Background(), func(ctx context.Context, svc app.ApplicationService, _ *pgxpool.Pool) error {
		balances, err := svc.GetTrialBalance(ctx)
		if err != nil {
			return err
		}
		return printJSON(balances)
	})
}

func runVendors(cmd *cobra.Command, args []string) error {
	return withService(context.Background(), func(ctx context.Context, svc app.ApplicationService, _ *pgxpool.Pool) error {
		vendors, err := svc.ListVendors(ctx)
		if err != nil {
			return err
		}
		return printJSON(vendors)
	})
}
