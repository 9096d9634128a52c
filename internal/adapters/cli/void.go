package cli

import (
	"context"
	"fmt"
	"strconv"

	"payables-engine/internal/app"
	"payables-engine/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var voidVoucherCmd = &cobra.Command{
	Use:   "void-voucher [voucher-id]",
	Short: "Void an unpaid voucher, reversing its GL entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runVoidVoucher,
}

var voidPaymentCmd = &cobra.Command{
	Use:   "void-payment [payment-id]",
	Short: "Void an applied payment, reversing its GL entry and reopening the vouchers",
	Args:  cobra.ExactArgs(1),
	RunE:  runVoidPayment,
}

func init() {
	rootCmd.AddCommand(voidVoucherCmd)
	rootCmd.AddCommand(voidPaymentCmd)
}

func runVoidVoucher(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid voucher ID %q", args[0])
	}
	log := logger.WithComponent("void-voucher")

	return withService(context.Background(), func(ctx context.Context, svc app.ApplicationService, _ *pgxpool.Pool) error {
		voucher, err := svc.VoidVoucher(ctx, id)
		if err != nil {
			return err
		}
		log.Info().Int("voucher_id", voucher.ID).Msg("voucher voided")
		return printJSON(voucher)
	})
}

func runVoidPayment(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid payment ID %q", args[0])
	}
	log := logger.WithComponent("void-payment")

	return withService(context.Background(), func(ctx context.Context, svc app.ApplicationService, _ *pgxpool.Pool) error {
		payment, err := svc.VoidPayment(ctx, id)
		if err != nil {
			return err
		}
		log.Info().Int("payment_id", payment.ID).Msg("payment voided")
		return printJSON(payment)
	})
}
