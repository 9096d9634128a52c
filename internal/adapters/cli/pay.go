package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"payables-engine/internal/app"
	"payables-engine/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var payCmd = &cobra.Command{
	Use:   "pay",
	Short: "Apply a payment against one or more vouchers",
	Example: `  # Pay voucher 42 in full
  apctl pay --vendor V1 --ref CHK-5001 --cash 1000 --amount 980.00 --alloc 42=980.00

  # Split one check across two vouchers
  apctl pay --vendor V1 --ref CHK-5002 --cash 1000 --amount 1300.00 \
      --alloc 42=1000.00 --alloc 43=300.00`,
	RunE: runPay,
}

func init() {
	rootCmd.AddCommand(payCmd)

	payCmd.Flags().String("vendor", "", "Vendor code")
	payCmd.Flags().String("ref", "", "Check number or electronic payment reference")
	payCmd.Flags().String("date", "", "Payment date YYYY-MM-DD (default: today)")
	payCmd.Flags().String("amount", "", "Total payment amount")
	payCmd.Flags().String("cash", "1000", "Cash account code")
	payCmd.Flags().StringArray("alloc", nil, "Allocation as voucherID=amount (repeatable)")
	_ = payCmd.MarkFlagRequired("vendor")
	_ = payCmd.MarkFlagRequired("ref")
	_ = payCmd.MarkFlagRequired("amount")
	_ = payCmd.MarkFlagRequired("alloc")
}

func runPay(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("pay")

	vendor, _ := cmd.Flags().GetString("vendor")
	ref, _ := cmd.Flags().GetString("ref")
	date, _ := cmd.Flags().GetString("date")
	amount, _ := cmd.Flags().GetString("amount")
	cash, _ := cmd.Flags().GetString("cash")
	allocSpecs, _ := cmd.Flags().GetStringArray("alloc")

	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	req := app.ApplyPaymentRequest{
		PaymentRef:      ref,
		VendorCode:      vendor,
		PaymentDate:     date,
		Amount:          amount,
		CashAccountCode: cash,
	}
	for _, spec := range allocSpecs {
		id, amt, err := parseAllocSpec(spec)
		if err != nil {
			return err
		}
		req.Allocations = append(req.Allocations, app.AllocationRequest{VoucherID: id, Amount: amt})
	}

	return withService(context.Background(), func(ctx context.Context, svc app.ApplicationService, _ *pgxpool.Pool) error {
		payment, err := svc.ApplyPayment(ctx, req)
		if err != nil {
			return err
		}
		log.Info().
			Int("payment_id", payment.ID).
			Str("ref", payment.PaymentRef).
			Str("vendor", payment.VendorCode).
			Msg("payment applied")
		return printJSON(payment)
	})
}

// parseAllocSpec splits a "voucherID=amount" flag value.
func parseAllocSpec(spec string) (int, string, error) {
	parts := strings.SplitN(spec, "=", 2)
	if len(parts) != 2 {
		return 0, "", fmt.Errorf("invalid --alloc %q: expected voucherID=amount", spec)
	}
	id, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", fmt.Errorf("invalid --alloc %q: voucher ID must be numeric", spec)
	}
	return id, parts[1], nil
}
