package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"payables-engine/internal/app"
	"payables-engine/internal/core"
	"payables-engine/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import-invoices [batch-file]",
	Short: "Create vouchers from a JSON batch of vendor invoices",
	Long: `Read a JSON array of invoices and create a voucher for each one.
Each invoice is processed independently: a rejected invoice (validation
failure, duplicate, unknown vendor) is reported and skipped, and the rest of
the batch continues. The exit status is non-zero if any invoice failed.

Batch file format:
  [
    {
      "vendor_code": "V1",
      "invoice_number": "INV-100",
      "invoice_date": "2026-03-01",
      "gross_amount": "1000.00",
      "lines": [
        {"account_code": "5100", "amount": "600.00"},
        {"account_code": "5200", "amount": "400.00"}
      ]
    }
  ]`,
	Args: cobra.ExactArgs(1),
	RunE: runImportInvoices,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

type importResult struct {
	InvoiceNumber string         `json:"invoice_number"`
	VoucherID     int            `json:"voucher_id,omitempty"`
	Status        string         `json:"status"`
	Error         string         `json:"error,omitempty"`
	Failures      []core.Failure `json:"failures,omitempty"`
}

func runImportInvoices(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("import-invoices")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read batch file: %w", err)
	}
	var batch []app.CreateVoucherRequest
	if err := json.Unmarshal(data, &batch); err != nil {
		return fmt.Errorf("parse batch file: %w", err)
	}
	if len(batch) == 0 {
		return fmt.Errorf("batch file contains no invoices")
	}

	return withService(context.Background(), func(ctx context.Context, svc app.ApplicationService, _ *pgxpool.Pool) error {
		results := make([]importResult, 0, len(batch))
		failed := 0

		for _, req := range batch {
			res := importResult{InvoiceNumber: req.InvoiceNumber}
			voucher, err := svc.CreateVoucher(ctx, req)
			switch {
			case err == nil:
				res.Status = "created"
				res.VoucherID = voucher.ID
				log.Info().
					Str("invoice", req.InvoiceNumber).
					Str("vendor", req.VendorCode).
					Int("voucher_id", voucher.ID).
					Msg("voucher created")
			default:
				failed++
				res.Status = "rejected"
				res.Error = err.Error()
				if ve, ok := core.AsValidationError(err); ok {
					res.Failures = ve.Failures
				}
				log.Warn().
					Str("invoice", req.InvoiceNumber).
					Str("vendor", req.VendorCode).
					Err(err).
					Msg("invoice rejected")
			}
			results = append(results, res)
		}

		if err := printJSON(results); err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d invoices rejected", failed, len(batch))
		}
		return nil
	})
}
