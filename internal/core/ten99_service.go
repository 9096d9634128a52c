package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Ten99Service accumulates reportable payment totals per vendor and tax
// year. Recording is idempotent per payment id: replaying the same payment
// never double-counts.
type Ten99Service struct {
	pool *pgxpool.Pool
}

func NewTen99Service(pool *pgxpool.Pool) *Ten99Service {
	return &Ten99Service{pool: pool}
}

// RecordInTx records a reportable payment inside the caller's transaction.
// The primary key on payment_id makes a replay a no-op.
func (s *Ten99Service) RecordInTx(ctx context.Context, tx pgx.Tx, paymentID, vendorID, taxYear int, amount decimal.Decimal) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO ten99_payments (payment_id, vendor_id, tax_year, amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (payment_id) DO NOTHING
	`, paymentID, vendorID, taxYear, amount)
	if err != nil {
		return fmt.Errorf("record 1099 amount for payment %d: %w", paymentID, err)
	}
	return nil
}

// ReverseInTx undoes a prior recording. Reversing a payment that was never
// recorded (or already reversed) is a no-op.
func (s *Ten99Service) ReverseInTx(ctx context.Context, tx pgx.Tx, paymentID int) error {
	_, err := tx.Exec(ctx, `
		UPDATE ten99_payments SET reversed_at = NOW()
		WHERE payment_id = $1 AND reversed_at IS NULL
	`, paymentID)
	if err != nil {
		return fmt.Errorf("reverse 1099 recording for payment %d: %w", paymentID, err)
	}
	return nil
}

// Summary returns the accumulated reportable total for a vendor and tax year.
func (s *Ten99Service) Summary(ctx context.Context, vendorCode string, taxYear int) (*Ten99Summary, error) {
	var vendorID int
	if err := s.pool.QueryRow(ctx,
		"SELECT id FROM vendors WHERE code = $1", vendorCode,
	).Scan(&vendorID); err != nil {
		return nil, fmt.Errorf("vendor %q not found: %w", vendorCode, err)
	}

	var total decimal.Decimal
	if err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM ten99_payments
		WHERE vendor_id = $1 AND tax_year = $2 AND reversed_at IS NULL
	`, vendorID, taxYear).Scan(&total); err != nil {
		return nil, fmt.Errorf("sum 1099 total for vendor %s year %d: %w", vendorCode, taxYear, err)
	}

	return &Ten99Summary{VendorCode: vendorCode, TaxYear: taxYear, ReportableTotal: total}, nil
}
