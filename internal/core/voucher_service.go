package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// VoucherService owns the voucher state machine:
// OPEN -> PARTIALLY_PAID -> PAID, with OPEN/PARTIALLY_PAID -> VOID allowed
// only while no applied payment touches the voucher.
type VoucherService struct {
	pool   *pgxpool.Pool
	ledger *Ledger
}

func NewVoucherService(pool *pgxpool.Pool, ledger *Ledger) *VoucherService {
	return &VoucherService{pool: pool, ledger: ledger}
}

// CreateVoucher validates a candidate invoice, rejects duplicates, persists
// the voucher with its expense lines, and posts the payable entry — all in
// one transaction. On any failure nothing is created.
func (s *VoucherService) CreateVoucher(ctx context.Context, in InvoiceInput) (*Voucher, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	vendor, err := getVendorByCodeTx(ctx, tx, in.VendorCode)
	if err != nil {
		return nil, err
	}

	// Duplicate detector: a non-void voucher for (vendor, invoice number)
	// blocks re-entry; a voided one does not.
	var exists bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM vouchers
			WHERE vendor_id = $1 AND invoice_number = $2 AND status <> 'VOID'
		)`, vendor.ID, in.InvoiceNumber,
	).Scan(&exists); err != nil {
		return nil, fmt.Errorf("duplicate invoice check: %w", err)
	}
	if exists {
		return nil, Fail(DuplicateInvoice, "invoice_number",
			fmt.Sprintf("invoice %s already recorded for vendor %s", in.InvoiceNumber, vendor.Code))
	}

	invoiceDate, err := ParseDate(in.InvoiceDate)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice date %q: %w", in.InvoiceDate, err)
	}
	dueDate := in.DueDate
	if dueDate == "" {
		dueDate = invoiceDate.AddDate(0, 0, vendor.PaymentTermsDays).Format(dateLayout)
	}

	// Candidate discount from the vendor rule; eligibility is re-checked
	// against the discount window when a payment is applied.
	discount := ComputeDiscount(in.GrossAmount, vendor.DiscountPercent)
	net := in.GrossAmount.Sub(discount)

	var voucherID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO vouchers (vendor_id, invoice_number, invoice_date, due_date,
		                      gross_amount, discount_amount, net_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'OPEN')
		RETURNING id`,
		vendor.ID, in.InvoiceNumber, in.InvoiceDate, dueDate,
		in.GrossAmount, discount, net,
	).Scan(&voucherID); err != nil {
		return nil, fmt.Errorf("insert voucher: %w", err)
	}

	for i, line := range in.Lines {
		var accountID int
		if err := tx.QueryRow(ctx,
			"SELECT id FROM accounts WHERE code = $1 AND type = 'expense'", line.AccountCode,
		).Scan(&accountID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("line %d: expense account %q not found", i+1, line.AccountCode)
			}
			return nil, fmt.Errorf("line %d: resolve account: %w", i+1, err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO voucher_lines (voucher_id, line_number, account_id, amount)
			VALUES ($1, $2, $3, $4)`,
			voucherID, i+1, accountID, line.Amount,
		); err != nil {
			return nil, fmt.Errorf("insert voucher line %d: %w", i+1, err)
		}
	}

	// Standard creation pattern: debit each expense line, credit the
	// vendor's AP control account for the gross amount.
	posting := Posting{
		SourceType:     SourceVoucher,
		SourceRef:      fmt.Sprintf("%s/%s", vendor.Code, in.InvoiceNumber),
		IdempotencyKey: fmt.Sprintf("voucher-%d-create", voucherID),
		PostingDate:    in.InvoiceDate,
		Memo:           fmt.Sprintf("Invoice %s from %s", in.InvoiceNumber, vendor.Name),
	}
	for _, line := range in.Lines {
		posting.Lines = append(posting.Lines, PostingLine{
			AccountCode: line.AccountCode, IsDebit: true, Amount: line.Amount,
		})
	}
	posting.Lines = append(posting.Lines, PostingLine{
		AccountCode: vendor.APAccountCode, IsDebit: false, Amount: in.GrossAmount,
	})

	rec, err := s.ledger.PostInTx(ctx, tx, posting)
	if err != nil {
		return nil, fmt.Errorf("post voucher entry: %w", err)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE vouchers SET creation_posting_id = $1 WHERE id = $2", rec.ID, voucherID,
	); err != nil {
		return nil, fmt.Errorf("link creation posting: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit voucher: %w", err)
	}

	return s.GetVoucher(ctx, voucherID)
}

// VoidVoucher voids an OPEN or PARTIALLY_PAID voucher with zero applied
// payments, posting an exact reversal of the creation entry. Voiding after
// any applied payment is rejected with VoidAfterPayment.
func (s *VoucherService) VoidVoucher(ctx context.Context, voucherID int) (*Voucher, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status VoucherStatus
	var creationPostingID *int
	var vendorCode, invoiceNumber string
	err = tx.QueryRow(ctx, `
		SELECT v.status, v.creation_posting_id, vn.code, v.invoice_number
		FROM vouchers v
		JOIN vendors vn ON vn.id = v.vendor_id
		WHERE v.id = $1
		FOR UPDATE OF v`, voucherID,
	).Scan(&status, &creationPostingID, &vendorCode, &invoiceNumber)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("voucher %d not found", voucherID)
		}
		return nil, fmt.Errorf("fetch voucher %d: %w", voucherID, err)
	}

	if status == VoucherVoid {
		return nil, fmt.Errorf("voucher %d is already void", voucherID)
	}

	applied, err := appliedTotalTx(ctx, tx, voucherID)
	if err != nil {
		return nil, err
	}
	if status == VoucherPaid || applied.IsPositive() {
		return nil, Fail(VoidAfterPayment, "voucher_id",
			fmt.Sprintf("voucher %d has %s in applied payments and cannot be voided", voucherID, applied.StringFixed(2)))
	}

	if creationPostingID == nil {
		return nil, fmt.Errorf("voucher %d has no creation posting to reverse", voucherID)
	}

	voidPostingID, err := s.ledger.ReverseInTx(ctx, tx, *creationPostingID,
		SourceVoucherVoid, fmt.Sprintf("%s/%s", vendorCode, invoiceNumber),
		fmt.Sprintf("Void voucher %d (invoice %s)", voucherID, invoiceNumber))
	if err != nil {
		return nil, fmt.Errorf("reverse creation posting: %w", err)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE vouchers SET status = 'VOID', void_posting_id = $1 WHERE id = $2",
		voidPostingID, voucherID,
	); err != nil {
		return nil, fmt.Errorf("void voucher %d: %w", voucherID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit void: %w", err)
	}

	return s.GetVoucher(ctx, voucherID)
}

// GetVoucher returns a voucher with its lines and the computed outstanding
// balance (net amount minus applied allocations, never negative).
func (s *VoucherService) GetVoucher(ctx context.Context, voucherID int) (*Voucher, error) {
	v := &Voucher{}
	var applied decimal.Decimal
	err := s.pool.QueryRow(ctx, `
		SELECT v.id, v.vendor_id, vn.code, v.invoice_number,
		       v.invoice_date::text, v.due_date::text,
		       v.gross_amount, v.discount_amount, v.net_amount, v.status,
		       v.creation_posting_id, v.void_posting_id, v.created_at,
		       COALESCE((
		           SELECT SUM(pa.amount)
		           FROM payment_allocations pa
		           JOIN payments p ON p.id = pa.payment_id
		           WHERE pa.voucher_id = v.id AND p.status = 'APPLIED'
		       ), 0)
		FROM vouchers v
		JOIN vendors vn ON vn.id = v.vendor_id
		WHERE v.id = $1`, voucherID,
	).Scan(
		&v.ID, &v.VendorID, &v.VendorCode, &v.InvoiceNumber,
		&v.InvoiceDate, &v.DueDate,
		&v.GrossAmount, &v.DiscountAmount, &v.NetAmount, &v.Status,
		&v.CreationPostingID, &v.VoidPostingID, &v.CreatedAt,
		&applied,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("voucher %d not found", voucherID)
		}
		return nil, fmt.Errorf("fetch voucher %d: %w", voucherID, err)
	}

	if v.Status == VoucherVoid {
		v.Outstanding = decimal.Zero
	} else {
		v.Outstanding = v.NetAmount.Sub(applied)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT l.id, l.voucher_id, l.line_number, a.code, l.amount
		FROM voucher_lines l
		JOIN accounts a ON a.id = l.account_id
		WHERE l.voucher_id = $1
		ORDER BY l.line_number`, voucherID)
	if err != nil {
		return nil, fmt.Errorf("fetch voucher lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l VoucherLine
		if err := rows.Scan(&l.ID, &l.VoucherID, &l.LineNumber, &l.AccountCode, &l.Amount); err != nil {
			return nil, fmt.Errorf("scan voucher line: %w", err)
		}
		v.Lines = append(v.Lines, l)
	}
	return v, rows.Err()
}

// appliedTotalTx sums the allocations of non-voided payments against a
// voucher, inside the caller's transaction.
func appliedTotalTx(ctx context.Context, tx pgx.Tx, voucherID int) (decimal.Decimal, error) {
	var applied decimal.Decimal
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(pa.amount), 0)
		FROM payment_allocations pa
		JOIN payments p ON p.id = pa.payment_id
		WHERE pa.voucher_id = $1 AND p.status = 'APPLIED'`, voucherID,
	).Scan(&applied)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum applied allocations for voucher %d: %w", voucherID, err)
	}
	return applied, nil
}
