package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// DefaultDiscountIncomeAccountCode receives the discount credit when an
// early-payment discount is taken.
const DefaultDiscountIncomeAccountCode = "4900"

// PaymentService applies and voids payments against open vouchers. A payment
// spanning several vouchers is one atomic unit: a failure on any allocation
// aborts the whole payment with no GL entries posted for any line.
type PaymentService struct {
	pool                *pgxpool.Pool
	ledger              *Ledger
	ten99               *Ten99Service
	discountAccountCode string
}

func NewPaymentService(pool *pgxpool.Pool, ledger *Ledger, ten99 *Ten99Service) *PaymentService {
	return &PaymentService{
		pool:                pool,
		ledger:              ledger,
		ten99:               ten99,
		discountAccountCode: DefaultDiscountIncomeAccountCode,
	}
}

// lockedVoucher is a voucher row held FOR UPDATE during payment application.
type lockedVoucher struct {
	id             int
	vendorID       int
	invoiceNumber  string
	invoiceDate    time.Time
	status         VoucherStatus
	grossAmount    decimal.Decimal
	discountAmount decimal.Decimal
	netAmount      decimal.Decimal
}

// ApplyPayment validates the payment, serializes on every target voucher,
// applies the allocations, posts one balanced GL transaction for the whole
// payment, and records the 1099 amount when both the vendor and the cash
// account are reportable. Everything happens in one transaction.
func (s *PaymentService) ApplyPayment(ctx context.Context, in PaymentInput) (*Payment, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	paymentDate, err := ParseDate(in.PaymentDate)
	if err != nil {
		return nil, fmt.Errorf("invalid payment date %q: %w", in.PaymentDate, err)
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

	// Check-sequence rule: a check number is unique per vendor among
	// non-voided payments.
	var refExists bool
	if err := tx.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM payments
			WHERE vendor_id = $1 AND payment_ref = $2 AND status <> 'VOIDED'
		)`, vendor.ID, in.PaymentRef,
	).Scan(&refExists); err != nil {
		return nil, fmt.Errorf("duplicate check number probe: %w", err)
	}
	if refExists {
		return nil, Fail(DuplicateCheckNumber, "payment_ref",
			fmt.Sprintf("check number %s already used for vendor %s", in.PaymentRef, vendor.Code))
	}

	var cashAccountID int
	var cashReportable bool
	if err := tx.QueryRow(ctx,
		"SELECT id, reportable_1099 FROM accounts WHERE code = $1 AND type = 'cash'",
		in.CashAccountCode,
	).Scan(&cashAccountID, &cashReportable); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("cash account %q not found", in.CashAccountCode)
		}
		return nil, fmt.Errorf("resolve cash account: %w", err)
	}

	// Lock vouchers in ascending id order so concurrent multi-voucher
	// payments cannot deadlock.
	allocations := make([]AllocationInput, len(in.Allocations))
	copy(allocations, in.Allocations)
	sort.Slice(allocations, func(i, j int) bool { return allocations[i].VoucherID < allocations[j].VoucherID })

	v := &ValidationError{}
	type resolvedAllocation struct {
		voucherID     int
		amount        decimal.Decimal
		discountTaken decimal.Decimal
		newStatus     VoucherStatus
	}
	var resolved []resolvedAllocation

	for _, alloc := range allocations {
		lv, err := lockVoucherTx(ctx, tx, alloc.VoucherID)
		if err != nil {
			return nil, err
		}
		if lv.vendorID != vendor.ID {
			return nil, fmt.Errorf("voucher %d does not belong to vendor %s", lv.id, vendor.Code)
		}
		if lv.status == VoucherVoid {
			return nil, fmt.Errorf("voucher %d is void and cannot receive payments", lv.id)
		}

		if paymentDate.Before(lv.invoiceDate) {
			v.Addf(InvalidPaymentDate, "payment_date",
				"payment date %s is before invoice date %s of voucher %d",
				in.PaymentDate, lv.invoiceDate.Format(dateLayout), lv.id)
			continue
		}

		// Discount normalization: outside the vendor's window the candidate
		// discount is forced to zero and the voucher owes its gross amount.
		// This is a permanent normalization, not a failure.
		eligible := DiscountEligible(lv.invoiceDate, paymentDate, vendor.DiscountDays)
		if lv.discountAmount.IsPositive() && !eligible {
			if _, err := tx.Exec(ctx, `
				UPDATE vouchers
				SET discount_amount = 0, net_amount = gross_amount
				WHERE id = $1`, lv.id,
			); err != nil {
				return nil, fmt.Errorf("normalize discount on voucher %d: %w", lv.id, err)
			}
			lv.discountAmount = decimal.Zero
			lv.netAmount = lv.grossAmount
		}

		applied, err := appliedTotalTx(ctx, tx, lv.id)
		if err != nil {
			return nil, err
		}
		outstanding := lv.netAmount.Sub(applied)

		if alloc.Amount.GreaterThan(outstanding) {
			v.Addf(OverpaymentAttempt, "allocations",
				"voucher %d: allocation %s exceeds outstanding balance %s",
				lv.id, alloc.Amount.StringFixed(2), outstanding.StringFixed(2))
			continue
		}

		// The early-payment discount is taken only when an in-window
		// allocation settles the remaining net in full.
		discountTaken := decimal.Zero
		if eligible && lv.discountAmount.IsPositive() && alloc.Amount.Equal(outstanding) {
			discountTaken = lv.discountAmount
		}

		newStatus := VoucherPartiallyPaid
		if applied.Add(alloc.Amount).Equal(lv.netAmount) {
			newStatus = VoucherPaid
		}

		resolved = append(resolved, resolvedAllocation{
			voucherID:     lv.id,
			amount:        alloc.Amount,
			discountTaken: discountTaken,
			newStatus:     newStatus,
		})
	}

	if err := v.ErrOrNil(); err != nil {
		return nil, err
	}

	var paymentID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO payments (vendor_id, payment_ref, payment_date, amount, cash_account_id, status)
		VALUES ($1, $2, $3, $4, $5, 'APPLIED')
		RETURNING id`,
		vendor.ID, in.PaymentRef, in.PaymentDate, in.Amount, cashAccountID,
	).Scan(&paymentID); err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}

	totalDiscount := decimal.Zero
	apRelief := decimal.Zero
	for _, ra := range resolved {
		if _, err := tx.Exec(ctx, `
			INSERT INTO payment_allocations (payment_id, voucher_id, amount, discount_taken)
			VALUES ($1, $2, $3, $4)`,
			paymentID, ra.voucherID, ra.amount, ra.discountTaken,
		); err != nil {
			return nil, fmt.Errorf("insert allocation for voucher %d: %w", ra.voucherID, err)
		}
		if _, err := tx.Exec(ctx,
			"UPDATE vouchers SET status = $1 WHERE id = $2", ra.newStatus, ra.voucherID,
		); err != nil {
			return nil, fmt.Errorf("update voucher %d status: %w", ra.voucherID, err)
		}
		totalDiscount = totalDiscount.Add(ra.discountTaken)
		// AP was credited at gross on creation, so relief is cash plus the
		// discount taken on this voucher.
		apRelief = apRelief.Add(ra.amount).Add(ra.discountTaken)
	}

	// Standard payment pattern: debit AP for the gross relief, credit cash
	// for the amount paid, credit discount income for any discount taken.
	posting := Posting{
		SourceType:     SourcePayment,
		SourceRef:      in.PaymentRef,
		IdempotencyKey: fmt.Sprintf("payment-%d-apply", paymentID),
		PostingDate:    in.PaymentDate,
		Memo:           fmt.Sprintf("Payment %s to %s", in.PaymentRef, vendor.Name),
		Lines: []PostingLine{
			{AccountCode: vendor.APAccountCode, IsDebit: true, Amount: apRelief},
			{AccountCode: in.CashAccountCode, IsDebit: false, Amount: in.Amount},
		},
	}
	if totalDiscount.IsPositive() {
		posting.Lines = append(posting.Lines, PostingLine{
			AccountCode: s.discountAccountCode, IsDebit: false, Amount: totalDiscount,
		})
	}

	rec, err := s.ledger.PostInTx(ctx, tx, posting)
	if err != nil {
		return nil, fmt.Errorf("post payment entry: %w", err)
	}
	if _, err := tx.Exec(ctx,
		"UPDATE payments SET posting_id = $1 WHERE id = $2", rec.ID, paymentID,
	); err != nil {
		return nil, fmt.Errorf("link payment posting: %w", err)
	}

	if vendor.Reportable1099 && cashReportable {
		if err := s.ten99.RecordInTx(ctx, tx, paymentID, vendor.ID, paymentDate.Year(), in.Amount); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit payment: %w", err)
	}

	return s.GetPayment(ctx, paymentID)
}

// VoidPayment reverses an applied payment: posts the reversing GL entry,
// marks the payment VOIDED, restores the affected vouchers' states from the
// recomputed applied totals, and reverses the 1099 recording.
func (s *PaymentService) VoidPayment(ctx context.Context, paymentID int) (*Payment, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status PaymentStatus
	var postingID *int
	var paymentRef string
	err = tx.QueryRow(ctx,
		"SELECT status, posting_id, payment_ref FROM payments WHERE id = $1 FOR UPDATE",
		paymentID,
	).Scan(&status, &postingID, &paymentRef)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("payment %d not found", paymentID)
		}
		return nil, fmt.Errorf("fetch payment %d: %w", paymentID, err)
	}
	if status != PaymentApplied {
		return nil, fmt.Errorf("payment %d cannot be voided: status is %s", paymentID, status)
	}
	if postingID == nil {
		return nil, fmt.Errorf("payment %d has no posting to reverse", paymentID)
	}

	// Lock affected vouchers in id order before touching their state.
	rows, err := tx.Query(ctx, `
		SELECT voucher_id FROM payment_allocations
		WHERE payment_id = $1 ORDER BY voucher_id`, paymentID)
	if err != nil {
		return nil, fmt.Errorf("fetch allocations: %w", err)
	}
	var voucherIDs []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		voucherIDs = append(voucherIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range voucherIDs {
		if _, err := lockVoucherTx(ctx, tx, id); err != nil {
			return nil, err
		}
	}

	voidPostingID, err := s.ledger.ReverseInTx(ctx, tx, *postingID,
		SourcePaymentVoid, paymentRef,
		fmt.Sprintf("Void payment %s", paymentRef))
	if err != nil {
		return nil, fmt.Errorf("reverse payment posting: %w", err)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE payments SET status = 'VOIDED', void_posting_id = $1 WHERE id = $2",
		voidPostingID, paymentID,
	); err != nil {
		return nil, fmt.Errorf("void payment %d: %w", paymentID, err)
	}

	// Recompute each voucher's state now that this payment no longer counts.
	// A discount normalization that already happened is not undone: the
	// window fact did not change.
	for _, id := range voucherIDs {
		applied, err := appliedTotalTx(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		var net decimal.Decimal
		if err := tx.QueryRow(ctx,
			"SELECT net_amount FROM vouchers WHERE id = $1", id,
		).Scan(&net); err != nil {
			return nil, fmt.Errorf("fetch voucher %d net: %w", id, err)
		}
		newStatus := VoucherOpen
		switch {
		case applied.Equal(net) && applied.IsPositive():
			newStatus = VoucherPaid
		case applied.IsPositive():
			newStatus = VoucherPartiallyPaid
		}
		if _, err := tx.Exec(ctx,
			"UPDATE vouchers SET status = $1 WHERE id = $2 AND status <> 'VOID'", newStatus, id,
		); err != nil {
			return nil, fmt.Errorf("restore voucher %d status: %w", id, err)
		}
	}

	if err := s.ten99.ReverseInTx(ctx, tx, paymentID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit payment void: %w", err)
	}

	return s.GetPayment(ctx, paymentID)
}

// GetPayment returns a payment with its voucher allocations.
func (s *PaymentService) GetPayment(ctx context.Context, paymentID int) (*Payment, error) {
	p := &Payment{}
	err := s.pool.QueryRow(ctx, `
		SELECT p.id, p.vendor_id, vn.code, p.payment_ref, p.payment_date::text,
		       p.amount, a.code, p.status, p.posting_id, p.void_posting_id, p.created_at
		FROM payments p
		JOIN vendors vn ON vn.id = p.vendor_id
		JOIN accounts a ON a.id = p.cash_account_id
		WHERE p.id = $1`, paymentID,
	).Scan(
		&p.ID, &p.VendorID, &p.VendorCode, &p.PaymentRef, &p.PaymentDate,
		&p.Amount, &p.CashAccountCode, &p.Status, &p.PostingID, &p.VoidPostingID, &p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("payment %d not found", paymentID)
		}
		return nil, fmt.Errorf("fetch payment %d: %w", paymentID, err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT voucher_id, amount, discount_taken
		FROM payment_allocations
		WHERE payment_id = $1
		ORDER BY voucher_id`, paymentID)
	if err != nil {
		return nil, fmt.Errorf("fetch allocations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a PaymentAllocation
		if err := rows.Scan(&a.VoucherID, &a.Amount, &a.DiscountTaken); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		p.Allocations = append(p.Allocations, a)
	}
	return p, rows.Err()
}

// lockVoucherTx reads a voucher row FOR UPDATE, serializing all balance
// checks and payment applications against it.
func lockVoucherTx(ctx context.Context, tx pgx.Tx, voucherID int) (*lockedVoucher, error) {
	lv := &lockedVoucher{}
	var invoiceDate string
	err := tx.QueryRow(ctx, `
		SELECT id, vendor_id, invoice_number, invoice_date::text, status,
		       gross_amount, discount_amount, net_amount
		FROM vouchers WHERE id = $1 FOR UPDATE`, voucherID,
	).Scan(&lv.id, &lv.vendorID, &lv.invoiceNumber, &invoiceDate, &lv.status,
		&lv.grossAmount, &lv.discountAmount, &lv.netAmount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("voucher %d not found", voucherID)
		}
		return nil, fmt.Errorf("lock voucher %d: %w", voucherID, err)
	}
	lv.invoiceDate, err = ParseDate(invoiceDate)
	if err != nil {
		return nil, fmt.Errorf("invalid stored invoice date %q: %w", invoiceDate, err)
	}
	return lv, nil
}
