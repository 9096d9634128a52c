package core_test

import (
	"context"
	"testing"

	"payables-engine/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
)

type testServices struct {
	ledger   *core.Ledger
	vouchers *core.VoucherService
	payments *core.PaymentService
	ten99    *core.Ten99Service
}

func newTestServices(pool *pgxpool.Pool) testServices {
	ledger := newLedger(pool)
	ten99 := core.NewTen99Service(pool)
	return testServices{
		ledger:   ledger,
		vouchers: core.NewVoucherService(pool, ledger),
		payments: core.NewPaymentService(pool, ledger, ten99),
		ten99:    ten99,
	}
}

func TestPaymentService_FullPaymentWithDiscount(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := newTestServices(pool)
	ctx := context.Background()

	v, err := svc.vouchers.CreateVoucher(ctx, sampleInvoice())
	if err != nil {
		t.Fatalf("create voucher: %v", err)
	}

	// Net 980.00 paid on day 4 of a 10-day window: the 20.00 discount is taken.
	p, err := svc.payments.ApplyPayment(ctx, core.PaymentInput{
		PaymentRef: "CHK-5001", VendorCode: "V1", PaymentDate: "2026-03-05",
		Amount: d("980.00"), CashAccountCode: "1000",
		Allocations: []core.AllocationInput{{VoucherID: v.ID, Amount: d("980.00")}},
	})
	if err != nil {
		t.Fatalf("ApplyPayment failed: %v", err)
	}

	if p.Status != core.PaymentApplied {
		t.Errorf("expected status APPLIED, got %s", p.Status)
	}
	if len(p.Allocations) != 1 || !p.Allocations[0].DiscountTaken.Equal(d("20.00")) {
		t.Errorf("expected discount taken 20.00, got %+v", p.Allocations)
	}

	paid, err := svc.vouchers.GetVoucher(ctx, v.ID)
	if err != nil {
		t.Fatalf("GetVoucher: %v", err)
	}
	if paid.Status != core.VoucherPaid {
		t.Errorf("expected voucher PAID, got %s", paid.Status)
	}
	if !paid.Outstanding.IsZero() {
		t.Errorf("expected outstanding 0, got %s", paid.Outstanding)
	}

	// Payment pattern: DR AP 1000.00, CR cash 980.00, CR discount income 20.00.
	if p.PostingID == nil {
		t.Fatal("expected a payment posting to be linked")
	}
	rec, err := svc.ledger.GetPosting(ctx, *p.PostingID)
	if err != nil {
		t.Fatalf("GetPosting: %v", err)
	}
	if len(rec.Entries) != 3 {
		t.Fatalf("expected 3 GL entries, got %d", len(rec.Entries))
	}
	for _, e := range rec.Entries {
		switch e.AccountCode {
		case "2000":
			if !e.Debit.Equal(d("1000.00")) {
				t.Errorf("2000: expected debit 1000.00, got %s", e.Debit)
			}
		case "1000":
			if !e.Credit.Equal(d("980.00")) {
				t.Errorf("1000: expected credit 980.00, got %s", e.Credit)
			}
		case "4900":
			if !e.Credit.Equal(d("20.00")) {
				t.Errorf("4900: expected credit 20.00, got %s", e.Credit)
			}
		default:
			t.Errorf("unexpected account %s in payment posting", e.AccountCode)
		}
	}
}

func TestPaymentService_LatePaymentForfeitsDiscount(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := newTestServices(pool)
	ctx := context.Background()

	v, err := svc.vouchers.CreateVoucher(ctx, sampleInvoice())
	if err != nil {
		t.Fatalf("create voucher: %v", err)
	}

	// Day 20 is outside the 10-day window: the discount is normalized away
	// and the voucher owes its full gross amount.
	_, err = svc.payments.ApplyPayment(ctx, core.PaymentInput{
		PaymentRef: "CHK-5002", VendorCode: "V1", PaymentDate: "2026-03-21",
		Amount: d("1000.00"), CashAccountCode: "1000",
		Allocations: []core.AllocationInput{{VoucherID: v.ID, Amount: d("1000.00")}},
	})
	if err != nil {
		t.Fatalf("ApplyPayment failed: %v", err)
	}

	paid, err := svc.vouchers.GetVoucher(ctx, v.ID)
	if err != nil {
		t.Fatalf("GetVoucher: %v", err)
	}
	if paid.Status != core.VoucherPaid {
		t.Errorf("expected voucher PAID, got %s", paid.Status)
	}
	if !paid.DiscountAmount.IsZero() {
		t.Errorf("expected discount normalized to 0, got %s", paid.DiscountAmount)
	}
	if !paid.NetAmount.Equal(d("1000.00")) {
		t.Errorf("expected net normalized to 1000.00, got %s", paid.NetAmount)
	}
}

func TestPaymentService_PartialInWindowKeepsDiscountPending(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := newTestServices(pool)
	ctx := context.Background()

	v, err := svc.vouchers.CreateVoucher(ctx, sampleInvoice())
	if err != nil {
		t.Fatalf("create voucher: %v", err)
	}

	// A partial in-window payment takes no discount but leaves the candidate
	// in place for a later settling payment.
	p, err := svc.payments.ApplyPayment(ctx, core.PaymentInput{
		PaymentRef: "CHK-5003", VendorCode: "V1", PaymentDate: "2026-03-03",
		Amount: d("500.00"), CashAccountCode: "1000",
		Allocations: []core.AllocationInput{{VoucherID: v.ID, Amount: d("500.00")}},
	})
	if err != nil {
		t.Fatalf("partial payment failed: %v", err)
	}
	if !p.Allocations[0].DiscountTaken.IsZero() {
		t.Errorf("partial payment must take no discount, got %s", p.Allocations[0].DiscountTaken)
	}

	mid, err := svc.vouchers.GetVoucher(ctx, v.ID)
	if err != nil {
		t.Fatalf("GetVoucher: %v", err)
	}
	if mid.Status != core.VoucherPartiallyPaid {
		t.Errorf("expected PARTIALLY_PAID, got %s", mid.Status)
	}
	if !mid.Outstanding.Equal(d("480.00")) {
		t.Errorf("expected outstanding 480.00, got %s", mid.Outstanding)
	}

	// Settling the remainder in-window takes the full candidate discount.
	p2, err := svc.payments.ApplyPayment(ctx, core.PaymentInput{
		PaymentRef: "CHK-5004", VendorCode: "V1", PaymentDate: "2026-03-08",
		Amount: d("480.00"), CashAccountCode: "1000",
		Allocations: []core.AllocationInput{{VoucherID: v.ID, Amount: d("480.00")}},
	})
	if err != nil {
		t.Fatalf("settling payment failed: %v", err)
	}
	if !p2.Allocations[0].DiscountTaken.Equal(d("20.00")) {
		t.Errorf("expected discount 20.00 on settling payment, got %s", p2.Allocations[0].DiscountTaken)
	}

	final, err := svc.vouchers.GetVoucher(ctx, v.ID)
	if err != nil {
		t.Fatalf("GetVoucher: %v", err)
	}
	if final.Status != core.VoucherPaid || !final.Outstanding.IsZero() {
		t.Errorf("expected PAID with zero outstanding, got %s / %s", final.Status, final.Outstanding)
	}
}

func TestPaymentService_OverpaymentRejectedAtomically(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := newTestServices(pool)
	ctx := context.Background()

	v, err := svc.vouchers.CreateVoucher(ctx, sampleInvoice())
	if err != nil {
		t.Fatalf("create voucher: %v", err)
	}

	var entriesBefore int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM gl_entries").Scan(&entriesBefore); err != nil {
		t.Fatalf("count entries: %v", err)
	}

	_, err = svc.payments.ApplyPayment(ctx, core.PaymentInput{
		PaymentRef: "CHK-5005", VendorCode: "V1", PaymentDate: "2026-03-05",
		Amount: d("1500.00"), CashAccountCode: "1000",
		Allocations: []core.AllocationInput{{VoucherID: v.ID, Amount: d("1500.00")}},
	})
	if err == nil {
		t.Fatal("expected overpayment to be rejected")
	}
	ve, ok := core.AsValidationError(err)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Failures[0].Kind != core.OverpaymentAttempt {
		t.Errorf("expected OverpaymentAttempt, got %s", ve.Failures[0].Kind)
	}

	// The whole payment aborts: no payment row, no new GL entries.
	var payments, entriesAfter int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM payments").Scan(&payments); err != nil {
		t.Fatalf("count payments: %v", err)
	}
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM gl_entries").Scan(&entriesAfter); err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if payments != 0 {
		t.Errorf("expected no payment rows, got %d", payments)
	}
	if entriesAfter != entriesBefore {
		t.Errorf("expected GL untouched, had %d entries, now %d", entriesBefore, entriesAfter)
	}
}

func TestPaymentService_PaymentBeforeInvoiceDate(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := newTestServices(pool)
	ctx := context.Background()

	v, err := svc.vouchers.CreateVoucher(ctx, sampleInvoice())
	if err != nil {
		t.Fatalf("create voucher: %v", err)
	}

	_, err = svc.payments.ApplyPayment(ctx, core.PaymentInput{
		PaymentRef: "CHK-5006", VendorCode: "V1", PaymentDate: "2026-02-15",
		Amount: d("100.00"), CashAccountCode: "1000",
		Allocations: []core.AllocationInput{{VoucherID: v.ID, Amount: d("100.00")}},
	})
	ve, ok := core.AsValidationError(err)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Failures[0].Kind != core.InvalidPaymentDate {
		t.Errorf("expected InvalidPaymentDate, got %s", ve.Failures[0].Kind)
	}
}

func TestPaymentService_DuplicateCheckNumber(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := newTestServices(pool)
	ctx := context.Background()

	v, err := svc.vouchers.CreateVoucher(ctx, sampleInvoice())
	if err != nil {
		t.Fatalf("create voucher: %v", err)
	}

	first := core.PaymentInput{
		PaymentRef: "CHK-7000", VendorCode: "V1", PaymentDate: "2026-03-05",
		Amount: d("100.00"), CashAccountCode: "1000",
		Allocations: []core.AllocationInput{{VoucherID: v.ID, Amount: d("100.00")}},
	}
	p, err := svc.payments.ApplyPayment(ctx, first)
	if err != nil {
		t.Fatalf("first payment failed: %v", err)
	}

	second := first
	second.Amount = d("50.00")
	second.Allocations = []core.AllocationInput{{VoucherID: v.ID, Amount: d("50.00")}}
	_, err = svc.payments.ApplyPayment(ctx, second)
	ve, ok := core.AsValidationError(err)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Failures[0].Kind != core.DuplicateCheckNumber {
		t.Errorf("expected DuplicateCheckNumber, got %s", ve.Failures[0].Kind)
	}

	// Voiding the first payment frees the check number for reuse.
	if _, err := svc.payments.VoidPayment(ctx, p.ID); err != nil {
		t.Fatalf("void payment: %v", err)
	}
	if _, err := svc.payments.ApplyPayment(ctx, second); err != nil {
		t.Errorf("check number of a voided payment should be reusable: %v", err)
	}
}

func TestPaymentService_VoidPaymentRestoresVoucher(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := newTestServices(pool)
	ctx := context.Background()

	v, err := svc.vouchers.CreateVoucher(ctx, sampleInvoice())
	if err != nil {
		t.Fatalf("create voucher: %v", err)
	}

	p, err := svc.payments.ApplyPayment(ctx, core.PaymentInput{
		PaymentRef: "CHK-8000", VendorCode: "V1", PaymentDate: "2026-03-05",
		Amount: d("980.00"), CashAccountCode: "1000",
		Allocations: []core.AllocationInput{{VoucherID: v.ID, Amount: d("980.00")}},
	})
	if err != nil {
		t.Fatalf("apply payment: %v", err)
	}

	voided, err := svc.payments.VoidPayment(ctx, p.ID)
	if err != nil {
		t.Fatalf("VoidPayment failed: %v", err)
	}
	if voided.Status != core.PaymentVoided {
		t.Errorf("expected status VOIDED, got %s", voided.Status)
	}
	if voided.VoidPostingID == nil {
		t.Fatal("expected a void posting to be linked")
	}

	restored, err := svc.vouchers.GetVoucher(ctx, v.ID)
	if err != nil {
		t.Fatalf("GetVoucher: %v", err)
	}
	if restored.Status != core.VoucherOpen {
		t.Errorf("expected voucher restored to OPEN, got %s", restored.Status)
	}
	if !restored.Outstanding.Equal(d("980.00")) {
		t.Errorf("expected outstanding 980.00 restored, got %s", restored.Outstanding)
	}

	// Only the voucher creation entry remains in the balances: cash and
	// discount income wash out.
	balances, err := svc.ledger.GetBalances(ctx)
	if err != nil {
		t.Fatalf("GetBalances: %v", err)
	}
	for _, b := range balances {
		switch b.Code {
		case "1000", "4900":
			if !b.Balance.IsZero() {
				t.Errorf("account %s: expected zero after void, got %s", b.Code, b.Balance)
			}
		case "2000":
			if !b.Balance.Equal(d("-1000.00")) {
				t.Errorf("account 2000: expected -1000.00, got %s", b.Balance)
			}
		}
	}

	// A voided payment cannot be voided again.
	if _, err := svc.payments.VoidPayment(ctx, p.ID); err == nil {
		t.Error("expected second void to fail")
	}
}

func TestPaymentService_MultiVoucherPayment(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	svc := newTestServices(pool)
	ctx := context.Background()

	// Two vouchers for V2 (no discount terms).
	inA := sampleInvoice()
	inA.VendorCode = "V2"
	inA.InvoiceNumber = "INV-200"
	inB := sampleInvoice()
	inB.VendorCode = "V2"
	inB.InvoiceNumber = "INV-201"
	inB.GrossAmount = d("300.00")
	inB.Lines = []core.InvoiceLineInput{{AccountCode: "5100", Amount: d("300.00")}}

	va, err := svc.vouchers.CreateVoucher(ctx, inA)
	if err != nil {
		t.Fatalf("create voucher A: %v", err)
	}
	vb, err := svc.vouchers.CreateVoucher(ctx, inB)
	if err != nil {
		t.Fatalf("create voucher B: %v", err)
	}

	p, err := svc.payments.ApplyPayment(ctx, core.PaymentInput{
		PaymentRef: "CHK-9000", VendorCode: "V2", PaymentDate: "2026-03-10",
		Amount: d("1300.00"), CashAccountCode: "1000",
		Allocations: []core.AllocationInput{
			{VoucherID: vb.ID, Amount: d("300.00")},
			{VoucherID: va.ID, Amount: d("1000.00")},
		},
	})
	if err != nil {
		t.Fatalf("multi-voucher payment failed: %v", err)
	}
	if len(p.Allocations) != 2 {
		t.Fatalf("expected 2 allocations, got %d", len(p.Allocations))
	}

	for _, id := range []int{va.ID, vb.ID} {
		got, err := svc.vouchers.GetVoucher(ctx, id)
		if err != nil {
			t.Fatalf("GetVoucher %d: %v", id, err)
		}
		if got.Status != core.VoucherPaid {
			t.Errorf("voucher %d: expected PAID, got %s", id, got.Status)
		}
	}
}
