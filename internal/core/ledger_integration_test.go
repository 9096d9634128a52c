package core_test

import (
	"context"
	"fmt"
	"os"
	"testing"

	"payables-engine/internal/core"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE ten99_payments, payment_allocations, payments,
		               voucher_lines, vouchers, gl_entries, postings,
		               sequences, vendors, accounts CASCADE;

		INSERT INTO accounts (code, name, type, reportable_1099) VALUES
		('1000', 'Operating Cash', 'cash', true),
		('1010', 'Petty Cash', 'cash', false),
		('2000', 'Accounts Payable Control', 'payable', false),
		('4900', 'Discount Income', 'discount_income', false),
		('5100', 'Expense A', 'expense', false),
		('5200', 'Expense B', 'expense', false);

		INSERT INTO vendors (code, name, payment_terms_days, discount_percent, discount_days, ap_account_code, reportable_1099) VALUES
		('V1', 'Acme Supply Co', 30, 2.00, 10, '2000', true),
		('V2', 'Plain Vendor Inc', 45, 0, 0, '2000', false);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

func newLedger(pool *pgxpool.Pool) *core.Ledger {
	return core.NewLedger(pool, core.NewSequenceService())
}

func TestLedger_Idempotency(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := newLedger(pool)
	ctx := context.Background()

	key := uuid.NewString()
	posting := core.Posting{
		SourceType:     core.SourceVoucher,
		SourceRef:      "V1/TEST",
		IdempotencyKey: key,
		PostingDate:    "2026-03-01",
		Memo:           "Idempotency check",
		Lines: []core.PostingLine{
			{AccountCode: "5100", IsDebit: true, Amount: d("150.00")},
			{AccountCode: "2000", IsDebit: false, Amount: d("150.00")},
		},
	}

	if _, err := ledger.Post(ctx, posting); err != nil {
		t.Fatalf("First post failed: %v", err)
	}

	_, err := ledger.Post(ctx, posting)
	if err == nil {
		t.Fatalf("Expected duplicate post to fail, but it succeeded")
	}
	if err.Error() != fmt.Sprintf("duplicate posting: idempotency key %s already exists", key) {
		t.Errorf("Unexpected error message for duplicate post: %v", err)
	}
}

func TestLedger_RejectsUnbalancedPosting(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := newLedger(pool)
	ctx := context.Background()

	_, err := ledger.Post(ctx, core.Posting{
		SourceType:  core.SourceVoucher,
		SourceRef:   "V1/TEST",
		PostingDate: "2026-03-01",
		Lines: []core.PostingLine{
			{AccountCode: "5100", IsDebit: true, Amount: d("100.00")},
			{AccountCode: "2000", IsDebit: false, Amount: d("99.00")},
		},
	})
	if err == nil {
		t.Fatal("Expected unbalanced posting to fail, got nil")
	}
	ve, ok := core.AsValidationError(err)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Failures[0].Kind != core.UnbalancedEntry {
		t.Errorf("expected UnbalancedEntry, got %s", ve.Failures[0].Kind)
	}

	// Nothing may be persisted on a rejected posting.
	var count int
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM gl_entries").Scan(&count); err != nil {
		t.Fatalf("count entries: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 GL entries after rejected posting, got %d", count)
	}
}

func TestLedger_Reversal(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := newLedger(pool)
	ctx := context.Background()

	rec, err := ledger.Post(ctx, core.Posting{
		SourceType:     core.SourceVoucher,
		SourceRef:      "V1/TEST",
		IdempotencyKey: uuid.NewString(),
		PostingDate:    "2026-03-01",
		Memo:           "To be reversed",
		Lines: []core.PostingLine{
			{AccountCode: "5100", IsDebit: true, Amount: d("500.00")},
			{AccountCode: "2000", IsDebit: false, Amount: d("500.00")},
		},
	})
	if err != nil {
		t.Fatalf("Setup post failed: %v", err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	reversalID, err := ledger.ReverseInTx(ctx, tx, rec.ID, core.SourceVoucherVoid, "V1/TEST", "")
	if err != nil {
		t.Fatalf("Failed to reverse posting: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// The reversal swaps debit and credit roles exactly.
	reversal, err := ledger.GetPosting(ctx, reversalID)
	if err != nil {
		t.Fatalf("GetPosting: %v", err)
	}
	if reversal.ReversedPostingID == nil || *reversal.ReversedPostingID != rec.ID {
		t.Errorf("expected reversal to reference posting %d", rec.ID)
	}
	for _, e := range reversal.Entries {
		switch e.AccountCode {
		case "5100":
			if !e.Credit.Equal(d("500.00")) {
				t.Errorf("expected 5100 credited 500.00, got debit %s credit %s", e.Debit, e.Credit)
			}
		case "2000":
			if !e.Debit.Equal(d("500.00")) {
				t.Errorf("expected 2000 debited 500.00, got debit %s credit %s", e.Debit, e.Credit)
			}
		}
	}

	// A posting can be reversed at most once.
	tx2, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx2.Rollback(ctx)
	_, err = ledger.ReverseInTx(ctx, tx2, rec.ID, core.SourceVoucherVoid, "V1/TEST", "")
	if err == nil {
		t.Fatal("Expected double reversal to fail, but it succeeded")
	}
	if err.Error() != fmt.Sprintf("posting %d is already reversed", rec.ID) {
		t.Errorf("Unexpected error message for double reversal: %v", err)
	}
}

func TestLedger_GetBalances(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := newLedger(pool)
	ctx := context.Background()

	if _, err := ledger.Post(ctx, core.Posting{
		SourceType:     core.SourceVoucher,
		SourceRef:      "V1/TEST",
		IdempotencyKey: uuid.NewString(),
		PostingDate:    "2026-03-01",
		Lines: []core.PostingLine{
			{AccountCode: "5100", IsDebit: true, Amount: d("250.00")},
			{AccountCode: "2000", IsDebit: false, Amount: d("250.00")},
		},
	}); err != nil {
		t.Fatalf("Post failed: %v", err)
	}

	balances, err := ledger.GetBalances(ctx)
	if err != nil {
		t.Fatalf("GetBalances failed: %v", err)
	}

	balanceMap := make(map[string]string)
	for _, b := range balances {
		balanceMap[b.Code] = b.Balance.StringFixed(2)
	}

	// Expense (debit normal) positive, payable (credit normal) negative.
	if balanceMap["5100"] != "250.00" {
		t.Errorf("Expected account 5100 balance 250.00, got %s", balanceMap["5100"])
	}
	if balanceMap["2000"] != "-250.00" {
		t.Errorf("Expected account 2000 balance -250.00, got %s", balanceMap["2000"])
	}
}

func TestLedger_GaplessPostingNumbers(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := newLedger(pool)
	ctx := context.Background()

	lines := []core.PostingLine{
		{AccountCode: "5100", IsDebit: true, Amount: d("10.00")},
		{AccountCode: "2000", IsDebit: false, Amount: d("10.00")},
	}

	first, err := ledger.Post(ctx, core.Posting{
		SourceType: core.SourceVoucher, SourceRef: "V1/A", PostingDate: "2026-03-01", Lines: lines,
	})
	if err != nil {
		t.Fatalf("first post: %v", err)
	}
	second, err := ledger.Post(ctx, core.Posting{
		SourceType: core.SourceVoucher, SourceRef: "V1/B", PostingDate: "2026-03-02", Lines: lines,
	})
	if err != nil {
		t.Fatalf("second post: %v", err)
	}

	if first.PostingNumber != "GL-2026-00001" {
		t.Errorf("expected GL-2026-00001, got %s", first.PostingNumber)
	}
	if second.PostingNumber != "GL-2026-00002" {
		t.Errorf("expected GL-2026-00002, got %s", second.PostingNumber)
	}
}
