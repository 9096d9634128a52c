package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// LedgerService posts balanced GL transactions and reads ledger history.
type LedgerService interface {
	Post(ctx context.Context, p Posting) (*PostingRecord, error)
	PostInTx(ctx context.Context, tx pgx.Tx, p Posting) (*PostingRecord, error)
	ReverseInTx(ctx context.Context, tx pgx.Tx, postingID int, sourceType, sourceRef, memo string) (int, error)
	GetPosting(ctx context.Context, postingID int) (*PostingRecord, error)
	GetBalances(ctx context.Context) ([]AccountBalance, error)
}

// Ledger is the GL posting engine. GL entries are append-only: a posting is
// never updated or deleted, only reversed by a later posting.
type Ledger struct {
	pool      *pgxpool.Pool
	sequences *SequenceService
}

func NewLedger(pool *pgxpool.Pool, sequences *SequenceService) *Ledger {
	return &Ledger{pool: pool, sequences: sequences}
}

// Post commits a posting in its own transaction. Use for standalone calls.
func (l *Ledger) Post(ctx context.Context, p Posting) (*PostingRecord, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rec, err := l.PostInTx(ctx, tx, p)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit posting: %w", err)
	}
	return rec, nil
}

// PostInTx posts inside the caller's transaction. Use when the caller controls
// the transaction boundary (voucher creation, payment application) so the
// posting and the business-record writes are fully atomic.
func (l *Ledger) PostInTx(ctx context.Context, tx pgx.Tx, p Posting) (*PostingRecord, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	postingDate, err := ParseDate(p.PostingDate)
	if err != nil {
		return nil, fmt.Errorf("invalid posting date %q: %w", p.PostingDate, err)
	}

	number, err := l.sequences.NextInTx(ctx, tx, "GL", postingDate.Year())
	if err != nil {
		return nil, err
	}

	var postingID int
	if p.IdempotencyKey != "" {
		err = tx.QueryRow(ctx, `
			INSERT INTO postings (posting_number, source_type, source_ref, idempotency_key, posting_date, memo)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (idempotency_key) DO NOTHING
			RETURNING id
		`, number, p.SourceType, p.SourceRef, p.IdempotencyKey, p.PostingDate, p.Memo).Scan(&postingID)
	} else {
		err = tx.QueryRow(ctx, `
			INSERT INTO postings (posting_number, source_type, source_ref, posting_date, memo)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, number, p.SourceType, p.SourceRef, p.PostingDate, p.Memo).Scan(&postingID)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("duplicate posting: idempotency key %s already exists", p.IdempotencyKey)
		}
		return nil, fmt.Errorf("failed to insert posting: %w", err)
	}

	entries := make([]GLEntry, 0, len(p.Lines))
	for _, line := range p.Lines {
		var accountID int
		if err := tx.QueryRow(ctx,
			"SELECT id FROM accounts WHERE code = $1", line.AccountCode,
		).Scan(&accountID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("account code %s not found", line.AccountCode)
			}
			return nil, fmt.Errorf("failed to fetch account ID for code %s: %w", line.AccountCode, err)
		}

		debit := decimal.Zero
		credit := decimal.Zero
		if line.IsDebit {
			debit = line.Amount
		} else {
			credit = line.Amount
		}

		var entryID int
		if err := tx.QueryRow(ctx, `
			INSERT INTO gl_entries (posting_id, account_id, debit, credit)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, postingID, accountID, debit, credit).Scan(&entryID); err != nil {
			return nil, fmt.Errorf("failed to insert GL entry: %w", err)
		}

		entries = append(entries, GLEntry{
			ID:          entryID,
			PostingID:   postingID,
			AccountID:   accountID,
			AccountCode: line.AccountCode,
			Debit:       debit,
			Credit:      credit,
		})
	}

	return &PostingRecord{
		ID:            postingID,
		PostingNumber: number,
		SourceType:    p.SourceType,
		SourceRef:     p.SourceRef,
		PostingDate:   p.PostingDate,
		Memo:          p.Memo,
		Entries:       entries,
	}, nil
}

// ReverseInTx appends an exact reversal of an earlier posting: same lines
// with debit and credit roles swapped, dated the same as the original.
// A posting can be reversed at most once.
func (l *Ledger) ReverseInTx(ctx context.Context, tx pgx.Tx, postingID int, sourceType, sourceRef, memo string) (int, error) {
	var origNumber, origDate string
	err := tx.QueryRow(ctx,
		"SELECT posting_number, posting_date::text FROM postings WHERE id = $1 FOR UPDATE",
		postingID,
	).Scan(&origNumber, &origDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("posting %d not found", postingID)
		}
		return 0, fmt.Errorf("failed to fetch posting %d: %w", postingID, err)
	}

	var count int
	if err := tx.QueryRow(ctx,
		"SELECT count(*) FROM postings WHERE reversed_posting_id = $1", postingID,
	).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to check reversal status: %w", err)
	}
	if count > 0 {
		return 0, fmt.Errorf("posting %d is already reversed", postingID)
	}

	parsed, err := ParseDate(origDate)
	if err != nil {
		return 0, fmt.Errorf("invalid stored posting date %q: %w", origDate, err)
	}
	number, err := l.sequences.NextInTx(ctx, tx, "GL", parsed.Year())
	if err != nil {
		return 0, err
	}

	if memo == "" {
		memo = fmt.Sprintf("Reversal of posting %s", origNumber)
	}

	var newPostingID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO postings (posting_number, source_type, source_ref, posting_date, memo, reversed_posting_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, number, sourceType, sourceRef, origDate, memo, postingID).Scan(&newPostingID); err != nil {
		return 0, fmt.Errorf("failed to insert reversal posting: %w", err)
	}

	// Invert debit and credit for every original entry.
	if _, err := tx.Exec(ctx, `
		INSERT INTO gl_entries (posting_id, account_id, debit, credit)
		SELECT $1, account_id, credit, debit
		FROM gl_entries
		WHERE posting_id = $2
	`, newPostingID, postingID); err != nil {
		return 0, fmt.Errorf("failed to insert inverted entries: %w", err)
	}

	return newPostingID, nil
}

// GetPosting returns a posting with its entries, ordered as posted.
func (l *Ledger) GetPosting(ctx context.Context, postingID int) (*PostingRecord, error) {
	rec := &PostingRecord{}
	err := l.pool.QueryRow(ctx, `
		SELECT id, posting_number, source_type, source_ref, posting_date::text, memo, reversed_posting_id, created_at
		FROM postings WHERE id = $1
	`, postingID).Scan(
		&rec.ID, &rec.PostingNumber, &rec.SourceType, &rec.SourceRef,
		&rec.PostingDate, &rec.Memo, &rec.ReversedPostingID, &rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("posting %d not found", postingID)
		}
		return nil, fmt.Errorf("failed to fetch posting %d: %w", postingID, err)
	}

	rows, err := l.pool.Query(ctx, `
		SELECT e.id, e.posting_id, e.account_id, a.code, e.debit, e.credit
		FROM gl_entries e
		JOIN accounts a ON a.id = e.account_id
		WHERE e.posting_id = $1
		ORDER BY e.id
	`, postingID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entries for posting %d: %w", postingID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var e GLEntry
		if err := rows.Scan(&e.ID, &e.PostingID, &e.AccountID, &e.AccountCode, &e.Debit, &e.Credit); err != nil {
			return nil, fmt.Errorf("failed to scan GL entry: %w", err)
		}
		rec.Entries = append(rec.Entries, e)
	}
	return rec, rows.Err()
}

type AccountBalance struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Type    AccountType     `json:"type"`
	Balance decimal.Decimal `json:"balance"`
}

// GetBalances computes the trial balance from entry history. Debit-normal
// accounts show positive balances, credit-normal negative.
func (l *Ledger) GetBalances(ctx context.Context) ([]AccountBalance, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT a.code, a.name, a.type,
		       COALESCE(SUM(e.debit), 0) - COALESCE(SUM(e.credit), 0) AS balance
		FROM accounts a
		LEFT JOIN gl_entries e ON a.id = e.account_id
		GROUP BY a.id, a.code, a.name, a.type
		ORDER BY a.code
	`)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var balances []AccountBalance
	for rows.Next() {
		var b AccountBalance
		if err := rows.Scan(&b.Code, &b.Name, &b.Type, &b.Balance); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}
