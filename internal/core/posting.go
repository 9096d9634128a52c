package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Posting source types.
const (
	SourceVoucher     = "VOUCHER"
	SourcePayment     = "PAYMENT"
	SourceVoucherVoid = "VOUCHER_VOID"
	SourcePaymentVoid = "PAYMENT_VOID"
)

// PostingLine is a single debit or credit line in a candidate posting.
// Amount is always positive; IsDebit selects the side.
type PostingLine struct {
	AccountCode string
	IsDebit     bool
	Amount      decimal.Decimal
}

// Posting is a candidate GL transaction: a set of lines that must balance
// exactly at the smallest currency unit before anything is written.
type Posting struct {
	SourceType     string
	SourceRef      string
	IdempotencyKey string
	PostingDate    string // YYYY-MM-DD
	Memo           string
	Lines          []PostingLine
}

func (p *Posting) Normalize() {
	p.SourceType = strings.TrimSpace(p.SourceType)
	p.SourceRef = strings.TrimSpace(p.SourceRef)
	p.PostingDate = strings.TrimSpace(p.PostingDate)
	for i := range p.Lines {
		p.Lines[i].AccountCode = strings.TrimSpace(p.Lines[i].AccountCode)
		p.Lines[i].Amount = p.Lines[i].Amount.Round(2)
	}
}

// Validate enforces the double-entry invariant: at least two lines, every
// amount strictly positive, and sum(debits) exactly equal to sum(credits)
// at two decimal places. An imbalance here is a defect in entry construction
// by the caller, not a user input error.
func (p *Posting) Validate() error {
	v := &ValidationError{}

	if p.SourceType == "" {
		v.Add(MissingField, "source_type", "posting source type is required")
	}
	if p.PostingDate == "" {
		v.Add(MissingField, "posting_date", "posting date is required")
	} else if _, err := ParseDate(p.PostingDate); err != nil {
		v.Add(MissingField, "posting_date", "posting date must be YYYY-MM-DD")
	}

	if len(p.Lines) < 2 {
		v.Add(UnbalancedEntry, "lines", "a posting requires at least two lines")
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for i, line := range p.Lines {
		if line.AccountCode == "" {
			v.Addf(MissingField, "lines", "line %d: account code is required", i+1)
		}
		if !line.Amount.IsPositive() {
			v.Addf(NonPositiveAmount, "lines", "line %d: amount must be > 0", i+1)
			continue
		}
		if line.IsDebit {
			totalDebit = totalDebit.Add(line.Amount)
		} else {
			totalCredit = totalCredit.Add(line.Amount)
		}
	}

	if !totalDebit.Equal(totalCredit) {
		v.Addf(UnbalancedEntry, "lines", "debits %s != credits %s",
			totalDebit.StringFixed(2), totalCredit.StringFixed(2))
	}

	return v.ErrOrNil()
}
