package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountPayable        AccountType = "payable"
	AccountExpense        AccountType = "expense"
	AccountCash           AccountType = "cash"
	AccountDiscountIncome AccountType = "discount_income"
)

// Account is a GL account. Balances are never stored on it; they are always
// recomputed from gl_entries history.
type Account struct {
	ID             int         `json:"id"`
	Code           string      `json:"code"`
	Name           string      `json:"name"`
	Type           AccountType `json:"type"`
	Reportable1099 bool        `json:"reportable_1099"`
}

// Vendor is read-only master data as far as this engine is concerned:
// created by vendor setup, referenced by vouchers and payments, never
// mutated by the posting flows.
type Vendor struct {
	ID               int             `json:"id"`
	Code             string          `json:"code"`
	Name             string          `json:"name"`
	AddressLine1     *string         `json:"address_line1,omitempty"`
	AddressLine2     *string         `json:"address_line2,omitempty"`
	PaymentTermsDays int             `json:"payment_terms_days"`
	DiscountPercent  decimal.Decimal `json:"discount_percent"`
	DiscountDays     int             `json:"discount_days"`
	APAccountCode    string          `json:"ap_account_code"`
	Reportable1099   bool            `json:"reportable_1099"`
	IsActive         bool            `json:"is_active"`
	CreatedAt        time.Time       `json:"created_at"`
}

// VendorInput holds the fields required to create a new vendor.
type VendorInput struct {
	Code             string
	Name             string
	AddressLine1     string
	AddressLine2     string
	PaymentTermsDays int
	DiscountPercent  decimal.Decimal
	DiscountDays     int
	APAccountCode    string
	Reportable1099   bool
}

type VoucherStatus string

const (
	VoucherOpen          VoucherStatus = "OPEN"
	VoucherPartiallyPaid VoucherStatus = "PARTIALLY_PAID"
	VoucherPaid          VoucherStatus = "PAID"
	VoucherVoid          VoucherStatus = "VOID"
)

// Voucher is an accounts-payable obligation created from a vendor invoice.
// Invariant: NetAmount = GrossAmount - DiscountAmount, NetAmount >= 0.
type Voucher struct {
	ID                int             `json:"id"`
	VendorID          int             `json:"vendor_id"`
	VendorCode        string          `json:"vendor_code"`
	InvoiceNumber     string          `json:"invoice_number"`
	InvoiceDate       string          `json:"invoice_date"` // YYYY-MM-DD
	DueDate           string          `json:"due_date"`
	GrossAmount       decimal.Decimal `json:"gross_amount"`
	DiscountAmount    decimal.Decimal `json:"discount_amount"`
	NetAmount         decimal.Decimal `json:"net_amount"`
	Outstanding       decimal.Decimal `json:"outstanding"` // net - applied allocations
	Status            VoucherStatus   `json:"status"`
	CreationPostingID *int            `json:"creation_posting_id,omitempty"`
	VoidPostingID     *int            `json:"void_posting_id,omitempty"`
	Lines             []VoucherLine   `json:"lines"`
	CreatedAt         time.Time       `json:"created_at"`
}

// VoucherLine is one expense distribution of the invoice.
// Sum of line amounts equals the voucher gross amount.
type VoucherLine struct {
	ID          int             `json:"id"`
	VoucherID   int             `json:"voucher_id"`
	LineNumber  int             `json:"line_number"`
	AccountCode string          `json:"account_code"`
	Amount      decimal.Decimal `json:"amount"`
}

type PaymentStatus string

const (
	// PaymentPending exists on the wire shape only: application is atomic,
	// so a pending payment row is never observable in storage.
	PaymentPending PaymentStatus = "PENDING"
	PaymentApplied PaymentStatus = "APPLIED"
	PaymentVoided  PaymentStatus = "VOIDED"
)

// Payment is a check or electronic payment applied against one or more
// vouchers of a single vendor.
type Payment struct {
	ID              int                 `json:"id"`
	VendorID        int                 `json:"vendor_id"`
	VendorCode      string              `json:"vendor_code"`
	PaymentRef      string              `json:"payment_ref"` // check number or electronic reference
	PaymentDate     string              `json:"payment_date"`
	Amount          decimal.Decimal     `json:"amount"`
	CashAccountCode string              `json:"cash_account_code"`
	Status          PaymentStatus       `json:"status"`
	PostingID       *int                `json:"posting_id,omitempty"`
	VoidPostingID   *int                `json:"void_posting_id,omitempty"`
	Allocations     []PaymentAllocation `json:"allocations"`
	CreatedAt       time.Time           `json:"created_at"`
}

// PaymentAllocation applies part of a payment to one voucher.
type PaymentAllocation struct {
	VoucherID     int             `json:"voucher_id"`
	Amount        decimal.Decimal `json:"amount"`
	DiscountTaken decimal.Decimal `json:"discount_taken"`
}

// GLEntry is a single debit or credit against one account. Exactly one of
// Debit/Credit is non-zero. Entries are append-only; corrections are
// reversing postings.
type GLEntry struct {
	ID          int             `json:"id"`
	PostingID   int             `json:"posting_id"`
	AccountID   int             `json:"account_id"`
	AccountCode string          `json:"account_code"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// PostingRecord is a persisted posting transaction: one atomic balanced set
// of GL entries with a gapless posting number.
type PostingRecord struct {
	ID                int       `json:"id"`
	PostingNumber     string    `json:"posting_number"`
	SourceType        string    `json:"source_type"`
	SourceRef         string    `json:"source_ref"`
	PostingDate       string    `json:"posting_date"`
	Memo              string    `json:"memo"`
	ReversedPostingID *int      `json:"reversed_posting_id,omitempty"`
	Entries           []GLEntry `json:"entries"`
	CreatedAt         time.Time `json:"created_at"`
}

// Ten99Summary is the accumulated reportable payment total for one vendor
// and tax year.
type Ten99Summary struct {
	VendorCode      string          `json:"vendor_code"`
	TaxYear         int             `json:"tax_year"`
	ReportableTotal decimal.Decimal `json:"reportable_total"`
}
