package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// The validation engine is pure: Normalize and Validate never touch the
// database, and Validate accumulates every failure instead of stopping at
// the first so a batch caller can report all problems in one pass.
// Stateful checks (duplicates, outstanding balances) live in the owning
// service and run inside its transaction.

const dateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD business date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// InvoiceLineInput is one expense distribution on a candidate invoice.
type InvoiceLineInput struct {
	AccountCode string
	Amount      decimal.Decimal
}

// InvoiceInput is a candidate vendor invoice entering the voucher flow.
type InvoiceInput struct {
	VendorCode    string
	InvoiceNumber string
	InvoiceDate   string // YYYY-MM-DD
	DueDate       string // optional; defaulted from vendor payment terms
	GrossAmount   decimal.Decimal
	Lines         []InvoiceLineInput
}

// Normalize cleans up common input formatting issues before validation.
func (in *InvoiceInput) Normalize() {
	in.VendorCode = strings.ToUpper(strings.TrimSpace(in.VendorCode))
	in.InvoiceNumber = strings.TrimSpace(in.InvoiceNumber)
	in.InvoiceDate = strings.TrimSpace(in.InvoiceDate)
	in.DueDate = strings.TrimSpace(in.DueDate)
	for i := range in.Lines {
		in.Lines[i].AccountCode = strings.TrimSpace(in.Lines[i].AccountCode)
	}
}

// Validate runs every structural check and returns the accumulated failures,
// or nil when the invoice is acceptable.
func (in *InvoiceInput) Validate() error {
	v := &ValidationError{}

	if in.VendorCode == "" {
		v.Add(MissingField, "vendor_code", "vendor id is required")
	}
	if in.InvoiceNumber == "" {
		v.Add(MissingField, "invoice_number", "invoice number is required")
	}
	if in.InvoiceDate == "" {
		v.Add(MissingField, "invoice_date", "invoice date is required")
	} else if _, err := ParseDate(in.InvoiceDate); err != nil {
		v.Add(MissingField, "invoice_date", "invoice date must be YYYY-MM-DD")
	}
	if in.DueDate != "" {
		if _, err := ParseDate(in.DueDate); err != nil {
			v.Add(MissingField, "due_date", "due date must be YYYY-MM-DD")
		}
	}

	if !in.GrossAmount.IsPositive() {
		v.Addf(NonPositiveAmount, "gross_amount", "invoice amount must be > 0, got %s", in.GrossAmount.StringFixed(2))
	}

	if len(in.Lines) == 0 {
		v.Add(MissingField, "lines", "at least one expense line is required")
	}

	lineTotal := decimal.Zero
	for i, line := range in.Lines {
		if line.AccountCode == "" {
			v.Addf(MissingField, "lines", "line %d: expense account code is required", i+1)
		}
		if !line.Amount.IsPositive() {
			v.Addf(NonPositiveAmount, "lines", "line %d: amount must be > 0", i+1)
		}
		lineTotal = lineTotal.Add(line.Amount)
	}

	// Expense lines must distribute exactly the gross amount, otherwise the
	// creation posting could not balance.
	if len(in.Lines) > 0 && !lineTotal.Round(2).Equal(in.GrossAmount.Round(2)) {
		v.Addf(UnbalancedEntry, "lines", "line amounts total %s but gross amount is %s",
			lineTotal.StringFixed(2), in.GrossAmount.StringFixed(2))
	}

	return v.ErrOrNil()
}

// AllocationInput applies part of a payment to one voucher.
type AllocationInput struct {
	VoucherID int
	Amount    decimal.Decimal
}

// PaymentInput is a candidate payment entering the payment flow.
type PaymentInput struct {
	PaymentRef      string // check number or electronic reference
	VendorCode      string
	PaymentDate     string // YYYY-MM-DD
	Amount          decimal.Decimal
	CashAccountCode string
	Allocations     []AllocationInput
}

func (in *PaymentInput) Normalize() {
	in.PaymentRef = strings.TrimSpace(in.PaymentRef)
	in.VendorCode = strings.ToUpper(strings.TrimSpace(in.VendorCode))
	in.PaymentDate = strings.TrimSpace(in.PaymentDate)
	in.CashAccountCode = strings.TrimSpace(in.CashAccountCode)
}

// Validate runs the structural payment checks: required fields, positive
// amounts, and the allocation sum matching the payment total.
func (in *PaymentInput) Validate() error {
	v := &ValidationError{}

	if in.PaymentRef == "" {
		v.Add(MissingField, "payment_ref", "check number or electronic reference is required")
	}
	if in.VendorCode == "" {
		v.Add(MissingField, "vendor_code", "vendor id is required")
	}
	if in.CashAccountCode == "" {
		v.Add(MissingField, "cash_account_code", "cash/bank account code is required")
	}
	if in.PaymentDate == "" {
		v.Add(MissingField, "payment_date", "payment date is required")
	} else if _, err := ParseDate(in.PaymentDate); err != nil {
		v.Add(MissingField, "payment_date", "payment date must be YYYY-MM-DD")
	}

	if !in.Amount.IsPositive() {
		v.Addf(NonPositiveAmount, "amount", "payment amount must be > 0, got %s", in.Amount.StringFixed(2))
	}

	if len(in.Allocations) == 0 {
		v.Add(MissingField, "allocations", "at least one voucher allocation is required")
	}

	allocTotal := decimal.Zero
	for i, a := range in.Allocations {
		if a.VoucherID <= 0 {
			v.Addf(MissingField, "allocations", "allocation %d: voucher id is required", i+1)
		}
		if !a.Amount.IsPositive() {
			v.Addf(NonPositiveAmount, "allocations", "allocation %d: amount must be > 0", i+1)
		}
		allocTotal = allocTotal.Add(a.Amount)
	}

	if len(in.Allocations) > 0 && !allocTotal.Round(2).Equal(in.Amount.Round(2)) {
		v.Addf(AllocationMismatch, "allocations", "allocations total %s but payment amount is %s",
			allocTotal.StringFixed(2), in.Amount.StringFixed(2))
	}

	return v.ErrOrNil()
}

// DiscountEligible reports whether a payment made on paymentDate still
// qualifies for the vendor's early-payment discount. The window is counted
// in days from the invoice date, inclusive of the last day.
func DiscountEligible(invoiceDate, paymentDate time.Time, windowDays int) bool {
	if windowDays <= 0 {
		return false
	}
	deadline := invoiceDate.AddDate(0, 0, windowDays)
	return !paymentDate.After(deadline)
}

// ComputeDiscount returns the candidate discount for a gross amount under a
// vendor's percentage rule, rounded to the smallest currency unit.
func ComputeDiscount(gross, percent decimal.Decimal) decimal.Decimal {
	if !percent.IsPositive() {
		return decimal.Zero
	}
	return gross.Mul(percent).Div(decimal.NewFromInt(100)).Round(2)
}
