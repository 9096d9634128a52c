package app

// Wire-level request shapes. Monetary amounts travel as strings so clients
// never lose precision to float encoding; they are parsed into decimals by
// the application service.

type VoucherLineRequest struct {
	AccountCode string `json:"account_code" validate:"required"`
	Amount      string `json:"amount" validate:"required"`
}

type CreateVoucherRequest struct {
	VendorCode    string               `json:"vendor_code" validate:"required"`
	InvoiceNumber string               `json:"invoice_number" validate:"required"`
	InvoiceDate   string               `json:"invoice_date" validate:"required"`
	DueDate       string               `json:"due_date,omitempty"`
	GrossAmount   string               `json:"gross_amount" validate:"required"`
	Lines         []VoucherLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type AllocationRequest struct {
	VoucherID int    `json:"voucher_id" validate:"required"`
	Amount    string `json:"amount" validate:"required"`
}

type ApplyPaymentRequest struct {
	PaymentRef      string              `json:"payment_ref" validate:"required"`
	VendorCode      string              `json:"vendor_code" validate:"required"`
	PaymentDate     string              `json:"payment_date" validate:"required"`
	Amount          string              `json:"amount" validate:"required"`
	CashAccountCode string              `json:"cash_account_code" validate:"required"`
	Allocations     []AllocationRequest `json:"allocations" validate:"required,min=1,dive"`
}

type CreateVendorRequest struct {
	Code             string `json:"code" validate:"required"`
	Name             string `json:"name" validate:"required"`
	AddressLine1     string `json:"address_line1,omitempty"`
	AddressLine2     string `json:"address_line2,omitempty"`
	PaymentTermsDays int    `json:"payment_terms_days,omitempty"`
	DiscountPercent  string `json:"discount_percent,omitempty"`
	DiscountDays     int    `json:"discount_days,omitempty"`
	APAccountCode    string `json:"ap_account_code,omitempty"`
	Reportable1099   bool   `json:"reportable_1099,omitempty"`
}
