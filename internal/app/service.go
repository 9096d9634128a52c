package app

import (
	"context"

	"payables-engine/internal/core"
)

// ApplicationService is the single facade the adapters (HTTP, CLI) talk to.
// It owns request decoding concerns: string amounts on the wire become
// decimals here, and struct-level validation failures are reported in the
// same shape as domain validation failures.
type ApplicationService interface {
	CreateVoucher(ctx context.Context, req CreateVoucherRequest) (*core.Voucher, error)
	VoidVoucher(ctx context.Context, voucherID int) (*core.Voucher, error)
	GetVoucher(ctx context.Context, voucherID int) (*core.Voucher, error)

	ApplyPayment(ctx context.Context, req ApplyPaymentRequest) (*core.Payment, error)
	VoidPayment(ctx context.Context, paymentID int) (*core.Payment, error)
	GetPayment(ctx context.Context, paymentID int) (*core.Payment, error)

	CreateVendor(ctx context.Context, req CreateVendorRequest) (*core.Vendor, error)
	GetVendor(ctx context.Context, code string) (*core.Vendor, error)
	ListVendors(ctx context.Context) ([]core.Vendor, error)

	Get1099Summary(ctx context.Context, vendorCode string, taxYear int) (*core.Ten99Summary, error)
	GetTrialBalance(ctx context.Context) ([]core.AccountBalance, error)
	GetPosting(ctx context.Context, postingID int) (*core.PostingRecord, error)
}
