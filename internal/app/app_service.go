package app

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"payables-engine/internal/core"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// AppService wires the domain services behind the ApplicationService facade.
type AppService struct {
	vendors  core.VendorService
	vouchers *core.VoucherService
	payments *core.PaymentService
	ledger   *core.Ledger
	ten99    *core.Ten99Service
	validate *validator.Validate
}

// NewAppService constructs the full service graph on one connection pool.
func NewAppService(pool *pgxpool.Pool) *AppService {
	ledger := core.NewLedger(pool, core.NewSequenceService())
	ten99 := core.NewTen99Service(pool)

	v := validator.New(validator.WithRequiredStructEnabled())
	// Report failures by json field name, matching what the client sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &AppService{
		vendors:  core.NewVendorService(pool),
		vouchers: core.NewVoucherService(pool, ledger),
		payments: core.NewPaymentService(pool, ledger, ten99),
		ledger:   ledger,
		ten99:    ten99,
		validate: v,
	}
}

var _ ApplicationService = (*AppService)(nil)

// checkRequest runs struct validation and reports violations in the same
// failure shape the domain uses.
func (s *AppService) checkRequest(req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	ve := &core.ValidationError{}
	for _, fe := range verrs {
		ve.Add(core.MissingField, fe.Field(),
			fmt.Sprintf("field %s failed %s validation", fe.Field(), fe.Tag()))
	}
	return ve.ErrOrNil()
}

// parseAmount converts a wire amount string to a decimal, collecting a
// failure instead of aborting so all bad amounts are reported together.
func parseAmount(ve *core.ValidationError, field, raw string) decimal.Decimal {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		ve.Addf(core.NonPositiveAmount, field, "amount %q is not a valid number", raw)
		return decimal.Zero
	}
	return amount
}

func (s *AppService) CreateVoucher(ctx context.Context, req CreateVoucherRequest) (*core.Voucher, error) {
	if err := s.checkRequest(req); err != nil {
		return nil, err
	}

	ve := &core.ValidationError{}
	in := core.InvoiceInput{
		VendorCode:    req.VendorCode,
		InvoiceNumber: req.InvoiceNumber,
		InvoiceDate:   req.InvoiceDate,
		DueDate:       req.DueDate,
		GrossAmount:   parseAmount(ve, "gross_amount", req.GrossAmount),
	}
	for i, line := range req.Lines {
		in.Lines = append(in.Lines, core.InvoiceLineInput{
			AccountCode: line.AccountCode,
			Amount:      parseAmount(ve, fmt.Sprintf("lines[%d].amount", i), line.Amount),
		})
	}
	if err := ve.ErrOrNil(); err != nil {
		return nil, err
	}

	return s.vouchers.CreateVoucher(ctx, in)
}

func (s *AppService) VoidVoucher(ctx context.Context, voucherID int) (*core.Voucher, error) {
	return s.vouchers.VoidVoucher(ctx, voucherID)
}

func (s *AppService) GetVoucher(ctx context.Context, voucherID int) (*core.Voucher, error) {
	return s.vouchers.GetVoucher(ctx, voucherID)
}

func (s *AppService) ApplyPayment(ctx context.Context, req ApplyPaymentRequest) (*core.Payment, error) {
	if err := s.checkRequest(req); err != nil {
		return nil, err
	}

	ve := &core.ValidationError{}
	in := core.PaymentInput{
		PaymentRef:      req.PaymentRef,
		VendorCode:      req.VendorCode,
		PaymentDate:     req.PaymentDate,
		Amount:          parseAmount(ve, "amount", req.Amount),
		CashAccountCode: req.CashAccountCode,
	}
	for i, alloc := range req.Allocations {
		in.Allocations = append(in.Allocations, core.AllocationInput{
			VoucherID: alloc.VoucherID,
			Amount:    parseAmount(ve, fmt.Sprintf("allocations[%d].amount", i), alloc.Amount),
		})
	}
	if err := ve.ErrOrNil(); err != nil {
		return nil, err
	}

	return s.payments.ApplyPayment(ctx, in)
}

func (s *AppService) VoidPayment(ctx context.Context, paymentID int) (*core.Payment, error) {
	return s.payments.VoidPayment(ctx, paymentID)
}

func (s *AppService) GetPayment(ctx context.Context, paymentID int) (*core.Payment, error) {
	return s.payments.GetPayment(ctx, paymentID)
}

func (s *AppService) CreateVendor(ctx context.Context, req CreateVendorRequest) (*core.Vendor, error) {
	if err := s.checkRequest(req); err != nil {
		return nil, err
	}

	discount := decimal.Zero
	if req.DiscountPercent != "" {
		ve := &core.ValidationError{}
		discount = parseAmount(ve, "discount_percent", req.DiscountPercent)
		if err := ve.ErrOrNil(); err != nil {
			return nil, err
		}
	}

	return s.vendors.CreateVendor(ctx, core.VendorInput{
		Code:             strings.ToUpper(strings.TrimSpace(req.Code)),
		Name:             strings.TrimSpace(req.Name),
		AddressLine1:     req.AddressLine1,
		AddressLine2:     req.AddressLine2,
		PaymentTermsDays: req.PaymentTermsDays,
		DiscountPercent:  discount,
		DiscountDays:     req.DiscountDays,
		APAccountCode:    req.APAccountCode,
		Reportable1099:   req.Reportable1099,
	})
}

func (s *AppService) GetVendor(ctx context.Context, code string) (*core.Vendor, error) {
	return s.vendors.GetVendorByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

func (s *AppService) ListVendors(ctx context.Context) ([]core.Vendor, error) {
	return s.vendors.ListVendors(ctx)
}

func (s *AppService) Get1099Summary(ctx context.Context, vendorCode string, taxYear int) (*core.Ten99Summary, error) {
	return s.ten99.Summary(ctx, strings.ToUpper(strings.TrimSpace(vendorCode)), taxYear)
}

func (s *AppService) GetTrialBalance(ctx context.Context) ([]core.AccountBalance, error) {
	return s.ledger.GetBalances(ctx)
}

func (s *AppService) GetPosting(ctx context.Context, postingID int) (*core.PostingRecord, error) {
	return s.ledger.GetPosting(ctx, postingID)
}
