package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// VendorService provides vendor master data lookups. The posting flows treat
// vendors as read-only; CreateVendor exists for setup and tests.
type VendorService interface {
	CreateVendor(ctx context.Context, input VendorInput) (*Vendor, error)
	GetVendorByCode(ctx context.Context, code string) (*Vendor, error)
	ListVendors(ctx context.Context) ([]Vendor, error)
}

type vendorService struct {
	pool *pgxpool.Pool
}

// NewVendorService constructs a VendorService backed by PostgreSQL.
func NewVendorService(pool *pgxpool.Pool) VendorService {
	return &vendorService{pool: pool}
}

const vendorColumns = `id, code, name, address_line1, address_line2,
	payment_terms_days, discount_percent, discount_days,
	ap_account_code, reportable_1099, is_active, created_at`

func scanVendor(row pgx.Row, v *Vendor) error {
	return row.Scan(
		&v.ID, &v.Code, &v.Name, &v.AddressLine1, &v.AddressLine2,
		&v.PaymentTermsDays, &v.DiscountPercent, &v.DiscountDays,
		&v.APAccountCode, &v.Reportable1099, &v.IsActive, &v.CreatedAt,
	)
}

// CreateVendor inserts a new vendor record.
func (s *vendorService) CreateVendor(ctx context.Context, input VendorInput) (*Vendor, error) {
	apAccountCode := input.APAccountCode
	if apAccountCode == "" {
		apAccountCode = "2000"
	}
	paymentTerms := input.PaymentTermsDays
	if paymentTerms == 0 {
		paymentTerms = 30
	}

	toPtr := func(s string) *string {
		if s == "" {
			return nil
		}
		return &s
	}

	v := &Vendor{}
	err := scanVendor(s.pool.QueryRow(ctx, `
		INSERT INTO vendors (code, name, address_line1, address_line2,
		                     payment_terms_days, discount_percent, discount_days,
		                     ap_account_code, reportable_1099)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+vendorColumns,
		input.Code, input.Name, toPtr(input.AddressLine1), toPtr(input.AddressLine2),
		paymentTerms, input.DiscountPercent, input.DiscountDays,
		apAccountCode, input.Reportable1099,
	), v)
	if err != nil {
		return nil, fmt.Errorf("create vendor %q: %w", input.Code, err)
	}
	return v, nil
}

// GetVendorByCode returns an active vendor by its code.
func (s *vendorService) GetVendorByCode(ctx context.Context, code string) (*Vendor, error) {
	v := &Vendor{}
	err := scanVendor(s.pool.QueryRow(ctx,
		"SELECT "+vendorColumns+" FROM vendors WHERE code = $1 AND is_active = true", code,
	), v)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("vendor %q not found", code)
		}
		return nil, fmt.Errorf("fetch vendor %q: %w", code, err)
	}
	return v, nil
}

// ListVendors returns all active vendors ordered by code.
func (s *vendorService) ListVendors(ctx context.Context) ([]Vendor, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+vendorColumns+" FROM vendors WHERE is_active = true ORDER BY code")
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	defer rows.Close()

	var vendors []Vendor
	for rows.Next() {
		var v Vendor
		if err := scanVendor(rows, &v); err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}

// getVendorByCodeTx loads a vendor inside an existing transaction.
func getVendorByCodeTx(ctx context.Context, tx pgx.Tx, code string) (*Vendor, error) {
	v := &Vendor{}
	err := scanVendor(tx.QueryRow(ctx,
		"SELECT "+vendorColumns+" FROM vendors WHERE code = $1 AND is_active = true", code,
	), v)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("vendor %q not found", code)
		}
		return nil, fmt.Errorf("fetch vendor %q: %w", code, err)
	}
	return v, nil
}
