package core_test

import (
	"testing"

	"payables-engine/internal/core"
)

func TestPosting_Validate(t *testing.T) {
	tests := []struct {
		name      string
		lines     []core.PostingLine
		wantKinds []core.FailureKind
	}{
		{
			name: "balanced two lines",
			lines: []core.PostingLine{
				{AccountCode: "5100", IsDebit: true, Amount: d("200.00")},
				{AccountCode: "2000", IsDebit: false, Amount: d("200.00")},
			},
		},
		{
			name: "balanced multi-line voucher pattern",
			lines: []core.PostingLine{
				{AccountCode: "5100", IsDebit: true, Amount: d("600.00")},
				{AccountCode: "5200", IsDebit: true, Amount: d("400.00")},
				{AccountCode: "2000", IsDebit: false, Amount: d("1000.00")},
			},
		},
		{
			name: "balanced payment-with-discount pattern",
			lines: []core.PostingLine{
				{AccountCode: "2000", IsDebit: true, Amount: d("1000.00")},
				{AccountCode: "1000", IsDebit: false, Amount: d("980.00")},
				{AccountCode: "4900", IsDebit: false, Amount: d("20.00")},
			},
		},
		{
			name: "unbalanced",
			lines: []core.PostingLine{
				{AccountCode: "5100", IsDebit: true, Amount: d("200.00")},
				{AccountCode: "2000", IsDebit: false, Amount: d("100.00")},
			},
			wantKinds: []core.FailureKind{core.UnbalancedEntry},
		},
		{
			name: "off by one cent",
			lines: []core.PostingLine{
				{AccountCode: "5100", IsDebit: true, Amount: d("100.00")},
				{AccountCode: "2000", IsDebit: false, Amount: d("99.99")},
			},
			wantKinds: []core.FailureKind{core.UnbalancedEntry},
		},
		{
			name: "single line",
			lines: []core.PostingLine{
				{AccountCode: "5100", IsDebit: true, Amount: d("200.00")},
			},
			wantKinds: []core.FailureKind{core.UnbalancedEntry, core.UnbalancedEntry},
		},
		{
			name: "zero amount line",
			lines: []core.PostingLine{
				{AccountCode: "5100", IsDebit: true, Amount: d("0.00")},
				{AccountCode: "2000", IsDebit: false, Amount: d("0.00")},
			},
			wantKinds: []core.FailureKind{core.NonPositiveAmount, core.NonPositiveAmount},
		},
		{
			name: "negative amount line",
			lines: []core.PostingLine{
				{AccountCode: "5100", IsDebit: true, Amount: d("-50.00")},
				{AccountCode: "2000", IsDebit: false, Amount: d("-50.00")},
			},
			wantKinds: []core.FailureKind{core.NonPositiveAmount, core.NonPositiveAmount},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := core.Posting{
				SourceType:  core.SourceVoucher,
				SourceRef:   "V1/INV-100",
				PostingDate: "2026-03-01",
				Lines:       tt.lines,
			}
			p.Normalize()
			err := p.Validate()

			if len(tt.wantKinds) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			ve, ok := core.AsValidationError(err)
			if !ok {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if len(ve.Failures) != len(tt.wantKinds) {
				t.Fatalf("expected %d failures, got %d: %v", len(tt.wantKinds), len(ve.Failures), ve)
			}
			for i, kind := range tt.wantKinds {
				if ve.Failures[i].Kind != kind {
					t.Errorf("failure %d: expected kind %s, got %s", i, kind, ve.Failures[i].Kind)
				}
			}
		})
	}
}

func TestPosting_Validate_RequiredHeaderFields(t *testing.T) {
	p := core.Posting{
		Lines: []core.PostingLine{
			{AccountCode: "5100", IsDebit: true, Amount: d("100.00")},
			{AccountCode: "2000", IsDebit: false, Amount: d("100.00")},
		},
	}
	p.Normalize()
	err := p.Validate()

	ve, ok := core.AsValidationError(err)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	// Missing source type and missing posting date.
	if len(ve.Failures) != 2 {
		t.Fatalf("expected 2 failures, got %d: %v", len(ve.Failures), ve)
	}
	for _, f := range ve.Failures {
		if f.Kind != core.MissingField {
			t.Errorf("expected MissingField, got %s", f.Kind)
		}
	}
}
