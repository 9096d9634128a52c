package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// SequenceService issues gapless numbers per kind and year, e.g.
// GL-2026-00042. The bump runs inside the caller's transaction so an
// aborted posting never consumes a number.
type SequenceService struct{}

func NewSequenceService() *SequenceService {
	return &SequenceService{}
}

// NextInTx increments and returns the formatted next number for (kind, year).
// Concurrency-safe: the ON CONFLICT upsert serializes on the sequence row.
func (s *SequenceService) NextInTx(ctx context.Context, tx pgx.Tx, kind string, year int) (string, error) {
	var lastNumber int64
	err := tx.QueryRow(ctx, `
		INSERT INTO sequences (kind, year, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (kind, year)
		DO UPDATE SET last_number = sequences.last_number + 1
		RETURNING last_number
	`, kind, year).Scan(&lastNumber)
	if err != nil {
		return "", fmt.Errorf("failed to generate gapless sequence number for %s/%d: %w", kind, year, err)
	}
	return fmt.Sprintf("%s-%d-%05d", kind, year, lastNumber), nil
}
