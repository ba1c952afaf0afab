package invoicing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NumberAllocator issues gap-free, collision-free sequential document
// numbers per tenant and document type. Callers reserve a whole batch
// up front; numbers of a reservation the caller never uses remain a
// benign gap.
type NumberAllocator interface {
	Reserve(ctx context.Context, tenantID int64, docType DocumentType, count int) ([]string, error)
}

// docPrefixes seeds new sequences. Existing rows keep their prefix.
var docPrefixes = map[DocumentType]string{
	DocCreditNote:   "GS",
	DocCancellation: "ST",
}

type txBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

type sequenceAllocator struct {
	db txBeginner
}

// NewNumberAllocator builds the pgx-backed allocator. Concurrency
// safety rests on the row lock taken by SELECT ... FOR UPDATE: two
// concurrent batches serialize on the sequence row and can never
// observe the same last_value.
func NewNumberAllocator(pool *pgxpool.Pool) NumberAllocator {
	return &sequenceAllocator{db: pool}
}

func (a *sequenceAllocator) Reserve(ctx context.Context, tenantID int64, docType DocumentType, count int) ([]string, error) {
	if count <= 0 {
		return nil, errors.New("invoicing: reservation count must be positive")
	}
	prefix, ok := docPrefixes[docType]
	if !ok {
		return nil, fmt.Errorf("invoicing: unknown document type %q", docType)
	}

	// ReadCommitted keeps concurrent reservations queueing on the row
	// lock: after the holder commits, a waiter re-reads the committed
	// counter and proceeds. At RepeatableRead the waiter's snapshot
	// would predate the commit and Postgres would abort it with a
	// serialization failure instead.
	tx, err := a.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("invoicing: begin reservation: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `
		INSERT INTO invoice_sequences (tenant_id, document_type, prefix, last_value)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (tenant_id, document_type) DO NOTHING`,
		tenantID, string(docType), prefix); err != nil {
		return nil, fmt.Errorf("seed sequence: %w", err)
	}

	var last int64
	if err := tx.QueryRow(ctx, `
		SELECT prefix, last_value FROM invoice_sequences
		WHERE tenant_id = $1 AND document_type = $2
		FOR UPDATE`,
		tenantID, string(docType)).Scan(&prefix, &last); err != nil {
		return nil, fmt.Errorf("lock sequence: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE invoice_sequences SET last_value = $3
		WHERE tenant_id = $1 AND document_type = $2`,
		tenantID, string(docType), last+int64(count)); err != nil {
		return nil, fmt.Errorf("advance sequence: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("invoicing: commit reservation: %w", err)
	}

	numbers := make([]string, 0, count)
	for i := int64(1); i <= int64(count); i++ {
		numbers = append(numbers, fmt.Sprintf("%s-%06d", prefix, last+i))
	}
	return numbers, nil
}
