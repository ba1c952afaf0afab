package invoicing

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/pachtwerk/pachtwerk/internal/shared"
)

// Service exposes document reads and cancellation. Generation runs in
// the settlement package; this side only ever reads finished documents
// or issues linked correction documents.
type Service struct {
	logger  *slog.Logger
	repo    Repository
	numbers NumberAllocator
	audit   *shared.AuditLogger
}

// NewService constructs the service. audit may be nil.
func NewService(logger *slog.Logger, repo Repository, numbers NumberAllocator, audit *shared.AuditLogger) *Service {
	return &Service{logger: logger, repo: repo, numbers: numbers, audit: audit}
}

// Get returns one document with its items.
func (s *Service) Get(ctx context.Context, tenantID, id int64) (*Invoice, error) {
	return s.repo.Get(ctx, tenantID, id)
}

// ListByPeriod returns all documents of a settlement period.
func (s *Service) ListByPeriod(ctx context.Context, tenantID, periodID int64) ([]Invoice, error) {
	return s.repo.ListByPeriod(ctx, tenantID, periodID)
}

// Cancel issues a cancellation document mirroring the original with
// negated amounts. A document can be cancelled once; the original stays
// untouched and the cancellation links back to it.
func (s *Service) Cancel(ctx context.Context, tenantID, userID, invoiceID int64) (*Invoice, error) {
	original, err := s.repo.Get(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if original.DocumentType == DocCancellation {
		return nil, fmt.Errorf("%w: document %s is itself a cancellation", shared.ErrValidation, original.Number)
	}
	cancelled, err := s.repo.IsCancelled(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	if cancelled {
		return nil, fmt.Errorf("%w: document %s is already cancelled", shared.ErrValidation, original.Number)
	}

	numbers, err := s.numbers.Reserve(ctx, tenantID, DocCancellation, 1)
	if err != nil {
		return nil, err
	}

	draft := CancellationDraft(*original, time.Now().UTC())
	cancellation, err := s.repo.Create(ctx, original.PeriodID, numbers[0], DocCancellation, draft, tenantID, userID, &original.ID)
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			TenantID: tenantID,
			ActorID:  userID,
			Action:   "invoice.cancel",
			Entity:   "invoice",
			EntityID: strconv.FormatInt(original.ID, 10),
			Meta:     map[string]any{"cancellation_number": cancellation.Number},
		}); err != nil {
			s.logger.Warn("audit write failed", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("document cancelled",
		slog.Int64("tenant_id", tenantID),
		slog.String("number", original.Number),
		slog.String("cancellation_number", cancellation.Number))
	return cancellation, nil
}
