package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pachtwerk/pachtwerk/internal/invoicing"
	"github.com/pachtwerk/pachtwerk/internal/masterdata/articles"
	"github.com/pachtwerk/pachtwerk/internal/masterdata/leases"
	"github.com/pachtwerk/pachtwerk/internal/masterdata/parks"
	"github.com/pachtwerk/pachtwerk/internal/observability"
	"github.com/pachtwerk/pachtwerk/internal/settlement/allocation"
	"github.com/pachtwerk/pachtwerk/internal/shared"
	"github.com/pachtwerk/pachtwerk/internal/tax"
)

// Notifier fans settlement events out to the async pipeline. Both
// methods are fire-and-forget from the service's point of view.
type Notifier interface {
	PeriodStatusChanged(ctx context.Context, p Period) error
	DocumentCreated(ctx context.Context, inv invoicing.Invoice) error
}

// Service orchestrates the settlement lifecycle.
type Service struct {
	logger   *slog.Logger
	repo     Repository
	parks    parks.Repository
	leases   leases.Repository
	articles articles.Repository
	taxCfg   tax.ConfigRepository
	invoices invoicing.Repository
	numbers  invoicing.NumberAllocator
	locks    *shared.RunLock
	audit    *shared.AuditLogger
	notifier Notifier
	metrics  *observability.Metrics

	reads singleflight.Group
}

// NewService wires the orchestration service. locks, audit, notifier
// and metrics may be nil.
func NewService(
	logger *slog.Logger,
	repo Repository,
	parkRepo parks.Repository,
	leaseRepo leases.Repository,
	articleRepo articles.Repository,
	taxCfg tax.ConfigRepository,
	invoiceRepo invoicing.Repository,
	numbers invoicing.NumberAllocator,
	locks *shared.RunLock,
	audit *shared.AuditLogger,
	notifier Notifier,
	metrics *observability.Metrics,
) *Service {
	return &Service{
		logger:   logger,
		repo:     repo,
		parks:    parkRepo,
		leases:   leaseRepo,
		articles: articleRepo,
		taxCfg:   taxCfg,
		invoices: invoiceRepo,
		numbers:  numbers,
		locks:    locks,
		audit:    audit,
		notifier: notifier,
		metrics:  metrics,
	}
}

// CreatePeriod opens a new settlement period in OPEN.
func (s *Service) CreatePeriod(ctx context.Context, tenantID, userID int64, req CreatePeriodRequest) (*Period, error) {
	p := &Period{
		TenantID:           tenantID,
		ParkID:             req.ParkID,
		Year:               req.Year,
		Type:               PeriodType(req.PeriodType),
		Interval:           allocation.Interval(req.Interval),
		Month:              req.Month,
		Label:              req.Label,
		Status:             StatusOpen,
		TotalRevenue:       req.TotalRevenue,
		EnergySettlementID: req.EnergySettlementID,
		CreatedBy:          userID,
	}

	switch p.Type {
	case PeriodAdvance:
		// validates interval and month range, and yields the default label
		sp, err := allocation.IntervalServicePeriod(p.Year, p.Interval, p.Month)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", shared.ErrValidation, err)
		}
		if p.Label == "" {
			p.Label = sp.Label
		}
	case PeriodFinal:
		if p.TotalRevenue.IsNegative() {
			return nil, fmt.Errorf("%w: total revenue must not be negative", shared.ErrValidation)
		}
		p.Interval = ""
		p.Month = 0
		if p.Label == "" {
			p.Label = fmt.Sprintf("Jahresabrechnung %d", p.Year)
		}
	default:
		return nil, fmt.Errorf("%w: unknown period type %q", shared.ErrValidation, req.PeriodType)
	}

	if _, err := s.parks.Get(ctx, tenantID, p.ParkID); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, tenantID, userID, "period.create", p.ID, map[string]any{"label": p.Label})
	return p, nil
}

// Calculate runs the allocation for the period's park and stores the
// aggregate totals on the period. Re-running from CALCULATED or
// IN_PROGRESS replaces the previous figures.
func (s *Service) Calculate(ctx context.Context, tenantID, userID, periodID int64) (*allocation.Result, error) {
	p, err := s.repo.Get(ctx, tenantID, periodID)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusCalculated {
		if err := ValidateTransition(p.Status, StatusCalculated); err != nil {
			return nil, err
		}
	}

	result, err := s.allocate(ctx, p)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateTotals(ctx, tenantID, periodID, Totals{
		TotalMinimumRent: result.TotalMinimumRent,
		TotalActualRent:  result.TotalActualRent,
		UsedMinimum:      result.UsedMinimum,
	}); err != nil {
		return nil, err
	}
	if p.Status != StatusCalculated {
		if err := s.repo.UpdateStatus(ctx, tenantID, periodID, p.Status, StatusCalculated); err != nil {
			return nil, err
		}
	}
	s.recordAudit(ctx, tenantID, userID, "period.calculate", periodID, map[string]any{
		"total_actual_rent": result.TotalActualRent.StringFixed(2),
		"used_minimum":      result.UsedMinimum,
	})
	return result, nil
}

// LeaseFailure reports one lease whose document could not be written.
type LeaseFailure struct {
	LeaseID int64  `json:"lease_id"`
	Reason  string `json:"reason"`
}

// GenerateResult summarises a generation run.
type GenerateResult struct {
	PeriodID int64          `json:"period_id"`
	Created  []string       `json:"created"`
	Skipped  int            `json:"skipped"`
	Failed   []LeaseFailure `json:"failed,omitempty"`
}

// GenerateInvoices turns the period's allocation into credit notes,
// one document per lease. The run is idempotent: leases that already
// hold a document for this period are skipped, so a partially failed
// run can simply be retried. Each document commits on its own; one
// failing lease never rolls back its siblings.
func (s *Service) GenerateInvoices(ctx context.Context, tenantID, userID, periodID int64, req GenerateRequest) (*GenerateResult, error) {
	p, err := s.repo.Get(ctx, tenantID, periodID)
	if err != nil {
		return nil, err
	}
	if !p.Status.CanGenerate() {
		return nil, fmt.Errorf("%w: cannot generate documents in status %s", shared.ErrValidation, p.Status)
	}

	if req.TotalRevenue != nil || req.EnergySettlementID != nil {
		if !p.Final() {
			return nil, fmt.Errorf("%w: revenue overrides apply to FINAL periods only", shared.ErrValidation)
		}
		if req.TotalRevenue != nil {
			if req.TotalRevenue.IsNegative() {
				return nil, fmt.Errorf("%w: total revenue must not be negative", shared.ErrValidation)
			}
			p.TotalRevenue = *req.TotalRevenue
		}
		if req.EnergySettlementID != nil {
			p.EnergySettlementID = req.EnergySettlementID
		}
		if err := s.repo.UpdateRevenue(ctx, tenantID, periodID, p.TotalRevenue, p.EnergySettlementID); err != nil {
			return nil, err
		}
	}

	lockKey := shared.GenerationLockKey(tenantID, periodID)
	token, err := s.locks.Acquire(ctx, lockKey)
	if err != nil {
		if errors.Is(err, shared.ErrLockHeld) {
			return nil, fmt.Errorf("%w: a generation run for this period is already in progress", shared.ErrValidation)
		}
		return nil, err
	}
	defer func() {
		if err := s.locks.Release(context.WithoutCancel(ctx), lockKey, token); err != nil {
			s.logger.Warn("generation lock release failed", slog.String("error", err.Error()))
		}
	}()

	park, err := s.parks.Get(ctx, tenantID, p.ParkID)
	if err != nil {
		return nil, err
	}
	parkArticles, err := s.articles.ListByPark(ctx, tenantID, p.ParkID)
	if err != nil {
		return nil, err
	}
	rates, err := s.taxCfg.RatesForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	result, err := s.allocate(ctx, p)
	if err != nil {
		return nil, err
	}

	gen := invoicing.NewGenerator(park, articles.Resolve(parkArticles), rates)
	now := time.Now().UTC()
	invoiceDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if req.InvoiceDate != "" {
		d, err := time.Parse("2006-01-02", req.InvoiceDate)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid invoice date %q", shared.ErrValidation, req.InvoiceDate)
		}
		invoiceDate = d
	}

	run := &GenerateResult{PeriodID: periodID}
	type pending struct {
		leaseID int64
		draft   *invoicing.Draft
	}
	var drafts []pending

	for _, la := range result.Leases {
		exists, err := s.invoices.ExistsForLease(ctx, tenantID, periodID, la.Lease.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			run.Skipped++
			continue
		}

		draft, err := s.buildDraft(ctx, gen, p, la, invoiceDate)
		if err != nil {
			run.Failed = append(run.Failed, LeaseFailure{LeaseID: la.Lease.ID, Reason: err.Error()})
			continue
		}
		if draft == nil {
			run.Skipped++
			continue
		}
		drafts = append(drafts, pending{leaseID: la.Lease.ID, draft: draft})
	}

	if len(drafts) > 0 {
		numbers, err := s.numbers.Reserve(ctx, tenantID, invoicing.DocCreditNote, len(drafts))
		if err != nil {
			return nil, err
		}
		for i, d := range drafts {
			inv, err := s.invoices.Create(ctx, periodID, numbers[i], invoicing.DocCreditNote, d.draft, tenantID, userID, nil)
			if err != nil {
				s.logger.Error("credit note write failed",
					slog.Int64("period_id", periodID),
					slog.Int64("lease_id", d.leaseID),
					slog.String("error", err.Error()))
				run.Failed = append(run.Failed, LeaseFailure{LeaseID: d.leaseID, Reason: err.Error()})
				continue
			}
			run.Created = append(run.Created, inv.Number)
			if s.metrics != nil {
				s.metrics.DocumentsCreated.WithLabelValues(string(invoicing.DocCreditNote)).Inc()
			}
			s.notifyDocument(ctx, *inv)
		}
	}

	if err := s.repo.UpdateTotals(ctx, tenantID, periodID, Totals{
		TotalMinimumRent: result.TotalMinimumRent,
		TotalActualRent:  result.TotalActualRent,
		UsedMinimum:      result.UsedMinimum,
	}); err != nil {
		return nil, err
	}

	target := StatusAdvanceCreated
	if p.Final() {
		target = StatusSettled
	}
	if p.Status != target {
		if err := ValidateTransition(p.Status, target); err == nil {
			if err := s.repo.UpdateStatus(ctx, tenantID, periodID, p.Status, target); err != nil {
				return nil, err
			}
			s.notifyStatus(ctx, tenantID, periodID)
		}
	}

	if s.metrics != nil {
		outcome := "ok"
		if len(run.Failed) > 0 {
			outcome = "partial"
		}
		s.metrics.GenerationRuns.WithLabelValues(outcome).Inc()
	}
	s.recordAudit(ctx, tenantID, userID, "period.generate", periodID, map[string]any{
		"created": len(run.Created),
		"skipped": run.Skipped,
		"failed":  len(run.Failed),
	})
	s.logger.Info("generation run finished",
		slog.Int64("tenant_id", tenantID),
		slog.Int64("period_id", periodID),
		slog.Int("created", len(run.Created)),
		slog.Int("skipped", run.Skipped),
		slog.Int("failed", len(run.Failed)))
	return run, nil
}

// buildDraft produces the lease's document for the period type. A nil
// draft means the lease has nothing material to bill.
func (s *Service) buildDraft(ctx context.Context, gen *invoicing.Generator, p *Period, la allocation.LeaseAllocation, invoiceDate time.Time) (*invoicing.Draft, error) {
	if p.Final() {
		priorItems, err := s.invoices.ListAdvanceItems(ctx, p.TenantID, la.Lease.ID, p.Year)
		if err != nil {
			return nil, err
		}
		return gen.BuildFinal(la, p.Year, priorItems, invoiceDate)
	}

	sp, err := allocation.IntervalServicePeriod(p.Year, p.Interval, p.Month)
	if err != nil {
		return nil, err
	}
	lines, err := allocation.SplitInstallments(la, p.Interval)
	if err != nil {
		return nil, err
	}
	return gen.BuildAdvance(la, lines, sp, invoiceDate)
}

// SubmitForReview hands the period to a second pair of eyes.
func (s *Service) SubmitForReview(ctx context.Context, tenantID, userID, periodID int64) (*Period, error) {
	p, err := s.repo.Get(ctx, tenantID, periodID)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(p.Status, StatusPendingReview); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, tenantID, periodID, p.Status, StatusPendingReview); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, tenantID, userID, "period.submit_review", periodID, nil)
	s.notifyStatus(ctx, tenantID, periodID)
	return s.repo.Get(ctx, tenantID, periodID)
}

// Review approves or rejects a period under review. The creator of the
// period may not review it. A rejection needs notes and sends the
// period back to IN_PROGRESS for rework.
func (s *Service) Review(ctx context.Context, tenantID, userID, periodID int64, approve bool, notes string) (*Period, error) {
	p, err := s.repo.Get(ctx, tenantID, periodID)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusPendingReview {
		return nil, fmt.Errorf("%w: period is in status %s, not PENDING_REVIEW", shared.ErrValidation, p.Status)
	}
	if p.CreatedBy == userID {
		return nil, fmt.Errorf("%w: the creator of a period cannot review it", shared.ErrValidation)
	}

	to := StatusApproved
	action := "period.approve"
	if !approve {
		if notes == "" {
			return nil, fmt.Errorf("%w: rejection requires review notes", shared.ErrValidation)
		}
		to = StatusInProgress
		action = "period.reject"
	}

	if err := s.repo.RecordReview(ctx, tenantID, periodID, to, Review{
		ReviewedBy: userID,
		Notes:      notes,
		At:         time.Now().UTC(),
	}); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, tenantID, userID, action, periodID, map[string]any{"notes": notes})
	s.notifyStatus(ctx, tenantID, periodID)
	return s.repo.Get(ctx, tenantID, periodID)
}

// Close finishes an approved period. Closed periods are immutable.
func (s *Service) Close(ctx context.Context, tenantID, userID, periodID int64) (*Period, error) {
	p, err := s.repo.Get(ctx, tenantID, periodID)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(p.Status, StatusClosed); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateStatus(ctx, tenantID, periodID, p.Status, StatusClosed); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, tenantID, userID, "period.close", periodID, nil)
	s.notifyStatus(ctx, tenantID, periodID)
	return s.repo.Get(ctx, tenantID, periodID)
}

// Cancel abandons a period with a mandatory reason. Already issued
// documents stay valid; correcting them is a per-document cancellation.
func (s *Service) Cancel(ctx context.Context, tenantID, userID, periodID int64, reason string) (*Period, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: cancellation requires a reason", shared.ErrValidation)
	}
	p, err := s.repo.Get(ctx, tenantID, periodID)
	if err != nil {
		return nil, err
	}
	if err := ValidateTransition(p.Status, StatusCancelled); err != nil {
		return nil, err
	}
	if err := s.repo.Cancel(ctx, tenantID, periodID, p.Status, reason); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, tenantID, userID, "period.cancel", periodID, map[string]any{"reason": reason})
	s.notifyStatus(ctx, tenantID, periodID)
	return s.repo.Get(ctx, tenantID, periodID)
}

// GetPeriod reads one period, collapsing concurrent identical reads.
func (s *Service) GetPeriod(ctx context.Context, tenantID, periodID int64) (*Period, error) {
	key := fmt.Sprintf("%d:%d", tenantID, periodID)
	v, err, _ := s.reads.Do(key, func() (any, error) {
		return s.repo.Get(ctx, tenantID, periodID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Period), nil
}

// ListPeriods lists the tenant's periods with optional filters.
func (s *Service) ListPeriods(ctx context.Context, tenantID int64, filter ListFilter) ([]Period, error) {
	return s.repo.List(ctx, tenantID, filter)
}

func (s *Service) allocate(ctx context.Context, p *Period) (*allocation.Result, error) {
	park, err := s.parks.Get(ctx, p.TenantID, p.ParkID)
	if err != nil {
		return nil, err
	}
	lws, err := s.leases.ListActiveByPark(ctx, p.TenantID, p.ParkID)
	if err != nil {
		return nil, err
	}
	result := allocation.Calculate(s.logger, park, lws, p.Final(), p.Year, p.TotalRevenue)
	return &result, nil
}

func (s *Service) recordAudit(ctx context.Context, tenantID, userID int64, action string, periodID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		TenantID: tenantID,
		ActorID:  userID,
		Action:   action,
		Entity:   "settlement_period",
		EntityID: strconv.FormatInt(periodID, 10),
		Meta:     meta,
	}); err != nil {
		s.logger.Warn("audit write failed", slog.String("action", action), slog.String("error", err.Error()))
	}
}

func (s *Service) notifyStatus(ctx context.Context, tenantID, periodID int64) {
	if s.notifier == nil {
		return
	}
	p, err := s.repo.Get(ctx, tenantID, periodID)
	if err != nil {
		s.logger.Warn("notify skipped, period reload failed", slog.String("error", err.Error()))
		return
	}
	if err := s.notifier.PeriodStatusChanged(ctx, *p); err != nil {
		s.logger.Warn("status notification failed", slog.String("error", err.Error()))
	}
}

func (s *Service) notifyDocument(ctx context.Context, inv invoicing.Invoice) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.DocumentCreated(ctx, inv); err != nil {
		s.logger.Warn("document notification failed", slog.String("error", err.Error()))
	}
}
