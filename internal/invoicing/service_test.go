package invoicing

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/pachtwerk/pachtwerk/internal/masterdata/articles"
	"github.com/pachtwerk/pachtwerk/internal/shared"
)

type memoryRepo struct {
	mu       sync.Mutex
	nextID   int64
	invoices map[int64]*Invoice
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{nextID: 1, invoices: make(map[int64]*Invoice)}
}

func (r *memoryRepo) Create(_ context.Context, periodID int64, number string, docType DocumentType, draft *Draft, tenantID, createdBy int64, cancels *int64) (*Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv := &Invoice{
		ID:               r.nextID,
		TenantID:         tenantID,
		PeriodID:         periodID,
		LeaseID:          draft.LeaseID,
		Number:           number,
		DocumentType:     docType,
		RecipientID:      draft.RecipientID,
		RecipientName:    draft.RecipientName,
		InvoiceDate:      draft.InvoiceDate,
		DueDate:          draft.DueDate,
		ServiceStart:     draft.ServiceStart,
		ServiceEnd:       draft.ServiceEnd,
		NetAmount:        draft.NetAmount,
		TaxAmount:        draft.TaxAmount,
		GrossAmount:      draft.GrossAmount,
		CancelsInvoiceID: cancels,
		CreatedBy:        createdBy,
		CreatedAt:        time.Now(),
	}
	r.nextID++
	for _, item := range draft.Items {
		inv.Items = append(inv.Items, InvoiceItem{
			ID:            r.nextID,
			InvoiceID:     inv.ID,
			Position:      item.Position,
			Description:   item.Description,
			PlotAreaID:    item.PlotAreaID,
			AdvanceItemID: item.AdvanceItemID,
			LineType:      item.LineType,
			Quantity:      item.Quantity,
			Unit:          item.Unit,
			UnitPrice:     item.UnitPrice,
			NetAmount:     item.NetAmount,
			TaxCategory:   item.TaxCategory,
			TaxRate:       item.TaxRate,
			TaxAmount:     item.TaxAmount,
			GrossAmount:   item.GrossAmount,
			LedgerAccount: item.LedgerAccount,
			IssueDate:     item.IssueDate,
		})
		r.nextID++
	}
	r.invoices[inv.ID] = inv
	return inv, nil
}

func (r *memoryRepo) Get(_ context.Context, tenantID, id int64) (*Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok || inv.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return inv, nil
}

func (r *memoryRepo) ListByPeriod(_ context.Context, tenantID, periodID int64) ([]Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Invoice
	for _, inv := range r.invoices {
		if inv.TenantID == tenantID && inv.PeriodID == periodID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListAdvanceItems(context.Context, int64, int64, int) ([]InvoiceItem, error) {
	return nil, nil
}

func (r *memoryRepo) ExistsForLease(_ context.Context, tenantID, periodID, leaseID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.TenantID == tenantID && inv.PeriodID == periodID && inv.LeaseID == leaseID &&
			inv.DocumentType == DocCreditNote {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepo) IsCancelled(_ context.Context, tenantID, invoiceID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invoices {
		if inv.TenantID == tenantID && inv.CancelsInvoiceID != nil && *inv.CancelsInvoiceID == invoiceID {
			return true, nil
		}
	}
	return false, nil
}

func seedCreditNote(t *testing.T, repo *memoryRepo) *Invoice {
	t.Helper()
	draft := &Draft{
		LeaseID:       5,
		RecipientID:   9,
		RecipientName: "Heinrich Petersen",
		InvoiceDate:   time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		DueDate:       time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC),
		ServiceStart:  time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		ServiceEnd:    time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC),
		NetAmount:     decimal.RequireFromString("833.33"),
		TaxAmount:     decimal.RequireFromString("158.33"),
		GrossAmount:   decimal.RequireFromString("991.66"),
		Items: []ItemDraft{{
			Position:      1,
			Description:   "Pachtvorschuss 03/2025, Flurstück Nordfeld 12/3",
			LineType:      articles.LineMindestpacht,
			Quantity:      decimal.NewFromInt(1),
			Unit:          "pauschal",
			UnitPrice:     decimal.RequireFromString("833.33"),
			NetAmount:     decimal.RequireFromString("833.33"),
			TaxRate:       decimal.NewFromInt(19),
			TaxAmount:     decimal.RequireFromString("158.33"),
			GrossAmount:   decimal.RequireFromString("991.66"),
			LedgerAccount: "6310",
		}},
	}
	inv, err := repo.Create(context.Background(), 1, "GS-000001", DocCreditNote, draft, 1, 11, nil)
	require.NoError(t, err)
	return inv
}

func newTestService(repo *memoryRepo) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(logger, repo, newMemoryAllocator(), nil)
}

func TestCancelCreatesLinkedCancellation(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := newTestService(repo)
	original := seedCreditNote(t, repo)

	cancellation, err := svc.Cancel(ctx, 1, 22, original.ID)
	require.NoError(t, err)
	require.Equal(t, DocCancellation, cancellation.DocumentType)
	require.Equal(t, "ST-000001", cancellation.Number)
	require.NotNil(t, cancellation.CancelsInvoiceID)
	require.Equal(t, original.ID, *cancellation.CancelsInvoiceID)
	require.True(t, cancellation.NetAmount.Equal(original.NetAmount.Neg()))
	require.True(t, cancellation.GrossAmount.Equal(original.GrossAmount.Neg()))
	require.Len(t, cancellation.Items, 1)
	require.Contains(t, cancellation.Items[0].Description, "Storno:")
}

func TestCancelRejectsSecondCancellation(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := newTestService(repo)
	original := seedCreditNote(t, repo)

	_, err := svc.Cancel(ctx, 1, 22, original.ID)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, 1, 22, original.ID)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCancelRejectsCancellingACancellation(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := newTestService(repo)
	original := seedCreditNote(t, repo)

	cancellation, err := svc.Cancel(ctx, 1, 22, original.ID)
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, 1, 22, cancellation.ID)
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCancelUnknownDocument(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	_, err := svc.Cancel(context.Background(), 1, 22, 999)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestTenantIsolationOnGet(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	original := seedCreditNote(t, repo)

	_, err := svc.Get(context.Background(), 2, original.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
