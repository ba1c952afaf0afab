package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"

	"github.com/pachtwerk/pachtwerk/internal/invoicing"
	"github.com/pachtwerk/pachtwerk/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeRenderDocument renders an issued credit note to its
	// outbound representation.
	TaskTypeRenderDocument = "document:render"
	// TaskTypeNotifyStatus notifies interested parties about a
	// settlement period status change.
	TaskTypeNotifyStatus = "settlement:notify"
	// TaskTypeIdempotencyCleanup prunes expired idempotency keys.
	TaskTypeIdempotencyCleanup = "idempotency:cleanup"
)

// idempotencyRetention is how long processed keys stay recognisable.
const idempotencyRetention = 30 * 24 * time.Hour

// RenderDocumentPayload identifies the document to render.
type RenderDocumentPayload struct {
	TenantID  int64  `json:"tenant_id"`
	InvoiceID int64  `json:"invoice_id"`
	Number    string `json:"number"`
}

// NotifyStatusPayload describes a period status change.
type NotifyStatusPayload struct {
	TenantID int64  `json:"tenant_id"`
	PeriodID int64  `json:"period_id"`
	Status   string `json:"status"`
	Label    string `json:"label"`
}

// NewRenderDocumentTask constructs an Asynq task.
func NewRenderDocumentTask(payload RenderDocumentPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeRenderDocument, data), nil
}

// NewNotifyStatusTask constructs an Asynq task.
func NewNotifyStatusTask(payload NotifyStatusPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNotifyStatus, data), nil
}

// DocumentRenderer produces the outbound PDF for an issued document.
type DocumentRenderer interface {
	RenderCreditNote(ctx context.Context, inv invoicing.Invoice) ([]byte, error)
}

// NewRenderDocumentHandler processes TaskTypeRenderDocument tasks. The
// document is reloaded from the repository so the rendering always
// reflects the persisted state, never the enqueue-time snapshot. A nil
// renderer skips PDF output and only records the event.
func NewRenderDocumentHandler(logger *slog.Logger, invoices invoicing.Repository, renderer DocumentRenderer, outDir string) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload RenderDocumentPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		inv, err := invoices.Get(ctx, payload.TenantID, payload.InvoiceID)
		if err != nil {
			return err
		}
		if renderer == nil {
			logger.Info("document render skipped, no renderer configured",
				slog.Int64("tenant_id", inv.TenantID),
				slog.String("number", inv.Number))
			return nil
		}
		pdf, err := renderer.RenderCreditNote(ctx, *inv)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return err
		}
		path := filepath.Join(outDir, inv.Number+".pdf")
		if err := os.WriteFile(path, pdf, 0o644); err != nil {
			return err
		}
		logger.Info("document rendered",
			slog.Int64("tenant_id", inv.TenantID),
			slog.String("number", inv.Number),
			slog.String("path", path),
			slog.Int("items", len(inv.Items)))
		return nil
	}
}

// NewIdempotencyCleanupTask constructs the cron task.
func NewIdempotencyCleanupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeIdempotencyCleanup, nil)
}

// NewIdempotencyCleanupHandler prunes stale idempotency keys.
func NewIdempotencyCleanupHandler(logger *slog.Logger, store *shared.IdempotencyStore) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		if err := store.Cleanup(ctx, idempotencyRetention); err != nil {
			return err
		}
		logger.Info("idempotency keys pruned")
		return nil
	}
}

// NewNotifyStatusHandler processes TaskTypeNotifyStatus tasks.
func NewNotifyStatusHandler(logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload NotifyStatusPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		// Placeholder: notify reviewers via the mail gateway.
		logger.Info("settlement status notification",
			slog.Int64("tenant_id", payload.TenantID),
			slog.Int64("period_id", payload.PeriodID),
			slog.String("status", payload.Status),
			slog.String("label", payload.Label))
		return nil
	}
}
