package jobs

import (
	"context"

	"github.com/pachtwerk/pachtwerk/internal/invoicing"
	"github.com/pachtwerk/pachtwerk/internal/settlement"
)

// Enqueuer turns settlement events into queued tasks. It implements
// settlement.Notifier so the HTTP process never blocks on rendering or
// notification delivery.
type Enqueuer struct {
	client *Client
}

// NewEnqueuer wraps the Asynq client.
func NewEnqueuer(client *Client) *Enqueuer {
	return &Enqueuer{client: client}
}

// PeriodStatusChanged enqueues a status notification task.
func (e *Enqueuer) PeriodStatusChanged(ctx context.Context, p settlement.Period) error {
	task, err := NewNotifyStatusTask(NotifyStatusPayload{
		TenantID: p.TenantID,
		PeriodID: p.ID,
		Status:   string(p.Status),
		Label:    p.Label,
	})
	if err != nil {
		return err
	}
	_, err = e.client.Enqueue(ctx, task)
	return err
}

// DocumentCreated enqueues a render task for the new document.
func (e *Enqueuer) DocumentCreated(ctx context.Context, inv invoicing.Invoice) error {
	task, err := NewRenderDocumentTask(RenderDocumentPayload{
		TenantID:  inv.TenantID,
		InvoiceID: inv.ID,
		Number:    inv.Number,
	})
	if err != nil {
		return err
	}
	_, err = e.client.Enqueue(ctx, task)
	return err
}
