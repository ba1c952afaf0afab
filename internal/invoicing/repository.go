package invoicing

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pachtwerk/pachtwerk/internal/platform/db"
	"github.com/pachtwerk/pachtwerk/internal/shared"
)

// Repository persists credit notes. Each document (header plus items)
// is written in a single transaction; a batch of documents deliberately
// is not, so one failing lease never rolls back its siblings.
type Repository interface {
	Create(ctx context.Context, periodID int64, number string, docType DocumentType, draft *Draft, tenantID, createdBy int64, cancels *int64) (*Invoice, error)
	Get(ctx context.Context, tenantID, id int64) (*Invoice, error)
	ListByPeriod(ctx context.Context, tenantID, periodID int64) ([]Invoice, error)
	// ListAdvanceItems returns the line items of all non-cancelled
	// advance credit notes issued to a lease for the given year. The
	// items carry their original issue date for the deduction lines.
	ListAdvanceItems(ctx context.Context, tenantID, leaseID int64, year int) ([]InvoiceItem, error)
	ExistsForLease(ctx context.Context, tenantID, periodID, leaseID int64) (bool, error)
	IsCancelled(ctx context.Context, tenantID, invoiceID int64) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Create(ctx context.Context, periodID int64, number string, docType DocumentType, draft *Draft, tenantID, createdBy int64, cancels *int64) (*Invoice, error) {
	inv := &Invoice{
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
	}

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO invoices (
				tenant_id, period_id, lease_id, number, document_type,
				recipient_id, recipient_name, invoice_date, due_date,
				service_start, service_end, net_amount, tax_amount,
				gross_amount, cancels_invoice_id, created_by, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,NOW())
			RETURNING id, created_at`,
			tenantID, periodID, draft.LeaseID, number, string(docType),
			draft.RecipientID, draft.RecipientName, draft.InvoiceDate, draft.DueDate,
			draft.ServiceStart, draft.ServiceEnd, draft.NetAmount, draft.TaxAmount,
			draft.GrossAmount, int8OrNull(cancels), createdBy,
		).Scan(&inv.ID, &inv.CreatedAt)
		if err != nil {
			return err
		}

		for _, item := range draft.Items {
			row := InvoiceItem{
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
			}
			err := tx.QueryRow(ctx, `
				INSERT INTO invoice_items (
					invoice_id, position, description, plot_area_id, advance_item_id,
					line_type, quantity, unit, unit_price, net_amount,
					tax_category, tax_rate, tax_amount, gross_amount,
					ledger_account, issue_date
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
				RETURNING id`,
				inv.ID, item.Position, item.Description, int8OrNull(item.PlotAreaID), int8OrNull(item.AdvanceItemID),
				string(item.LineType), item.Quantity, item.Unit, item.UnitPrice, item.NetAmount,
				string(item.TaxCategory), item.TaxRate, item.TaxAmount, item.GrossAmount,
				item.LedgerAccount, item.IssueDate,
			).Scan(&row.ID)
			if err != nil {
				return err
			}
			inv.Items = append(inv.Items, row)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inv, nil
}

const invoiceColumns = `
	id, tenant_id, period_id, lease_id, number, document_type,
	recipient_id, recipient_name, invoice_date, due_date,
	service_start, service_end, net_amount, tax_amount, gross_amount,
	cancels_invoice_id, created_by, created_at`

func (r *repository) Get(ctx context.Context, tenantID, id int64) (*Invoice, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE tenant_id = $1 AND id = $2`, tenantID, id)

	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	items, err := r.listItems(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	return inv, nil
}

func (r *repository) ListByPeriod(ctx context.Context, tenantID, periodID int64) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+invoiceColumns+`
		FROM invoices
		WHERE tenant_id = $1 AND period_id = $2
		ORDER BY number`, tenantID, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *inv)
	}
	return result, rows.Err()
}

func (r *repository) ListAdvanceItems(ctx context.Context, tenantID, leaseID int64, year int) ([]InvoiceItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ii.id, ii.invoice_id, ii.position, ii.description,
		       ii.plot_area_id, ii.advance_item_id, ii.line_type,
		       ii.quantity, ii.unit, ii.unit_price, ii.net_amount,
		       ii.tax_category, ii.tax_rate, ii.tax_amount, ii.gross_amount,
		       ii.ledger_account, i.invoice_date
		FROM invoice_items ii
		JOIN invoices i ON i.id = ii.invoice_id
		JOIN settlement_periods sp ON sp.id = i.period_id
		WHERE i.tenant_id = $1
		  AND i.lease_id = $2
		  AND sp.year = $3
		  AND sp.period_type = 'ADVANCE'
		  AND i.document_type = 'CREDIT_NOTE'
		  AND NOT EXISTS (
		      SELECT 1 FROM invoices c
		      WHERE c.cancels_invoice_id = i.id
		  )
		ORDER BY i.invoice_date, ii.position`, tenantID, leaseID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []InvoiceItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *repository) ExistsForLease(ctx context.Context, tenantID, periodID, leaseID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM invoices
			WHERE tenant_id = $1 AND period_id = $2 AND lease_id = $3
			  AND document_type = 'CREDIT_NOTE'
		)`, tenantID, periodID, leaseID).Scan(&exists)
	return exists, err
}

func (r *repository) IsCancelled(ctx context.Context, tenantID, invoiceID int64) (bool, error) {
	var cancelled bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM invoices
			WHERE tenant_id = $1 AND cancels_invoice_id = $2
		)`, tenantID, invoiceID).Scan(&cancelled)
	return cancelled, err
}

func (r *repository) listItems(ctx context.Context, invoiceID int64) ([]InvoiceItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, invoice_id, position, description,
		       plot_area_id, advance_item_id, line_type,
		       quantity, unit, unit_price, net_amount,
		       tax_category, tax_rate, tax_amount, gross_amount,
		       ledger_account, issue_date
		FROM invoice_items
		WHERE invoice_id = $1
		ORDER BY position`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []InvoiceItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	var net, tx, gross pgtype.Numeric
	var cancels pgtype.Int8
	err := row.Scan(
		&inv.ID, &inv.TenantID, &inv.PeriodID, &inv.LeaseID, &inv.Number, &inv.DocumentType,
		&inv.RecipientID, &inv.RecipientName, &inv.InvoiceDate, &inv.DueDate,
		&inv.ServiceStart, &inv.ServiceEnd, &net, &tx, &gross,
		&cancels, &inv.CreatedBy, &inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.NetAmount = numericToDecimal(net)
	inv.TaxAmount = numericToDecimal(tx)
	inv.GrossAmount = numericToDecimal(gross)
	if cancels.Valid {
		inv.CancelsInvoiceID = &cancels.Int64
	}
	return &inv, nil
}

func scanItem(row pgx.Row) (InvoiceItem, error) {
	var item InvoiceItem
	var plotID, advanceID pgtype.Int8
	var qty, unitPrice, net, rate, tx, gross pgtype.Numeric
	var issueDate time.Time
	err := row.Scan(
		&item.ID, &item.InvoiceID, &item.Position, &item.Description,
		&plotID, &advanceID, &item.LineType,
		&qty, &item.Unit, &unitPrice, &net,
		&item.TaxCategory, &rate, &tx, &gross,
		&item.LedgerAccount, &issueDate,
	)
	if err != nil {
		return InvoiceItem{}, err
	}
	if plotID.Valid {
		item.PlotAreaID = &plotID.Int64
	}
	if advanceID.Valid {
		item.AdvanceItemID = &advanceID.Int64
	}
	item.Quantity = numericToDecimal(qty)
	item.UnitPrice = numericToDecimal(unitPrice)
	item.NetAmount = numericToDecimal(net)
	item.TaxRate = numericToDecimal(rate)
	item.TaxAmount = numericToDecimal(tx)
	item.GrossAmount = numericToDecimal(gross)
	item.IssueDate = issueDate
	return item, nil
}

func int8OrNull(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
