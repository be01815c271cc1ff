package invoice

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/saurabhwebdev/invoicaura/internal/platform/db"
	"github.com/saurabhwebdev/invoicaura/internal/project"
)

// Ensure implementation
var (
	_ Repository   = (*pgRepository)(nil)
	_ TxRepository = (*pgTxRepository)(nil)
)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const invoiceColumns = `id, user_id, project_id, number, amount, date, description, status,
type, po_number, kind, tp_company, tp_invoice_number, tp_amount, client_invoice_id,
created_at, updated_at`

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx})
	})
}

func (r *pgRepository) Get(ctx context.Context, userID, id string) (Invoice, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE user_id = $1 AND id = $2`, userID, id)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrNotFound
		}
		return Invoice{}, err
	}
	return inv, nil
}

func (r *pgRepository) ListByUser(ctx context.Context, userID, orderBy string, descending bool) ([]Invoice, error) {
	order := sortColumn(orderBy)
	if descending {
		order += " DESC"
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE user_id = $1 ORDER BY `+order, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvoices(rows)
}

func (r *pgRepository) ListByProject(ctx context.Context, userID, projectID string) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE user_id = $1 AND project_id = $2 ORDER BY date`, userID, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectInvoices(rows)
}

func (r *pgRepository) CountByProject(ctx context.Context, userID, projectID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM invoices WHERE user_id = $1 AND project_id = $2`, userID, projectID).Scan(&count)
	return count, err
}

func (r *pgRepository) ListThirdParty(ctx context.Context, userID string) ([]ThirdPartyLine, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT tp_company, tp_amount FROM invoices WHERE user_id = $1 AND kind = $2`, userID, KindThirdParty)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lines []ThirdPartyLine
	for rows.Next() {
		var line ThirdPartyLine
		var amount *float64
		if err := rows.Scan(&line.Company, &amount); err != nil {
			return nil, err
		}
		if amount != nil {
			line.Amount = *amount
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *pgRepository) AggregatesByProject(ctx context.Context, userID string) ([]ProjectAggregate, error) {
	rows, err := r.pool.Query(ctx, `SELECT project_id,
COALESCE(SUM(amount), 0),
COUNT(*),
COALESCE(SUM(amount) FILTER (WHERE type = 'hardware'), 0),
COALESCE(SUM(amount) FILTER (WHERE type = 'service'), 0)
FROM invoices WHERE user_id = $1 GROUP BY project_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var aggs []ProjectAggregate
	for rows.Next() {
		var agg ProjectAggregate
		if err := rows.Scan(&agg.ProjectID, &agg.Totals.Invoiced, &agg.Totals.InvoiceCount,
			&agg.Totals.HardwareInvoiced, &agg.Totals.ServiceInvoiced); err != nil {
			return nil, err
		}
		aggs = append(aggs, agg)
	}
	return aggs, rows.Err()
}

// Transaction repository

type pgTxRepository struct {
	tx pgx.Tx
}

func (r *pgTxRepository) Insert(ctx context.Context, inv Invoice) (Invoice, error) {
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	company, tpNumber, tpAmount := thirdPartyColumns(inv.ThirdParty)
	row := r.tx.QueryRow(ctx, `INSERT INTO invoices
(id, user_id, project_id, number, amount, date, description, status,
 type, po_number, kind, tp_company, tp_invoice_number, tp_amount, client_invoice_id)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
RETURNING `+invoiceColumns,
		inv.ID, inv.UserID, inv.ProjectID, inv.Number, inv.Amount, inv.Date, inv.Description, inv.Status,
		nullableLine(inv.Type), inv.PONumber, inv.Kind, company, tpNumber, tpAmount, nullableString(inv.ClientInvoiceID))
	return scanInvoice(row)
}

func (r *pgTxRepository) Update(ctx context.Context, inv Invoice) (Invoice, error) {
	company, tpNumber, tpAmount := thirdPartyColumns(inv.ThirdParty)
	row := r.tx.QueryRow(ctx, `UPDATE invoices SET
number = $3, amount = $4, date = $5, description = $6, status = $7,
type = $8, po_number = $9, kind = $10, tp_company = $11, tp_invoice_number = $12, tp_amount = $13,
updated_at = now()
WHERE user_id = $1 AND id = $2
RETURNING `+invoiceColumns,
		inv.UserID, inv.ID,
		inv.Number, inv.Amount, inv.Date, inv.Description, inv.Status,
		nullableLine(inv.Type), inv.PONumber, inv.Kind, company, tpNumber, tpAmount)
	updated, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrNotFound
		}
		return Invoice{}, err
	}
	return updated, nil
}

func (r *pgTxRepository) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM invoices WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgTxRepository) ApplyProjectDelta(ctx context.Context, userID, projectID string, d AggregateDelta) error {
	tag, err := r.tx.Exec(ctx, `UPDATE projects SET
invoiced = invoiced + $3,
invoice_count = invoice_count + $4,
hardware_invoiced = hardware_invoiced + $5,
service_invoiced = service_invoiced + $6,
updated_at = now()
WHERE user_id = $1 AND id = $2`,
		userID, projectID, d.Amount, d.Count, d.Hardware, d.Service)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return project.ErrNotFound
	}
	return nil
}

// Helpers

func scanInvoice(row pgx.Row) (Invoice, error) {
	var inv Invoice
	var line *string
	var company, tpNumber, clientInvoiceID *string
	var tpAmount *float64
	if err := row.Scan(
		&inv.ID, &inv.UserID, &inv.ProjectID, &inv.Number, &inv.Amount, &inv.Date, &inv.Description, &inv.Status,
		&line, &inv.PONumber, &inv.Kind, &company, &tpNumber, &tpAmount, &clientInvoiceID,
		&inv.CreatedAt, &inv.UpdatedAt,
	); err != nil {
		return Invoice{}, err
	}
	if line != nil {
		inv.Type = project.BudgetLine(*line)
	}
	if inv.Kind == KindThirdParty && company != nil {
		tp := &ThirdParty{Company: *company}
		if tpNumber != nil {
			tp.InvoiceNumber = *tpNumber
		}
		if tpAmount != nil {
			tp.Amount = *tpAmount
		}
		inv.ThirdParty = tp
	}
	if clientInvoiceID != nil {
		inv.ClientInvoiceID = *clientInvoiceID
	}
	return inv, nil
}

func collectInvoices(rows pgx.Rows) ([]Invoice, error) {
	var invoices []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func thirdPartyColumns(tp *ThirdParty) (company, number *string, amount *float64) {
	if tp == nil {
		return nil, nil, nil
	}
	return &tp.Company, &tp.InvoiceNumber, &tp.Amount
}

func nullableLine(line project.BudgetLine) *string {
	if line == "" {
		return nil
	}
	s := string(line)
	return &s
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// sortColumn whitelists sortable fields; anything else orders by creation time.
func sortColumn(field string) string {
	switch field {
	case "number", "amount", "date", "status", "updated_at":
		return field
	default:
		return "created_at"
	}
}
