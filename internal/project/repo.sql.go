package project

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ensure implementation
var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const projectColumns = `id, user_id, name, client, status, start_date, end_date,
budget, hardware_budget, service_budget,
invoiced, invoice_count, hardware_invoiced, service_invoiced,
po_hardware, po_software, po_combined, active_pos, current_po,
gst_enabled, gst_percentage, tds_enabled, tds_percentage,
created_at, updated_at`

func (r *pgRepository) Create(ctx context.Context, p Project) (Project, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	row := r.pool.QueryRow(ctx, `INSERT INTO projects
(id, user_id, name, client, status, start_date, end_date,
 budget, hardware_budget, service_budget,
 po_hardware, po_software, po_combined, active_pos,
 gst_enabled, gst_percentage, tds_enabled, tds_percentage)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
RETURNING `+projectColumns,
		p.ID, p.UserID, p.Name, p.Client, p.Status, p.StartDate, p.EndDate,
		p.Budget, p.HardwareBudget, p.ServiceBudget,
		p.PONumbers.Hardware, p.PONumbers.Software, p.PONumbers.Combined, kindsToStrings(p.ActivePOs),
		p.GSTEnabled, p.GSTPercentage, p.TDSEnabled, p.TDSPercentage)
	return scanProject(row)
}

func (r *pgRepository) Get(ctx context.Context, userID, id string) (Project, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE user_id = $1 AND id = $2`, userID, id)
	p, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, ErrNotFound
		}
		return Project{}, err
	}
	return p, nil
}

func (r *pgRepository) List(ctx context.Context, userID, orderBy string, descending bool) ([]Project, error) {
	order := sortColumn(orderBy)
	if descending {
		order += " DESC"
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE user_id = $1 ORDER BY `+order, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *pgRepository) Update(ctx context.Context, p Project) (Project, error) {
	row := r.pool.QueryRow(ctx, `UPDATE projects SET
name = $3, client = $4, status = $5, start_date = $6, end_date = $7,
budget = $8, hardware_budget = $9, service_budget = $10,
po_hardware = $11, po_software = $12, po_combined = $13, active_pos = $14, current_po = '',
gst_enabled = $15, gst_percentage = $16, tds_enabled = $17, tds_percentage = $18,
updated_at = now()
WHERE user_id = $1 AND id = $2
RETURNING `+projectColumns,
		p.UserID, p.ID,
		p.Name, p.Client, p.Status, p.StartDate, p.EndDate,
		p.Budget, p.HardwareBudget, p.ServiceBudget,
		p.PONumbers.Hardware, p.PONumbers.Software, p.PONumbers.Combined, kindsToStrings(p.ActivePOs),
		p.GSTEnabled, p.GSTPercentage, p.TDSEnabled, p.TDSPercentage)
	updated, err := scanProject(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Project{}, ErrNotFound
		}
		return Project{}, err
	}
	return updated, nil
}

func (r *pgRepository) Delete(ctx context.Context, userID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM projects WHERE user_id = $1 AND id = $2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgRepository) SetAggregates(ctx context.Context, userID, id string, agg Aggregates) error {
	tag, err := r.pool.Exec(ctx, `UPDATE projects SET
invoiced = $3, invoice_count = $4, hardware_invoiced = $5, service_invoiced = $6, updated_at = now()
WHERE user_id = $1 AND id = $2`,
		userID, id, agg.Invoiced, agg.InvoiceCount, agg.HardwareInvoiced, agg.ServiceInvoiced)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProject(row pgx.Row) (Project, error) {
	var p Project
	var active []string
	var currentPO string
	if err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &p.Client, &p.Status, &p.StartDate, &p.EndDate,
		&p.Budget, &p.HardwareBudget, &p.ServiceBudget,
		&p.Invoiced, &p.InvoiceCount, &p.HardwareInvoiced, &p.ServiceInvoiced,
		&p.PONumbers.Hardware, &p.PONumbers.Software, &p.PONumbers.Combined, &active, &currentPO,
		&p.GSTEnabled, &p.GSTPercentage, &p.TDSEnabled, &p.TDSPercentage,
		&p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return Project{}, err
	}
	p.ActivePOs = NormalizeActivePOs(stringsToKinds(active), currentPO)
	return p, nil
}

// sortColumn whitelists sortable fields; anything else orders by creation time.
func sortColumn(field string) string {
	switch field {
	case "name", "client", "status", "start_date", "end_date", "budget", "invoiced", "updated_at":
		return field
	default:
		return "created_at"
	}
}

func kindsToStrings(kinds []POKind) []string {
	out := make([]string, len(kinds))
	for i, kind := range kinds {
		out[i] = string(kind)
	}
	return out
}

func stringsToKinds(values []string) []POKind {
	out := make([]POKind, len(values))
	for i, v := range values {
		out[i] = POKind(v)
	}
	return out
}
