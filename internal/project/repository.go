package project

import (
	"context"
)

// Aggregates are the ledger-derived running totals stored on a project.
type Aggregates struct {
	Invoiced         float64
	InvoiceCount     int
	HardwareInvoiced float64
	ServiceInvoiced  float64
}

// Repository defines project persistence scoped by owner.
type Repository interface {
	Create(ctx context.Context, p Project) (Project, error)
	Get(ctx context.Context, userID, id string) (Project, error)
	List(ctx context.Context, userID, orderBy string, descending bool) ([]Project, error)
	Update(ctx context.Context, p Project) (Project, error)
	Delete(ctx context.Context, userID, id string) error

	// SetAggregates overwrites the running totals. Used by the integrity
	// sweep that recomputes them from the invoice set.
	SetAggregates(ctx context.Context, userID, id string, agg Aggregates) error
}
