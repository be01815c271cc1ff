package invoice

import (
	"context"

	"github.com/saurabhwebdev/invoicaura/internal/project"
)

// AggregateDelta is the signed change a ledger operation applies to the
// owning project's running totals.
type AggregateDelta struct {
	Amount   float64
	Count    int
	Hardware float64
	Service  float64
}

// IsZero reports whether applying the delta would be a no-op.
func (d AggregateDelta) IsZero() bool {
	return d.Amount == 0 && d.Count == 0 && d.Hardware == 0 && d.Service == 0
}

// ThirdPartyLine is one vendor-sourced amount, as consumed by the vendor
// reconciliation pass.
type ThirdPartyLine struct {
	Company string
	Amount  float64
}

// ProjectAggregate is the invoice-derived ground truth for one project's
// running totals, used by the integrity sweep.
type ProjectAggregate struct {
	ProjectID string
	Totals    project.Aggregates
}

// Repository defines invoice persistence scoped by owner.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	Get(ctx context.Context, userID, id string) (Invoice, error)
	ListByUser(ctx context.Context, userID, orderBy string, descending bool) ([]Invoice, error)
	ListByProject(ctx context.Context, userID, projectID string) ([]Invoice, error)
	CountByProject(ctx context.Context, userID, projectID string) (int, error)

	// ListThirdParty feeds the vendor reconciliation pass.
	ListThirdParty(ctx context.Context, userID string) ([]ThirdPartyLine, error)

	// AggregatesByProject recomputes running totals from the invoice set.
	AggregatesByProject(ctx context.Context, userID string) ([]ProjectAggregate, error)
}

// TxRepository defines the write operations of one ledger transaction. The
// invoice write and the project aggregate update commit or roll back
// together, which closes the orphan-invoice window.
type TxRepository interface {
	Insert(ctx context.Context, inv Invoice) (Invoice, error)
	Update(ctx context.Context, inv Invoice) (Invoice, error)
	Delete(ctx context.Context, userID, id string) error

	// ApplyProjectDelta adjusts the owning project's running totals.
	// Returns project.ErrNotFound when the project row is gone.
	ApplyProjectDelta(ctx context.Context, userID, projectID string, d AggregateDelta) error
}
