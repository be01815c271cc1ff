package project

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/saurabhwebdev/invoicaura/internal/platform/httpx"
)

var (
	// ErrNotFound indicates the project does not exist for the owner.
	ErrNotFound = fmt.Errorf("project: %w", httpx.ErrNotFound)
	// ErrHasInvoices blocks deletion while invoices still reference the project.
	ErrHasInvoices = fmt.Errorf("project still has invoices: %w", httpx.ErrBlocked)
)

// InvoiceCounter reports how many invoices reference a project. Implemented
// by the invoice repository; wired at startup.
type InvoiceCounter interface {
	CountByProject(ctx context.Context, userID, projectID string) (int, error)
}

// Service wraps project business rules.
type Service struct {
	repo     Repository
	invoices InvoiceCounter
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, invoices InvoiceCounter, logger *slog.Logger) *Service {
	return &Service{repo: repo, invoices: invoices, logger: logger}
}

// CreateProjectInput carries user-supplied project fields.
type CreateProjectInput struct {
	Name           string
	Client         string
	Status         Status
	StartDate      time.Time
	EndDate        time.Time
	Budget         float64
	HardwareBudget *float64
	ServiceBudget  *float64
	PONumbers      PONumbers
	ActivePOs      []POKind
	GSTEnabled     bool
	GSTPercentage  float64
	TDSEnabled     bool
	TDSPercentage  float64
}

// Create validates and persists a new project with zeroed running totals.
func (s *Service) Create(ctx context.Context, userID string, input CreateProjectInput) (Project, error) {
	if userID == "" {
		return Project{}, httpx.ErrNotAuthenticated
	}
	p := Project{
		UserID:         userID,
		Name:           strings.TrimSpace(input.Name),
		Client:         strings.TrimSpace(input.Client),
		Status:         input.Status,
		StartDate:      input.StartDate,
		EndDate:        input.EndDate,
		Budget:         input.Budget,
		HardwareBudget: input.HardwareBudget,
		ServiceBudget:  input.ServiceBudget,
		PONumbers:      input.PONumbers,
		ActivePOs:      NormalizeActivePOs(input.ActivePOs, ""),
		GSTEnabled:     input.GSTEnabled,
		GSTPercentage:  input.GSTPercentage,
		TDSEnabled:     input.TDSEnabled,
		TDSPercentage:  input.TDSPercentage,
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	if err := validate(p); err != nil {
		return Project{}, err
	}
	p.NormalizeBudget()
	return s.repo.Create(ctx, p)
}

// Get returns one project owned by the user.
func (s *Service) Get(ctx context.Context, userID, id string) (Project, error) {
	if userID == "" {
		return Project{}, httpx.ErrNotAuthenticated
	}
	return s.repo.Get(ctx, userID, id)
}

// List returns the user's projects ordered by the given store field.
func (s *Service) List(ctx context.Context, userID, orderBy string, descending bool) ([]Project, error) {
	if userID == "" {
		return nil, httpx.ErrNotAuthenticated
	}
	return s.repo.List(ctx, userID, orderBy, descending)
}

// Update applies user-editable fields. Running totals are never touched here;
// only the invoice ledger mutates them.
func (s *Service) Update(ctx context.Context, userID, id string, input CreateProjectInput) (Project, error) {
	if userID == "" {
		return Project{}, httpx.ErrNotAuthenticated
	}
	current, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return Project{}, err
	}

	current.Name = strings.TrimSpace(input.Name)
	current.Client = strings.TrimSpace(input.Client)
	current.Status = input.Status
	current.StartDate = input.StartDate
	current.EndDate = input.EndDate
	current.Budget = input.Budget
	current.HardwareBudget = input.HardwareBudget
	current.ServiceBudget = input.ServiceBudget
	current.PONumbers = input.PONumbers
	current.ActivePOs = NormalizeActivePOs(input.ActivePOs, "")
	current.GSTEnabled = input.GSTEnabled
	current.GSTPercentage = input.GSTPercentage
	current.TDSEnabled = input.TDSEnabled
	current.TDSPercentage = input.TDSPercentage

	if err := validate(current); err != nil {
		return Project{}, err
	}
	current.NormalizeBudget()
	return s.repo.Update(ctx, current)
}

// Delete removes a project. Refused while any invoice references it; no
// cascading delete is ever performed.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return httpx.ErrNotAuthenticated
	}
	if _, err := s.repo.Get(ctx, userID, id); err != nil {
		return err
	}
	count, err := s.invoices.CountByProject(ctx, userID, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %d invoice(s) reference this project", ErrHasInvoices, count)
	}
	return s.repo.Delete(ctx, userID, id)
}

// OverwriteAggregates replaces the stored running totals with figures
// recomputed from the invoice set. Reserved for the ledger integrity sweep.
func (s *Service) OverwriteAggregates(ctx context.Context, userID, id string, agg Aggregates) error {
	if s.logger != nil {
		s.logger.Info("overwriting project aggregates",
			slog.String("project_id", id),
			slog.Float64("invoiced", agg.Invoiced),
			slog.Int("invoice_count", agg.InvoiceCount))
	}
	return s.repo.SetAggregates(ctx, userID, id, agg)
}

// PODraft describes the purchase order choice offered for a draft invoice.
type PODraft struct {
	Initial string     `json:"initial"`
	Options []POOption `json:"options"`
}

// ResolvePO returns the initial PO selection and the full eligible set for
// an invoice of the given budget line.
func (s *Service) ResolvePO(ctx context.Context, userID, id string, line BudgetLine) (PODraft, error) {
	p, err := s.Get(ctx, userID, id)
	if err != nil {
		return PODraft{}, err
	}
	return PODraft{
		Initial: ResolvePONumber(p, line),
		Options: EligiblePOs(p),
	}, nil
}

func validate(p Project) error {
	if p.Name == "" {
		return fmt.Errorf("%w: project name is required", httpx.ErrValidation)
	}
	if !ValidStatus(p.Status) {
		return fmt.Errorf("%w: unknown project status %q", httpx.ErrValidation, p.Status)
	}
	if p.Budget < 0 {
		return fmt.Errorf("%w: budget must not be negative", httpx.ErrValidation)
	}
	if (p.HardwareBudget == nil) != (p.ServiceBudget == nil) {
		return fmt.Errorf("%w: hardware and service budgets must be set together", httpx.ErrValidation)
	}
	if p.SplitBudget() {
		if *p.HardwareBudget < 0 || *p.ServiceBudget < 0 {
			return fmt.Errorf("%w: split budgets must not be negative", httpx.ErrValidation)
		}
	}
	if !p.StartDate.IsZero() && !p.EndDate.IsZero() && p.EndDate.Before(p.StartDate) {
		return fmt.Errorf("%w: end date precedes start date", httpx.ErrValidation)
	}
	return nil
}
