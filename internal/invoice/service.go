package invoice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/saurabhwebdev/invoicaura/internal/platform/httpx"
	"github.com/saurabhwebdev/invoicaura/internal/project"
)

// ErrNotFound indicates the invoice does not exist for the owner.
var ErrNotFound = fmt.Errorf("invoice: %w", httpx.ErrNotFound)

// VendorLedger receives incremental third-party deltas so vendor totals can
// track the invoice set between full reconciliation passes.
type VendorLedger interface {
	ApplyThirdPartyDelta(ctx context.Context, userID, company string, delta float64) error
}

// Service is the budget ledger: every invoice mutation flows through here
// and keeps the owning project's running totals consistent.
type Service struct {
	repo     Repository
	projects *project.Service
	vendors  VendorLedger
	logger   *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, projects *project.Service, vendors VendorLedger, logger *slog.Logger) *Service {
	return &Service{repo: repo, projects: projects, vendors: vendors, logger: logger}
}

// CreateInvoiceInput carries user-supplied invoice fields.
type CreateInvoiceInput struct {
	ProjectID   string
	Number      string
	Amount      float64
	Date        time.Time
	Description string
	Status      Status
	Type        project.BudgetLine
	PONumber    string

	// ThirdParty marks the invoice as vendor-sourced when present.
	ThirdParty *ThirdParty
	// ClientInvoiceID is the optional draft pre-fill link of a third-party
	// invoice to an existing client invoice.
	ClientInvoiceID string
}

// BudgetWarning advises that an invoice pushed a budget (or one of its
// partitions) past its limit. Advisory only; the ledger never blocks.
type BudgetWarning struct {
	Line      project.BudgetLine `json:"line,omitempty"`
	Remaining float64            `json:"remaining"`
	Excess    float64            `json:"excess"`
}

// CreateResult pairs the stored invoice with an optional budget warning.
type CreateResult struct {
	Invoice Invoice        `json:"invoice"`
	Warning *BudgetWarning `json:"warning,omitempty"`
}

// Create persists an invoice and applies its amount to the owning project's
// running totals in one transaction.
func (s *Service) Create(ctx context.Context, userID string, input CreateInvoiceInput) (CreateResult, error) {
	if userID == "" {
		return CreateResult{}, httpx.ErrNotAuthenticated
	}

	proj, err := s.projects.Get(ctx, userID, input.ProjectID)
	if err != nil {
		return CreateResult{}, err
	}

	inv := Invoice{
		UserID:          userID,
		ProjectID:       input.ProjectID,
		Number:          strings.TrimSpace(input.Number),
		Amount:          input.Amount,
		Date:            input.Date,
		Description:     input.Description,
		Status:          input.Status,
		Type:            input.Type,
		PONumber:        strings.TrimSpace(input.PONumber),
		Kind:            KindClient,
		ThirdParty:      input.ThirdParty,
		ClientInvoiceID: input.ClientInvoiceID,
	}
	if inv.Status == "" {
		inv.Status = StatusPending
	}
	if inv.ThirdParty != nil {
		inv.Kind = KindThirdParty
	}
	if err := validateInvoice(inv, proj); err != nil {
		return CreateResult{}, err
	}

	warning := budgetWarning(proj, inv.Type, inv.Amount)

	var created Invoice
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		stored, err := tx.Insert(ctx, inv)
		if err != nil {
			return err
		}
		created = stored
		return tx.ApplyProjectDelta(ctx, userID, inv.ProjectID, deltaFor(inv, +1))
	})
	if err != nil {
		return CreateResult{}, err
	}

	if created.IsThirdParty() {
		s.applyVendorDelta(ctx, userID, created.ThirdParty.Company, created.ThirdParty.Amount)
	}

	return CreateResult{Invoice: created, Warning: warning}, nil
}

// UpdateInvoiceInput patches invoice fields. Nil pointers leave the stored
// value untouched.
type UpdateInvoiceInput struct {
	Number      *string
	Amount      *float64
	Date        *time.Time
	Description *string
	Status      *Status
	Type        *project.BudgetLine
	PONumber    *string
	ThirdParty  *ThirdParty
}

// Update applies a patch. An amount or type change propagates its delta to
// the owning project; any other field change leaves the aggregates alone.
func (s *Service) Update(ctx context.Context, userID, id string, patch UpdateInvoiceInput) (Invoice, error) {
	if userID == "" {
		return Invoice{}, httpx.ErrNotAuthenticated
	}

	current, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return Invoice{}, err
	}

	updated := current
	if patch.Number != nil {
		updated.Number = strings.TrimSpace(*patch.Number)
	}
	if patch.Amount != nil {
		updated.Amount = *patch.Amount
	}
	if patch.Date != nil {
		updated.Date = *patch.Date
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}
	if patch.Status != nil {
		updated.Status = *patch.Status
	}
	if patch.Type != nil {
		updated.Type = *patch.Type
	}
	if patch.PONumber != nil {
		updated.PONumber = strings.TrimSpace(*patch.PONumber)
	}
	if patch.ThirdParty != nil {
		if !current.IsThirdParty() {
			return Invoice{}, fmt.Errorf("%w: cannot attach third-party details to a client invoice", httpx.ErrValidation)
		}
		updated.ThirdParty = patch.ThirdParty
	}

	proj, projErr := s.projects.Get(ctx, userID, current.ProjectID)
	if projErr != nil && !errors.Is(projErr, httpx.ErrNotFound) {
		return Invoice{}, projErr
	}
	if projErr == nil {
		if err := validateInvoice(updated, proj); err != nil {
			return Invoice{}, err
		}
	} else if err := validateInvoice(updated, project.Project{}); err != nil {
		return Invoice{}, err
	}

	delta := AggregateDelta{
		Amount:   updated.Amount - current.Amount,
		Hardware: lineAmount(updated, project.LineHardware) - lineAmount(current, project.LineHardware),
		Service:  lineAmount(updated, project.LineService) - lineAmount(current, project.LineService),
	}

	var stored Invoice
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		result, err := tx.Update(ctx, updated)
		if err != nil {
			return err
		}
		stored = result
		if delta.IsZero() {
			return nil
		}
		if err := tx.ApplyProjectDelta(ctx, userID, updated.ProjectID, delta); err != nil {
			if errors.Is(err, httpx.ErrNotFound) {
				// The project row is gone; the aggregate update is skipped
				// and the ledger keeps the invoice change. Understated
				// totals are recovered by the integrity sweep.
				s.logger.Warn("project missing during invoice update, aggregates skipped",
					slog.String("invoice_id", id), slog.String("project_id", updated.ProjectID))
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return Invoice{}, err
	}

	s.propagateThirdPartyChange(ctx, userID, current, stored)
	return stored, nil
}

// Delete removes an invoice and reverses its contribution to the owning
// project's running totals.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return httpx.ErrNotAuthenticated
	}

	current, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.Delete(ctx, userID, id); err != nil {
			return err
		}
		if err := tx.ApplyProjectDelta(ctx, userID, current.ProjectID, deltaFor(current, -1)); err != nil {
			if errors.Is(err, httpx.ErrNotFound) {
				// Invoice removal wins over a missing project row.
				s.logger.Warn("project missing during invoice delete, aggregates skipped",
					slog.String("invoice_id", id), slog.String("project_id", current.ProjectID))
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	if current.IsThirdParty() {
		s.applyVendorDelta(ctx, userID, current.ThirdParty.Company, -current.ThirdParty.Amount)
	}
	return nil
}

// Get returns one invoice owned by the user.
func (s *Service) Get(ctx context.Context, userID, id string) (Invoice, error) {
	if userID == "" {
		return Invoice{}, httpx.ErrNotAuthenticated
	}
	return s.repo.Get(ctx, userID, id)
}

// List returns the user's invoices ordered by the given store field.
func (s *Service) List(ctx context.Context, userID, orderBy string, descending bool) ([]Invoice, error) {
	if userID == "" {
		return nil, httpx.ErrNotAuthenticated
	}
	return s.repo.ListByUser(ctx, userID, orderBy, descending)
}

// ListByProject returns the invoices referencing one project.
func (s *Service) ListByProject(ctx context.Context, userID, projectID string) ([]Invoice, error) {
	if userID == "" {
		return nil, httpx.ErrNotAuthenticated
	}
	return s.repo.ListByProject(ctx, userID, projectID)
}

// RecomputeAggregates rebuilds every project's running totals from the
// invoice set and overwrites the stored figures where they drifted. Returns
// the number of corrected projects.
func (s *Service) RecomputeAggregates(ctx context.Context, userID string) (int, error) {
	derived, err := s.repo.AggregatesByProject(ctx, userID)
	if err != nil {
		return 0, err
	}
	byProject := make(map[string]project.Aggregates, len(derived))
	for _, agg := range derived {
		byProject[agg.ProjectID] = agg.Totals
	}

	projects, err := s.projects.List(ctx, userID, "", false)
	if err != nil {
		return 0, err
	}

	fixed := 0
	for _, p := range projects {
		want := byProject[p.ID]
		got := project.Aggregates{
			Invoiced:         p.Invoiced,
			InvoiceCount:     p.InvoiceCount,
			HardwareInvoiced: p.HardwareInvoiced,
			ServiceInvoiced:  p.ServiceInvoiced,
		}
		if aggregatesEqual(want, got) {
			continue
		}
		if err := s.projects.OverwriteAggregates(ctx, userID, p.ID, want); err != nil {
			return fixed, err
		}
		fixed++
	}
	return fixed, nil
}

func (s *Service) applyVendorDelta(ctx context.Context, userID, company string, delta float64) {
	if s.vendors == nil || company == "" || delta == 0 {
		return
	}
	if err := s.vendors.ApplyThirdPartyDelta(ctx, userID, company, delta); err != nil {
		// Vendor totals are eventually consistent; the next full pass
		// converges. Surface nothing to the caller.
		s.logger.Warn("incremental vendor update failed",
			slog.String("company", company), slog.Any("error", err))
	}
}

func (s *Service) propagateThirdPartyChange(ctx context.Context, userID string, before, after Invoice) {
	if !before.IsThirdParty() && !after.IsThirdParty() {
		return
	}
	var beforeCompany, afterCompany string
	var beforeAmount, afterAmount float64
	if before.IsThirdParty() {
		beforeCompany, beforeAmount = before.ThirdParty.Company, before.ThirdParty.Amount
	}
	if after.IsThirdParty() {
		afterCompany, afterAmount = after.ThirdParty.Company, after.ThirdParty.Amount
	}
	if beforeCompany == afterCompany {
		s.applyVendorDelta(ctx, userID, afterCompany, afterAmount-beforeAmount)
		return
	}
	s.applyVendorDelta(ctx, userID, beforeCompany, -beforeAmount)
	s.applyVendorDelta(ctx, userID, afterCompany, afterAmount)
}

func validateInvoice(inv Invoice, proj project.Project) error {
	if inv.Number == "" {
		return fmt.Errorf("%w: invoice number is required", httpx.ErrValidation)
	}
	if inv.Amount < 0 {
		return fmt.Errorf("%w: amount must not be negative", httpx.ErrValidation)
	}
	if !ValidStatus(inv.Status) {
		return fmt.Errorf("%w: unknown invoice status %q", httpx.ErrValidation, inv.Status)
	}
	if inv.Type != "" && !project.ValidBudgetLine(inv.Type) {
		return fmt.Errorf("%w: unknown invoice type %q", httpx.ErrValidation, inv.Type)
	}
	if proj.SplitBudget() && inv.Type == "" {
		return fmt.Errorf("%w: invoice type is required for a split-budget project", httpx.ErrValidation)
	}
	if inv.Kind == KindThirdParty {
		if inv.ThirdParty == nil || strings.TrimSpace(inv.ThirdParty.Company) == "" {
			return fmt.Errorf("%w: third-party company is required", httpx.ErrValidation)
		}
		if inv.ThirdParty.Amount < 0 {
			return fmt.Errorf("%w: third-party amount must not be negative", httpx.ErrValidation)
		}
	} else if inv.ThirdParty != nil {
		return fmt.Errorf("%w: client invoice cannot carry third-party details", httpx.ErrValidation)
	}
	if inv.ClientInvoiceID != "" && inv.Kind != KindThirdParty {
		return fmt.Errorf("%w: only third-party invoices link to a client invoice", httpx.ErrValidation)
	}
	return nil
}

// budgetWarning returns an advisory when the amount exceeds what remains of
// the relevant budget. Never blocks the write.
func budgetWarning(proj project.Project, line project.BudgetLine, amount float64) *BudgetWarning {
	remaining := proj.Remaining()
	warnLine := project.BudgetLine("")
	if proj.SplitBudget() && line != "" {
		remaining = proj.RemainingFor(line)
		warnLine = line
	}
	if amount <= remaining {
		return nil
	}
	return &BudgetWarning{
		Line:      warnLine,
		Remaining: remaining,
		Excess:    amount - remaining,
	}
}

func deltaFor(inv Invoice, sign float64) AggregateDelta {
	d := AggregateDelta{
		Amount: sign * inv.Amount,
		Count:  int(sign),
	}
	switch inv.Type {
	case project.LineHardware:
		d.Hardware = sign * inv.Amount
	case project.LineService:
		d.Service = sign * inv.Amount
	}
	return d
}

func lineAmount(inv Invoice, line project.BudgetLine) float64 {
	if inv.Type == line {
		return inv.Amount
	}
	return 0
}

func aggregatesEqual(a, b project.Aggregates) bool {
	const eps = 1e-6
	return a.InvoiceCount == b.InvoiceCount &&
		math.Abs(a.Invoiced-b.Invoiced) < eps &&
		math.Abs(a.HardwareInvoiced-b.HardwareInvoiced) < eps &&
		math.Abs(a.ServiceInvoiced-b.ServiceInvoiced) < eps
}
