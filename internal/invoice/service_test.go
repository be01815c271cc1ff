package invoice

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saurabhwebdev/invoicaura/internal/platform/httpx"
	"github.com/saurabhwebdev/invoicaura/internal/project"
)

// ============================================================================
// MOCKS
// ============================================================================

type mockProjectRepo struct {
	projects map[string]project.Project
	nextID   int
}

func newMockProjectRepo() *mockProjectRepo {
	return &mockProjectRepo{projects: make(map[string]project.Project), nextID: 1}
}

func (m *mockProjectRepo) Create(ctx context.Context, p project.Project) (project.Project, error) {
	if p.ID == "" {
		p.ID = "p" + strconv.Itoa(m.nextID)
		m.nextID++
	}
	m.projects[p.ID] = p
	return p, nil
}

func (m *mockProjectRepo) Get(ctx context.Context, userID, id string) (project.Project, error) {
	p, ok := m.projects[id]
	if !ok || p.UserID != userID {
		return project.Project{}, project.ErrNotFound
	}
	return p, nil
}

func (m *mockProjectRepo) List(ctx context.Context, userID, orderBy string, descending bool) ([]project.Project, error) {
	var out []project.Project
	for _, p := range m.projects {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProjectRepo) Update(ctx context.Context, p project.Project) (project.Project, error) {
	stored, ok := m.projects[p.ID]
	if !ok || stored.UserID != p.UserID {
		return project.Project{}, project.ErrNotFound
	}
	m.projects[p.ID] = p
	return p, nil
}

func (m *mockProjectRepo) Delete(ctx context.Context, userID, id string) error {
	delete(m.projects, id)
	return nil
}

func (m *mockProjectRepo) SetAggregates(ctx context.Context, userID, id string, agg project.Aggregates) error {
	p, ok := m.projects[id]
	if !ok || p.UserID != userID {
		return project.ErrNotFound
	}
	p.Invoiced = agg.Invoiced
	p.InvoiceCount = agg.InvoiceCount
	p.HardwareInvoiced = agg.HardwareInvoiced
	p.ServiceInvoiced = agg.ServiceInvoiced
	m.projects[id] = p
	return nil
}

type mockRepository struct {
	invoices map[string]Invoice
	projects *mockProjectRepo
	nextID   int

	txError error
}

func newMockRepository(projects *mockProjectRepo) *mockRepository {
	return &mockRepository{invoices: make(map[string]Invoice), projects: projects, nextID: 1}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if m.txError != nil {
		return m.txError
	}
	return fn(ctx, &mockTxRepo{mock: m})
}

func (m *mockRepository) Get(ctx context.Context, userID, id string) (Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok || inv.UserID != userID {
		return Invoice{}, ErrNotFound
	}
	return inv, nil
}

func (m *mockRepository) ListByUser(ctx context.Context, userID, orderBy string, descending bool) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		if inv.UserID == userID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *mockRepository) ListByProject(ctx context.Context, userID, projectID string) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		if inv.UserID == userID && inv.ProjectID == projectID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *mockRepository) CountByProject(ctx context.Context, userID, projectID string) (int, error) {
	list, _ := m.ListByProject(ctx, userID, projectID)
	return len(list), nil
}

func (m *mockRepository) ListThirdParty(ctx context.Context, userID string) ([]ThirdPartyLine, error) {
	var lines []ThirdPartyLine
	for _, inv := range m.invoices {
		if inv.UserID == userID && inv.IsThirdParty() {
			lines = append(lines, ThirdPartyLine{Company: inv.ThirdParty.Company, Amount: inv.ThirdParty.Amount})
		}
	}
	return lines, nil
}

func (m *mockRepository) AggregatesByProject(ctx context.Context, userID string) ([]ProjectAggregate, error) {
	byProject := make(map[string]project.Aggregates)
	for _, inv := range m.invoices {
		if inv.UserID != userID {
			continue
		}
		agg := byProject[inv.ProjectID]
		agg.Invoiced += inv.Amount
		agg.InvoiceCount++
		switch inv.Type {
		case project.LineHardware:
			agg.HardwareInvoiced += inv.Amount
		case project.LineService:
			agg.ServiceInvoiced += inv.Amount
		}
		byProject[inv.ProjectID] = agg
	}
	var out []ProjectAggregate
	for id, agg := range byProject {
		out = append(out, ProjectAggregate{ProjectID: id, Totals: agg})
	}
	return out, nil
}

type mockTxRepo struct {
	mock *mockRepository
}

func (t *mockTxRepo) Insert(ctx context.Context, inv Invoice) (Invoice, error) {
	if inv.ID == "" {
		inv.ID = "i" + strconv.Itoa(t.mock.nextID)
		t.mock.nextID++
	}
	t.mock.invoices[inv.ID] = inv
	return inv, nil
}

func (t *mockTxRepo) Update(ctx context.Context, inv Invoice) (Invoice, error) {
	if _, ok := t.mock.invoices[inv.ID]; !ok {
		return Invoice{}, ErrNotFound
	}
	t.mock.invoices[inv.ID] = inv
	return inv, nil
}

func (t *mockTxRepo) Delete(ctx context.Context, userID, id string) error {
	inv, ok := t.mock.invoices[id]
	if !ok || inv.UserID != userID {
		return ErrNotFound
	}
	delete(t.mock.invoices, id)
	return nil
}

func (t *mockTxRepo) ApplyProjectDelta(ctx context.Context, userID, projectID string, d AggregateDelta) error {
	p, ok := t.mock.projects.projects[projectID]
	if !ok || p.UserID != userID {
		return project.ErrNotFound
	}
	p.Invoiced += d.Amount
	p.InvoiceCount += d.Count
	p.HardwareInvoiced += d.Hardware
	p.ServiceInvoiced += d.Service
	t.mock.projects.projects[projectID] = p
	return nil
}

type recordedDelta struct {
	company string
	delta   float64
}

type mockVendorLedger struct {
	deltas []recordedDelta
	err    error
}

func (m *mockVendorLedger) ApplyThirdPartyDelta(ctx context.Context, userID, company string, delta float64) error {
	if m.err != nil {
		return m.err
	}
	m.deltas = append(m.deltas, recordedDelta{company: company, delta: delta})
	return nil
}

type stubCounter struct{ repo *mockRepository }

func (s stubCounter) CountByProject(ctx context.Context, userID, projectID string) (int, error) {
	return s.repo.CountByProject(ctx, userID, projectID)
}

// ============================================================================
// FIXTURES
// ============================================================================

func f(v float64) *float64 { return &v }

type fixture struct {
	projects *mockProjectRepo
	invoices *mockRepository
	vendors  *mockVendorLedger
	svc      *Service
	projSvc  *project.Service
}

func newFixture() *fixture {
	projects := newMockProjectRepo()
	invoices := newMockRepository(projects)
	vendors := &mockVendorLedger{}
	projSvc := project.NewService(projects, stubCounter{repo: invoices}, slog.Default())
	svc := NewService(invoices, projSvc, vendors, slog.Default())
	return &fixture{projects: projects, invoices: invoices, vendors: vendors, svc: svc, projSvc: projSvc}
}

func (fx *fixture) addProject(t *testing.T, input project.CreateProjectInput) project.Project {
	t.Helper()
	p, err := fx.projSvc.Create(context.Background(), "u1", input)
	require.NoError(t, err)
	return p
}

// ============================================================================
// TESTS
// ============================================================================

func TestCreateAppliesProjectDelta(t *testing.T) {
	fx := newFixture()
	p := fx.addProject(t, project.CreateProjectInput{Name: "P", Budget: 1000})

	result, err := fx.svc.Create(context.Background(), "u1", CreateInvoiceInput{
		ProjectID: p.ID,
		Number:    "INV-1",
		Amount:    400,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, result.Invoice.Status)
	assert.Equal(t, KindClient, result.Invoice.Kind)
	assert.Nil(t, result.Warning)

	stored, err := fx.projSvc.Get(context.Background(), "u1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, 400.0, stored.Invoiced)
	assert.Equal(t, 1, stored.InvoiceCount)
}

func TestCreateTypedInvoiceFeedsPartition(t *testing.T) {
	fx := newFixture()
	p := fx.addProject(t, project.CreateProjectInput{
		Name:           "Split",
		HardwareBudget: f(600),
		ServiceBudget:  f(400),
	})

	_, err := fx.svc.Create(context.Background(), "u1", CreateInvoiceInput{
		ProjectID: p.ID, Number: "INV-1", Amount: 250, Type: project.LineHardware,
	})
	require.NoError(t, err)

	stored, err := fx.projSvc.Get(context.Background(), "u1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, 250.0, stored.Invoiced)
	assert.Equal(t, 250.0, stored.HardwareInvoiced)
	assert.Equal(t, 0.0, stored.ServiceInvoiced)
}

func TestCreateRequiresTypeOnSplitProject(t *testing.T) {
	fx := newFixture()
	p := fx.addProject(t, project.CreateProjectInput{
		Name:           "Split",
		HardwareBudget: f(600),
		ServiceBudget:  f(400),
	})

	_, err := fx.svc.Create(context.Background(), "u1", CreateInvoiceInput{
		ProjectID: p.ID, Number: "INV-1", Amount: 100,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrValidation))
}

func TestCreateUnknownProject(t *testing.T) {
	fx := newFixture()

	_, err := fx.svc.Create(context.Background(), "u1", CreateInvoiceInput{
		ProjectID: "missing", Number: "INV-1", Amount: 10,
	})
	assert.True(t, errors.Is(err, httpx.ErrNotFound))
}

func TestCreateBudgetWarningIsAdvisory(t *testing.T) {
	fx := newFixture()
	p := fx.addProject(t, project.CreateProjectInput{Name: "Tight", Budget: 100})

	result, err := fx.svc.Create(context.Background(), "u1", CreateInvoiceInput{
		ProjectID: p.ID, Number: "INV-1", Amount: 150,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Warning)
	assert.Equal(t, 100.0, result.Warning.Remaining)
	assert.Equal(t, 50.0, result.Warning.Excess)

	// The write went through regardless.
	stored, err := fx.projSvc.Get(context.Background(), "u1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, 150.0, stored.Invoiced)
}

func TestCreatePartitionWarning(t *testing.T) {
	fx := newFixture()
	p := fx.addProject(t, project.CreateProjectInput{
		Name:           "Split",
		HardwareBudget: f(100),
		ServiceBudget:  f(500),
	})

	result, err := fx.svc.Create(context.Background(), "u1", CreateInvoiceInput{
		ProjectID: p.ID, Number: "INV-1", Amount: 120, Type: project.LineHardware,
	})
	require.NoError(t, err)
	require.NotNil(t, result.Warning)
	assert.Equal(t, project.LineHardware, result.Warning.Line)
	assert.Equal(t, 20.0, result.Warning.Excess)
}

func TestCreateThirdPartyAppliesVendorDelta(t *testing.T) {
	fx := newFixture()
	p := fx.addProject(t, project.CreateProjectInput{Name: "P", Budget: 1000})

	result, err := fx.svc.Create(context.Background(), "u1", CreateInvoiceInput{
		ProjectID:  p.ID,
		Number:     "INV-1",
		Amount:     300,
		ThirdParty: &ThirdParty{Company: "Acme Cables", InvoiceNumber: "AC-9", Amount: 300},
	})
	require.NoError(t, err)
	assert.Equal(t, KindThirdParty, result.Invoice.Kind)

	require.Len(t, fx.vendors.deltas, 1)
	assert.Equal(t, "Acme Cables", fx.vendors.deltas[0].company)
	assert.Equal(t, 300.0, fx.vendors.deltas[0].delta)
}

func TestCreateSurvivesVendorLedgerFailure(t *testing.T) {
	fx := newFixture()
	fx.vendors.err = errors.New("redis down")
	p := fx.addProject(t, project.CreateProjectInput{Name: "P", Budget: 1000})

	_, err := fx.svc.Create(context.Background(), "u1", CreateInvoiceInput{
		ProjectID:  p.ID,
		Number:     "INV-1",
		Amount:     300,
		ThirdParty: &ThirdParty{Company: "Acme", Amount: 300},
	})
	require.NoError(t, err)
}

func TestUpdateAmountMovesProjectTotals(t *testing.T) {
	fx := newFixture()
	p := fx.addProject(t, project.CreateProjectInput{Name: "P", Budget: 1000})

	result, err := fx.svc.Create(context.Background(), "u1", CreateInvoiceInput{
		ProjectID: p.ID, Number: "INV-1", Amount: 400,
	})
	require.NoError(t, err)

	_, err = fx.svc.Update(context.Background(), "u1", result.Invoice.ID, UpdateInvoiceInput{
		Amount: f(250),
	})
	require.NoError(t, err)

	stored, err := fx.projSvc.Get(context.Background(), "u1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, 250.0, stored.Invoiced)
	assert.Equal(t, 1, stored.InvoiceCount)
}

func TestUpdateTypeRepartitions(t *testing.T) {
	fx := newFixture()
	p := fx.addProject(t, project.CreateProjectInput{
		Name:           "Split",
		HardwareBudget: f(500),
		ServiceBudget:  f(500),
	})

	result, err := fx.svc.Create(context.Background(), "u1", CreateInvoiceInput{
		ProjectID: p.ID, Number: "INV-1", Amount: 200, Type: project.LineHardware,
	})
	require.NoError(t, err)

	line := project.LineService
	_, err = fx.svc.Update(context.Background(), "u1", result.Invoice.ID, UpdateInvoiceInput{
		Type: &line,
	})
	require.NoError(t, err)

	stored, err := fx.projSvc.Get(context.Background(), "u1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, 200.0, stored.Invoiced)
	assert.Equal(t, 0.0, stored.HardwareInvoiced)
	assert.Equal(t, 200.0, stored.ServiceInvoiced)
}

func TestUpdateStatusLeavesTotalsAlone(t *testing.T) {
	fx := newFixture()
	p := fx.addProject(t, project.CreateProjectInput{Name: "P", Budget: 1000})

	result, err := fx.svc.Create(context.Background(), "u1", CreateInvoiceInput{
		ProjectID: p.ID, Number: "INV-1", Amount: 400,
	})
	require.NoError(t, err)

	status := StatusPaid
	_, err = fx.svc.Update(context.Background(), "u1", result.Invoice.ID, UpdateInvoiceInput{
		Status: &status,
	})
	require.NoError(t, err)

	stored, err := fx.projSvc.Get(context.Background(), "u1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, 400.0, stored.Invoiced)
	assert.Equal(t, 1, stored.InvoiceCount)
}

func TestUpdateThirdPartyCompanyRename(t *testing.T) {
	fx := newFixture()
	p := fx.addProject(t, project.CreateProjectInput{Name: "P", Budget: 1000})

	result, err := fx.svc.Create(context.Background(), "u1", CreateInvoiceInput{
		ProjectID:  p.ID,
		Number:     "INV-1",
		Amount:     300,
		ThirdParty: &ThirdParty{Company: "Old Co", Amount: 300},
	})
	require.NoError(t, err)
	fx.vendors.deltas = nil

	_, err = fx.svc.Update(context.Background(), "u1", result.Invoice.ID, UpdateInvoiceInput{
		ThirdParty: &ThirdParty{Company: "New Co", Amount: 300},
	})
	require.NoError(t, err)

	require.Len(t, fx.vendors.deltas, 2)
	assert.Equal(t, recordedDelta{company: "Old Co", delta: -300}, fx.vendors.deltas[0])
	assert.Equal(t, recordedDelta{company: "New Co", delta: 300}, fx.vendors.deltas[1])
}

func TestDeleteReversesContribution(t *testing.T) {
	fx := newFixture()
	p := fx.addProject(t, project.CreateProjectInput{Name: "P", Budget: 1000})

	result, err := fx.svc.Create(context.Background(), "u1", CreateInvoiceInput{
		ProjectID: p.ID, Number: "INV-1", Amount: 400,
	})
	require.NoError(t, err)

	require.NoError(t, fx.svc.Delete(context.Background(), "u1", result.Invoice.ID))

	stored, err := fx.projSvc.Get(context.Background(), "u1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, stored.Invoiced)
	assert.Equal(t, 0, stored.InvoiceCount)
}

func TestDeleteSurvivesMissingProject(t *testing.T) {
	fx := newFixture()
	p := fx.addProject(t, project.CreateProjectInput{Name: "P", Budget: 1000})

	result, err := fx.svc.Create(context.Background(), "u1", CreateInvoiceInput{
		ProjectID: p.ID, Number: "INV-1", Amount: 400,
	})
	require.NoError(t, err)

	// The project row vanishes out from under the invoice.
	delete(fx.projects.projects, p.ID)

	require.NoError(t, fx.svc.Delete(context.Background(), "u1", result.Invoice.ID))
	_, err = fx.svc.Get(context.Background(), "u1", result.Invoice.ID)
	assert.True(t, errors.Is(err, httpx.ErrNotFound))
}

func TestDisplayStatusMasksCancelled(t *testing.T) {
	inv := Invoice{Status: StatusCancelled}
	assert.Equal(t, StatusPending, inv.DisplayStatus())

	inv.Status = StatusPaid
	assert.Equal(t, StatusPaid, inv.DisplayStatus())
}

func TestRecomputeAggregatesFixesDrift(t *testing.T) {
	fx := newFixture()
	p := fx.addProject(t, project.CreateProjectInput{Name: "P", Budget: 1000})

	_, err := fx.svc.Create(context.Background(), "u1", CreateInvoiceInput{
		ProjectID: p.ID, Number: "INV-1", Amount: 400,
	})
	require.NoError(t, err)
	_, err = fx.svc.Create(context.Background(), "u1", CreateInvoiceInput{
		ProjectID: p.ID, Number: "INV-2", Amount: 100,
	})
	require.NoError(t, err)

	// Inject drift.
	require.NoError(t, fx.projects.SetAggregates(context.Background(), "u1", p.ID, project.Aggregates{Invoiced: 999, InvoiceCount: 9}))

	fixed, err := fx.svc.RecomputeAggregates(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)

	stored, err := fx.projSvc.Get(context.Background(), "u1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, 500.0, stored.Invoiced)
	assert.Equal(t, 2, stored.InvoiceCount)
}

func TestRecomputeAggregatesNoDriftNoWrites(t *testing.T) {
	fx := newFixture()
	p := fx.addProject(t, project.CreateProjectInput{Name: "P", Budget: 1000})

	_, err := fx.svc.Create(context.Background(), "u1", CreateInvoiceInput{
		ProjectID: p.ID, Number: "INV-1", Amount: 400,
	})
	require.NoError(t, err)

	fixed, err := fx.svc.RecomputeAggregates(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, fixed)
}

func TestRecomputeZeroesProjectWithoutInvoices(t *testing.T) {
	fx := newFixture()
	p := fx.addProject(t, project.CreateProjectInput{Name: "Empty", Budget: 1000})

	// Stored totals claim activity the invoice set does not back.
	require.NoError(t, fx.projects.SetAggregates(context.Background(), "u1", p.ID, project.Aggregates{Invoiced: 50, InvoiceCount: 1}))

	fixed, err := fx.svc.RecomputeAggregates(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)

	stored, err := fx.projSvc.Get(context.Background(), "u1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, stored.Invoiced)
	assert.Equal(t, 0, stored.InvoiceCount)
}

func TestLedgerLifecycleScenario(t *testing.T) {
	fx := newFixture()
	p := fx.addProject(t, project.CreateProjectInput{Name: "P", Budget: 1000})
	projSvc := fx.projSvc

	i1, err := fx.svc.Create(context.Background(), "u1", CreateInvoiceInput{
		ProjectID: p.ID, Number: "I1", Amount: 300,
	})
	require.NoError(t, err)
	stored, _ := projSvc.Get(context.Background(), "u1", p.ID)
	assert.Equal(t, 300.0, stored.Invoiced)
	assert.Equal(t, 1, stored.InvoiceCount)

	// Over budget is allowed.
	i2, err := fx.svc.Create(context.Background(), "u1", CreateInvoiceInput{
		ProjectID: p.ID, Number: "I2", Amount: 800,
	})
	require.NoError(t, err)
	require.NotNil(t, i2.Warning)
	stored, _ = projSvc.Get(context.Background(), "u1", p.ID)
	assert.Equal(t, 1100.0, stored.Invoiced)
	assert.Equal(t, 2, stored.InvoiceCount)

	_, err = fx.svc.Update(context.Background(), "u1", i1.Invoice.ID, UpdateInvoiceInput{Amount: f(500)})
	require.NoError(t, err)
	stored, _ = projSvc.Get(context.Background(), "u1", p.ID)
	assert.Equal(t, 1300.0, stored.Invoiced)

	require.NoError(t, fx.svc.Delete(context.Background(), "u1", i2.Invoice.ID))
	stored, _ = projSvc.Get(context.Background(), "u1", p.ID)
	assert.Equal(t, 500.0, stored.Invoiced)
	assert.Equal(t, 1, stored.InvoiceCount)

	err = projSvc.Delete(context.Background(), "u1", p.ID)
	assert.True(t, errors.Is(err, project.ErrHasInvoices))

	require.NoError(t, fx.svc.Delete(context.Background(), "u1", i1.Invoice.ID))
	stored, _ = projSvc.Get(context.Background(), "u1", p.ID)
	assert.Equal(t, 0.0, stored.Invoiced)
	assert.Equal(t, 0, stored.InvoiceCount)

	require.NoError(t, projSvc.Delete(context.Background(), "u1", p.ID))
}

func TestVendorTotalsAccumulateAcrossProjects(t *testing.T) {
	fx := newFixture()
	p1 := fx.addProject(t, project.CreateProjectInput{Name: "P1", Budget: 1000})
	p2 := fx.addProject(t, project.CreateProjectInput{Name: "P2", Budget: 1000})

	_, err := fx.svc.Create(context.Background(), "u1", CreateInvoiceInput{
		ProjectID:  p1.ID,
		Number:     "I1",
		Amount:     200,
		ThirdParty: &ThirdParty{Company: "Acme", Amount: 200},
	})
	require.NoError(t, err)
	_, err = fx.svc.Create(context.Background(), "u1", CreateInvoiceInput{
		ProjectID:  p2.ID,
		Number:     "I2",
		Amount:     150,
		ThirdParty: &ThirdParty{Company: "Acme", Amount: 150},
	})
	require.NoError(t, err)

	require.Len(t, fx.vendors.deltas, 2)
	total := 0.0
	for _, d := range fx.vendors.deltas {
		assert.Equal(t, "Acme", d.company)
		total += d.delta
	}
	assert.Equal(t, 350.0, total)
}

func TestClientInvoiceRejectsThirdPartyLink(t *testing.T) {
	fx := newFixture()
	p := fx.addProject(t, project.CreateProjectInput{Name: "P", Budget: 1000})

	_, err := fx.svc.Create(context.Background(), "u1", CreateInvoiceInput{
		ProjectID:       p.ID,
		Number:          "INV-1",
		Amount:          10,
		ClientInvoiceID: "other",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrValidation))
}
