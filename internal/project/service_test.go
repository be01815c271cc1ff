package project

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saurabhwebdev/invoicaura/internal/platform/httpx"
)

type mockRepository struct {
	projects map[string]Project
	nextID   int

	createError error
	getError    error
}

func newMockRepository() *mockRepository {
	return &mockRepository{projects: make(map[string]Project), nextID: 1}
}

func (m *mockRepository) Create(ctx context.Context, p Project) (Project, error) {
	if m.createError != nil {
		return Project{}, m.createError
	}
	if p.ID == "" {
		p.ID = "p" + strconv.Itoa(m.nextID)
		m.nextID++
	}
	m.projects[p.ID] = p
	return p, nil
}

func (m *mockRepository) Get(ctx context.Context, userID, id string) (Project, error) {
	if m.getError != nil {
		return Project{}, m.getError
	}
	p, ok := m.projects[id]
	if !ok || p.UserID != userID {
		return Project{}, ErrNotFound
	}
	return p, nil
}

func (m *mockRepository) List(ctx context.Context, userID, orderBy string, descending bool) ([]Project, error) {
	var out []Project
	for _, p := range m.projects {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockRepository) Update(ctx context.Context, p Project) (Project, error) {
	stored, ok := m.projects[p.ID]
	if !ok || stored.UserID != p.UserID {
		return Project{}, ErrNotFound
	}
	m.projects[p.ID] = p
	return p, nil
}

func (m *mockRepository) Delete(ctx context.Context, userID, id string) error {
	p, ok := m.projects[id]
	if !ok || p.UserID != userID {
		return ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

func (m *mockRepository) SetAggregates(ctx context.Context, userID, id string, agg Aggregates) error {
	p, ok := m.projects[id]
	if !ok || p.UserID != userID {
		return ErrNotFound
	}
	p.Invoiced = agg.Invoiced
	p.InvoiceCount = agg.InvoiceCount
	p.HardwareInvoiced = agg.HardwareInvoiced
	p.ServiceInvoiced = agg.ServiceInvoiced
	m.projects[id] = p
	return nil
}

type stubCounter struct {
	counts map[string]int
}

func (s stubCounter) CountByProject(ctx context.Context, userID, projectID string) (int, error) {
	return s.counts[projectID], nil
}

func newTestService(repo *mockRepository, counts map[string]int) *Service {
	if counts == nil {
		counts = map[string]int{}
	}
	return NewService(repo, stubCounter{counts: counts}, slog.Default())
}

func TestCreateDefaultsAndNormalizes(t *testing.T) {
	svc := newTestService(newMockRepository(), nil)

	created, err := svc.Create(context.Background(), "u1", CreateProjectInput{
		Name:           "  Acme Rollout  ",
		Budget:         900,
		HardwareBudget: f(600),
		ServiceBudget:  f(400),
	})
	require.NoError(t, err)

	assert.Equal(t, "Acme Rollout", created.Name)
	assert.Equal(t, StatusActive, created.Status)
	// Split budgets override the submitted total.
	assert.Equal(t, 1000.0, created.Budget)
	assert.Equal(t, 0.0, created.Invoiced)
	assert.Equal(t, 0, created.InvoiceCount)
}

func TestCreateRejectsHalfSplit(t *testing.T) {
	svc := newTestService(newMockRepository(), nil)

	_, err := svc.Create(context.Background(), "u1", CreateProjectInput{
		Name:           "Half",
		HardwareBudget: f(100),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrValidation))
}

func TestCreateRejectsMissingName(t *testing.T) {
	svc := newTestService(newMockRepository(), nil)

	_, err := svc.Create(context.Background(), "u1", CreateProjectInput{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrValidation))
}

func TestCreateRequiresUser(t *testing.T) {
	svc := newTestService(newMockRepository(), nil)

	_, err := svc.Create(context.Background(), "", CreateProjectInput{Name: "X"})
	assert.True(t, errors.Is(err, httpx.ErrNotAuthenticated))
}

func TestUpdateNeverTouchesAggregates(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, nil)

	created, err := svc.Create(context.Background(), "u1", CreateProjectInput{Name: "P", Budget: 500})
	require.NoError(t, err)

	// Simulate ledger activity.
	require.NoError(t, repo.SetAggregates(context.Background(), "u1", created.ID, Aggregates{Invoiced: 200, InvoiceCount: 2}))

	updated, err := svc.Update(context.Background(), "u1", created.ID, CreateProjectInput{
		Name:   "P renamed",
		Status: StatusCompleted,
		Budget: 800,
	})
	require.NoError(t, err)
	assert.Equal(t, 200.0, updated.Invoiced)
	assert.Equal(t, 2, updated.InvoiceCount)
	assert.Equal(t, 800.0, updated.Budget)
}

func TestDeleteBlockedWhileInvoicesRemain(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, map[string]int{"p1": 3})

	_, err := svc.Create(context.Background(), "u1", CreateProjectInput{Name: "Guarded"})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), "u1", "p1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHasInvoices))
	assert.True(t, errors.Is(err, httpx.ErrBlocked))
	assert.Contains(t, err.Error(), "3")

	// The project is still there.
	_, err = svc.Get(context.Background(), "u1", "p1")
	require.NoError(t, err)
}

func TestDeleteSucceedsWhenUnreferenced(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, nil)

	created, err := svc.Create(context.Background(), "u1", CreateProjectInput{Name: "Free"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "u1", created.ID))

	_, err = svc.Get(context.Background(), "u1", created.ID)
	assert.True(t, errors.Is(err, httpx.ErrNotFound))
}

func TestDeleteScopedToOwner(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, nil)

	created, err := svc.Create(context.Background(), "u1", CreateProjectInput{Name: "Mine"})
	require.NoError(t, err)

	err = svc.Delete(context.Background(), "u2", created.ID)
	assert.True(t, errors.Is(err, httpx.ErrNotFound))
}

func TestResolvePODraft(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, nil)

	created, err := svc.Create(context.Background(), "u1", CreateProjectInput{
		Name:      "PO project",
		PONumbers: PONumbers{Hardware: "H1", Combined: "C1"},
		ActivePOs: []POKind{POHardware},
	})
	require.NoError(t, err)

	draft, err := svc.ResolvePO(context.Background(), "u1", created.ID, LineHardware)
	require.NoError(t, err)
	assert.Equal(t, "H1", draft.Initial)
	require.Len(t, draft.Options, 1)

	draft, err = svc.ResolvePO(context.Background(), "u1", created.ID, LineService)
	require.NoError(t, err)
	assert.Equal(t, "C1", draft.Initial)
}
