package invoice

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/saurabhwebdev/invoicaura/internal/platform/httpx"
	"github.com/saurabhwebdev/invoicaura/internal/project"
	"github.com/saurabhwebdev/invoicaura/internal/shared"
)

// Handler wires invoice endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers invoice routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.remove)
}

// invoiceView is the read model. The stored cancelled status is never
// exposed; it reads back as pending.
type invoiceView struct {
	Invoice
	Status Status `json:"status"`
}

func viewOf(inv Invoice) invoiceView {
	return invoiceView{Invoice: inv, Status: inv.DisplayStatus()}
}

func viewsOf(invoices []Invoice) []invoiceView {
	views := make([]invoiceView, len(invoices))
	for i, inv := range invoices {
		views[i] = viewOf(inv)
	}
	return views
}

type createRequest struct {
	ProjectID       string             `json:"projectId" validate:"required"`
	Number          string             `json:"invoiceNumber" validate:"required,max=100"`
	Amount          float64            `json:"amount" validate:"gte=0"`
	Date            time.Time          `json:"date"`
	Description     string             `json:"description"`
	Status          Status             `json:"status"`
	Type            project.BudgetLine `json:"type"`
	PONumber        string             `json:"poNumber"`
	ThirdParty      *ThirdParty        `json:"thirdParty"`
	ClientInvoiceID string             `json:"clientInvoiceId"`
}

type createResponse struct {
	Invoice invoiceView    `json:"invoice"`
	Warning *BudgetWarning `json:"warning,omitempty"`
}

type updateRequest struct {
	Number      *string             `json:"invoiceNumber"`
	Amount      *float64            `json:"amount"`
	Date        *time.Time          `json:"date"`
	Description *string             `json:"description"`
	Status      *Status             `json:"status"`
	Type        *project.BudgetLine `json:"type"`
	PONumber    *string             `json:"poNumber"`
	ThirdParty  *ThirdParty         `json:"thirdParty"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())

	if projectID := r.URL.Query().Get("project_id"); projectID != "" {
		invoices, err := h.service.ListByProject(r.Context(), userID, projectID)
		if err != nil {
			h.logger.Error("list project invoices", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, viewsOf(invoices))
		return
	}

	orderBy := r.URL.Query().Get("order_by")
	descending := r.URL.Query().Get("order") == "desc"
	invoices, err := h.service.List(r.Context(), userID, orderBy, descending)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, viewsOf(invoices))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())

	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	result, err := h.service.Create(r.Context(), userID, CreateInvoiceInput{
		ProjectID:       req.ProjectID,
		Number:          req.Number,
		Amount:          req.Amount,
		Date:            req.Date,
		Description:     req.Description,
		Status:          req.Status,
		Type:            req.Type,
		PONumber:        req.PONumber,
		ThirdParty:      req.ThirdParty,
		ClientInvoiceID: req.ClientInvoiceID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, createResponse{
		Invoice: viewOf(result.Invoice),
		Warning: result.Warning,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	inv, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, viewOf(inv))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}

	updated, err := h.service.Update(r.Context(), userID, id, UpdateInvoiceInput{
		Number:      req.Number,
		Amount:      req.Amount,
		Date:        req.Date,
		Description: req.Description,
		Status:      req.Status,
		Type:        req.Type,
		PONumber:    req.PONumber,
		ThirdParty:  req.ThirdParty,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, viewOf(updated))
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
