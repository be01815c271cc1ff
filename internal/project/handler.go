package project

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/saurabhwebdev/invoicaura/internal/platform/httpx"
	"github.com/saurabhwebdev/invoicaura/internal/shared"
)

// Handler wires project endpoints.
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

// MountRoutes registers project routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.remove)
	r.Get("/{id}/po-draft", h.poDraft)
}

type projectRequest struct {
	Name           string    `json:"name" validate:"required,max=200"`
	Client         string    `json:"client" validate:"max=200"`
	Status         Status    `json:"status"`
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
	Budget         float64   `json:"budget" validate:"gte=0"`
	HardwareBudget *float64  `json:"hardwareBudget"`
	ServiceBudget  *float64  `json:"serviceBudget"`
	PONumbers      PONumbers `json:"poNumbers"`
	ActivePOs      []POKind  `json:"activePOs"`
	GSTEnabled     bool      `json:"gstEnabled"`
	GSTPercentage  float64   `json:"gstPercentage" validate:"gte=0,lte=100"`
	TDSEnabled     bool      `json:"tdsEnabled"`
	TDSPercentage  float64   `json:"tdsPercentage" validate:"gte=0,lte=100"`
}

func (req projectRequest) toInput() CreateProjectInput {
	return CreateProjectInput{
		Name:           req.Name,
		Client:         req.Client,
		Status:         req.Status,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		Budget:         req.Budget,
		HardwareBudget: req.HardwareBudget,
		ServiceBudget:  req.ServiceBudget,
		PONumbers:      req.PONumbers,
		ActivePOs:      req.ActivePOs,
		GSTEnabled:     req.GSTEnabled,
		GSTPercentage:  req.GSTPercentage,
		TDSEnabled:     req.TDSEnabled,
		TDSPercentage:  req.TDSPercentage,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	orderBy := r.URL.Query().Get("order_by")
	descending := r.URL.Query().Get("order") == "desc"

	projects, err := h.service.List(r.Context(), userID, orderBy, descending)
	if err != nil {
		h.logger.Error("list projects", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, projects)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())

	var req projectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	created, err := h.service.Create(r.Context(), userID, req.toInput())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	p, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req projectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	updated, err := h.service.Update(r.Context(), userID, id, req.toInput())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
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

// poDraft answers the purchase order pre-selection for a new invoice draft.
func (h *Handler) poDraft(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")
	line := BudgetLine(r.URL.Query().Get("type"))
	if line != "" && !ValidBudgetLine(line) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown budget line")
		return
	}

	draft, err := h.service.ResolvePO(r.Context(), userID, id, line)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, draft)
}
