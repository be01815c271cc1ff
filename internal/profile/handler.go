package profile

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/saurabhwebdev/invoicaura/internal/platform/httpx"
	"github.com/saurabhwebdev/invoicaura/internal/shared"
)

// Handler wires profile endpoints.
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

// MountRoutes registers profile routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.get)
	r.Put("/", h.upsert)
}

type profileRequest struct {
	DisplayName   string  `json:"displayName" validate:"max=120"`
	Currency      string  `json:"currency" validate:"required"`
	DateFormat    string  `json:"dateFormat" validate:"required"`
	GSTPercentage float64 `json:"gstPercentage" validate:"gte=0,lte=100"`
	TDSPercentage float64 `json:"tdsPercentage" validate:"gte=0,lte=100"`
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())

	p, err := h.service.GetByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("get profile", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) upsert(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())

	var req profileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid JSON", err.Error())
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	p, err := h.service.Upsert(r.Context(), userID, UpsertInput{
		DisplayName:   req.DisplayName,
		Currency:      req.Currency,
		DateFormat:    req.DateFormat,
		GSTPercentage: req.GSTPercentage,
		TDSPercentage: req.TDSPercentage,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}
