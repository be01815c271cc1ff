package workspace

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/saurabhwebdev/invoicaura/internal/platform/httpx"
	"github.com/saurabhwebdev/invoicaura/internal/shared"
)

// Handler wires workspace snapshot endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers workspace routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.get)
	r.Post("/refresh", h.refresh)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())

	snap, err := h.service.Get(r.Context(), userID)
	if err != nil {
		h.logger.Error("get workspace snapshot", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	userID := shared.UserIDFromContext(r.Context())

	snap, err := h.service.Refresh(r.Context(), userID)
	if err != nil {
		h.logger.Error("refresh workspace snapshot", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, snap)
}

// InvalidateOnWrite drops the user's cached snapshot after any mutating
// request so the next dashboard read reflects the change.
func (h *Handler) InvalidateOnWrite(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			h.service.Invalidate(r.Context(), shared.UserIDFromContext(r.Context()))
		}
	})
}
