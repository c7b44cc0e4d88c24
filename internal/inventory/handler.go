package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/siteledger/siteledger/internal/platform/httpx"
)

// Handler exposes snapshot reads for operator tooling.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sites/{id}/snapshot", h.siteSnapshot)
	r.Get("/projects/{id}/outward", h.projectOutward)
}

func (h *Handler) siteSnapshot(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	entries, err := h.service.SiteSnapshot(r.Context(), id)
	if err != nil {
		h.respondError(w, "site snapshot", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (h *Handler) projectOutward(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	entries, err := h.service.ProjectOutwardSnapshot(r.Context(), id)
	if err != nil {
		h.respondError(w, "project outward snapshot", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, ErrSiteNotFound), errors.Is(err, ErrProjectNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		h.logger.Error(action+" failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
