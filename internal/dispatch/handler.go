package dispatch

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/siteledger/siteledger/internal/inventory"
	"github.com/siteledger/siteledger/internal/platform/httpx"
	"github.com/siteledger/siteledger/internal/shared"
)

// Handler manages dispatch HTTP endpoints.
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

// MountRoutes registers dispatch routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/previews", h.plan)
	r.Post("/previews/line-quantity", h.setLineQuantity)
	r.Post("/previews/remove-line", h.removeLine)
	r.Post("/previews/add-truck", h.addTruck)
	r.Post("/previews/remove-truck", h.removeTruck)
	r.Post("/previews/redistribute", h.redistribute)

	r.Post("/challans", h.commit)
	r.Get("/challans", h.list)
	r.Get("/challans/{ref}", h.show)
	r.Post("/challans/{ref}/cancel", h.cancel)
	r.Post("/challans/{ref}/return", h.postReturn)
}

func (h *Handler) plan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if !h.decode(w, r, &req) {
		return
	}
	preview, err := h.service.BuildPreview(r.Context(), req)
	if err != nil {
		h.respondError(w, r, "build preview", err)
		return
	}
	httpx.JSON(w, http.StatusOK, preview)
}

func (h *Handler) setLineQuantity(w http.ResponseWriter, r *http.Request) {
	var req SetLineQuantityRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := req.Preview.SetLineQuantity(req.TruckIndex, req.LineIndex, req.Quantity); err != nil {
		h.respondError(w, r, "set line quantity", err)
		return
	}
	httpx.JSON(w, http.StatusOK, req.Preview)
}

func (h *Handler) removeLine(w http.ResponseWriter, r *http.Request) {
	var req RemoveLineRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := req.Preview.RemoveLine(req.TruckIndex, req.LineIndex); err != nil {
		h.respondError(w, r, "remove line", err)
		return
	}
	httpx.JSON(w, http.StatusOK, req.Preview)
}

func (h *Handler) addTruck(w http.ResponseWriter, r *http.Request) {
	var req AddTruckRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Preview.AddTruck()
	httpx.JSON(w, http.StatusOK, req.Preview)
}

func (h *Handler) removeTruck(w http.ResponseWriter, r *http.Request) {
	var req RemoveTruckRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := req.Preview.RemoveTruck(req.TruckIndex); err != nil {
		h.respondError(w, r, "remove truck", err)
		return
	}
	httpx.JSON(w, http.StatusOK, req.Preview)
}

func (h *Handler) redistribute(w http.ResponseWriter, r *http.Request) {
	var req RedistributeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := req.Preview.Redistribute(req.TruckCount); err != nil {
		h.respondError(w, r, "redistribute", err)
		return
	}
	httpx.JSON(w, http.StatusOK, req.Preview)
}

func (h *Handler) commit(w http.ResponseWriter, r *http.Request) {
	var req CommitRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = r.Header.Get("Idempotency-Key")
	}
	actor := shared.ActorFromContext(r.Context())
	response, err := h.service.Commit(r.Context(), req, actor)
	if err != nil {
		h.respondError(w, r, "commit dispatch", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, response)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var req ListRequest
	req.ProjectID, _ = strconv.ParseInt(r.URL.Query().Get("project_id"), 10, 64)
	req.Status = Status(r.URL.Query().Get("status"))
	req.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	req.PerPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	if req.Status != "" && !req.Status.IsValid() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown status filter")
		return
	}

	challans, pagination, err := h.service.ListChallans(r.Context(), req)
	if err != nil {
		h.respondError(w, r, "list challans", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"challans":   challans,
		"pagination": pagination,
	})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.parseRef(w, r)
	if !ok {
		return
	}
	challan, err := h.service.GetChallan(r.Context(), ref)
	if err != nil {
		h.respondError(w, r, "get challan", err)
		return
	}
	httpx.JSON(w, http.StatusOK, challan)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.parseRef(w, r)
	if !ok {
		return
	}
	actor := shared.ActorFromContext(r.Context())
	challan, err := h.service.Cancel(r.Context(), ref, actor)
	if err != nil {
		h.respondError(w, r, "cancel challan", err)
		return
	}
	httpx.JSON(w, http.StatusOK, challan)
}

func (h *Handler) postReturn(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.parseRef(w, r)
	if !ok {
		return
	}
	var req ReturnRequest
	if !h.decode(w, r, &req) {
		return
	}
	actor := shared.ActorFromContext(r.Context())
	challan, err := h.service.Return(r.Context(), ref, req, actor)
	if err != nil {
		h.respondError(w, r, "return against challan", err)
		return
	}
	httpx.JSON(w, http.StatusOK, challan)
}

func (h *Handler) parseRef(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	ref, err := uuid.Parse(chi.URLParam(r, "ref"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed challan reference")
		return uuid.UUID{}, false
	}
	return ref, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, action string, err error) {
	var insufficient *InsufficientStockError
	var overCapacity *OverCapacityError
	var returnExceeds *ReturnExceedsError
	var notFound *ItemNotFoundError

	switch {
	case errors.As(err, &insufficient):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Insufficient Stock", insufficient.Error())
	case errors.As(err, &overCapacity):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Truck Over Capacity", overCapacity.Error())
	case errors.As(err, &returnExceeds):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Return Exceeds Outstanding", returnExceeds.Error())
	case errors.As(err, &notFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", notFound.Error())
	case errors.Is(err, ErrChallanNotFound),
		errors.Is(err, inventory.ErrSiteNotFound),
		errors.Is(err, inventory.ErrProjectNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrCannotCancel), errors.Is(err, ErrCannotReturn):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrInvalidCapacity),
		errors.Is(err, ErrNoItems),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidTruckCount),
		errors.Is(err, ErrTruckNotFound),
		errors.Is(err, ErrLineNotFound),
		errors.Is(err, ErrEmptyTruck):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		if !errors.Is(err, shared.ErrValidation) && !errors.Is(err, shared.ErrNotFound) &&
			!errors.Is(err, shared.ErrConflict) && !errors.Is(err, shared.ErrIdempotencyConflict) {
			h.logger.Error(action+" failed", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
	}
}
