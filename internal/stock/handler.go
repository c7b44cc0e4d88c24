package stock

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/siteledger/siteledger/internal/platform/httpx"
	"github.com/siteledger/siteledger/internal/shared"
)

// Handler manages stock ledger HTTP endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers stock routes on the router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/items/{id}/movements", h.history)
	r.Post("/receipts", h.postReceipt)
}

type receiptRequest struct {
	ItemID   int64        `json:"item_id" validate:"required,gt=0"`
	Quantity int          `json:"quantity" validate:"required,gt=0"`
	Type     MovementType `json:"movement_type,omitempty" validate:"omitempty,oneof=INWARD RETURN ADJUST"`
	Notes    string       `json:"notes,omitempty" validate:"omitempty,max=500"`
}

func (h *Handler) postReceipt(w http.ResponseWriter, r *http.Request) {
	var req receiptRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	actor := shared.ActorFromContext(r.Context())
	movement, err := h.service.PostReceipt(r.Context(), ReceiptInput{
		ItemID:   req.ItemID,
		Quantity: req.Quantity,
		Type:     req.Type,
		Notes:    req.Notes,
		ActorID:  actor.ID,
	})
	if err != nil {
		h.respondError(w, "post receipt", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, movement)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || itemID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed item id")
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	movements, pagination, err := h.service.History(r.Context(), itemID, page, perPage)
	if err != nil {
		h.respondError(w, "movement history", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"movements":  movements,
		"pagination": pagination,
	})
}

func (h *Handler) respondError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, ErrItemNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrNegativeStock):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(action+" failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
