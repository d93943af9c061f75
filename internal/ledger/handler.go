package ledger

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stockyard-erp/stockyard/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the inventory ledger.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/inventory", h.handleList)
	r.Get("/inventory/summary", h.handleSummary)
	r.Get("/inventory/alerts/low-stock", h.handleLowStock)
	r.Get("/inventory/{productID}/{locationID}", h.handleGet)
	r.Put("/inventory/{productID}/{locationID}", h.handleSetQuantities)
	r.Post("/inventory/{productID}/{locationID}/reserve", h.handleReserve)
	r.Post("/inventory/{productID}/{locationID}/release", h.handleRelease)
}

type setQuantitiesRequest struct {
	OnHand   *int `json:"quantity_on_hand" validate:"omitempty,min=-1000000000"`
	Reserved *int `json:"reserved_quantity" validate:"omitempty,min=0"`
}

type reservationRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

type rowResponse struct {
	Row
	Available int `json:"available_quantity"`
}

func toRowResponse(row Row) rowResponse {
	return rowResponse{Row: row, Available: row.Available()}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter := Filter{}
	q := r.URL.Query()
	if raw := q.Get("product_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "product_id must be an integer")
			return
		}
		filter.ProductID = id
	}
	if raw := q.Get("location_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "location_id must be an integer")
			return
		}
		filter.LocationID = id
	}
	rows, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list inventory", "error", err)
		httpx.RespondError(w, err)
		return
	}
	out := make([]rowResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, toRowResponse(row))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": out, "total": len(out)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	productID, locationID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}
	row, err := h.service.Get(r.Context(), productID, locationID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRowResponse(row))
}

func (h *Handler) handleSetQuantities(w http.ResponseWriter, r *http.Request) {
	productID, locationID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}
	var req setQuantitiesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	row, err := h.service.SetQuantities(r.Context(), productID, locationID, SetQuantitiesInput{OnHand: req.OnHand, Reserved: req.Reserved})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRowResponse(row))
}

func (h *Handler) handleReserve(w http.ResponseWriter, r *http.Request) {
	h.handleReservation(w, r, h.service.Reserve)
}

func (h *Handler) handleRelease(w http.ResponseWriter, r *http.Request) {
	h.handleReservation(w, r, h.service.Release)
}

func (h *Handler) handleReservation(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, productID, locationID int64, qty int) (Row, error)) {
	productID, locationID, ok := h.pathIDs(w, r)
	if !ok {
		return
	}
	var req reservationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	row, err := op(r.Context(), productID, locationID, req.Quantity)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRowResponse(row))
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.service.LowStock(r.Context())
	if err != nil {
		h.logger.Error("low stock report", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": alerts, "total": len(alerts)})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summarize(r.Context())
	if err != nil {
		h.logger.Error("inventory summary", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) pathIDs(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "product id must be an integer")
		return 0, 0, false
	}
	locationID, err := strconv.ParseInt(chi.URLParam(r, "locationID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "location id must be an integer")
		return 0, 0, false
	}
	return productID, locationID, true
}
