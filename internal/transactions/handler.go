package transactions

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stockyard-erp/stockyard/internal/platform/httpx"
	"github.com/stockyard-erp/stockyard/internal/shared"
)

// HandlerConfig carries listing limits.
type HandlerConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Handler wires HTTP endpoints for stock transactions.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	cfg      HandlerConfig
	validate *validator.Validate
}

// NewHandler constructs transactions handler.
func NewHandler(logger *slog.Logger, service *Service, cfg HandlerConfig) *Handler {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 50
	}
	if cfg.MaxPageSize <= 0 {
		cfg.MaxPageSize = 1000
	}
	return &Handler{logger: logger, service: service, cfg: cfg, validate: validator.New()}
}

// MountRoutes registers transaction routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/transactions", h.handleList)
	r.Post("/transactions", h.handleCreate)
	r.Post("/transactions/batch", h.handleCreateBatch)
	r.Post("/transactions/receipt", h.handleReceipt)
	r.Post("/transactions/shipment", h.handleShipment)
	r.Post("/transactions/transfer", h.handleTransfer)
	r.Post("/transactions/adjustment", h.handleAdjustment)
	r.Get("/transactions/summary", h.handleSummary)
	r.Get("/transactions/{id}", h.handleGet)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var input CreateInput
	if !h.decode(w, r, &input) {
		return
	}
	txn, err := h.service.Create(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, txn)
}

func (h *Handler) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []CreateInput `json:"items" validate:"required,min=1,dive"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	txns, err := h.service.CreateBatch(r.Context(), req.Items)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"items": txns, "total": len(txns)})
}

func (h *Handler) handleReceipt(w http.ResponseWriter, r *http.Request) {
	var input ReceiptInput
	if !h.decode(w, r, &input) {
		return
	}
	txn, err := h.service.Receipt(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, txn)
}

func (h *Handler) handleShipment(w http.ResponseWriter, r *http.Request) {
	var input ShipmentInput
	if !h.decode(w, r, &input) {
		return
	}
	txn, err := h.service.Shipment(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, txn)
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var input TransferInput
	if !h.decode(w, r, &input) {
		return
	}
	txns, err := h.service.Transfer(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"items": txns, "total": len(txns)})
}

func (h *Handler) handleAdjustment(w http.ResponseWriter, r *http.Request) {
	var input AdjustmentInput
	if !h.decode(w, r, &input) {
		return
	}
	txn, err := h.service.Adjustment(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, txn)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "transaction id must be an integer")
		return
	}
	txn, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, txn)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	page := shared.ParsePageRequest(r, h.cfg.DefaultPageSize, h.cfg.MaxPageSize)
	items, pagination, err := h.service.List(r.Context(), filter, page)
	if err != nil {
		h.logger.Error("list transactions", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "pagination": pagination})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseFilter(w, r)
	if !ok {
		return
	}
	summary, err := h.service.Summarize(r.Context(), filter)
	if err != nil {
		h.logger.Error("transaction summary", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) parseFilter(w http.ResponseWriter, r *http.Request) (ListFilter, bool) {
	filter := ListFilter{}
	q := r.URL.Query()
	if raw := q.Get("product_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "product_id must be an integer")
			return ListFilter{}, false
		}
		filter.ProductID = id
	}
	if raw := q.Get("location_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "location_id must be an integer")
			return ListFilter{}, false
		}
		filter.LocationID = id
	}
	if raw := q.Get("transaction_type"); raw != "" {
		t := Type(raw)
		if !t.Valid() {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown transaction_type")
			return ListFilter{}, false
		}
		filter.Type = t
	}
	filter.ReferenceNumber = q.Get("reference_number")
	if raw := q.Get("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be RFC3339")
			return ListFilter{}, false
		}
		filter.From = ts
	}
	if raw := q.Get("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be RFC3339")
			return ListFilter{}, false
		}
		filter.To = ts
	}
	return filter, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}
