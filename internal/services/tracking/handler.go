package tracking

import (
	"context"
	"net/http"

	"cafe-orders/internal/httpapi"
	"cafe-orders/internal/logger"
	"cafe-orders/internal/models"

	"github.com/go-chi/chi/v5"
)

// StatusAdmin is what the admin order routes need
type StatusAdmin interface {
	AdvanceStatus(ctx context.Context, orderID int64, raw string) (models.StatusChange, error)
	ListOrders(ctx context.Context) ([]models.OrderSummary, error)
}

// Handler handles HTTP requests for order administration
type Handler struct {
	service StatusAdmin
	logger  *logger.Logger
}

// NewHandler creates a new tracking handler
func NewHandler(service StatusAdmin, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/orders", h.ListOrders)
	r.Put("/admin/orders/{orderId}/status", h.UpdateStatus)
}

// ListOrders handles GET /api/admin/orders
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, h.logger, "order_list_failed", err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, models.OrderListResponse{Orders: orders})
}

// UpdateStatus handles PUT /api/admin/orders/{orderId}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := httpapi.ParseID(chi.URLParam(r, "orderId"), "orderId")
	if err != nil {
		httpapi.WriteError(w, r, h.logger, "status_update_failed", err)
		return
	}

	var req models.UpdateStatusRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, r, h.logger, "status_update_failed", err)
		return
	}

	h.logger.Debug("status_update_received", "Received status update request", logger.RequestIDFrom(r.Context()), map[string]interface{}{
		"order_id": orderID,
		"status":   req.Status,
	})

	change, err := h.service.AdvanceStatus(r.Context(), orderID, req.Status)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, "status_update_failed", err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, change)
}
