package inventory

import (
	"context"
	"net/http"

	"cafe-orders/internal/apperror"
	"cafe-orders/internal/httpapi"
	"cafe-orders/internal/logger"
	"cafe-orders/internal/models"

	"github.com/go-chi/chi/v5"
)

// StockAdmin is the admin surface of the ledger
type StockAdmin interface {
	ListStock(ctx context.Context) ([]models.StockEntry, error)
	SetStock(ctx context.Context, menuItemID int64, value int) (models.StockEntry, error)
}

// Handler serves the admin inventory endpoints
type Handler struct {
	stock  StockAdmin
	logger *logger.Logger
}

func NewHandler(stock StockAdmin, log *logger.Logger) *Handler {
	return &Handler{stock: stock, logger: log}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/inventory", h.ListInventory)
	r.Put("/admin/inventory/{menuId}", h.UpdateStock)
}

// ListInventory handles GET /api/admin/inventory
func (h *Handler) ListInventory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.stock.ListStock(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, h.logger, "inventory_list_failed", err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, models.InventoryResponse{Inventory: entries})
}

// UpdateStock handles PUT /api/admin/inventory/{menuId}
func (h *Handler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	menuItemID, err := httpapi.ParseID(chi.URLParam(r, "menuId"), "menuId")
	if err != nil {
		httpapi.WriteError(w, r, h.logger, "stock_update_failed", err)
		return
	}

	var req models.SetStockRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, r, h.logger, "stock_update_failed", err)
		return
	}
	if req.Stock == nil {
		httpapi.WriteError(w, r, h.logger, "stock_update_failed",
			apperror.ValidationError{Field: "stock", Message: "must be a number greater than or equal to 0"})
		return
	}

	entry, err := h.stock.SetStock(r.Context(), menuItemID, *req.Stock)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, "stock_update_failed", err)
		return
	}

	h.logger.Info("stock_updated", "Stock overwritten", logger.RequestIDFrom(r.Context()), map[string]interface{}{
		"menu_item_id": entry.ID,
		"stock":        entry.Stock,
	})
	httpapi.WriteJSON(w, http.StatusOK, entry)
}
