package catalog

import (
	"context"
	"net/http"

	"cafe-orders/internal/httpapi"
	"cafe-orders/internal/logger"
	"cafe-orders/internal/models"

	"github.com/go-chi/chi/v5"
)

// MenuLister lists the catalog
type MenuLister interface {
	ListMenu(ctx context.Context) ([]models.MenuItemView, error)
}

// Handler serves the public catalog
type Handler struct {
	menu   MenuLister
	logger *logger.Logger
}

func NewHandler(menu MenuLister, log *logger.Logger) *Handler {
	return &Handler{menu: menu, logger: log}
}

// Register mounts GET /menus
func (h *Handler) Register(r chi.Router) {
	r.Get("/menus", h.ListMenus)
}

// ListMenus handles GET /api/menus
func (h *Handler) ListMenus(w http.ResponseWriter, r *http.Request) {
	items, err := h.menu.ListMenu(r.Context())
	if err != nil {
		httpapi.WriteError(w, r, h.logger, "menu_list_failed", err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, models.MenuResponse{Menus: items})
}
