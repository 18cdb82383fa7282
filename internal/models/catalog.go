package models

// MenuItem is a sellable catalog entry. Price is in minor currency units.
type MenuItem struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	Image       string `json:"image"`
	Stock       int    `json:"stock"`
}

// Option is a priced add-on owned by exactly one MenuItem
type Option struct {
	ID         int64  `json:"id"`
	MenuItemID int64  `json:"-"`
	Name       string `json:"name"`
	Price      int64  `json:"price"`
}

// MenuItemView is a menu item joined with its options
type MenuItemView struct {
	MenuItem
	Options []Option `json:"options"`
}

// StockEntry is the admin inventory projection of a menu item
type StockEntry struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Stock int    `json:"stock"`
}

// MenuResponse is the catalog listing envelope
type MenuResponse struct {
	Menus []MenuItemView `json:"menus"`
}

// InventoryResponse is the admin inventory listing envelope
type InventoryResponse struct {
	Inventory []StockEntry `json:"inventory"`
}

// SetStockRequest overwrites a menu item's stock. A nil Stock means the
// field was missing or not a number.
type SetStockRequest struct {
	Stock *int `json:"stock"`
}
