package models

import (
	"fmt"
	"time"

	"cafe-orders/internal/apperror"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	StatusReceived   OrderStatus = "received"
	StatusInProgress OrderStatus = "in_progress"
	StatusCompleted  OrderStatus = "completed"
)

var statusRank = map[OrderStatus]int{
	StatusReceived:   0,
	StatusInProgress: 1,
	StatusCompleted:  2,
}

// Valid reports whether s is one of the allowed statuses
func (s OrderStatus) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// CanTransition reports whether an order in status s may move to next.
// Lenient mode accepts any valid target. Strict mode only moves forward,
// staying in place is allowed.
func (s OrderStatus) CanTransition(next OrderStatus, strict bool) bool {
	if !next.Valid() {
		return false
	}
	if !strict {
		return true
	}
	return statusRank[next] >= statusRank[s]
}

// Order is a persisted customer order
type Order struct {
	ID         int64       `json:"id"`
	CreatedAt  time.Time   `json:"orderTime"`
	TotalPrice int64       `json:"totalPrice"`
	Status     OrderStatus `json:"status"`
}

// OrderLine is one menu item within an order
type OrderLine struct {
	ID         int64 `json:"-"`
	OrderID    int64 `json:"-"`
	MenuItemID int64 `json:"menuId"`
	Quantity   int   `json:"quantity"`
	Price      int64 `json:"price"`
}

// LineRequest is one requested line of a new order
type LineRequest struct {
	MenuItemID int64   `json:"menuId"`
	OptionIDs  []int64 `json:"selectedOptions"`
	Quantity   int     `json:"quantity"`
}

// PlaceOrderRequest is the create order payload. TotalPrice is optional;
// when present it must match the server-side total.
type PlaceOrderRequest struct {
	Lines      []LineRequest `json:"items"`
	TotalPrice *int64        `json:"totalPrice,omitempty"`

	// Set from the Idempotency-Key header; recorded with the order.
	IdempotencyKey string `json:"-"`
	RequestHash    string `json:"-"`
}

// PlaceOrderResult identifies the created order
type PlaceOrderResult struct {
	OrderID int64       `json:"orderId"`
	Status  OrderStatus `json:"status"`
}

// PlaceOrderResponse is the create order response body
type PlaceOrderResponse struct {
	PlaceOrderResult
	Message string `json:"message"`
}

// LineDetail is a line of the order read model
type LineDetail struct {
	MenuItemID      int64    `json:"menuId"`
	MenuName        string   `json:"menuName"`
	Quantity        int      `json:"quantity"`
	SelectedOptions []Option `json:"selectedOptions"`
	Price           int64    `json:"price"`
}

// OrderDetail is an order joined with its lines and selected options
type OrderDetail struct {
	ID         int64        `json:"id"`
	OrderTime  time.Time    `json:"orderTime"`
	Status     OrderStatus  `json:"status"`
	Items      []LineDetail `json:"items"`
	TotalPrice int64        `json:"totalPrice"`
}

// OrderSummary is the admin listing projection of an order
type OrderSummary struct {
	ID          int64       `json:"id"`
	OrderTime   time.Time   `json:"orderTime"`
	TotalPrice  int64       `json:"totalPrice"`
	Status      OrderStatus `json:"status"`
	MenuSummary string      `json:"menuSummary"`
}

// OrderListResponse is the admin order listing envelope
type OrderListResponse struct {
	Orders []OrderSummary `json:"orders"`
}

// UpdateStatusRequest is the admin status change payload
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// StatusChange describes an applied status transition
type StatusChange struct {
	OrderID   int64       `json:"orderId"`
	OldStatus OrderStatus `json:"-"`
	Status    OrderStatus `json:"status"`
}

// Limits bounds the size of an order request
type Limits struct {
	MaxLines    int
	MaxQuantity int
}

// Validate checks the request shape before any storage access
func (req *PlaceOrderRequest) Validate(limits Limits) error {
	if len(req.Lines) == 0 {
		return apperror.ValidationError{Field: "items", Message: "at least one item is required"}
	}
	if limits.MaxLines > 0 && len(req.Lines) > limits.MaxLines {
		return apperror.ValidationError{
			Field:   "items",
			Message: fmt.Sprintf("must not contain more than %d items", limits.MaxLines),
		}
	}

	for i, line := range req.Lines {
		field := fmt.Sprintf("items[%d]", i)
		if line.MenuItemID <= 0 {
			return apperror.ValidationError{Field: field + ".menuId", Message: "must be a positive id"}
		}
		if line.Quantity < 1 {
			return apperror.ValidationError{Field: field + ".quantity", Message: "must be at least 1"}
		}
		if limits.MaxQuantity > 0 && line.Quantity > limits.MaxQuantity {
			return apperror.ValidationError{
				Field:   field + ".quantity",
				Message: fmt.Sprintf("must not exceed %d", limits.MaxQuantity),
			}
		}
	}

	if req.TotalPrice != nil && *req.TotalPrice < 0 {
		return apperror.ValidationError{Field: "totalPrice", Message: "must not be negative"}
	}
	return nil
}

// ParseStatus validates a client-supplied status value
func ParseStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(raw)
	if !s.Valid() {
		return "", apperror.Withf(apperror.ErrInvalidStatus,
			"status must be one of: received, in_progress, completed, got %q", raw)
	}
	return s, nil
}
