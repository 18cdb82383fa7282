package models

import (
	"time"
)

// Routing keys of the order_events exchange
const (
	RoutingOrderPlaced        = "order.placed"
	RoutingOrderStatusChanged = "order.status_changed"
)

// PlacedLine is a line of an order.placed event
type PlacedLine struct {
	MenuItemID int64   `json:"menu_id"`
	OptionIDs  []int64 `json:"option_ids"`
	Quantity   int     `json:"quantity"`
	Price      int64   `json:"price"`
}

// OrderPlacedMessage is published after an order commits
type OrderPlacedMessage struct {
	OrderID    int64        `json:"order_id"`
	Status     OrderStatus  `json:"status"`
	TotalPrice int64        `json:"total_price"`
	Lines      []PlacedLine `json:"lines"`
	RequestID  string       `json:"request_id,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`
}

// StatusChangedMessage is published after a status change commits
type StatusChangedMessage struct {
	OrderID   int64       `json:"order_id"`
	OldStatus OrderStatus `json:"old_status"`
	NewStatus OrderStatus `json:"new_status"`
	RequestID string      `json:"request_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewStatusChangedMessage builds the event for an applied transition
func NewStatusChangedMessage(change StatusChange, requestID string) *StatusChangedMessage {
	return &StatusChangedMessage{
		OrderID:   change.OrderID,
		OldStatus: change.OldStatus,
		NewStatus: change.Status,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
	}
}
