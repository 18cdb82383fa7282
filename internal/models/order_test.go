package models

import (
	"errors"
	"testing"

	"cafe-orders/internal/apperror"
)

func TestPlaceOrderRequestValidate(t *testing.T) {
	limits := Limits{MaxLines: 3, MaxQuantity: 10}
	neg := int64(-1)
	total := int64(9000)

	tests := []struct {
		name      string
		req       *PlaceOrderRequest
		wantErr   bool
		wantField string
	}{
		{
			name: "valid request",
			req: &PlaceOrderRequest{
				Lines:      []LineRequest{{MenuItemID: 1, OptionIDs: []int64{2}, Quantity: 2}},
				TotalPrice: &total,
			},
			wantErr: false,
		},
		{
			name:    "total omitted",
			req:     &PlaceOrderRequest{Lines: []LineRequest{{MenuItemID: 1, Quantity: 1}}},
			wantErr: false,
		},
		{
			name:      "no items",
			req:       &PlaceOrderRequest{},
			wantErr:   true,
			wantField: "items",
		},
		{
			name: "too many items",
			req: &PlaceOrderRequest{Lines: []LineRequest{
				{MenuItemID: 1, Quantity: 1},
				{MenuItemID: 2, Quantity: 1},
				{MenuItemID: 3, Quantity: 1},
				{MenuItemID: 4, Quantity: 1},
			}},
			wantErr:   true,
			wantField: "items",
		},
		{
			name:      "zero quantity",
			req:       &PlaceOrderRequest{Lines: []LineRequest{{MenuItemID: 1, Quantity: 0}}},
			wantErr:   true,
			wantField: "items[0].quantity",
		},
		{
			name: "quantity over limit on second line",
			req: &PlaceOrderRequest{Lines: []LineRequest{
				{MenuItemID: 1, Quantity: 1},
				{MenuItemID: 2, Quantity: 11},
			}},
			wantErr:   true,
			wantField: "items[1].quantity",
		},
		{
			name:      "missing menu id",
			req:       &PlaceOrderRequest{Lines: []LineRequest{{Quantity: 1}}},
			wantErr:   true,
			wantField: "items[0].menuId",
		},
		{
			name: "negative total",
			req: &PlaceOrderRequest{
				Lines:      []LineRequest{{MenuItemID: 1, Quantity: 1}},
				TotalPrice: &neg,
			},
			wantErr:   true,
			wantField: "totalPrice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate(limits)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				return
			}
			var ve apperror.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %T", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, ve.Field)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		raw     string
		want    OrderStatus
		wantErr bool
	}{
		{raw: "received", want: StatusReceived},
		{raw: "in_progress", want: StatusInProgress},
		{raw: "completed", want: StatusCompleted},
		{raw: "cancelled", wantErr: true},
		{raw: "", wantErr: true},
		{raw: "Received", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseStatus(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, apperror.ErrInvalidStatus) {
					t.Fatalf("expected ErrInvalidStatus, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name   string
		from   OrderStatus
		to     OrderStatus
		strict bool
		want   bool
	}{
		{name: "lenient backwards", from: StatusCompleted, to: StatusReceived, strict: false, want: true},
		{name: "lenient invalid target", from: StatusReceived, to: "cancelled", strict: false, want: false},
		{name: "strict forward", from: StatusReceived, to: StatusInProgress, strict: true, want: true},
		{name: "strict skip ahead", from: StatusReceived, to: StatusCompleted, strict: true, want: true},
		{name: "strict same state", from: StatusInProgress, to: StatusInProgress, strict: true, want: true},
		{name: "strict backwards", from: StatusCompleted, to: StatusInProgress, strict: true, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to, tt.strict); got != tt.want {
				t.Errorf("CanTransition(%q -> %q, strict=%v) = %v, want %v", tt.from, tt.to, tt.strict, got, tt.want)
			}
		})
	}
}
