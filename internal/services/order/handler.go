package order

import (
	"context"
	"errors"
	"net/http"

	"cafe-orders/internal/httpapi"
	"cafe-orders/internal/idempotency"
	"cafe-orders/internal/logger"
	"cafe-orders/internal/models"

	"github.com/go-chi/chi/v5"
)

const placedMessage = "Order placed successfully"

// Placer places orders
type Placer interface {
	PlaceOrder(ctx context.Context, req models.PlaceOrderRequest) (models.PlaceOrderResult, error)
}

// OrderGetter loads the order read model
type OrderGetter interface {
	GetOrder(ctx context.Context, orderID int64) (models.OrderDetail, error)
}

// KeyLookup finds the order a key produced once its transaction committed
type KeyLookup interface {
	Lookup(ctx context.Context, key string) (idempotency.Record, bool, error)
}

// Handler handles HTTP requests for order placement and lookup
type Handler struct {
	placer  Placer
	orders  OrderGetter
	keys    idempotency.Store
	records KeyLookup
	logger  *logger.Logger
}

// NewHandler creates a new order handler. Idempotency-Key headers are
// honoured when keys or records is set: keys guards in-flight requests,
// records is the committed key to order mapping.
func NewHandler(placer Placer, orders OrderGetter, keys idempotency.Store, records KeyLookup, log *logger.Logger) *Handler {
	return &Handler{
		placer:  placer,
		orders:  orders,
		keys:    keys,
		records: records,
		logger:  log,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/orders", h.CreateOrder)
	r.Get("/orders/{orderId}", h.GetOrder)
}

// CreateOrder handles POST /api/orders
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := logger.RequestIDFrom(ctx)

	h.logger.Debug("order_received", "Received order creation request", requestID, map[string]interface{}{
		"content_length": r.ContentLength,
		"remote_addr":    r.RemoteAddr,
	})

	var req models.PlaceOrderRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, r, h.logger, "validation_failed", err)
		return
	}

	key := idempotency.Key(r)
	if h.keys == nil && h.records == nil {
		key = ""
	}
	if key != "" {
		if err := idempotency.ValidateKey(key); err != nil {
			httpapi.WriteError(w, r, h.logger, "validation_failed", err)
			return
		}

		hash, err := idempotency.HashRequest(req)
		if err != nil {
			httpapi.WriteError(w, r, h.logger, "validation_failed", err)
			return
		}
		req.IdempotencyKey, req.RequestHash = key, hash

		prior, found, err := h.resolveKey(ctx, key)
		if err != nil {
			httpapi.WriteError(w, r, h.logger, "idempotency_reserve_failed", err)
			return
		}
		if found {
			if err := prior.Check(hash); err != nil {
				httpapi.WriteError(w, r, h.logger, "idempotency_key_reused", err)
				return
			}
			h.replay(w, r, prior.OrderID)
			return
		}
	}

	result, err := h.placer.PlaceOrder(ctx, req)
	if err != nil {
		if key != "" {
			h.release(ctx, key)
		}
		httpapi.WriteError(w, r, h.logger, "order_creation_failed", err)
		return
	}

	if key != "" {
		h.complete(ctx, key, idempotency.Record{OrderID: result.OrderID, RequestHash: req.RequestHash})
	}

	httpapi.WriteJSON(w, http.StatusCreated, models.PlaceOrderResponse{
		PlaceOrderResult: result,
		Message:          placedMessage,
	})
}

// resolveKey returns the record of an earlier request with key, or claims
// key for this request. A pending claim is not final: its holder may have
// committed and failed to cache the result, so the committed records are
// consulted before reporting it as in progress.
func (h *Handler) resolveKey(ctx context.Context, key string) (idempotency.Record, bool, error) {
	reserved := false
	if h.keys != nil {
		res, err := h.keys.Reserve(ctx, key)
		switch {
		case errors.Is(err, idempotency.ErrInProgress):
			rec, found, lookupErr := h.lookup(ctx, key)
			if lookupErr != nil || found {
				return rec, found, lookupErr
			}
			return idempotency.Record{}, false, err
		case err != nil:
			return idempotency.Record{}, false, err
		case !res.Reserved:
			return res.Record, true, nil
		}
		reserved = true
	}

	rec, found, err := h.lookup(ctx, key)
	if reserved {
		switch {
		case err != nil:
			h.release(ctx, key)
		case found:
			h.complete(ctx, key, rec)
		}
	}
	return rec, found, err
}

func (h *Handler) lookup(ctx context.Context, key string) (idempotency.Record, bool, error) {
	if h.records == nil {
		return idempotency.Record{}, false, nil
	}
	return h.records.Lookup(ctx, key)
}

func (h *Handler) complete(ctx context.Context, key string, rec idempotency.Record) {
	if h.keys == nil {
		return
	}
	if err := h.keys.Complete(context.WithoutCancel(ctx), key, rec); err != nil {
		h.logger.Error("idempotency_complete_failed", "Failed to cache idempotency key", logger.RequestIDFrom(ctx), err, map[string]interface{}{
			"order_id": rec.OrderID,
		})
	}
}

func (h *Handler) release(ctx context.Context, key string) {
	if h.keys == nil {
		return
	}
	if err := h.keys.Release(context.WithoutCancel(ctx), key); err != nil {
		h.logger.Error("idempotency_release_failed", "Failed to release idempotency key", logger.RequestIDFrom(ctx), err, nil)
	}
}

// replay answers a repeated submission with the order it already produced
func (h *Handler) replay(w http.ResponseWriter, r *http.Request, orderID int64) {
	detail, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, "idempotent_replay_failed", err)
		return
	}

	h.logger.Info("order_replayed", "Returning previously placed order", logger.RequestIDFrom(r.Context()), map[string]interface{}{
		"order_id": orderID,
	})
	httpapi.WriteJSON(w, http.StatusOK, models.PlaceOrderResponse{
		PlaceOrderResult: models.PlaceOrderResult{OrderID: detail.ID, Status: detail.Status},
		Message:          placedMessage,
	})
}

// GetOrder handles GET /api/orders/{orderId}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := httpapi.ParseID(chi.URLParam(r, "orderId"), "orderId")
	if err != nil {
		httpapi.WriteError(w, r, h.logger, "order_lookup_failed", err)
		return
	}

	detail, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		httpapi.WriteError(w, r, h.logger, "order_lookup_failed", err)
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, detail)
}
