package tracking

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cafe-orders/internal/apperror"
	"cafe-orders/internal/database"
	"cafe-orders/internal/logger"
	"cafe-orders/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOrders keeps statuses in memory and counts storage round trips
type fakeOrders struct {
	mu       sync.Mutex
	statuses map[int64]models.OrderStatus
	txCount  int
	failTx   error
}

func newFakeOrders(statuses map[int64]models.OrderStatus) *fakeOrders {
	return &fakeOrders{statuses: statuses}
}

func (f *fakeOrders) WithTx(ctx context.Context, fn func(q database.Querier) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txCount++
	if f.failTx != nil {
		return f.failTx
	}
	return fn(nil)
}

func (f *fakeOrders) LockStatus(ctx context.Context, q database.Querier, orderID int64) (models.OrderStatus, error) {
	s, ok := f.statuses[orderID]
	if !ok {
		return "", apperror.ErrOrderNotFound
	}
	return s, nil
}

func (f *fakeOrders) UpdateStatus(ctx context.Context, q database.Querier, orderID int64, status models.OrderStatus) error {
	f.statuses[orderID] = status
	return nil
}

func (f *fakeOrders) GetOrder(ctx context.Context, orderID int64) (models.OrderDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.statuses[orderID]
	if !ok {
		return models.OrderDetail{}, apperror.ErrOrderNotFound
	}
	return models.OrderDetail{ID: orderID, Status: s, Items: []models.LineDetail{}}, nil
}

func (f *fakeOrders) ListOrders(ctx context.Context) ([]models.OrderSummary, error) {
	return []models.OrderSummary{}, nil
}

func (f *fakeOrders) status(id int64) models.OrderStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[id]
}

type recordingPublisher struct {
	mu     sync.Mutex
	keys   []string
	events []any
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, message any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, routingKey)
	p.events = append(p.events, message)
	return nil
}

func newTestService(store *fakeOrders, events EventPublisher, strict bool) *Service {
	return NewService(Deps{
		Tx:     store,
		Status: store,
		Reader: store,
		Events: events,
		Strict: strict,
		Logger: logger.Discard(),
	})
}

func TestAdvanceStatus(t *testing.T) {
	tests := []struct {
		name    string
		strict  bool
		from    models.OrderStatus
		to      string
		wantErr error
	}{
		{name: "forward", from: models.StatusReceived, to: "in_progress"},
		{name: "skip ahead", from: models.StatusReceived, to: "completed"},
		{name: "lenient backward", from: models.StatusCompleted, to: "received"},
		{name: "strict forward", strict: true, from: models.StatusInProgress, to: "completed"},
		{name: "strict same", strict: true, from: models.StatusInProgress, to: "in_progress"},
		{name: "strict backward", strict: true, from: models.StatusCompleted, to: "in_progress", wantErr: apperror.ErrStatusTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeOrders(map[int64]models.OrderStatus{7: tt.from})
			events := &recordingPublisher{}
			svc := newTestService(store, events, tt.strict)

			change, err := svc.AdvanceStatus(context.Background(), 7, tt.to)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, apperror.Conflict, apperror.KindOf(err))
				assert.Equal(t, tt.from, store.status(7))
				assert.Empty(t, events.keys)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, models.StatusChange{OrderID: 7, OldStatus: tt.from, Status: models.OrderStatus(tt.to)}, change)
			assert.Equal(t, models.OrderStatus(tt.to), store.status(7))

			require.Len(t, events.events, 1)
			assert.Equal(t, []string{models.RoutingOrderStatusChanged}, events.keys)
			msg := events.events[0].(*models.StatusChangedMessage)
			assert.Equal(t, tt.from, msg.OldStatus)
			assert.Equal(t, models.OrderStatus(tt.to), msg.NewStatus)
		})
	}
}

func TestAdvanceStatusInvalidValueSkipsStorage(t *testing.T) {
	for _, raw := range []string{"", "done", "RECEIVED", "cancelled"} {
		t.Run(raw, func(t *testing.T) {
			store := newFakeOrders(map[int64]models.OrderStatus{7: models.StatusReceived})
			svc := newTestService(store, nil, false)

			_, err := svc.AdvanceStatus(context.Background(), 7, raw)
			assert.ErrorIs(t, err, apperror.ErrInvalidStatus)
			assert.Equal(t, apperror.Validation, apperror.KindOf(err))
			assert.Zero(t, store.txCount)
		})
	}
}

func TestAdvanceStatusUnknownOrder(t *testing.T) {
	store := newFakeOrders(map[int64]models.OrderStatus{})
	_, err := newTestService(store, nil, false).AdvanceStatus(context.Background(), 99, "completed")
	assert.ErrorIs(t, err, apperror.ErrOrderNotFound)
}

func TestAdvanceStatusStorageFailure(t *testing.T) {
	store := newFakeOrders(map[int64]models.OrderStatus{7: models.StatusReceived})
	store.failTx = errors.New("connection refused")

	_, err := newTestService(store, nil, false).AdvanceStatus(context.Background(), 7, "completed")
	require.Error(t, err)
	assert.Equal(t, apperror.Storage, apperror.KindOf(err))
}

func TestAdvanceStatusPublishFailureKeepsChange(t *testing.T) {
	store := newFakeOrders(map[int64]models.OrderStatus{7: models.StatusReceived})
	events := &recordingPublisher{err: errors.New("channel closed")}

	_, err := newTestService(store, events, false).AdvanceStatus(context.Background(), 7, "in_progress")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, store.status(7))
}
