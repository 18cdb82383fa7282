package order

import (
	"context"
	"errors"
	"sort"
	"sync"

	"cafe-orders/internal/apperror"
	"cafe-orders/internal/database"
	"cafe-orders/internal/idempotency"
	"cafe-orders/internal/logger"
	"cafe-orders/internal/models"
)

type storedOrder struct {
	ID     int64
	Total  int64
	Status models.OrderStatus
}

// fakeStore is an in-memory catalog, ledger and order writer. mu is held for
// the whole of WithTx, which serialises transactions the way row locks do
// for orders touching the same items.
type fakeStore struct {
	mu          sync.Mutex
	items       map[int64]models.MenuItem
	options     map[int64]models.Option
	orders      []storedOrder
	lines       []models.OrderLine
	lineOptions map[int64][]int64
	keys        map[string]idempotency.Record
	nextID      int64
	txCount     int

	failLineInsert bool
}

type snapshot struct {
	items       map[int64]models.MenuItem
	orders      int
	lines       int
	lineOptions map[int64][]int64
	keys        map[string]idempotency.Record
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		items:       make(map[int64]models.MenuItem),
		options:     make(map[int64]models.Option),
		lineOptions: make(map[int64][]int64),
		keys:        make(map[string]idempotency.Record),
		nextID:      1000,
	}
}

func (s *fakeStore) addItem(id int64, name string, price int64, stock int) {
	s.items[id] = models.MenuItem{ID: id, Name: name, Price: price, Stock: stock}
}

func (s *fakeStore) addOption(id, menuItemID int64, name string, price int64) {
	s.options[id] = models.Option{ID: id, MenuItemID: menuItemID, Name: name, Price: price}
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(q database.Querier) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.txCount++
	snap := s.snapshot()
	if err := fn(nil); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *fakeStore) snapshot() snapshot {
	items := make(map[int64]models.MenuItem, len(s.items))
	for k, v := range s.items {
		items[k] = v
	}
	lineOptions := make(map[int64][]int64, len(s.lineOptions))
	for k, v := range s.lineOptions {
		lineOptions[k] = append([]int64(nil), v...)
	}
	keys := make(map[string]idempotency.Record, len(s.keys))
	for k, v := range s.keys {
		keys[k] = v
	}
	return snapshot{items: items, orders: len(s.orders), lines: len(s.lines), lineOptions: lineOptions, keys: keys}
}

func (s *fakeStore) restore(snap snapshot) {
	s.items = snap.items
	s.orders = s.orders[:snap.orders]
	s.lines = s.lines[:snap.lines]
	s.lineOptions = snap.lineOptions
	s.keys = snap.keys
}

func (s *fakeStore) LockMenuItems(ctx context.Context, q database.Querier, ids []int64) (map[int64]models.MenuItem, error) {
	out := make(map[int64]models.MenuItem, len(ids))
	for _, id := range ids {
		if item, ok := s.items[id]; ok {
			out[id] = item
		}
	}
	return out, nil
}

func (s *fakeStore) OptionsForItem(ctx context.Context, q database.Querier, menuItemID int64, optionIDs []int64) ([]models.Option, error) {
	var out []models.Option
	for _, id := range optionIDs {
		if opt, ok := s.options[id]; ok && opt.MenuItemID == menuItemID {
			out = append(out, opt)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeStore) Reserve(ctx context.Context, q database.Querier, menuItemID int64, qty int) error {
	item := s.items[menuItemID]
	if item.Stock < qty {
		return apperror.ErrInsufficientStock
	}
	item.Stock -= qty
	s.items[menuItemID] = item
	return nil
}

func (s *fakeStore) InsertOrder(ctx context.Context, q database.Querier, total int64, status models.OrderStatus) (int64, error) {
	s.nextID++
	s.orders = append(s.orders, storedOrder{ID: s.nextID, Total: total, Status: status})
	return s.nextID, nil
}

func (s *fakeStore) InsertLine(ctx context.Context, q database.Querier, line models.OrderLine) (int64, error) {
	if s.failLineInsert {
		return 0, errors.New("connection reset by peer")
	}
	s.nextID++
	line.ID = s.nextID
	s.lines = append(s.lines, line)
	return line.ID, nil
}

func (s *fakeStore) InsertLineOptions(ctx context.Context, q database.Querier, lineID int64, optionIDs []int64) error {
	for _, existing := range s.lineOptions[lineID] {
		for _, id := range optionIDs {
			if existing == id {
				return errors.New("duplicate order line option")
			}
		}
	}
	s.lineOptions[lineID] = append(s.lineOptions[lineID], optionIDs...)
	return nil
}

func (s *fakeStore) Insert(ctx context.Context, q database.Querier, key string, rec idempotency.Record) error {
	if _, ok := s.keys[key]; ok {
		return idempotency.ErrDuplicate
	}
	s.keys[key] = rec
	return nil
}

func (s *fakeStore) stock(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id].Stock
}

func (s *fakeStore) counts() (orders, lines int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders), len(s.lines)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []any
	keys   []string
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

func newTestCoordinator(store *fakeStore, events EventPublisher) *Coordinator {
	return NewCoordinator(Deps{
		Tx:      store,
		Catalog: store,
		Stock:   store,
		Orders:  store,
		Keys:    store,
		Events:  events,
		Limits:  models.Limits{MaxLines: 50, MaxQuantity: 100},
		Logger:  logger.Discard(),
	})
}
