package cart

import (
	"sync"

	"github.com/ariefcatur/go-order-events/internal/orders"
	"go.uber.org/zap"
)

// Store is the producer-side order store. Orders are kept for the lifetime of
// the process and never removed.
type Store struct {
	mu     sync.RWMutex
	orders map[string]*orders.Order
	log    *zap.Logger
}

func NewStore(log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		orders: make(map[string]*orders.Order),
		log:    log.With(zap.String("component", "cart_store")),
	}
}

// AddOrder inserts o unless an order with the same id exists. Exactly one of
// several concurrent callers with the same id gets true.
func (s *Store) AddOrder(o orders.Order) bool {
	s.mu.Lock()
	if _, ok := s.orders[o.OrderID]; ok {
		s.mu.Unlock()
		s.log.Warn("order already exists", zap.String("order_id", o.OrderID))
		return false
	}
	c := o.Clone()
	s.orders[o.OrderID] = &c
	s.mu.Unlock()

	s.log.Info("order added", zap.String("order_id", o.OrderID))
	return true
}

// GetOrder looks id up without any normalization.
func (s *Store) GetOrder(id string) (orders.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return orders.Order{}, false
	}
	return o.Clone(), true
}

// UpdateOrder sets the status of an existing order.
func (s *Store) UpdateOrder(id, status string) bool {
	s.mu.Lock()
	o, ok := s.orders[id]
	if ok {
		o.Status = status
	}
	s.mu.Unlock()

	if !ok {
		s.log.Warn("order not found for update", zap.String("order_id", id))
		return false
	}
	s.log.Info("order status updated", zap.String("order_id", id), zap.String("status", status))
	return true
}

// ChangeStatus sets the status of id unless it already has it. The check and
// the write happen under one lock, so of several concurrent callers asking for
// the same status only one gets the updated order back.
func (s *Store) ChangeStatus(id, status string) (orders.Order, error) {
	s.mu.Lock()
	o, ok := s.orders[id]
	if !ok {
		s.mu.Unlock()
		return orders.Order{}, ErrNotFound
	}
	if o.Status == status {
		cur := o.Clone()
		s.mu.Unlock()
		return cur, ErrStatusUnchanged
	}
	o.Status = status
	updated := o.Clone()
	s.mu.Unlock()

	s.log.Info("order status updated", zap.String("order_id", id), zap.String("status", status))
	return updated, nil
}

// Len returns the number of stored orders.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orders)
}
