package tracking

import (
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/ariefcatur/go-order-events/internal/orders"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ShippingRate is the share of the order total charged for shipping.
var ShippingRate = decimal.RequireFromString("0.02")

// Order is the consumer-side projection of an order. ShippingCost is derived
// here and never travels on the wire.
type Order struct {
	orders.Order
	ShippingCost decimal.Decimal `json:"ShippingCost"`
}

// Store is the consumer-side order store. Writes overwrite (last writer wins);
// the consumer is its only writer.
type Store struct {
	orders sync.Map // order id -> Order
	topics orders.Topics
	log    *zap.Logger
}

func NewStore(topics orders.Topics, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		topics: topics,
		log:    log.With(zap.String("component", "tracking_store")),
	}
}

// AddOrUpdate derives the shipping cost and stores o under its id, replacing
// any previous version. Applying the same order twice leaves the same state.
func (s *Store) AddOrUpdate(o orders.Order) Order {
	rec := Order{
		Order:        o.Clone(),
		ShippingCost: ShippingRate.Mul(o.TotalAmount),
	}
	s.orders.Store(o.OrderID, rec)

	if orders.IsNew(o.Status) {
		s.log.Info("order stored (created)", zap.String("order_id", o.OrderID))
	} else {
		s.log.Info("order stored (updated)", zap.String("order_id", o.OrderID), zap.String("status", o.Status))
	}
	return rec
}

// FetchOrderDetails strips every whitespace character from id before the
// lookup. An id that is empty after cleaning is reported as absent.
func (s *Store) FetchOrderDetails(id string) (Order, bool) {
	cleaned := removeSpaces(id)
	if cleaned == "" {
		s.log.Warn("order details requested with an empty order id")
		return Order{}, false
	}

	v, ok := s.orders.Load(cleaned)
	if !ok {
		s.log.Debug("order not found", zap.String("order_id", cleaned))
		return Order{}, false
	}
	rec := v.(Order)
	rec.Order = rec.Order.Clone()
	return rec, true
}

// GetAllOrderIdentifiers returns the orders in the logical view named by
// topicName: the created topic lists orders with status "new", the updated
// topic lists every other order. Unknown topics yield an empty slice. Results
// are ordered by id.
func (s *Store) GetAllOrderIdentifiers(topicName string) []Order {
	view := s.topics.ViewOf(topicName)
	if view == orders.ViewUnknown {
		s.log.Warn("unknown topic for order view", zap.String("topic", topicName))
		return []Order{}
	}

	var ids []string
	s.orders.Range(func(k, v any) bool {
		rec := v.(Order)
		if (view == orders.ViewCreated) == orders.IsNew(rec.Status) {
			ids = append(ids, k.(string))
		}
		return true
	})
	sort.Strings(ids)

	out := make([]Order, 0, len(ids))
	for _, id := range ids {
		rec, ok := s.FetchOrderDetails(id)
		if !ok {
			s.log.Warn("order vanished while listing view", zap.String("order_id", id))
			continue
		}
		out = append(out, rec)
	}

	s.log.Debug("listed order view", zap.String("view", view.String()), zap.Int("count", len(out)))
	return out
}

func removeSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
