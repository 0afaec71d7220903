package cart

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/ariefcatur/go-order-events/internal/orders"
	"go.uber.org/zap"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrAlreadyExists   = errors.New("order already exists")
	ErrNotFound        = errors.New("order not found")
	ErrStatusUnchanged = errors.New("order status is the same as entered")
	ErrPublishFailed   = errors.New("failed to publish order event")
)

// Publisher publishes order events. A false return means the event is not
// guaranteed to have reached the broker.
type Publisher interface {
	PublishCreated(ctx context.Context, o orders.Order) bool
	PublishUpdated(ctx context.Context, o orders.Order) bool
}

// Service implements the create/update/get contract of the cart API on top of
// the store and the publisher.
type Service struct {
	store *Store
	pub   Publisher
	log   *zap.Logger

	// publishTimeout bounds one publish including all its retries. 0 means no
	// bound beyond the publisher's own policy.
	publishTimeout time.Duration

	now func() time.Time
	rnd *rand.Rand
}

type Option func(*Service)

// WithPublishTimeout sets the budget of a single publish, retries included.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *Service) { s.publishTimeout = d }
}

func NewService(store *Store, pub Publisher, log *zap.Logger, opts ...Option) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Service{
		store: store,
		pub:   pub,
		log:   log.With(zap.String("component", "cart_service")),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// publishContext detaches the publish from the caller: once the order is in
// the store its event goes through the whole retry policy even if the client
// hangs up or the request deadline passes.
func (s *Service) publishContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if s.publishTimeout > 0 {
		return context.WithTimeout(ctx, s.publishTimeout)
	}
	return context.WithCancel(ctx)
}

// CreateOrder generates an order with itemsNum random items, stores it and
// publishes the creation event. An existing id yields ErrAlreadyExists and the
// stored order is left untouched.
func (s *Service) CreateOrder(ctx context.Context, orderID string, itemsNum int) (orders.Order, error) {
	const op = "cart.Service.CreateOrder"
	log := s.log.With(zap.String("op", op), zap.String("order_id", orderID))

	if orderID == "" || itemsNum <= 0 {
		return orders.Order{}, fmt.Errorf("%s: order id must not be empty and items must be positive: %w", op, ErrInvalidInput)
	}

	o := orders.NewRandomOrder(orderID, itemsNum, s.rnd, s.now())
	if !s.store.AddOrder(o) {
		existing, _ := s.store.GetOrder(orderID)
		return existing, fmt.Errorf("%s: %w", op, ErrAlreadyExists)
	}

	pubCtx, cancel := s.publishContext(ctx)
	defer cancel()
	if !s.pub.PublishCreated(pubCtx, o) {
		log.Error("failed to publish order created event")
		return o, fmt.Errorf("%s: %w", op, ErrPublishFailed)
	}

	log.Info("order created", zap.String("total", o.TotalAmount.String()), zap.Int("items", len(o.Items)))
	return o, nil
}

// UpdateOrder changes the status of an existing order and publishes the update
// event. Setting the current status again is rejected with ErrStatusUnchanged.
func (s *Service) UpdateOrder(ctx context.Context, orderID, status string) (orders.Order, error) {
	const op = "cart.Service.UpdateOrder"
	log := s.log.With(zap.String("op", op), zap.String("order_id", orderID))

	if orderID == "" || status == "" {
		return orders.Order{}, fmt.Errorf("%s: order id and status must not be empty: %w", op, ErrInvalidInput)
	}

	updated, err := s.store.ChangeStatus(orderID, status)
	if errors.Is(err, ErrStatusUnchanged) {
		log.Warn("order has the same status", zap.String("status", status))
		return updated, fmt.Errorf("%s: %w", op, err)
	}
	if err != nil {
		return orders.Order{}, fmt.Errorf("%s: %w", op, err)
	}

	pubCtx, cancel := s.publishContext(ctx)
	defer cancel()
	if !s.pub.PublishUpdated(pubCtx, updated) {
		log.Error("failed to publish order updated event")
		return updated, fmt.Errorf("%s: %w", op, ErrPublishFailed)
	}

	log.Info("order updated", zap.String("status", status))
	return updated, nil
}

func (s *Service) GetOrder(_ context.Context, orderID string) (orders.Order, error) {
	o, ok := s.store.GetOrder(orderID)
	if !ok {
		return orders.Order{}, fmt.Errorf("cart.Service.GetOrder: %w", ErrNotFound)
	}
	return o, nil
}
