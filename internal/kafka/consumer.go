package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/ariefcatur/go-order-events/internal/config"
	"github.com/ariefcatur/go-order-events/internal/metrics"
	"github.com/ariefcatur/go-order-events/internal/orders"
	"github.com/ariefcatur/go-order-events/internal/retry"
	"github.com/ariefcatur/go-order-events/internal/tracking"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// State is the lifecycle position of a Consumer.
type State int32

const (
	StateIdle State = iota
	StateSubscribed
	StatePolling
	StateProcessing
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubscribed:
		return "subscribed"
	case StatePolling:
		return "polling"
	case StateProcessing:
		return "processing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// messageReader abstracts kafka.Reader for testability.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// OrderApplier receives decoded orders. It is the consumer-side store.
type OrderApplier interface {
	AddOrUpdate(o orders.Order) tracking.Order
}

// Consumer applies order events from the created and updated topics to a store,
// one record at a time. Offsets are committed only after the record was
// applied, so delivery is at-least-once.
type Consumer struct {
	r       messageReader
	store   OrderApplier
	topics  orders.Topics
	policy  retry.Policy
	metrics *metrics.Registry
	log     *zap.Logger
	state   atomic.Int32
}

func NewConsumer(cfg config.KafkaConfig, policy retry.Policy, store OrderApplier, log *zap.Logger, m *metrics.Registry) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	sugar := log.Sugar()
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:          cfg.Brokers,
		GroupID:          cfg.ConsumerGroup,
		GroupTopics:      cfg.Topics().All(),
		StartOffset:      kafkago.FirstOffset,
		MinBytes:         1,
		MaxBytes:         10e6,
		CommitInterval:   0, // manual commit
		SessionTimeout:   10 * time.Second,
		RebalanceTimeout: 300 * time.Second,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			sugar.Errorf(msg, args...)
		}),
	})
	return newConsumer(r, cfg.Topics(), policy, store, log, m)
}

// newConsumer wires a Consumer around r. log and m may be nil.
func newConsumer(r messageReader, topics orders.Topics, policy retry.Policy, store OrderApplier, log *zap.Logger, m *metrics.Registry) *Consumer {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewRegistry("kafka_consumer")
	}
	c := &Consumer{
		r:       r,
		store:   store,
		topics:  topics,
		metrics: m,
		log:     log.With(zap.String("component", "kafka_consumer")),
	}

	policy.Retryable = func(err error) bool { return !errors.Is(err, io.EOF) }
	policy.OnRetry = func(attempt int, wait time.Duration, err error) {
		c.metrics.ConsumeRetries.Inc()
		c.log.Warn("consume attempt failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}
	c.policy = policy
	return c
}

func (c *Consumer) State() State { return State(c.state.Load()) }

func (c *Consumer) setState(s State) { c.state.Store(int32(s)) }

// Run consumes until ctx is cancelled or the reader is closed, then leaves the
// group and releases the connection. Failures inside a poll/apply/commit unit
// never stop the loop.
func (c *Consumer) Run(ctx context.Context) error {
	c.setState(StateSubscribed)
	c.log.Info("consumer started and subscribed to topics", zap.Strings("topics", c.topics.All()))

	for ctx.Err() == nil {
		err := retry.Do(ctx, c.policy, c.consumeOne)
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		if errors.Is(err, io.EOF) {
			c.log.Info("kafka reader closed")
			break
		}
		c.metrics.ConsumeFailures.Inc()
		c.log.Error("error processing message", zap.Error(err))
	}

	c.log.Info("consumer stopping")
	c.setState(StateStopped)
	if err := c.r.Close(); err != nil {
		return fmt.Errorf("close reader: %w", err)
	}
	return nil
}

// consumeOne is the unit of work: fetch one record, apply it, commit it.
func (c *Consumer) consumeOne(ctx context.Context) error {
	c.setState(StatePolling)
	msg, err := c.r.FetchMessage(ctx)
	if err != nil {
		return fmt.Errorf("fetch message: %w", err)
	}

	c.setState(StateProcessing)
	log := c.log.With(
		zap.String("topic", msg.Topic),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
	)
	log.Info("consumed message", zap.String("event_type", header(msg, orders.HeaderEventType)))

	c.apply(log, msg)

	if err := c.r.CommitMessages(ctx, msg); err != nil {
		return fmt.Errorf("commit offset %s/%d/%d: %w", msg.Topic, msg.Partition, msg.Offset, err)
	}
	c.metrics.Committed.Inc()
	log.Debug("processed and committed offset")
	return nil
}

// apply decodes and stores one record. Records that cannot be decoded are
// logged and skipped; their offset is still committed.
func (c *Consumer) apply(log *zap.Logger, msg kafkago.Message) {
	o, err := orders.Unmarshal(msg.Value)
	if err != nil {
		log.Error("skipping malformed record", zap.Error(err), zap.ByteString("key", msg.Key))
		c.metrics.Skipped.WithLabelValues(msg.Topic).Inc()
		return
	}

	switch c.topics.ViewOf(msg.Topic) {
	case orders.ViewCreated:
		o.Status = orders.StatusNew
		log.Info("processing new order", zap.String("order_id", o.OrderID))
	case orders.ViewUpdated:
		log.Info("processing updated order", zap.String("order_id", o.OrderID), zap.String("status", o.Status))
	default:
		log.Warn("record from unexpected topic", zap.String("order_id", o.OrderID))
	}

	c.store.AddOrUpdate(o)
	c.metrics.Applied.WithLabelValues(msg.Topic).Inc()
}
