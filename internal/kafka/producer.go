package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-order-events/internal/config"
	"github.com/ariefcatur/go-order-events/internal/metrics"
	"github.com/ariefcatur/go-order-events/internal/orders"
	"github.com/ariefcatur/go-order-events/internal/retry"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/zap"
)

// recordProducer abstracts kgo.Client for testability.
type recordProducer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Publisher writes order events synchronously: a publish returns only after the
// broker acknowledged the record on all in-sync replicas, or after the retry
// policy gave up.
type Publisher struct {
	client  recordProducer
	topics  orders.Topics
	policy  retry.Policy
	metrics *metrics.Registry
	log     *zap.Logger

	// attemptTimeout bounds a single ProduceSync; 0 leaves it to the caller's ctx.
	attemptTimeout time.Duration
}

func NewPublisher(cfg config.KafkaConfig, policy retry.Policy, log *zap.Logger, m *metrics.Registry) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		// idempotent writes are on by default in kgo and require all-ISR acks
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RecordDeliveryTimeout(cfg.DeliveryTimeout),
		kgo.ProducerLinger(0),
	)
	if err != nil {
		return nil, err
	}
	return newPublisher(client, cfg.Topics(), policy, cfg.DeliveryTimeout, log, m), nil
}

// newPublisher wires a Publisher around client. log and m may be nil.
func newPublisher(client recordProducer, topics orders.Topics, policy retry.Policy, attemptTimeout time.Duration, log *zap.Logger, m *metrics.Registry) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	if m == nil {
		m = metrics.NewRegistry("kafka_publisher")
	}
	p := &Publisher{
		client:         client,
		topics:         topics,
		metrics:        m,
		log:            log.With(zap.String("component", "kafka_publisher")),
		attemptTimeout: attemptTimeout,
	}

	policy.Retryable = isRetryableProduceErr
	policy.OnRetry = func(attempt int, wait time.Duration, err error) {
		p.metrics.PublishRetries.Inc()
		p.log.Warn("failed to produce message, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	}
	p.policy = policy
	return p
}

// isRetryableProduceErr treats everything but a closed client as transient. A
// cancelled publish ctx is handled by retry.Do itself; an attempt that ran into
// its own deadline is retried.
func isRetryableProduceErr(err error) bool {
	return !errors.Is(err, kgo.ErrClientClosed)
}

func (p *Publisher) PublishCreated(ctx context.Context, o orders.Order) bool {
	p.log.Info("producing order created event", zap.String("order_id", o.OrderID))
	return p.Publish(ctx, p.topics.Created, o)
}

func (p *Publisher) PublishUpdated(ctx context.Context, o orders.Order) bool {
	p.log.Info("producing order updated event", zap.String("order_id", o.OrderID))
	return p.Publish(ctx, p.topics.Updated, o)
}

// Publish sends o to topic keyed by its id. It never panics; false means the
// event is not guaranteed to be in the log.
func (p *Publisher) Publish(ctx context.Context, topic string, o orders.Order) bool {
	log := p.log.With(zap.String("topic", topic), zap.String("order_id", o.OrderID))

	payload, err := orders.Marshal(o)
	if err != nil {
		log.Error("failed to encode order", zap.Error(err))
		p.metrics.PublishFailed.WithLabelValues(topic).Inc()
		return false
	}
	eventType := p.topics.EventTypeFor(topic)

	start := time.Now()
	var delivered *kgo.Record
	err = retry.Do(ctx, p.policy, func(ctx context.Context) error {
		if p.attemptTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, p.attemptTimeout)
			defer cancel()
		}
		r, err := p.client.ProduceSync(ctx, newRecord(topic, eventType, payload, o.OrderID)).First()
		if err != nil {
			return err
		}
		delivered = r
		return nil
	})
	if err != nil {
		log.Error("failed to deliver message after retries", zap.Error(err))
		p.metrics.PublishFailed.WithLabelValues(topic).Inc()
		return false
	}

	p.metrics.Published.WithLabelValues(topic).Inc()
	p.metrics.PublishLatencySec.Observe(time.Since(start).Seconds())
	log.Info("delivered message",
		zap.Int32("partition", delivered.Partition),
		zap.Int64("offset", delivered.Offset),
	)
	return true
}

func (p *Publisher) Close() {
	p.log.Info("closing kafka publisher")
	p.client.Close()
}
