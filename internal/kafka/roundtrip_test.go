package kafka

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-order-events/internal/cart"
	"github.com/ariefcatur/go-order-events/internal/metrics"
	"github.com/ariefcatur/go-order-events/internal/orders"
	"github.com/ariefcatur/go-order-events/internal/retry"
	"github.com/ariefcatur/go-order-events/internal/tracking"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
)

// memBroker is a single-partition in-memory log shared by a publisher and a
// consumer.
type memBroker struct {
	mu     sync.Mutex
	offset int64
	log    chan kafkago.Message
}

func newMemBroker() *memBroker { return &memBroker{log: make(chan kafkago.Message, 64)} }

func (b *memBroker) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		r.Offset = b.offset
		b.offset++
		msg := kafkago.Message{Topic: r.Topic, Offset: r.Offset, Key: r.Key, Value: r.Value}
		for _, h := range r.Headers {
			msg.Headers = append(msg.Headers, kafkago.Header{Key: h.Key, Value: h.Value})
		}
		b.log <- msg
		out = append(out, kgo.ProduceResult{Record: r})
	}
	return out
}

func (b *memBroker) FetchMessage(ctx context.Context) (kafkago.Message, error) {
	select {
	case m := <-b.log:
		return m, nil
	case <-ctx.Done():
		return kafkago.Message{}, ctx.Err()
	}
}

func (b *memBroker) CommitMessages(context.Context, ...kafkago.Message) error { return nil }
func (b *memBroker) Close() error                                          { return nil }

// memProducer is the producer-side handle on a memBroker; kgo's Close has no
// error result.
type memProducer struct{ *memBroker }

func (memProducer) Close() {}

func ids(os []tracking.Order) []string {
	out := make([]string, 0, len(os))
	for _, o := range os {
		out = append(out, o.OrderID)
	}
	return out
}

func TestRoundTrip_CreateThenUpdate(t *testing.T) {
	topics := orders.DefaultTopics()
	broker := newMemBroker()
	policy := retry.Exponential(3, time.Millisecond)

	pub := newPublisher(memProducer{broker}, topics, policy, 0, nil, metrics.NewRegistry("cart"))
	svc := cart.NewService(cart.NewStore(nil), pub, nil)

	store := tracking.NewStore(topics, nil)
	cons := newConsumer(broker, topics, policy, store, nil, metrics.NewRegistry("orders"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cons.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	created, err := svc.CreateOrder(ctx, "rt-1", 3)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(store.GetAllOrderIdentifiers(topics.Created)) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, store.GetAllOrderIdentifiers(topics.Updated))

	_, err = svc.UpdateOrder(ctx, "rt-1", "shipped")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(store.GetAllOrderIdentifiers(topics.Updated)) == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, store.GetAllOrderIdentifiers(topics.Created))
	assert.Equal(t, []string{"rt-1"}, ids(store.GetAllOrderIdentifiers(topics.Updated)))

	got, ok := store.FetchOrderDetails("rt-1")
	require.True(t, ok)
	assert.Equal(t, "shipped", got.Status)
	require.Len(t, got.Items, len(created.Items))
	for i, it := range created.Items {
		assert.Equal(t, it.ProductID, got.Items[i].ProductID)
		assert.Equal(t, it.Quantity, got.Items[i].Quantity)
		assert.True(t, it.Price.Equal(got.Items[i].Price))
	}
	assert.True(t, created.TotalAmount.Equal(got.TotalAmount))
	assert.True(t, created.TotalAmount.Mul(tracking.ShippingRate).Equal(got.ShippingCost))
}
