package kafka

import (
	"github.com/ariefcatur/go-order-events/internal/orders"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/twmb/franz-go/pkg/kgo"
)

// newRecord encodes o as a keyed record for topic. A fresh record is built for
// every produce attempt; kgo mutates records it has sent.
func newRecord(topic, eventType string, payload []byte, orderID string) *kgo.Record {
	return &kgo.Record{
		Topic: topic,
		Key:   orders.PartitionKey(orderID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: orders.HeaderEventType, Value: []byte(eventType)},
			{Key: orders.HeaderEventVersion, Value: []byte(orders.EventVersion)},
		},
	}
}

// header returns the value of the first header named key, or "".
func header(m kafkago.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
