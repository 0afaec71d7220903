package orders

const (
	DefaultTopicOrderCreated = "order-created-topic"
	DefaultTopicOrderUpdated = "order-updated-topic"
)

// View is the logical classification of an order derived from its status.
type View int

const (
	ViewUnknown View = iota
	ViewCreated
	ViewUpdated
)

func (v View) String() string {
	switch v {
	case ViewCreated:
		return "created"
	case ViewUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// Topics names the two topics the pipeline runs on.
type Topics struct {
	Created string
	Updated string
}

func DefaultTopics() Topics {
	return Topics{Created: DefaultTopicOrderCreated, Updated: DefaultTopicOrderUpdated}
}

// ViewOf maps a topic name to its logical view. Unknown names map to ViewUnknown.
func (t Topics) ViewOf(topic string) View {
	switch topic {
	case t.Created:
		return ViewCreated
	case t.Updated:
		return ViewUpdated
	default:
		return ViewUnknown
	}
}

// All returns the topics in subscription order.
func (t Topics) All() []string { return []string{t.Created, t.Updated} }

// Partition key = order_id, supaya semua event 1 order maintain urutan.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
