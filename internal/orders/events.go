package orders

const (
	EventOrderCreated = "OrderCreated"
	EventOrderUpdated = "OrderUpdated"

	// EventVersion is informational only; consumers do not branch on it.
	EventVersion = "1"

	HeaderEventType    = "x-event-type"
	HeaderEventVersion = "x-event-version"
)

// EventTypeFor returns the event type published on topic, or "" for topics
// outside the pipeline.
func (t Topics) EventTypeFor(topic string) string {
	switch t.ViewOf(topic) {
	case ViewCreated:
		return EventOrderCreated
	case ViewUpdated:
		return EventOrderUpdated
	default:
		return ""
	}
}
