package orders

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMissingOrderID = errors.New("order id is empty")

// Marshal encodes o into the canonical wire payload.
func Marshal(o Order) ([]byte, error) {
	b, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("encode order %s: %w", o.OrderID, err)
	}
	return b, nil
}

// Unmarshal decodes a wire payload. Payloads without an order id are rejected
// since they cannot be keyed in any store.
func Unmarshal(b []byte) (Order, error) {
	var o Order
	if err := json.Unmarshal(b, &o); err != nil {
		return Order{}, fmt.Errorf("decode order: %w", err)
	}
	if o.OrderID == "" {
		return Order{}, ErrMissingOrderID
	}
	return o, nil
}
