package orders

import "github.com/shopspring/decimal"

func init() {
	// Wire payloads carry money as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Order is the record both services exchange over the broker. Field names are
// part of the wire format.
type Order struct {
	OrderID     string          `json:"OrderId"`
	CustomerID  string          `json:"CustomerId"`
	OrderDate   string          `json:"OrderDate"`
	Items       []OrderItem     `json:"Items"`
	TotalAmount decimal.Decimal `json:"TotalAmount"`
	Currency    string          `json:"Currency"`
	Status      string          `json:"Status"` // lihat status.go
}

type OrderItem struct {
	ProductID string          `json:"ProductId"`
	Quantity  int             `json:"Quantity"`
	Price     decimal.Decimal `json:"Price"`
}

// Clone returns a copy that shares no slice memory with o.
func (o Order) Clone() Order {
	if o.Items != nil {
		items := make([]OrderItem, len(o.Items))
		copy(items, o.Items)
		o.Items = items
	}
	return o
}
