package orders

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const DefaultCurrency = "USD"

// NewRandomOrder builds an order with itemsNum generated line items: quantity in
// [1,4], unit price in [10,99]. rnd may be nil.
func NewRandomOrder(orderID string, itemsNum int, rnd *rand.Rand, now time.Time) Order {
	intN := rand.IntN
	if rnd != nil {
		intN = rnd.IntN
	}

	items := make([]OrderItem, 0, itemsNum)
	total := decimal.Zero
	for i := 1; i <= itemsNum; i++ {
		it := OrderItem{
			ProductID: fmt.Sprintf("Product%d", i),
			Quantity:  1 + intN(4),
			Price:     decimal.NewFromInt(int64(10 + intN(90))),
		}
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		items = append(items, it)
	}

	return Order{
		OrderID:     orderID,
		CustomerID:  uuid.NewString(),
		OrderDate:   now.UTC().Format(time.RFC3339),
		Items:       items,
		TotalAmount: total,
		Currency:    DefaultCurrency,
		Status:      StatusNew,
	}
}
