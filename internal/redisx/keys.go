package redisx

import (
	"fmt"
	"time"
)

// Cache status order: order_status:{order_id} -> {"status": "...", "updated_at": "..."}
const keyOrderStatus = "order_status:%s"

var TTLStatusCache = 5 * time.Minute

func OrderStatusKey(orderID string) string { return fmt.Sprintf(keyOrderStatus, orderID) }
