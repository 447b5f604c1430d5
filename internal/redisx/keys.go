package redisx

import "time"

const (
	// Cache of order status: order_status:{order_id} -> {"status":"...","payment_status":"..."}
	KeyOrderStatus = "order_status:%d"

	// Dedup of processed events: dedup:{service}:{id} (id = event_id or webhook notification key)
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
