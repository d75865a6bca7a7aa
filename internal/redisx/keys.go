package redisx

import "time"

const (
	// Session lookup: session:{token} -> user_id
	KeySession = "session:%s"

	// Cache order status: order_status:{user_id}:{order_id} -> {"status": "..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{id} (id = provider event id)
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
