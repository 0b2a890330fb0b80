package redisx

import "time"

const (
	// Catalog snapshot cache: catalog:snapshot:{product_id} -> JSON snapshot
	KeyCatalogSnapshot = "catalog:snapshot:%s"

	// Checkout idempotency: idem:checkout:{idempotency_key} -> order_id
	KeyIdemCheckout = "idem:checkout:%s"

	// Cache status order: order_status:{order_id} -> {"status": "...", "updated_at": "..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

// IdemPending marks a checkout claimed but not finished yet.
const IdemPending = "pending"

var (
	TTLCatalogSnapshot = 5 * time.Minute
	TTLIdempotency     = 24 * time.Hour
	TTLIdemPending     = time.Minute
	TTLStatusCache     = 5 * time.Minute
	TTLDedup           = 48 * time.Hour
)
