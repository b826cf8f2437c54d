package redisx

import (
	"fmt"
	"time"
)

const (
	// Catalog read-through: {kind}_{category_id}_{status} -> JSON list
	KeyCatalog = "%s_%d_%d"

	// Cache status order: order_status:{order_id} -> {"status": ..., "updated_at": ...}
	KeyOrderStatus = "order_status:%d"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLCatalog     = 15 * time.Minute
	TTLStatusCache = 30 * time.Minute
	TTLDedup       = 48 * time.Hour
)

func CatalogKey(kind string, categoryID int64, status int) string {
	return fmt.Sprintf(KeyCatalog, kind, categoryID, status)
}

func OrderStatusKey(orderID int64) string { return fmt.Sprintf(KeyOrderStatus, orderID) }

func DedupKey(service, id string) string { return fmt.Sprintf(KeyDedup, service, id) }
