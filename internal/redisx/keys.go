package redisx

import "time"

const (
	// Persisted identity: {ns}:user -> {"fullName": "...", "role": "..."}
	KeyUser = "user"

	// Persisted identity: {ns}:userId -> decimal user id
	KeyUserID = "userId"

	// Last status seen by orderwatch: order_status:{order_id} -> {"status_id": 3, "status_name": "...", "updated_at": "..."}
	KeyOrderStatus = "order_status:%d"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	// TTLSession of zero keeps the identity until logout.
	TTLSession     time.Duration = 0
	TTLOrderStatus               = 24 * time.Hour
	TTLDedup                     = 48 * time.Hour
)

// Key prefixes name with the namespace, when there is one.
func Key(ns, name string) string {
	if ns == "" {
		return name
	}
	return ns + ":" + name
}
