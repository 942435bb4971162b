package events

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	EventCartResolved            = "CartResolved"
	EventCartItemAdded           = "CartItemAdded"
	EventCartItemQuantityUpdated = "CartItemQuantityUpdated"
	EventCartItemRemoved         = "CartItemRemoved"
	EventCartCleared             = "CartCleared"
	EventOrderStatusChanged      = "OrderStatusChanged"
)

const (
	TopicCart   = "storefront.cart"
	TopicOrders = "storefront.orders"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // cart id or order id
	Payload       json.RawMessage `json:"payload"`
}

// Topic routes an event type to its topic.
func (e Envelope) Topic() string {
	if e.EventType == EventOrderStatusChanged {
		return TopicOrders
	}
	return TopicCart
}

// New wraps payload in a v1 envelope. A payload that cannot be encoded is
// carried as null rather than failing the caller's mutation.
func New(producer, eventType string, correlationID int, payload any) Envelope {
	b, err := json.Marshal(payload)
	if err != nil {
		b = []byte("null")
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: strconv.Itoa(correlationID),
		Payload:       b,
	}
}

// ---- payloads ----

type CartResolvedPayload struct {
	CartID  int  `json:"cart_id"`
	UserID  int  `json:"user_id"`
	Created bool `json:"created"`
}

type CartItemPayload struct {
	CartID     int `json:"cart_id,omitempty"`
	ItemID     int `json:"item_id"`
	MenuItemID int `json:"menu_item_id,omitempty"`
	Quantity   int `json:"quantity,omitempty"`
}

type CartClearedPayload struct {
	CartID int `json:"cart_id"`
}

type OrderStatusChangedPayload struct {
	OrderID    int    `json:"order_id"`
	StatusID   int    `json:"status_id,omitempty"`
	StatusName string `json:"status_name,omitempty"`
}
