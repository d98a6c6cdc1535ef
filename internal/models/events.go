package models

import "time"

// Event types for cart activity
const (
	EventTypeCartItemAdded       = "CartItemAdded"
	EventTypeCartQuantityChanged = "CartQuantityChanged"
	EventTypeCartItemRemoved     = "CartItemRemoved"
	EventTypeCartCleared         = "CartCleared"
)

// BaseEvent contains common event fields
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// CartItemAddedEvent is published when a product is added to a cart
type CartItemAddedEvent struct {
	BaseEvent
	SessionID string `json:"session_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CartQuantityChangedEvent is published when a line's quantity is set directly
type CartQuantityChangedEvent struct {
	BaseEvent
	SessionID string `json:"session_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// CartItemRemovedEvent is published when a line is removed
type CartItemRemovedEvent struct {
	BaseEvent
	SessionID string `json:"session_id"`
	ProductID string `json:"product_id"`
}

// CartClearedEvent is published when a cart is emptied
type CartClearedEvent struct {
	BaseEvent
	SessionID string `json:"session_id"`
}
