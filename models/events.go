package models

import "time"

// Order event types published to SNS.
const (
	EventOrderPaid      = "order_paid"
	EventOrderCancelled = "order_cancelled"
)

// OrderEvent is the payload published on order lifecycle changes.
type OrderEvent struct {
	Type          string    `json:"type"`
	OrderID       string    `json:"order_id"`
	CustomerEmail string    `json:"customer_email"`
	Total         float64   `json:"total"`
	Timestamp     time.Time `json:"timestamp"`
}
