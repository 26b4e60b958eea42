package models

import "time"

// Customer carries denormalized purchase aggregates keyed by email.
// Updated opportunistically after payment confirmation; not strongly
// consistent with the orders table.
type Customer struct {
	Email       string    `json:"email"`
	TotalOrders int       `json:"total_orders"`
	TotalSpent  float64   `json:"total_spent"`
	LastOrderAt time.Time `json:"last_order_at"`
}
