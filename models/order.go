package models

import "time"

// Order statuses. Transitions are forward-only:
// reserved -> paid -> completed, or reserved -> cancelled.
const (
	OrderStatusReserved  = "reserved"
	OrderStatusPaid      = "paid"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// Address is a shipping or billing address.
type Address struct {
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" binding:"required"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code" binding:"required"`
	Country    string `json:"country" binding:"required"`
}

// OrderItem is a single order line with a unit price snapshot taken
// at reservation time. It never tracks the live product price.
type OrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Order is the order record stored in DynamoDB.
type Order struct {
	ID                    string      `json:"order_id"`
	CustomerEmail         string      `json:"customer_email"`
	Items                 []OrderItem `json:"items"`
	Subtotal              float64     `json:"subtotal"`
	Total                 float64     `json:"total"`
	Status                string      `json:"status"`
	ShippingAddress       Address     `json:"shipping_address"`
	BillingAddress        Address     `json:"billing_address"`
	StripeSessionID       string      `json:"stripe_session_id,omitempty"`
	ReservationExpiresAt  time.Time   `json:"reservation_expires_at"`
	CreatedAt             time.Time   `json:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at"`
	PaidAt                *time.Time  `json:"paid_at,omitempty"`
	CancelledAt           *time.Time  `json:"cancelled_at,omitempty"`
}

// CreateOrderItem is a cart line in an intake request.
type CreateOrderItem struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

// CreateOrderRequest is the checkout intake payload.
type CreateOrderRequest struct {
	CustomerEmail   string            `json:"customer_email" binding:"required,email"`
	Items           []CreateOrderItem `json:"items" binding:"required,min=1,dive"`
	ShippingAddress Address           `json:"shipping_address" binding:"required"`
	BillingAddress  Address           `json:"billing_address" binding:"required"`
}

// OrderPage is a cursor-paginated slice of orders.
type OrderPage struct {
	Orders     []Order `json:"orders"`
	NextCursor string  `json:"next_cursor,omitempty"`
}
