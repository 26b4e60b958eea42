package models

import "time"

// Inventory represents the stock ledger record for a product.
// available is stored alongside stock and reserved so every ledger
// mutation can be expressed as a single conditional update; the
// invariant available = stock - reserved holds at all times.
type Inventory struct {
	ProductID    string    `json:"product_id"`
	Stock        int       `json:"stock"`
	Reserved     int       `json:"reserved"`
	Available    int       `json:"available"`
	LowStock     int       `json:"low_stock_threshold"`
	ReorderPoint int       `json:"reorder_point"`
	Status       string    `json:"status"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AdjustStockRequest is an admin restock or correction.
type AdjustStockRequest struct {
	Delta int `json:"delta" binding:"required"`
}
