package models

import (
	"time"

	"github.com/google/uuid"
)

// Product statuses
const (
	ProductStatusActive  = "active"
	ProductStatusDeleted = "deleted"
)

// Product is a catalog entry stored in DynamoDB.
type Product struct {
	ID             uuid.UUID         `json:"product_id"`
	Name           string            `json:"name"`
	Description    string            `json:"description,omitempty"`
	Price          float64           `json:"price"`
	Category       string            `json:"category"`
	Brand          string            `json:"brand"`
	Specifications map[string]string `json:"specifications,omitempty"`
	Images         []string          `json:"images,omitempty"`
	Status         string            `json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// CreateProductRequest is the admin payload for creating a product.
// An id is assigned server-side when absent.
type CreateProductRequest struct {
	ID             string            `json:"product_id" binding:"omitempty,uuid"`
	Name           string            `json:"name" binding:"required"`
	Description    string            `json:"description"`
	Price          float64           `json:"price" binding:"required,gt=0"`
	Category       string            `json:"category" binding:"required"`
	Brand          string            `json:"brand" binding:"required"`
	Specifications map[string]string `json:"specifications"`
	Images         []string          `json:"images"`
	InitialStock   int               `json:"initial_stock" binding:"gte=0"`
	LowStock       int               `json:"low_stock_threshold" binding:"gte=0"`
	ReorderPoint   int               `json:"reorder_point" binding:"gte=0"`
}

// UpdateProductRequest carries partial product updates.
type UpdateProductRequest struct {
	Name           *string            `json:"name"`
	Description    *string            `json:"description"`
	Price          *float64           `json:"price" binding:"omitempty,gt=0"`
	Category       *string            `json:"category"`
	Brand          *string            `json:"brand"`
	Specifications *map[string]string `json:"specifications"`
	Images         *[]string          `json:"images"`
}

// ProductFilters holds catalog list filters.
type ProductFilters struct {
	Category string
	Brand    string
}
