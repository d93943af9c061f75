// Package products manages the product catalog.
package products

import (
	"time"
)

// Product is a catalog item identified by its SKU.
type Product struct {
	ID              int64     `json:"id"`
	SKU             string    `json:"sku"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	Category        string    `json:"category,omitempty"`
	UnitCost        float64   `json:"unit_cost"`
	UnitPrice       float64   `json:"unit_price"`
	Weight          float64   `json:"weight,omitempty"`
	Dimensions      string    `json:"dimensions,omitempty"`
	ReorderPoint    int       `json:"reorder_point"`
	ReorderQuantity int       `json:"reorder_quantity"`
	SupplierID      *int64    `json:"supplier_id,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// CreateInput creates a product. Zero reorder values fall back to the
// configured defaults.
type CreateInput struct {
	SKU             string  `json:"sku" validate:"required,max=64"`
	Name            string  `json:"name" validate:"required,max=255"`
	Description     string  `json:"description" validate:"omitempty,max=2000"`
	Category        string  `json:"category" validate:"omitempty,max=100"`
	UnitCost        float64 `json:"unit_cost" validate:"gte=0"`
	UnitPrice       float64 `json:"unit_price" validate:"gte=0"`
	Weight          float64 `json:"weight" validate:"gte=0"`
	Dimensions      string  `json:"dimensions" validate:"omitempty,max=100"`
	ReorderPoint    *int    `json:"reorder_point" validate:"omitempty,gte=0"`
	ReorderQuantity *int    `json:"reorder_quantity" validate:"omitempty,gt=0"`
	SupplierID      *int64  `json:"supplier_id" validate:"omitempty,gt=0"`
}

// UpdateInput applies a partial update. The SKU is an immutable business
// key and cannot be changed.
type UpdateInput struct {
	Name            *string  `json:"name" validate:"omitempty,max=255"`
	Description     *string  `json:"description" validate:"omitempty,max=2000"`
	Category        *string  `json:"category" validate:"omitempty,max=100"`
	UnitCost        *float64 `json:"unit_cost" validate:"omitempty,gte=0"`
	UnitPrice       *float64 `json:"unit_price" validate:"omitempty,gte=0"`
	Weight          *float64 `json:"weight" validate:"omitempty,gte=0"`
	Dimensions      *string  `json:"dimensions" validate:"omitempty,max=100"`
	ReorderPoint    *int     `json:"reorder_point" validate:"omitempty,gte=0"`
	ReorderQuantity *int     `json:"reorder_quantity" validate:"omitempty,gt=0"`
	SupplierID      *int64   `json:"supplier_id" validate:"omitempty,gt=0"`
	IsActive        *bool    `json:"is_active"`
}

// ListFilter narrows product listings.
type ListFilter struct {
	Category   string
	SupplierID int64
	IsActive   *bool
}
