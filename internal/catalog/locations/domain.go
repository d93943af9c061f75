// Package locations manages warehouses and stock rooms.
package locations

import (
	"time"
)

// Location is a place stock can sit, identified by its unique name and an
// optional short code.
type Location struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Code          string    `json:"code,omitempty"`
	Address       string    `json:"address,omitempty"`
	WarehouseType string    `json:"warehouse_type,omitempty"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateInput creates a location.
type CreateInput struct {
	Name          string `json:"name" validate:"required,max=255"`
	Code          string `json:"code" validate:"omitempty,max=20"`
	Address       string `json:"address" validate:"omitempty,max=500"`
	WarehouseType string `json:"warehouse_type" validate:"omitempty,max=50"`
}

// UpdateInput applies a partial update.
type UpdateInput struct {
	Name          *string `json:"name" validate:"omitempty,max=255"`
	Code          *string `json:"code" validate:"omitempty,max=20"`
	Address       *string `json:"address" validate:"omitempty,max=500"`
	WarehouseType *string `json:"warehouse_type" validate:"omitempty,max=50"`
	IsActive      *bool   `json:"is_active"`
}

// ListFilter narrows location listings.
type ListFilter struct {
	WarehouseType string
	IsActive      *bool
}

// ActivityMovement is one recent transaction in an activity report.
type ActivityMovement struct {
	ID              int64     `json:"id"`
	ProductID       int64     `json:"product_id"`
	SKU             string    `json:"sku"`
	Type            string    `json:"transaction_type"`
	Quantity        int       `json:"quantity"`
	ReferenceNumber string    `json:"reference_number,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Activity reports movements at a location over a day window.
type Activity struct {
	LocationID        int64              `json:"location_id"`
	Name              string             `json:"name"`
	Days              int                `json:"days"`
	TotalTransactions int64              `json:"total_transactions"`
	InboundCount      int64              `json:"inbound_count"`
	OutboundCount     int64              `json:"outbound_count"`
	NetQuantityChange int64              `json:"net_quantity_change"`
	CountsByType      map[string]int64   `json:"counts_by_type"`
	RecentMovements   []ActivityMovement `json:"recent_movements"`
}

// InventorySummary aggregates the stock held at one location.
type InventorySummary struct {
	LocationID     int64   `json:"location_id"`
	Name           string  `json:"name"`
	ProductCount   int     `json:"product_count"`
	TotalOnHand    int64   `json:"total_on_hand"`
	TotalReserved  int64   `json:"total_reserved"`
	TotalAvailable int64   `json:"total_available"`
	TotalValue     float64 `json:"total_value"`
}

// TopLocation is one entry in the statistics top list.
type TopLocation struct {
	LocationID  int64  `json:"location_id"`
	Name        string `json:"name"`
	TotalOnHand int64  `json:"total_on_hand"`
}

// Statistics aggregates the location directory.
type Statistics struct {
	TotalLocations  int              `json:"total_locations"`
	ActiveLocations int              `json:"active_locations"`
	WarehouseTypes  map[string]int64 `json:"warehouse_types"`
	TopByOnHand     []TopLocation    `json:"top_by_on_hand"`
}
