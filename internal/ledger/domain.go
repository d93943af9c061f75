// Package ledger maintains the per product and location inventory rows:
// quantity on hand, reserved quantity and the derived available quantity.
package ledger

import (
	"errors"
	"time"
)

// Row is a single inventory ledger row. At most one row exists per
// (product, location) pair.
type Row struct {
	ID          int64     `json:"id"`
	ProductID   int64     `json:"product_id"`
	LocationID  int64     `json:"location_id"`
	OnHand      int       `json:"quantity_on_hand"`
	Reserved    int       `json:"reserved_quantity"`
	LastUpdated time.Time `json:"last_updated"`
}

// Available returns the sellable quantity, floored at zero.
func (r Row) Available() int {
	if avail := r.OnHand - r.Reserved; avail > 0 {
		return avail
	}
	return 0
}

// Filter narrows ledger listings.
type Filter struct {
	ProductID  int64
	LocationID int64
}

// SetQuantitiesInput updates only the supplied quantities.
type SetQuantitiesInput struct {
	OnHand   *int
	Reserved *int
}

// LowStockAlert flags a product whose total available quantity is at or
// below its reorder point.
type LowStockAlert struct {
	ProductID       int64               `json:"product_id"`
	SKU             string              `json:"sku"`
	Name            string              `json:"name"`
	ReorderPoint    int                 `json:"reorder_point"`
	ReorderQuantity int                 `json:"reorder_quantity"`
	TotalAvailable  int                 `json:"total_available"`
	Shortage        int                 `json:"shortage"`
	Locations       []LocationBreakdown `json:"locations"`
}

// LocationBreakdown is the per-location availability of a low-stock product.
type LocationBreakdown struct {
	LocationID   int64  `json:"location_id"`
	LocationName string `json:"location_name"`
	OnHand       int    `json:"quantity_on_hand"`
	Reserved     int    `json:"reserved_quantity"`
	Available    int    `json:"available_quantity"`
}

// Summary aggregates the whole ledger.
type Summary struct {
	TotalRows      int     `json:"total_records"`
	TotalProducts  int     `json:"total_products"`
	TotalLocations int     `json:"total_locations"`
	TotalOnHand    int64   `json:"total_on_hand"`
	TotalReserved  int64   `json:"total_reserved"`
	TotalAvailable int64   `json:"total_available"`
	TotalValue     float64 `json:"total_value"`
}

// ErrRowNotFound indicates a missing ledger row.
var ErrRowNotFound = errors.New("inventory row not found")
