// Package suppliers manages the supplier directory and performance scoring.
package suppliers

import (
	"time"
)

// Supplier is a vendor identified by its unique name.
type Supplier struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	ContactPerson     string    `json:"contact_person,omitempty"`
	Email             string    `json:"email,omitempty"`
	Phone             string    `json:"phone,omitempty"`
	Address           string    `json:"address,omitempty"`
	LeadTimeDays      int       `json:"lead_time_days"`
	PaymentTerms      string    `json:"payment_terms,omitempty"`
	MinimumOrderQty   int       `json:"minimum_order_qty"`
	PerformanceRating *float64  `json:"performance_rating,omitempty"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// CreateInput creates a supplier.
type CreateInput struct {
	Name            string `json:"name" validate:"required,max=255"`
	ContactPerson   string `json:"contact_person" validate:"omitempty,max=255"`
	Email           string `json:"email" validate:"omitempty,email,max=255"`
	Phone           string `json:"phone" validate:"omitempty,max=50"`
	Address         string `json:"address" validate:"omitempty,max=500"`
	LeadTimeDays    *int   `json:"lead_time_days" validate:"omitempty,gte=0"`
	PaymentTerms    string `json:"payment_terms" validate:"omitempty,max=100"`
	MinimumOrderQty *int   `json:"minimum_order_qty" validate:"omitempty,gt=0"`
}

// UpdateInput applies a partial update.
type UpdateInput struct {
	Name            *string `json:"name" validate:"omitempty,max=255"`
	ContactPerson   *string `json:"contact_person" validate:"omitempty,max=255"`
	Email           *string `json:"email" validate:"omitempty,email,max=255"`
	Phone           *string `json:"phone" validate:"omitempty,max=50"`
	Address         *string `json:"address" validate:"omitempty,max=500"`
	LeadTimeDays    *int    `json:"lead_time_days" validate:"omitempty,gte=0"`
	PaymentTerms    *string `json:"payment_terms" validate:"omitempty,max=100"`
	MinimumOrderQty *int    `json:"minimum_order_qty" validate:"omitempty,gt=0"`
	IsActive        *bool   `json:"is_active"`
}

// ListFilter narrows supplier listings.
type ListFilter struct {
	IsActive *bool
}

// Performance is the computed scorecard for one supplier.
type Performance struct {
	SupplierID       int64   `json:"supplier_id"`
	Name             string  `json:"name"`
	LeadTimeDays     int     `json:"lead_time_days"`
	TotalProducts    int     `json:"total_products"`
	ActiveProducts   int     `json:"active_products"`
	ReceiptCount     int     `json:"receipt_count"`
	QuantityReceived int64   `json:"quantity_received"`
	Score            float64 `json:"score"`
}

// Statistics aggregates the supplier directory.
type Statistics struct {
	TotalSuppliers   int        `json:"total_suppliers"`
	ActiveSuppliers  int        `json:"active_suppliers"`
	AverageLeadTime  float64    `json:"average_lead_time_days"`
	AverageRating    float64    `json:"average_rating"`
	TopByRating      []Supplier `json:"top_by_rating"`
	SuppliersWithout int        `json:"suppliers_without_rating"`
}
