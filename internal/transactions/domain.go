// Package transactions records stock movements as an append-only log and
// applies their effect to the inventory ledger in the same database
// transaction.
package transactions

import (
	"time"
)

// Type enumerates stock transaction kinds.
type Type string

const (
	TypeIn         Type = "IN"
	TypeOut        Type = "OUT"
	TypeTransfer   Type = "TRANSFER"
	TypeAdjustment Type = "ADJUSTMENT"
)

// Valid reports whether t is a known transaction type.
func (t Type) Valid() bool {
	switch t {
	case TypeIn, TypeOut, TypeTransfer, TypeAdjustment:
		return true
	}
	return false
}

// Transaction is one movement row. Rows are never updated or deleted; a
// transfer appends two rows sharing a reference number.
type Transaction struct {
	ID              int64     `json:"id"`
	ProductID       int64     `json:"product_id"`
	LocationID      int64     `json:"location_id"`
	Type            Type      `json:"transaction_type"`
	Quantity        int       `json:"quantity"`
	ReferenceNumber string    `json:"reference_number,omitempty"`
	Notes           string    `json:"notes,omitempty"`
	PerformedBy     string    `json:"performed_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// CreateInput is a raw movement request. Quantity carries the sign expected
// by the type.
type CreateInput struct {
	ProductID       int64  `json:"product_id" validate:"required,gt=0"`
	LocationID      int64  `json:"location_id" validate:"required,gt=0"`
	Type            Type   `json:"transaction_type" validate:"required"`
	Quantity        int    `json:"quantity" validate:"required"`
	ReferenceNumber string `json:"reference_number" validate:"omitempty,max=100"`
	Notes           string `json:"notes" validate:"omitempty,max=1000"`
	PerformedBy     string `json:"performed_by" validate:"omitempty,max=100"`
}

// ReceiptInput receives stock into a location.
type ReceiptInput struct {
	ProductID       int64  `json:"product_id" validate:"required,gt=0"`
	LocationID      int64  `json:"location_id" validate:"required,gt=0"`
	Quantity        int    `json:"quantity" validate:"required,gt=0"`
	ReferenceNumber string `json:"reference_number" validate:"omitempty,max=100"`
	Notes           string `json:"notes" validate:"omitempty,max=1000"`
	PerformedBy     string `json:"performed_by" validate:"omitempty,max=100"`
}

// ShipmentInput ships stock out of a location. Quantity is supplied
// positive and stored negative.
type ShipmentInput struct {
	ProductID       int64  `json:"product_id" validate:"required,gt=0"`
	LocationID      int64  `json:"location_id" validate:"required,gt=0"`
	Quantity        int    `json:"quantity" validate:"required,gt=0"`
	ReferenceNumber string `json:"reference_number" validate:"omitempty,max=100"`
	Notes           string `json:"notes" validate:"omitempty,max=1000"`
	PerformedBy     string `json:"performed_by" validate:"omitempty,max=100"`
}

// TransferInput moves stock between two locations.
type TransferInput struct {
	ProductID      int64  `json:"product_id" validate:"required,gt=0"`
	FromLocationID int64  `json:"from_location_id" validate:"required,gt=0"`
	ToLocationID   int64  `json:"to_location_id" validate:"required,gt=0"`
	Quantity       int    `json:"quantity" validate:"required,gt=0"`
	Notes          string `json:"notes" validate:"omitempty,max=1000"`
	PerformedBy    string `json:"performed_by" validate:"omitempty,max=100"`
}

// AdjustmentInput corrects stock by a signed quantity with a mandatory
// reason.
type AdjustmentInput struct {
	ProductID   int64  `json:"product_id" validate:"required,gt=0"`
	LocationID  int64  `json:"location_id" validate:"required,gt=0"`
	Quantity    int    `json:"quantity" validate:"required"`
	Reason      string `json:"reason" validate:"required,max=1000"`
	PerformedBy string `json:"performed_by" validate:"omitempty,max=100"`
}

// ListFilter narrows transaction listings.
type ListFilter struct {
	ProductID       int64
	LocationID      int64
	Type            Type
	ReferenceNumber string
	From            time.Time
	To              time.Time
}

// Summary aggregates the transaction log over an optional day window.
type Summary struct {
	TotalTransactions int64          `json:"total_transactions"`
	TotalInbound      int64          `json:"total_inbound"`
	TotalOutbound     int64          `json:"total_outbound"`
	NetChange         int64          `json:"net_quantity_change"`
	ByType            map[Type]int64 `json:"by_type"`
}
