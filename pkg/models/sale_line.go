package models

import (
	"time"
)

// Products lists the sellable system sizes
var Products = []string{"1 kW", "10 kW", "100 kW", "1 MW"}

// IsValidProduct returns true if p is a known product
func IsValidProduct(p string) bool {
	for _, known := range Products {
		if known == p {
			return true
		}
	}
	return false
}

// SaleLine is one product line on a contact's deal. Prices are stored in
// minor currency units to avoid float drift. SaleDate is when the sale
// happened, carried as free text like the other imported dates; created_at is
// only when the row was recorded.
type SaleLine struct {
	ID             int64     `json:"id" db:"id"`
	ContactID      int64     `json:"contact_id" db:"contact_id"`
	Product        string    `json:"product" db:"product"`
	Quantity       int       `json:"quantity" db:"quantity"`
	UnitPriceMinor int64     `json:"unit_price_minor" db:"unit_price_minor"`
	Currency       string    `json:"currency" db:"currency"`
	SaleDate       string    `json:"sale_date,omitempty" db:"sale_date"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Total returns the line total in minor currency units
func (s *SaleLine) Total() int64 {
	return int64(s.Quantity) * s.UnitPriceMinor
}

// CreateSaleLineRequest is the request for adding a sale line to a contact
type CreateSaleLineRequest struct {
	Product        string `json:"product" validate:"required"`
	Quantity       int    `json:"quantity" validate:"required,gt=0"`
	UnitPriceMinor int64  `json:"unit_price_minor" validate:"gte=0"`
	Currency       string `json:"currency,omitempty" validate:"omitempty,len=3"`
	SaleDate       string `json:"sale_date,omitempty"`
}
