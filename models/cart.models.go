package models

import (
	"github.com/shopspring/decimal"
)

// CartLine is one product entry of a session cart. Price is the unit price
// captured when the product was last added.
type CartLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Total returns the line cost
func (l CartLine) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
