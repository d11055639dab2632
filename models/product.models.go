package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Category identifies a catalog section
type Category string

const (
	CategoryKeyboards  Category = "teclados"
	CategoryMice       Category = "mouses"
	CategoryHeadphones Category = "auriculares"
	CategoryMonitors   Category = "monitores"
)

// CategoryChoice pairs a category with its display label
type CategoryChoice struct {
	Value Category `json:"value"`
	Label string   `json:"label"`
}

// Categories lists every catalog section in display order
var Categories = []CategoryChoice{
	{CategoryKeyboards, "Teclados Mecánicos"},
	{CategoryMice, "Mouses Gaming"},
	{CategoryHeadphones, "Auriculares"},
	{CategoryMonitors, "Monitores Gaming"},
}

// Label returns the display label, or the raw value for unknown categories
func (c Category) Label() string {
	for _, choice := range Categories {
		if choice.Value == c {
			return choice.Label
		}
	}
	return string(c)
}

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	for _, choice := range Categories {
		if choice.Value == c {
			return true
		}
	}
	return false
}

const (
	StockOut = "agotado"
	StockLow = "poco_stock"
	StockIn  = "en_stock"

	lowStockThreshold = 5
)

// Product represents a catalog item
type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Name        string             `bson:"name" json:"name" validate:"required,max=200"`
	Description string             `bson:"description" json:"description" validate:"required"`
	Price       decimal.Decimal    `bson:"price" json:"price"`
	Category    Category           `bson:"category" json:"category" validate:"required"`
	Image       string             `bson:"image" json:"image"`
	Stock       int                `bson:"stock" json:"stock" validate:"gte=0"`
	Available   bool               `bson:"available" json:"available"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// IsInStock reports whether the product can currently be ordered
func (p *Product) IsInStock() bool {
	return p.Stock > 0 && p.Available
}

// OrderableStock is the quantity a cart may hold. Unavailable products have none.
func (p *Product) OrderableStock() int {
	if !p.Available || p.Stock < 0 {
		return 0
	}
	return p.Stock
}

// StockStatus classifies the stock level
func (p *Product) StockStatus() string {
	switch {
	case p.Stock == 0:
		return StockOut
	case p.Stock < lowStockThreshold:
		return StockLow
	default:
		return StockIn
	}
}

// ProductView is the JSON shape served to storefront clients
type ProductView struct {
	Product
	CategoryLabel string `json:"category_label"`
	PriceDisplay  string `json:"price_display"`
	StockStatus   string `json:"stock_status"`
	InStock       bool   `json:"in_stock"`
	URL           string `json:"url"`
}

// View decorates the product with its display fields
func (p Product) View() ProductView {
	return ProductView{
		Product:       p,
		CategoryLabel: p.Category.Label(),
		PriceDisplay:  FormatPrice(p.Price),
		StockStatus:   p.StockStatus(),
		InStock:       p.IsInStock(),
		URL:           "/producto/" + p.ID.Hex(),
	}
}

// Views decorates a product list
func Views(products []Product) []ProductView {
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, p.View())
	}
	return views
}
