// Package cart implements the session-scoped shopping cart and the held
// shipping quote.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"masivo-tech/models"
	"masivo-tech/store"

	"github.com/gorilla/sessions"
	"github.com/shopspring/decimal"
)

// Session keys
const (
	SessionKey       = "cart"
	ShippingPriceKey = "shipping_price"
	PostalCodeKey    = "postal_code"
)

var (
	ErrInvalidQuantity   = errors.New("Cantidad no válida")
	ErrInsufficientStock = errors.New("Stock insuficiente")
)

// StockError reports a quantity above what the product can supply
type StockError struct {
	Product   string
	Available int
	Replace   bool
}

func (e *StockError) Error() string {
	if e.Replace {
		return fmt.Sprintf("Stock máximo: %d unidades", e.Available)
	}
	return fmt.Sprintf("Stock insuficiente. Disponible: %d", e.Available)
}

func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// Cart is the cart stored in one session. Every mutation rewrites the
// session values; callers persist the session with Save.
type Cart struct {
	session *sessions.Session
	lines   []models.CartLine
}

// New loads the cart held by s. Unreadable data yields an empty cart.
func New(s *sessions.Session) *Cart {
	c := &Cart{session: s}
	if raw, ok := s.Values[SessionKey].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &c.lines); err != nil {
			c.lines = nil
		}
	}
	return c
}

// Add puts quantity units of p in the cart. With replace the line quantity
// becomes quantity, otherwise it is increased by it. The resulting quantity
// may not exceed the product's orderable stock. The line price is refreshed
// to the current product price.
func (c *Cart) Add(p *models.Product, quantity int, replace bool) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	id := p.ID.Hex()
	idx := c.index(id)

	target := quantity
	if !replace && idx >= 0 {
		target += c.lines[idx].Quantity
	}
	if available := p.OrderableStock(); target > available {
		return &StockError{Product: p.Name, Available: available, Replace: replace}
	}

	line := models.CartLine{ProductID: id, Name: p.Name, Quantity: target, Price: p.Price}
	if idx >= 0 {
		c.lines[idx] = line
	} else {
		c.lines = append(c.lines, line)
	}
	c.write()
	return nil
}

// Remove drops the line for productID. Missing lines are ignored.
func (c *Cart) Remove(productID string) {
	idx := c.index(productID)
	if idx < 0 {
		return
	}
	c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
	c.write()
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.lines = nil
	delete(c.session.Values, SessionKey)
}

// Lines returns a copy of the lines in insertion order
func (c *Cart) Lines() []models.CartLine {
	out := make([]models.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// Quantity returns the units held for productID
func (c *Cart) Quantity(productID string) int {
	if idx := c.index(productID); idx >= 0 {
		return c.lines[idx].Quantity
	}
	return 0
}

// Len returns the total number of units
func (c *Cart) Len() int {
	n := 0
	for _, l := range c.lines {
		n += l.Quantity
	}
	return n
}

// Empty reports whether the cart has no lines
func (c *Cart) Empty() bool {
	return len(c.lines) == 0
}

// TotalPrice sums price times quantity over all lines
func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.lines {
		total = total.Add(l.Total())
	}
	return total
}

// Item is a cart line joined with its current product
type Item struct {
	Product    models.Product  `json:"product"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// ExceedsStock reports whether the held quantity is above current stock
func (i Item) ExceedsStock() bool {
	return i.Quantity > i.Product.OrderableStock()
}

// Catalog resolves product ids
type Catalog interface {
	Get(ctx context.Context, id string) (*models.Product, error)
}

// Items resolves every line against catalog, in cart order. Lines whose
// product no longer exists are skipped.
func (c *Cart) Items(ctx context.Context, catalog Catalog) ([]Item, error) {
	items := make([]Item, 0, len(c.lines))
	for _, l := range c.lines {
		p, err := catalog.Get(ctx, l.ProductID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		items = append(items, Item{
			Product:    *p,
			Quantity:   l.Quantity,
			Price:      l.Price,
			TotalPrice: l.Total(),
		})
	}
	return items, nil
}

// AnyExceedsStock reports whether any item holds more than current stock
func AnyExceedsStock(items []Item) bool {
	for _, item := range items {
		if item.ExceedsStock() {
			return true
		}
	}
	return false
}

func (c *Cart) index(productID string) int {
	for i, l := range c.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) write() {
	if len(c.lines) == 0 {
		delete(c.session.Values, SessionKey)
		return
	}
	data, err := json.Marshal(c.lines)
	if err != nil {
		return
	}
	c.session.Values[SessionKey] = string(data)
}

// ExceedsStock resolves the cart and reports whether any line holds more
// than the product's current stock
func (c *Cart) ExceedsStock(ctx context.Context, catalog Catalog) (bool, error) {
	items, err := c.Items(ctx, catalog)
	if err != nil {
		return false, err
	}
	return AnyExceedsStock(items), nil
}
