// Package checkout turns a session cart and a shipping form into a placed
// order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"masivo-tech/cart"
	"masivo-tech/logger"
	"masivo-tech/models"
	"masivo-tech/store"
	"masivo-tech/utils"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ErrEmptyCart is returned when checkout is attempted with no lines
var ErrEmptyCart = errors.New("Tu carrito está vacío")

// Form carries the shipping and contact details of an order
type Form struct {
	FirstName string `json:"first_name" validate:"required,max=50"`
	LastName  string `json:"last_name" validate:"required,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Address   string `json:"address" validate:"required,max=250"`
	City      string `json:"city" validate:"required,max=100"`
	Phone     string `json:"phone" validate:"required,max=20"`
}

func (f *Form) trim() {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = strings.TrimSpace(f.Email)
	f.Address = strings.TrimSpace(f.Address)
	f.City = strings.TrimSpace(f.City)
	f.Phone = strings.TrimSpace(f.Phone)
}

// ValidationError lists the invalid form fields
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid checkout form: %d field(s)", len(e.Fields))
}

// Materializer places orders
type Materializer struct {
	products       store.ProductRepository
	orders         store.OrderRepository
	audit          store.AuditLog
	decrementStock bool
	now            func() time.Time
}

// NewMaterializer returns a Materializer. With decrementStock each ordered
// quantity is taken from product stock once the order is stored.
func NewMaterializer(products store.ProductRepository, orders store.OrderRepository, audit store.AuditLog, decrementStock bool) *Materializer {
	return &Materializer{
		products:       products,
		orders:         orders,
		audit:          audit,
		decrementStock: decrementStock,
		now:            time.Now,
	}
}

// PlaceOrder validates the cart and form, stores one order holding one item
// per cart line, then clears the cart and the held shipping quote. The
// order total is the cart total plus the held shipping price.
func (m *Materializer) PlaceOrder(ctx context.Context, c *cart.Cart, form Form, userID *primitive.ObjectID) (*models.Order, error) {
	if c.Empty() {
		return nil, ErrEmptyCart
	}

	form.trim()
	fields, err := utils.FieldErrors(form)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	items, err := m.orderItems(ctx, c)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Cost())
	}
	shipping := c.ShippingPrice()

	now := m.now()
	order := &models.Order{
		UserID:       userID,
		FirstName:    form.FirstName,
		LastName:     form.LastName,
		Email:        strings.ToLower(form.Email),
		Address:      form.Address,
		City:         form.City,
		Phone:        form.Phone,
		PostalCode:   c.PostalCode(),
		Items:        items,
		Subtotal:     subtotal,
		ShippingCost: shipping,
		Total:        subtotal.Add(shipping),
		Status:       models.OrderPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	log := logger.FromContext(ctx).With(zap.String("order_id", order.ID.Hex()))
	if m.decrementStock {
		for _, item := range items {
			if err := m.products.DecrementStock(ctx, item.ProductID.Hex(), item.Quantity); err != nil {
				log.Warn("stock decrement failed", zap.String("product_id", item.ProductID.Hex()), zap.Error(err))
			}
		}
	}

	c.Clear()
	c.ClearShipping()

	if m.audit != nil {
		data := map[string]interface{}{
			"total": order.Total.String(),
			"items": order.ItemCount(),
		}
		if err := m.audit.Record(ctx, "order.created", order.ID.Hex(), data); err != nil {
			log.Warn("audit record failed", zap.Error(err))
		}
	}
	return order, nil
}

// orderItems freezes each cart line into an order item, checking the held
// quantity against current stock
func (m *Materializer) orderItems(ctx context.Context, c *cart.Cart) ([]models.OrderItem, error) {
	lines := c.Lines()
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		p, err := m.products.Get(ctx, line.ProductID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load product %s: %w", line.ProductID, err)
		}
		if available := p.OrderableStock(); line.Quantity > available {
			return nil, &cart.StockError{Product: p.Name, Available: available}
		}
		items = append(items, models.OrderItem{
			ProductID:   p.ID,
			ProductName: line.Name,
			Price:       line.Price,
			Quantity:    line.Quantity,
		})
	}
	return items, nil
}
