package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OrderStatus tracks an order through fulfilment
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderPaid       OrderStatus = "paid"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
)

var orderStatusLabels = map[OrderStatus]string{
	OrderPending:    "Pendiente",
	OrderPaid:       "Pagado",
	OrderProcessing: "Procesando",
	OrderShipped:    "Enviado",
	OrderDelivered:  "Entregado",
	OrderCancelled:  "Cancelado",
}

// Valid reports whether s is a known status
func (s OrderStatus) Valid() bool {
	_, ok := orderStatusLabels[s]
	return ok
}

// Label returns the Spanish display label
func (s OrderStatus) Label() string {
	if label, ok := orderStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

// OrderItem is a frozen copy of a cart line at checkout
type OrderItem struct {
	ProductID   primitive.ObjectID `bson:"product_id" json:"product_id"`
	ProductName string             `bson:"product_name" json:"product_name"`
	Price       decimal.Decimal    `bson:"price" json:"price"`
	Quantity    int                `bson:"quantity" json:"quantity"`
}

// Cost returns price times quantity
func (i OrderItem) Cost() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order represents a placed purchase. Items are embedded so an order and its
// lines are written in a single document.
type Order struct {
	ID           primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	UserID       *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	FirstName    string              `bson:"first_name" json:"first_name"`
	LastName     string              `bson:"last_name" json:"last_name"`
	Email        string              `bson:"email" json:"email"`
	Address      string              `bson:"address" json:"address"`
	City         string              `bson:"city" json:"city"`
	Phone        string              `bson:"phone" json:"phone"`
	PostalCode   string              `bson:"postal_code,omitempty" json:"postal_code,omitempty"`
	Items        []OrderItem         `bson:"items" json:"items"`
	Subtotal     decimal.Decimal     `bson:"subtotal" json:"subtotal"`
	ShippingCost decimal.Decimal     `bson:"shipping_cost" json:"shipping_cost"`
	Total        decimal.Decimal     `bson:"total" json:"total"`
	Status       OrderStatus         `bson:"status" json:"status"`
	PaymentID    string              `bson:"payment_id,omitempty" json:"payment_id,omitempty"`
	CreatedAt    time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time           `bson:"updated_at" json:"updated_at"`
}

// FullName joins first and last name
func (o *Order) FullName() string {
	return o.FirstName + " " + o.LastName
}

// CancellableStatuses are the states a customer may cancel from
var CancellableStatuses = []OrderStatus{OrderPending, OrderPaid}

// CanBeCancelled reports whether the customer may still cancel
func (o *Order) CanBeCancelled() bool {
	for _, s := range CancellableStatuses {
		if o.Status == s {
			return true
		}
	}
	return false
}

// ItemCount returns the number of units ordered
func (o *Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

// BelongsTo reports whether the order was placed by userID
func (o *Order) BelongsTo(userID primitive.ObjectID) bool {
	return o.UserID != nil && *o.UserID == userID
}
