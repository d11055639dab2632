package models

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentStatus mirrors the outcome reported by the payment processor
type PaymentStatus string

const (
	PaymentCreated  PaymentStatus = "created"
	PaymentApproved PaymentStatus = "approved"
	PaymentFailed   PaymentStatus = "failed"
	PaymentExpired  PaymentStatus = "expired"
)

// Payment records a hosted checkout session opened with the processor
type Payment struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id,omitempty"`
	SessionID string              `bson:"session_id" json:"session_id"`
	Reference string              `bson:"reference" json:"reference"`
	OrderID   *primitive.ObjectID `bson:"order_id,omitempty" json:"order_id,omitempty"`
	Amount    decimal.Decimal     `bson:"amount" json:"amount"`
	Currency  string              `bson:"currency" json:"currency"`
	Status    PaymentStatus       `bson:"status" json:"status"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time           `bson:"updated_at" json:"updated_at"`
}
