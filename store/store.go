// Package store holds the persistence layer: repository interfaces and their
// MongoDB implementations.
package store

import (
	"context"
	"errors"

	"masivo-tech/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("already exists")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrStatusChanged     = errors.New("status changed")
)

// Product sort keys accepted by ProductFilter
const (
	SortName      = "name"
	SortPriceLow  = "price_low"
	SortPriceHigh = "price_high"
	SortNewest    = "newest"
)

// ProductFilter narrows a catalog listing. Only available products are listed.
type ProductFilter struct {
	Category models.Category
	Query    string
	Sort     string
}

// ProductRepository is the catalog store
type ProductRepository interface {
	List(ctx context.Context, filter ProductFilter) ([]models.Product, error)
	Latest(ctx context.Context, limit int) ([]models.Product, error)
	Search(ctx context.Context, query string, limit int) ([]models.Product, error)
	Get(ctx context.Context, id string) (*models.Product, error)
	FindByName(ctx context.Context, name string) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, id string, p *models.Product) error
	Delete(ctx context.Context, id string) error
	DecrementStock(ctx context.Context, id string, quantity int) error
}

// OrderRepository persists placed orders
type OrderRepository interface {
	Create(ctx context.Context, o *models.Order) error
	Get(ctx context.Context, id string) (*models.Order, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) error
	// TransitionStatus sets the status only while the order is in one of
	// from, returning ErrStatusChanged otherwise.
	TransitionStatus(ctx context.Context, id string, from []models.OrderStatus, to models.OrderStatus) error
	SetPaymentID(ctx context.Context, id string, paymentID string) error
}

// UserProfile holds the user-editable account fields
type UserProfile struct {
	FirstName string         `json:"first_name" validate:"max=150"`
	LastName  string         `json:"last_name" validate:"max=150"`
	Address   models.Address `json:"address"`
}

// UserRepository persists accounts
type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByVerificationToken(ctx context.Context, token string) (*models.User, error)
	MarkVerified(ctx context.Context, id primitive.ObjectID) error
	UpdateProfile(ctx context.Context, id primitive.ObjectID, profile UserProfile) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hash string) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// PaymentRepository records hosted checkout sessions
type PaymentRepository interface {
	Create(ctx context.Context, p *models.Payment) error
	UpdateStatus(ctx context.Context, sessionID string, status models.PaymentStatus) error
}

// AuditLog is an append-only event log
type AuditLog interface {
	Record(ctx context.Context, action, entityID string, data map[string]interface{}) error
	List(ctx context.Context, entityID string, limit int) ([]models.AuditEntry, error)
}

// ParseID converts a hex id, mapping malformed input to ErrNotFound
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return oid, nil
}
