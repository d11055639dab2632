// Package payment bridges the cart and placed orders to a hosted checkout
// processor and applies its webhook notifications to orders.
package payment

import (
	"context"
	"errors"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

var (
	ErrNotConfigured    = errors.New("el procesador de pagos no está configurado")
	ErrEmptyCart        = errors.New("El carrito está vacío")
	ErrNoRedirect       = errors.New("el procesador no devolvió una URL de pago válida")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrOrderNotPayable  = errors.New("la orden no admite pagos")
)

const maxTitleLength = 250

// LineItem is one purchasable line of a hosted checkout
type LineItem struct {
	Title     string
	UnitPrice decimal.Decimal
	Quantity  int64
}

// NewLineItem builds a line, cutting the title to the processor limit
func NewLineItem(title string, unitPrice decimal.Decimal, quantity int) LineItem {
	if utf8.RuneCountInString(title) > maxTitleLength {
		title = string([]rune(title)[:maxTitleLength])
	}
	return LineItem{Title: title, UnitPrice: unitPrice, Quantity: int64(quantity)}
}

// CheckoutRequest describes a hosted checkout to create
type CheckoutRequest struct {
	Items         []LineItem
	Currency      string
	Reference     string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// Total sums the line items
func (r CheckoutRequest) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt(item.Quantity)))
	}
	return total
}

// CheckoutSession is the processor's answer to a CheckoutRequest
type CheckoutSession struct {
	ID  string
	URL string
}

// Event types delivered by the processor webhook
const (
	EventCheckoutCompleted      = "checkout.session.completed"
	EventAsyncPaymentSucceeded  = "checkout.session.async_payment_succeeded"
	EventAsyncPaymentFailed     = "checkout.session.async_payment_failed"
	EventCheckoutSessionExpired = "checkout.session.expired"
)

// Checkout session payment states reported with completed sessions
const (
	SessionPaid              = "paid"
	SessionUnpaid            = "unpaid"
	SessionNoPaymentRequired = "no_payment_required"
)

// Event is a verified webhook notification
type Event struct {
	ID            string
	Type          string
	SessionID     string
	Reference     string
	PaymentStatus string
}

// Settled reports whether the session's funds were captured. Delayed
// payment methods complete the session unpaid and settle later through
// an async_payment event.
func (e *Event) Settled() bool {
	return e.PaymentStatus == SessionPaid || e.PaymentStatus == SessionNoPaymentRequired
}

// Gateway is a hosted checkout processor
type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	// ParseWebhook verifies signature over payload and decodes the event.
	// It returns ErrNotConfigured when no signing secret is set.
	ParseWebhook(payload []byte, signature string) (*Event, error)
}
