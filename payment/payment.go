package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"masivo-tech/cart"
	"masivo-tech/logger"
	"masivo-tech/models"
	"masivo-tech/store"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// SuccessMessage accompanies a created checkout
const SuccessMessage = "Pago creado exitosamente"

// Result is returned to the client after creating a hosted checkout
type Result struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
	Message   string `json:"message"`
}

// Bridge creates hosted checkouts and applies webhook events to orders
type Bridge struct {
	gateway  Gateway
	orders   store.OrderRepository
	payments store.PaymentRepository
	audit    store.AuditLog
	currency string
	baseURL  string
	now      func() time.Time
}

// NewBridge returns a Bridge. A nil gateway makes every checkout fail
// with ErrNotConfigured.
func NewBridge(gateway Gateway, orders store.OrderRepository, payments store.PaymentRepository, audit store.AuditLog, currency, baseURL string) *Bridge {
	return &Bridge{
		gateway:  gateway,
		orders:   orders,
		payments: payments,
		audit:    audit,
		currency: currency,
		baseURL:  baseURL,
		now:      time.Now,
	}
}

// Configured reports whether a processor is available
func (b *Bridge) Configured() bool {
	return b.gateway != nil
}

func (b *Bridge) request(items []LineItem, reference, email string) CheckoutRequest {
	return CheckoutRequest{
		Items:         items,
		Currency:      b.currency,
		Reference:     reference,
		CustomerEmail: email,
		SuccessURL:    b.baseURL + "/payment/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:     b.baseURL + "/payment/failure",
	}
}

// CreateFromCart opens a hosted checkout for the cart contents plus the
// held shipping price
func (b *Bridge) CreateFromCart(ctx context.Context, c *cart.Cart) (*Result, error) {
	if b.gateway == nil {
		return nil, ErrNotConfigured
	}
	if c.Empty() {
		return nil, ErrEmptyCart
	}

	lines := c.Lines()
	items := make([]LineItem, 0, len(lines)+1)
	for _, line := range lines {
		items = append(items, NewLineItem(line.Name, line.Price, line.Quantity))
	}
	if shipping := c.ShippingPrice(); shipping.IsPositive() {
		items = append(items, NewLineItem("Envío a "+c.PostalCode(), shipping, 1))
	}

	reference := fmt.Sprintf("masivotech_%d", b.now().Unix())
	return b.open(ctx, b.request(items, reference, ""), nil)
}

// CreateFromOrder opens a hosted checkout for a pending order and records
// the checkout session id on it
func (b *Bridge) CreateFromOrder(ctx context.Context, order *models.Order) (*Result, error) {
	if b.gateway == nil {
		return nil, ErrNotConfigured
	}
	if order.Status != models.OrderPending {
		return nil, ErrOrderNotPayable
	}
	if len(order.Items) == 0 {
		return nil, ErrEmptyCart
	}

	items := make([]LineItem, 0, len(order.Items)+1)
	for _, item := range order.Items {
		items = append(items, NewLineItem(item.ProductName, item.Price, item.Quantity))
	}
	if order.ShippingCost.IsPositive() {
		items = append(items, NewLineItem("Envío a "+order.PostalCode, order.ShippingCost, 1))
	}

	orderID := order.ID
	res, err := b.open(ctx, b.request(items, order.ID.Hex(), order.Email), &orderID)
	if err != nil {
		return nil, err
	}
	if err := b.orders.SetPaymentID(ctx, order.ID.Hex(), res.ID); err != nil {
		return nil, fmt.Errorf("failed to link payment to order: %w", err)
	}
	return res, nil
}

func (b *Bridge) open(ctx context.Context, req CheckoutRequest, orderID *primitive.ObjectID) (*Result, error) {
	cs, err := b.gateway.CreateCheckout(ctx, req)
	if err != nil {
		return nil, err
	}
	if cs.URL == "" {
		return nil, ErrNoRedirect
	}

	now := b.now()
	record := &models.Payment{
		SessionID: cs.ID,
		Reference: req.Reference,
		OrderID:   orderID,
		Amount:    req.Total(),
		Currency:  req.Currency,
		Status:    models.PaymentCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := b.payments.Create(ctx, record); err != nil {
		logger.FromContext(ctx).Warn("payment record failed", zap.String("session_id", cs.ID), zap.Error(err))
	}

	return &Result{ID: cs.ID, InitPoint: cs.URL, Message: SuccessMessage}, nil
}

// HandleWebhook verifies and applies a processor notification. With no
// signing secret configured the notification is acknowledged and ignored,
// returning a nil event.
func (b *Bridge) HandleWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	log := logger.FromContext(ctx)
	if b.gateway == nil {
		log.Warn("payment webhook received without a configured processor")
		return nil, nil
	}

	event, err := b.gateway.ParseWebhook(payload, signature)
	if errors.Is(err, ErrNotConfigured) {
		log.Warn("payment webhook received without a signing secret; ignoring")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	log = log.With(zap.String("event_type", event.Type), zap.String("session_id", event.SessionID))

	orderStatus, paymentStatus, ok := transition(event)
	if ok {
		err := b.apply(ctx, event, orderStatus)
		switch {
		case errors.Is(err, store.ErrNotFound):
			log.Warn("no order for payment event", zap.String("reference", event.Reference))
		case err != nil:
			return nil, err
		}
		if err := b.payments.UpdateStatus(ctx, event.SessionID, paymentStatus); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Warn("payment status update failed", zap.Error(err))
		}
	}

	if b.audit != nil {
		data := map[string]interface{}{"type": event.Type, "reference": event.Reference}
		if err := b.audit.Record(ctx, "payment.webhook", event.SessionID, data); err != nil {
			log.Warn("audit record failed", zap.Error(err))
		}
	}
	return event, nil
}

func transition(event *Event) (models.OrderStatus, models.PaymentStatus, bool) {
	switch event.Type {
	case EventCheckoutCompleted:
		if !event.Settled() {
			return "", "", false
		}
		return models.OrderPaid, models.PaymentApproved, true
	case EventAsyncPaymentSucceeded:
		return models.OrderPaid, models.PaymentApproved, true
	case EventAsyncPaymentFailed:
		return models.OrderCancelled, models.PaymentFailed, true
	case EventCheckoutSessionExpired:
		return models.OrderCancelled, models.PaymentExpired, true
	}
	return "", "", false
}

// apply moves the order linked to event to status. Only pending orders
// change; later states are left alone.
func (b *Bridge) apply(ctx context.Context, event *Event, status models.OrderStatus) error {
	order, err := b.orders.FindByPaymentID(ctx, event.SessionID)
	if errors.Is(err, store.ErrNotFound) && event.Reference != "" {
		order, err = b.orders.Get(ctx, event.Reference)
	}
	if err != nil {
		return err
	}
	if order.Status != models.OrderPending {
		return nil
	}
	if order.PaymentID == "" && event.SessionID != "" {
		if err := b.orders.SetPaymentID(ctx, order.ID.Hex(), event.SessionID); err != nil {
			return err
		}
	}
	err = b.orders.TransitionStatus(ctx, order.ID.Hex(), []models.OrderStatus{models.OrderPending}, status)
	if errors.Is(err, store.ErrStatusChanged) {
		return nil
	}
	return err
}
