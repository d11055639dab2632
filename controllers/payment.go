package controllers

import (
	"errors"
	"io"
	"net/http"

	"masivo-tech/cart"
	"masivo-tech/logger"
	"masivo-tech/metrics"
	"masivo-tech/payment"
	"masivo-tech/store"

	"go.uber.org/zap"
)

const (
	maxWebhookBytes = 64 << 10
	signatureHeader = "Stripe-Signature"
)

// PaymentController opens hosted checkouts and receives processor
// notifications
type PaymentController struct {
	Bridge   *payment.Bridge
	Orders   store.OrderRepository
	Sessions *Sessions
	Metrics  *metrics.Metrics
}

// NewPaymentController creates a new PaymentController
func NewPaymentController(bridge *payment.Bridge, orders store.OrderRepository, sessions *Sessions, m *metrics.Metrics) *PaymentController {
	return &PaymentController{Bridge: bridge, Orders: orders, Sessions: sessions, Metrics: m}
}

type createPaymentRequest struct {
	OrderID string `json:"order_id"`
}

// Create opens a hosted checkout for a pending order when order_id is
// given, or for the session cart otherwise
func (pc *PaymentController) Create(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := dbContext(r)
	defer cancel()
	log := logger.FromContext(ctx)

	var (
		res *payment.Result
		err error
	)
	if req.OrderID != "" {
		order, lookupErr := pc.Orders.Get(ctx, req.OrderID)
		userID, _ := currentUserID(r)
		if errors.Is(lookupErr, store.ErrNotFound) || (lookupErr == nil && order.UserID != nil && !order.BelongsTo(userID)) {
			respondError(w, http.StatusNotFound, "Order not found")
			return
		}
		if lookupErr != nil {
			log.Error("order lookup failed", zap.Error(lookupErr))
			respondError(w, http.StatusInternalServerError, "Failed to retrieve order")
			return
		}
		res, err = pc.Bridge.CreateFromOrder(ctx, order)
	} else {
		res, err = pc.Bridge.CreateFromCart(ctx, cart.New(pc.Sessions.Get(r)))
	}

	switch {
	case err == nil:
		pc.Metrics.RecordPayment("created")
		respondJSON(w, http.StatusOK, res)
	case errors.Is(err, payment.ErrEmptyCart):
		pc.Metrics.RecordPayment("empty_cart")
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, payment.ErrOrderNotPayable):
		pc.Metrics.RecordPayment("not_payable")
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, payment.ErrNotConfigured), errors.Is(err, payment.ErrNoRedirect):
		pc.Metrics.RecordPayment("error")
		log.Error("payment checkout unavailable", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
	default:
		pc.Metrics.RecordPayment("error")
		log.Error("payment checkout failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, "Error al comunicarse con el procesador de pagos")
	}
}

// Webhook verifies and applies a processor notification
func (pc *PaymentController) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := dbContext(r)
	defer cancel()

	event, err := pc.Bridge.HandleWebhook(ctx, payload, r.Header.Get(signatureHeader))
	if errors.Is(err, payment.ErrInvalidSignature) {
		logger.FromContext(ctx).Warn("rejected payment webhook", zap.Error(err))
		respondError(w, http.StatusBadRequest, "Invalid signature")
		return
	}
	if err != nil {
		logger.FromContext(ctx).Error("payment webhook failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Webhook processing failed")
		return
	}
	if event != nil {
		pc.Metrics.RecordWebhook(event.Type)
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Success is the processor's return URL after payment. The cart and the
// held shipping quote are cleared.
func (pc *PaymentController) Success(w http.ResponseWriter, r *http.Request) {
	sess := pc.Sessions.Get(r)
	c := cart.New(sess)
	c.Clear()
	c.ClearShipping()
	pc.Sessions.Save(w, r, sess)

	respondJSON(w, http.StatusOK, map[string]string{
		"session_id": r.URL.Query().Get("session_id"),
		"status":     "approved",
		"message":    "¡Pago realizado con éxito! Gracias por tu compra.",
	})
}

// Failure is the processor's return URL after a cancelled payment
func (pc *PaymentController) Failure(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"session_id": r.URL.Query().Get("session_id"),
		"status":     "failure",
		"message":    "El pago no pudo ser procesado.",
	})
}

// Pending reports a payment still being processed
func (pc *PaymentController) Pending(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"session_id": r.URL.Query().Get("session_id"),
		"status":     "pending",
		"message":    "Tu pago está siendo procesado.",
	})
}
