package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"masivo-tech/cart"
	"masivo-tech/checkout"
	"masivo-tech/logger"
	"masivo-tech/metrics"
	"masivo-tech/middleware"
	"masivo-tech/models"
	"masivo-tech/store"
	"masivo-tech/utils"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	emailTimeout = 30 * time.Second
	auditLimit   = 100

	msgNotCancellable = "El pedido ya no puede cancelarse"
)

// OrderController handles checkout and order-related requests
type OrderController struct {
	Materializer *checkout.Materializer
	Orders       store.OrderRepository
	Audit        store.AuditLog
	Sessions     *Sessions
	Email        *utils.EmailService
	Metrics      *metrics.Metrics
}

// NewOrderController creates a new OrderController
func NewOrderController(materializer *checkout.Materializer, orders store.OrderRepository, audit store.AuditLog, sessions *Sessions, email *utils.EmailService, m *metrics.Metrics) *OrderController {
	return &OrderController{
		Materializer: materializer,
		Orders:       orders,
		Audit:        audit,
		Sessions:     sessions,
		Email:        email,
		Metrics:      m,
	}
}

// Checkout turns the session cart into an order. Anonymous checkout is
// allowed; an authenticated buyer is linked to the order.
func (oc *OrderController) Checkout(w http.ResponseWriter, r *http.Request) {
	var form checkout.Form
	if err := decodeJSON(w, r, &form); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var buyer *primitive.ObjectID
	if userID, ok := currentUserID(r); ok {
		buyer = &userID
	}

	sess := oc.Sessions.Get(r)
	c := cart.New(sess)

	ctx, cancel := dbContext(r)
	defer cancel()

	order, err := oc.Materializer.PlaceOrder(ctx, c, form, buyer)

	var invalid *checkout.ValidationError
	switch {
	case errors.As(err, &invalid):
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{"errors": invalid.Fields})
		return
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, cart.ErrInsufficientStock):
		respondError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		logger.FromContext(ctx).Error("checkout failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to create order")
		return
	}

	oc.Metrics.RecordOrder()
	cleared := oc.Sessions.Save(w, r, sess)
	if !cleared {
		logger.FromContext(ctx).Warn("order placed but cart was not cleared", zap.String("order_id", order.ID.Hex()))
	}
	oc.sendConfirmation(r.Context(), order)

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"order_id":     order.ID.Hex(),
		"order":        order,
		"cart_cleared": cleared,
		"message":      "¡Pedido realizado con éxito! Te enviamos un email con el detalle.",
	})
}

func (oc *OrderController) sendConfirmation(ctx context.Context, order *models.Order) {
	if oc.Email == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emailTimeout)
	go func() {
		defer cancel()
		if err := oc.Email.SendOrderConfirmationEmail(ctx, order); err != nil {
			logger.FromContext(ctx).Warn("order confirmation email failed",
				zap.String("order_id", order.ID.Hex()), zap.Error(err))
		}
	}()
}

// GetOrders retrieves all orders of the authenticated user, newest first
func (oc *OrderController) GetOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(r)
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ctx, cancel := dbContext(r)
	defer cancel()
	orders, err := oc.Orders.ListByUser(ctx, userID)
	if err != nil {
		logger.FromContext(ctx).Error("order listing failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to retrieve orders")
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}
	respondJSON(w, http.StatusOK, orders)
}

// loadOrder fetches the order named in the route, allowing only its owner
// or an admin to see it
func (oc *OrderController) loadOrder(ctx context.Context, w http.ResponseWriter, r *http.Request) (*models.Order, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}

	order, err := oc.Orders.Get(ctx, mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Order not found")
		return nil, false
	}
	if err != nil {
		logger.FromContext(ctx).Error("order lookup failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to retrieve order")
		return nil, false
	}

	userID, _ := currentUserID(r)
	if claims.Role != models.RoleAdmin && !order.BelongsTo(userID) {
		respondError(w, http.StatusNotFound, "Order not found")
		return nil, false
	}
	return order, true
}

// GetOrder returns one order of the authenticated user
func (oc *OrderController) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := dbContext(r)
	defer cancel()

	order, ok := oc.loadOrder(ctx, w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"order":            order,
		"status_label":     order.Status.Label(),
		"can_be_cancelled": order.CanBeCancelled(),
		"item_count":       order.ItemCount(),
	})
}

// CancelOrder cancels an order that has not been processed yet
func (oc *OrderController) CancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := dbContext(r)
	defer cancel()

	order, ok := oc.loadOrder(ctx, w, r)
	if !ok {
		return
	}
	if !order.CanBeCancelled() {
		respondError(w, http.StatusConflict, msgNotCancellable)
		return
	}
	if !oc.setStatus(ctx, w, order, models.OrderCancelled, models.CancellableStatuses...) {
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Pedido cancelado"})
}

type statusRequest struct {
	Status models.OrderStatus `json:"status"`
}

// UpdateOrderStatus allows an admin to move an order to any known status
func (oc *OrderController) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !req.Status.Valid() {
		respondError(w, http.StatusBadRequest, "Invalid order status")
		return
	}

	ctx, cancel := dbContext(r)
	defer cancel()

	order, ok := oc.loadOrder(ctx, w, r)
	if !ok {
		return
	}
	if !oc.setStatus(ctx, w, order, req.Status) {
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Order status updated successfully"})
}

// setStatus moves order to status. With from, the update only applies while
// the stored order is still in one of those states.
func (oc *OrderController) setStatus(ctx context.Context, w http.ResponseWriter, order *models.Order, status models.OrderStatus, from ...models.OrderStatus) bool {
	log := logger.FromContext(ctx).With(zap.String("order_id", order.ID.Hex()))

	var err error
	if len(from) > 0 {
		err = oc.Orders.TransitionStatus(ctx, order.ID.Hex(), from, status)
	} else {
		err = oc.Orders.UpdateStatus(ctx, order.ID.Hex(), status)
	}
	switch {
	case errors.Is(err, store.ErrStatusChanged):
		respondError(w, http.StatusConflict, msgNotCancellable)
		return false
	case err != nil:
		log.Error("order status update failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to update order")
		return false
	}

	if oc.Audit != nil {
		data := map[string]interface{}{"from": string(order.Status), "to": string(status)}
		if err := oc.Audit.Record(ctx, "order.status", order.ID.Hex(), data); err != nil {
			log.Warn("audit record failed", zap.Error(err))
		}
	}
	return true
}

// OrderAudit returns the audit trail of an order
func (oc *OrderController) OrderAudit(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := dbContext(r)
	defer cancel()

	entries, err := oc.Audit.List(ctx, mux.Vars(r)["id"], auditLimit)
	if err != nil {
		logger.FromContext(ctx).Error("audit listing failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to retrieve audit log")
		return
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	respondJSON(w, http.StatusOK, entries)
}
