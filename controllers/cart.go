package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"masivo-tech/cart"
	"masivo-tech/logger"
	"masivo-tech/metrics"
	"masivo-tech/models"
	"masivo-tech/store"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartController handles the session cart
type CartController struct {
	Products store.ProductRepository
	Sessions *Sessions
	Metrics  *metrics.Metrics
}

// NewCartController creates a new CartController
func NewCartController(products store.ProductRepository, sessions *Sessions, m *metrics.Metrics) *CartController {
	return &CartController{Products: products, Sessions: sessions, Metrics: m}
}

type cartResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	TotalItems int    `json:"cart_total_items"`
	TotalPrice string `json:"cart_total_price"`
}

type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

func result(c *cart.Cart, message string) cartResult {
	return cartResult{
		Success:    true,
		Message:    message,
		TotalItems: c.Len(),
		TotalPrice: c.TotalPrice().String(),
	}
}

func respondCartFailure(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, cartResult{Success: false, Message: message})
}

type cartItemView struct {
	Product      models.ProductView `json:"product"`
	Quantity     int                `json:"quantity"`
	Price        decimal.Decimal    `json:"price"`
	TotalPrice   decimal.Decimal    `json:"total_price"`
	ExceedsStock bool               `json:"exceeds_stock"`
	TotalDisplay string             `json:"total_price_display"`
}

// GetCart returns the resolved cart with its held shipping quote
func (cc *CartController) GetCart(w http.ResponseWriter, r *http.Request) {
	sess := cc.Sessions.Get(r)
	c := cart.New(sess)

	ctx, cancel := dbContext(r)
	defer cancel()
	items, err := c.Items(ctx, cc.Products)
	if err != nil {
		logger.FromContext(ctx).Error("cart resolution failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Error al cargar el carrito")
		return
	}

	views := make([]cartItemView, 0, len(items))
	for _, item := range items {
		views = append(views, cartItemView{
			Product:      item.Product.View(),
			Quantity:     item.Quantity,
			Price:        item.Price,
			TotalPrice:   item.TotalPrice,
			ExceedsStock: item.ExceedsStock(),
			TotalDisplay: models.FormatPrice(item.TotalPrice),
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items":                   views,
		"cart_total_items":        c.Len(),
		"cart_total_price":        c.TotalPrice().String(),
		"cart_has_exceeded_stock": cart.AnyExceedsStock(items),
		"shipping_price":          c.ShippingPrice().String(),
		"postal_code":             c.PostalCode(),
		"total_with_shipping":     c.TotalWithShipping().String(),
	})
}

// Panel returns the cart summary shown in the side panel
func (cc *CartController) Panel(w http.ResponseWriter, r *http.Request) {
	c := cart.New(cc.Sessions.Get(r))
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"lines":            c.Lines(),
		"cart_total_items": c.Len(),
		"cart_total_price": c.TotalPrice().String(),
	})
}

// AddToCart adds a quantity of a product, one unit when none is given
func (cc *CartController) AddToCart(w http.ResponseWriter, r *http.Request) {
	cc.mutate(w, r, "add", false)
}

// UpdateCart sets the quantity of a product line
func (cc *CartController) UpdateCart(w http.ResponseWriter, r *http.Request) {
	cc.mutate(w, r, "update", true)
}

func (cc *CartController) mutate(w http.ResponseWriter, r *http.Request, op string, replace bool) {
	var req quantityRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		cc.Metrics.RecordCartOperation(op, err)
		respondCartFailure(w, http.StatusBadRequest, cart.ErrInvalidQuantity.Error())
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	ctx, cancel := dbContext(r)
	defer cancel()
	product, err := cc.Products.Get(ctx, mux.Vars(r)["id"])
	if errors.Is(err, store.ErrNotFound) {
		respondCartFailure(w, http.StatusNotFound, "Producto no encontrado")
		return
	}
	if err != nil {
		logger.FromContext(ctx).Error("product lookup failed", zap.Error(err))
		respondCartFailure(w, http.StatusInternalServerError, "Error al actualizar el carrito")
		return
	}

	sess := cc.Sessions.Get(r)
	c := cart.New(sess)
	err = c.Add(product, quantity, replace)
	cc.Metrics.RecordCartOperation(op, err)
	switch {
	case errors.Is(err, cart.ErrInsufficientStock):
		respondCartFailure(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		respondCartFailure(w, http.StatusBadRequest, err.Error())
		return
	}

	if !cc.Sessions.Save(w, r, sess) {
		respondCartFailure(w, http.StatusInternalServerError, "Error al actualizar el carrito")
		return
	}

	message := fmt.Sprintf("\"%s\" agregado al carrito.", product.Name)
	if replace {
		message = fmt.Sprintf("\"%s\" actualizado a %d unidades.", product.Name, quantity)
	}
	respondJSON(w, http.StatusOK, result(c, message))
}

// RemoveFromCart drops a product line. Removing a missing line succeeds.
func (cc *CartController) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	sess := cc.Sessions.Get(r)
	c := cart.New(sess)
	message := "Producto eliminado del carrito"
	for _, line := range c.Lines() {
		if line.ProductID == id {
			message = fmt.Sprintf("\"%s\" removido del carrito.", line.Name)
		}
	}
	c.Remove(id)
	cc.Metrics.RecordCartOperation("remove", nil)

	if !cc.Sessions.Save(w, r, sess) {
		respondCartFailure(w, http.StatusInternalServerError, "Error al actualizar el carrito")
		return
	}
	respondJSON(w, http.StatusOK, result(c, message))
}

// ClearCart empties the cart
func (cc *CartController) ClearCart(w http.ResponseWriter, r *http.Request) {
	sess := cc.Sessions.Get(r)
	c := cart.New(sess)
	c.Clear()
	cc.Metrics.RecordCartOperation("clear", nil)

	if !cc.Sessions.Save(w, r, sess) {
		respondCartFailure(w, http.StatusInternalServerError, "Error al actualizar el carrito")
		return
	}
	respondJSON(w, http.StatusOK, result(c, "Carrito vaciado correctamente."))
}

type shippingRequest struct {
	PostalCode string `json:"postal_code"`
}

// CalculateShipping quotes a postal code and holds the quote in the session
func (cc *CartController) CalculateShipping(w http.ResponseWriter, r *http.Request) {
	var req shippingRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	sess := cc.Sessions.Get(r)
	c := cart.New(sess)
	price := c.SetShipping(req.PostalCode)
	if !cc.Sessions.Save(w, r, sess) {
		respondError(w, http.StatusInternalServerError, "Error al calcular el envío")
		return
	}

	resp := map[string]interface{}{
		"success":             true,
		"postal_code":         c.PostalCode(),
		"shipping_price":      price.String(),
		"total_with_shipping": c.TotalWithShipping().String(),
	}
	if zone, ok := models.ZoneForPostalCode(c.PostalCode()); ok {
		resp["zona"] = zone.Name
		resp["tiempo"] = zone.Delivery
		resp["precio"] = zone.PriceDisplay()
	}
	respondJSON(w, http.StatusOK, resp)
}
