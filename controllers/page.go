package controllers

import (
	"context"
	"net/http"
	"strings"

	"masivo-tech/logger"
	"masivo-tech/models"
	"masivo-tech/store"
	"masivo-tech/utils"

	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

const featuredLimit = 8

// Pinger reports whether a backing service is reachable
type Pinger func(ctx context.Context) error

// PageController serves the storefront's informational endpoints
type PageController struct {
	Products store.ProductRepository
	Email    *utils.EmailService
	Ping     Pinger
}

// NewPageController creates a new PageController
func NewPageController(products store.ProductRepository, email *utils.EmailService, ping Pinger) *PageController {
	return &PageController{Products: products, Email: email, Ping: ping}
}

func (pc *PageController) latest(w http.ResponseWriter, r *http.Request, key string) {
	ctx, cancel := dbContext(r)
	defer cancel()

	products, err := pc.Products.Latest(ctx, featuredLimit)
	if err != nil {
		logger.FromContext(ctx).Error("latest products failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Error fetching products")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		key:          models.Views(products),
		"categories": models.Categories,
	})
}

// Index returns the newest available products and the category list
func (pc *PageController) Index(w http.ResponseWriter, r *http.Request) {
	pc.latest(w, r, "products")
}

// Offers returns the products on the offers page
func (pc *PageController) Offers(w http.ResponseWriter, r *http.Request) {
	pc.latest(w, r, "productos_oferta")
}

type shippingZoneView struct {
	Zone     string `json:"zona"`
	Price    string `json:"precio"`
	Delivery string `json:"tiempo"`
}

// ShippingInfo returns the shipping zone table
func (pc *PageController) ShippingInfo(w http.ResponseWriter, r *http.Request) {
	zones := make([]shippingZoneView, 0, len(models.ShippingZones))
	for _, z := range models.ShippingZones {
		zones = append(zones, shippingZoneView{Zone: z.Name, Price: z.PriceDisplay(), Delivery: z.Delivery})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"shipping_zones": zones})
}

// Contact validates a contact form and forwards it to the store inbox
func (pc *PageController) Contact(w http.ResponseWriter, r *http.Request) {
	var msg utils.ContactMessage
	if err := decodeJSON(w, r, &msg); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = strings.TrimSpace(msg.Email)
	msg.Subject = strings.TrimSpace(msg.Subject)
	msg.Message = strings.TrimSpace(msg.Message)

	fields, err := utils.FieldErrors(msg)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid input")
		return
	}
	if len(fields) > 0 {
		respondJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "errors": fields})
		return
	}

	if err := pc.Email.SendContactMessage(r.Context(), msg); err != nil {
		logger.FromContext(r.Context()).Error("contact email failed", zap.Error(err))
		respondJSON(w, http.StatusBadGateway, map[string]interface{}{
			"success": false,
			"message": "No pudimos enviar tu mensaje. Intentá nuevamente más tarde.",
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "¡Mensaje enviado correctamente! Te contactaremos pronto. 📧",
	})
}

// Health reports service and database status
func (pc *PageController) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "database": "ok"}
	code := http.StatusOK
	if pc.Ping != nil {
		ctx, cancel := dbContext(r)
		defer cancel()
		if err := pc.Ping(ctx); err != nil {
			logger.FromContext(ctx).Warn("health check failed", zap.Error(err))
			status["status"], status["database"] = "degraded", "unreachable"
			code = http.StatusServiceUnavailable
		}
	}
	respondJSON(w, code, status)
}

// CSRFToken returns the token clients send back in the X-CSRF-Token header
func (pc *PageController) CSRFToken(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"csrf_token": csrf.Token(r)})
}
