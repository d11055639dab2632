package routes

import (
	"net/http"

	"masivo-tech/controllers"
	"masivo-tech/middleware"

	"github.com/gorilla/mux"
)

// Handlers groups the controllers served by the router
type Handlers struct {
	Users    *controllers.UserController
	Products *controllers.ProductController
	Pages    *controllers.PageController
	Cart     *controllers.CartController
	Orders   *controllers.OrderController
	Payments *controllers.PaymentController
	Chat     *controllers.ChatController
	Metrics  http.Handler
}

// RegisterRoutes sets up all the routes for the application
func RegisterRoutes(router *mux.Router, h Handlers) {
	// Pages
	router.HandleFunc("/", h.Pages.Index).Methods("GET")
	router.HandleFunc("/ofertas", h.Pages.Offers).Methods("GET")
	router.HandleFunc("/envios", h.Pages.ShippingInfo).Methods("GET")
	router.HandleFunc("/contacto", h.Pages.Contact).Methods("POST")
	router.HandleFunc("/health", h.Pages.Health).Methods("GET")
	router.HandleFunc("/csrf", h.Pages.CSRFToken).Methods("GET")
	if h.Metrics != nil {
		router.Handle("/metrics", h.Metrics).Methods("GET")
	}

	// Account routes
	router.HandleFunc("/register", h.Users.Register).Methods("POST")
	router.HandleFunc("/login", h.Users.Login).Methods("POST")
	router.HandleFunc("/verify-email", h.Users.VerifyEmail).Methods("GET")
	router.HandleFunc("/auth/{provider}", h.Users.BeginSocialAuth).Methods("GET")
	router.HandleFunc("/auth/{provider}/callback", h.Users.SocialCallback).Methods("GET")

	account := router.PathPrefix("/profile").Subrouter()
	account.Use(middleware.AuthMiddleware)
	account.HandleFunc("", h.Users.GetProfile).Methods("GET")
	account.HandleFunc("", h.Users.UpdateProfile).Methods("PUT")
	account.HandleFunc("", h.Users.DeleteAccount).Methods("DELETE")
	account.HandleFunc("/password", h.Users.ChangePassword).Methods("POST")

	// Product routes
	router.HandleFunc("/products", h.Products.GetProducts).Methods("GET")
	router.HandleFunc("/products/{id}", h.Products.GetProductByID).Methods("GET")
	router.HandleFunc("/producto/{id}", h.Products.GetProductByID).Methods("GET")
	router.HandleFunc("/buscar/autocomplete", h.Products.Autocomplete).Methods("GET")

	admin := router.PathPrefix("/products").Subrouter()
	admin.Use(middleware.AuthMiddleware)
	admin.Use(middleware.AdminMiddleware)
	admin.HandleFunc("", h.Products.CreateProduct).Methods("POST")
	admin.HandleFunc("/{id}", h.Products.UpdateProduct).Methods("PUT")
	admin.HandleFunc("/{id}", h.Products.DeleteProduct).Methods("DELETE")

	// Cart routes
	router.HandleFunc("/cart", h.Cart.GetCart).Methods("GET")
	router.HandleFunc("/cart/panel", h.Cart.Panel).Methods("GET")
	router.HandleFunc("/cart/add/{id}", h.Cart.AddToCart).Methods("POST")
	router.HandleFunc("/cart/update/{id}", h.Cart.UpdateCart).Methods("POST")
	router.HandleFunc("/cart/remove/{id}", h.Cart.RemoveFromCart).Methods("POST")
	router.HandleFunc("/cart/clear", h.Cart.ClearCart).Methods("POST")
	router.HandleFunc("/cart/shipping", h.Cart.CalculateShipping).Methods("POST")

	// Order routes
	checkout := router.PathPrefix("/checkout").Subrouter()
	checkout.Use(middleware.OptionalAuthMiddleware)
	checkout.HandleFunc("", h.Orders.Checkout).Methods("POST")

	orders := router.PathPrefix("/orders").Subrouter()
	orders.Use(middleware.AuthMiddleware)
	orders.HandleFunc("", h.Orders.GetOrders).Methods("GET")
	orders.HandleFunc("/{id}", h.Orders.GetOrder).Methods("GET")
	orders.HandleFunc("/{id}/cancel", h.Orders.CancelOrder).Methods("POST")

	orderAdmin := router.PathPrefix("/admin/orders").Subrouter()
	orderAdmin.Use(middleware.AuthMiddleware)
	orderAdmin.Use(middleware.AdminMiddleware)
	orderAdmin.HandleFunc("/{id}/status", h.Orders.UpdateOrderStatus).Methods("PUT")
	orderAdmin.HandleFunc("/{id}/audit", h.Orders.OrderAudit).Methods("GET")

	// Payment routes
	payments := router.PathPrefix("/payment").Subrouter()
	payments.Use(middleware.OptionalAuthMiddleware)
	payments.HandleFunc("/create", h.Payments.Create).Methods("POST")
	payments.HandleFunc("/webhook", h.Payments.Webhook).Methods("POST")
	payments.HandleFunc("/success", h.Payments.Success).Methods("GET")
	payments.HandleFunc("/failure", h.Payments.Failure).Methods("GET")
	payments.HandleFunc("/pending", h.Payments.Pending).Methods("GET")

	// Chat routes
	router.HandleFunc("/chat", h.Chat.ChatSession).Methods("GET")
	router.HandleFunc("/chat/api", h.Chat.ChatAPI)
}
