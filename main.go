package main

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"masivo-tech/chat"
	"masivo-tech/checkout"
	"masivo-tech/config"
	"masivo-tech/controllers"
	"masivo-tech/logger"
	"masivo-tech/metrics"
	"masivo-tech/middleware"
	"masivo-tech/payment"
	"masivo-tech/routes"
	"masivo-tech/session"
	"masivo-tech/store"
	"masivo-tech/utils"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Server.Debug)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	if cfg.Server.SecretKey == "" {
		key, err := utils.RandomToken(32)
		if err != nil {
			return err
		}
		cfg.Server.SecretKey = key
		log.Warn("SECRET_KEY not set; sessions will not survive a restart")
	}
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = cfg.Server.SecretKey
		log.Warn("JWT_SECRET not set; tokens are signed with SECRET_KEY")
	}
	utils.JwtKey = []byte(cfg.Auth.JWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	connectCtx, cancel := context.WithTimeout(ctx, cfg.Server.ExternalTimeout)
	client, err := store.Connect(connectCtx, cfg.MongoDB.URI)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Error("mongodb disconnect failed", zap.Error(err))
		}
	}()
	db := client.Database(cfg.MongoDB.Database)
	indexCtx, cancel := context.WithTimeout(ctx, cfg.Server.ExternalTimeout)
	err = store.EnsureIndexes(indexCtx, db)
	cancel()
	if err != nil {
		return err
	}
	repos := store.NewMongo(db)

	// Sessions
	sessionStore, closeSessions, err := session.NewStore(ctx, session.Options{
		Secret:        []byte(cfg.Server.SecretKey),
		MaxAge:        cfg.Session.MaxAge,
		Secure:        cfg.Server.Secure(),
		RedisAddr:     cfg.Redis.Addr,
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer func() { _ = closeSessions() }()
	sessions := &controllers.Sessions{Store: sessionStore, Name: cfg.Session.Name}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry, "masivotech")

	// Chat
	assistant, closeChat := newAssistant(ctx, cfg, log)
	defer closeChat()

	// Payments
	var gateway payment.Gateway
	if cfg.Stripe.SecretKey != "" {
		gateway = payment.NewStripe(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, nil)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set; payments are disabled")
	}
	bridge := payment.NewBridge(gateway, repos.Orders, repos.Payments, repos.Audit, cfg.Stripe.Currency, cfg.Server.BaseURL)

	email := utils.NewEmailService(utils.EmailOptions{
		PostmarkToken:  cfg.Email.PostmarkToken,
		SendGridKey:    cfg.Email.SendGridKey,
		Sender:         cfg.Email.Sender,
		ContactAddress: cfg.Email.ContactAddress,
		BaseURL:        cfg.Server.BaseURL,
	}, log)

	if cfg.Auth.GoogleEnabled() {
		controllers.ConfigureGoogle(sessionStore, cfg.Auth.GoogleClientID, cfg.Auth.GoogleSecret, cfg.Server.BaseURL)
	}

	ping := func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) }
	materializer := checkout.NewMaterializer(repos.Products, repos.Orders, repos.Audit, cfg.Orders.DecrementStock)

	router := mux.NewRouter()
	router.Use(m.Middleware)
	routes.RegisterRoutes(router, routes.Handlers{
		Users:    controllers.NewUserController(repos.Users, email, cfg.Auth.GoogleEnabled()),
		Products: controllers.NewProductController(repos.Products, repos.Audit),
		Pages:    controllers.NewPageController(repos.Products, email, ping),
		Cart:     controllers.NewCartController(repos.Products, sessions, m),
		Orders:   controllers.NewOrderController(materializer, repos.Orders, repos.Audit, sessions, email, m),
		Payments: controllers.NewPaymentController(bridge, repos.Orders, sessions, m),
		Chat:     controllers.NewChatController(assistant, sessions, m),
		Metrics:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	secure := cfg.Server.Secure()
	csrfKey := sha256.Sum256([]byte(cfg.Server.SecretKey))
	protect := csrf.Protect(csrfKey[:],
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(csrfFailure)),
	)

	var handler http.Handler = router
	handler = protect(handler)
	handler = middleware.CSRFExempt(!secure, "/payment/webhook", "/chat/api")(handler)
	handler = middleware.SecurityHeaders(secure)(handler)
	handler = middleware.AllowedHosts(cfg.Server.Hosts())(handler)
	handler = middleware.Recover(handler)
	handler = logger.Middleware(log)(handler)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("base_url", cfg.Server.BaseURL))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newAssistant probes the configured Gemini models and returns an assistant
// that falls back to canned answers when none respond
func newAssistant(ctx context.Context, cfg *config.Config, log *zap.Logger) (*chat.Assistant, func()) {
	noop := func() {}
	if cfg.Gemini.APIKey == "" {
		log.Warn("GEMINI_API_KEY not set; chat uses canned answers")
		return chat.NewAssistant(nil, cfg.Gemini.Timeout), noop
	}

	gemini, err := chat.NewGemini(ctx, cfg.Gemini.APIKey)
	if err != nil {
		log.Error("gemini client failed; chat uses canned answers", zap.Error(err))
		return chat.NewAssistant(nil, cfg.Gemini.Timeout), noop
	}

	probeCtx, cancel := context.WithTimeout(ctx, cfg.Server.ExternalTimeout)
	defer cancel()
	model, name, err := chat.Probe(probeCtx, gemini.Model, chat.ModelNames)
	if err != nil {
		log.Error("no gemini model answered; chat uses canned answers", zap.Error(err))
		_ = gemini.Close()
		return chat.NewAssistant(nil, cfg.Gemini.Timeout), noop
	}
	log.Info("gemini model selected", zap.String("model", name))
	return chat.NewAssistant(model, cfg.Gemini.Timeout), func() { _ = gemini.Close() }
}

func csrfFailure(w http.ResponseWriter, r *http.Request) {
	logger.FromContext(r.Context()).Warn("csrf check failed", zap.Error(csrf.FailureReason(r)))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_, _ = w.Write([]byte(`{"error":"CSRF token invalid"}`))
}
