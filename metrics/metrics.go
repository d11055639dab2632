package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the storefront's Prometheus collectors. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	ChatRepliesTotal    *prometheus.CounterVec
	PaymentsTotal       *prometheus.CounterVec
	WebhookEventsTotal  *prometheus.CounterVec
	OrdersPlacedTotal   prometheus.Counter
	CartOperationsTotal *prometheus.CounterVec
}

// New registers the collectors on reg using prefix for every metric name
func New(reg prometheus.Registerer, prefix string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		ChatRepliesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_chat_replies_total",
				Help: "Chat assistant replies by source",
			},
			[]string{"source"},
		),
		PaymentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_payments_total",
				Help: "Hosted checkout creation attempts by outcome",
			},
			[]string{"outcome"},
		),
		WebhookEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_payment_webhook_events_total",
				Help: "Payment webhook notifications by event type",
			},
			[]string{"type"},
		),
		OrdersPlacedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_orders_placed_total",
				Help: "Total number of orders created at checkout",
			},
		),
		CartOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_cart_operations_total",
				Help: "Cart mutations by operation and result",
			},
			[]string{"operation", "result"},
		),
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and latency labelled by route template
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		path := "unmatched"
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				path = tpl
			}
		}
		status := strconv.Itoa(sw.status)

		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}

// RecordChatReply counts a chat reply by its source
func (m *Metrics) RecordChatReply(source string) {
	if m == nil {
		return
	}
	if source == "" {
		source = "greeting"
	}
	m.ChatRepliesTotal.WithLabelValues(source).Inc()
}

// RecordPayment counts a checkout creation attempt
func (m *Metrics) RecordPayment(outcome string) {
	if m == nil {
		return
	}
	m.PaymentsTotal.WithLabelValues(outcome).Inc()
}

// RecordWebhook counts a verified webhook notification
func (m *Metrics) RecordWebhook(eventType string) {
	if m == nil {
		return
	}
	m.WebhookEventsTotal.WithLabelValues(eventType).Inc()
}

// RecordOrder counts a placed order
func (m *Metrics) RecordOrder() {
	if m == nil {
		return
	}
	m.OrdersPlacedTotal.Inc()
}

// RecordCartOperation counts a cart mutation
func (m *Metrics) RecordCartOperation(operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	m.CartOperationsTotal.WithLabelValues(operation, result).Inc()
}
