package middleware

import (
	"net"
	"net/http"
	"runtime/debug"
	"strings"

	"masivo-tech/logger"

	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// FriendlyError is returned to clients when a handler panics
const FriendlyError = "Ocurrió un error inesperado. Por favor intentá nuevamente."

// Recover turns a handler panic into a generic 500 response
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.FromContext(r.Context()).Error("panic recovered",
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, FriendlyError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// AllowedHosts rejects requests whose Host is not listed. An empty list or
// "*" allows every host. A leading dot matches subdomains.
func AllowedHosts(hosts []string) func(http.Handler) http.Handler {
	allowAll := len(hosts) == 0
	for _, h := range hosts {
		if h == "*" {
			allowAll = true
		}
	}
	return func(next http.Handler) http.Handler {
		if allowAll {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := r.Host
			if h, _, err := net.SplitHostPort(host); err == nil {
				host = h
			}
			host = strings.ToLower(host)
			for _, allowed := range hosts {
				allowed = strings.ToLower(allowed)
				if host == allowed || (strings.HasPrefix(allowed, ".") && (strings.HasSuffix(host, allowed) || host == allowed[1:])) {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusBadRequest, "Host no permitido")
		})
	}
}

// SecurityHeaders sets conservative response headers
func SecurityHeaders(secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "same-origin")
			if secure {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CSRFExempt prepares requests for csrf.Protect, which it must wrap.
// Requests under the listed path prefixes and token-authenticated API calls
// skip the check. With plaintext the origin checks expect http URLs.
func CSRFExempt(plaintext bool, prefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if plaintext {
				r = csrf.PlaintextHTTPRequest(r)
			}
			if exempt(r, prefixes) {
				r = csrf.UnsafeSkipCheck(r)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func exempt(r *http.Request, prefixes []string) bool {
	if _, ok := bearerToken(r); ok {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(r.URL.Path, p) {
			return true
		}
	}
	return false
}
