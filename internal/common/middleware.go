package common

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const (
	principalKey contextKey = "principal"
	requestIDKey contextKey = "request_id"
	routeKey     contextKey = "route"
)

// unmatchedRoute labels requests no route claimed.
const unmatchedRoute = "unmatched"

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrTokenMissing
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrTokenInvalid
	}
	return parts[1], nil
}

// Authenticate verifies the bearer token and stores the principal on the request context.
// Nothing downstream runs when verification fails.
func Authenticate(secret []byte, er *ErrorResponder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := BearerToken(r)
			if err != nil {
				er.Respond(w, r, Wrap(CodeUnauthorized, "Authorization token missing or malformed", err))
				return
			}

			claims, err := ValidToken(secret, tokenString)
			if err != nil {
				er.Respond(w, r, Wrap(CodeUnauthorized, "Invalid or expired token", err))
				return
			}

			principal := claims.User
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), &principal)))
		})
	}
}

// Authorize runs capability checks against the authenticated principal.
func Authorize(er *ErrorResponder, checks ...Check) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := PrincipalFromContext(r.Context())
			if err := RunChecks(p, checks...); err != nil {
				er.Respond(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit rejects requests over the limiter's budget for the client address.
func RateLimit(limiter *RateLimiter, er *ErrorResponder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := limiter.Allow(ClientKey(r))

			h := w.Header()
			h.Set("RateLimit-Limit", strconv.Itoa(res.Limit))
			h.Set("RateLimit-Remaining", strconv.Itoa(res.Remaining))
			h.Set("RateLimit-Reset", strconv.Itoa(secondsCeil(res.ResetIn)))

			if !res.Allowed {
				rateLimitedTotal.Inc()
				h.Set("Retry-After", strconv.Itoa(secondsCeil(res.ResetIn)))
				er.Respond(w, r, RateLimitError("Too many requests, please try again later."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientKey identifies the caller by remote address, without the port.
func ClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func secondsCeil(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// CORS adds permissive CORS headers
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// TagRoute records the matched route template for RequestLogger.
func TagRoute(r *http.Request, pattern string) {
	if slot, ok := r.Context().Value(routeKey).(*string); ok {
		*slot = pattern
	}
}

// RequestLogger tags each request with an id and logs method, route, status and latency.
// It wraps the whole router, so requests no route matches are logged and counted too.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := r.Header.Get("X-Request-ID")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", id)

			pattern := unmatchedRoute
			ctx := context.WithValue(r.Context(), requestIDKey, id)
			ctx = context.WithValue(ctx, routeKey, &pattern)
			r = r.WithContext(ctx)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			elapsed := time.Since(start)
			observeRequest(r.Method, pattern, rec.status, elapsed)
			logger.DebugContext(r.Context(), "request handled",
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
				"route", pattern,
				"status", rec.status,
				"duration", elapsed,
			)
		})
	}
}

// Recoverer turns a handler panic into an INTERNAL_ERROR envelope.
func Recoverer(er *ErrorResponder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rv := recover(); rv != nil {
					if rv == http.ErrAbortHandler {
						panic(rv)
					}
					er.Respond(w, r, InternalError("Internal server error", fmt.Errorf("panic: %v", rv)))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
