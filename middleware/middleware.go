// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/quickly-elect/auth"
	"github.com/danielhkuo/quickly-elect/models"
)

// Admin token transports, checked in this order
const (
	AdminTokenHeader = "X-Admin-Token"
	AdminTokenCookie = "admin_token"
	AdminTokenQuery  = "token"
)

// Bodies above this size are rejected by ParseJSONBody.
const maxJSONBody = 1 << 20

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID returns the ID WithLogging assigned to the request, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// WithLogging wraps a handler with request logging and a request ID,
// echoed in X-Request-ID.
func WithLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get("X-Request-ID")
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey, id))

		slog.Info("request started",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"remote", r.RemoteAddr,
		)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		slog.Info("request completed",
			"request_id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// JSONResponse writes a JSON response
func JSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	err := json.NewEncoder(w).Encode(data)
	if err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse writes a JSON error response
func ErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	FieldErrorResponse(w, statusCode, "", message)
}

// FieldErrorResponse writes a JSON error response naming the offending field.
func FieldErrorResponse(w http.ResponseWriter, statusCode int, field, message string) {
	JSONResponse(w, statusCode, models.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Field:   field,
	})
}

// ParseJSONBody parses the request body into the given struct
func ParseJSONBody(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxJSONBody)).Decode(v)
}

// WantsJSON reports whether the client asked for a JSON response.
func WantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// CORS middleware allows cross-origin requests for the admin API
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+AdminTokenHeader)
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetClientIP returns the address of the client behind the request. The
// socket peer is used unless it falls inside trustedProxies, in which case
// X-Forwarded-For is read from the right, skipping trusted hops, and
// X-Real-IP is the fallback.
func GetClientIP(r *http.Request, trustedProxies []netip.Prefix) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		peer = host
	}
	if !isTrusted(peer, trustedProxies) {
		return peer
	}

	if xff := r.Header.Values("X-Forwarded-For"); len(xff) > 0 {
		hops := strings.Split(strings.Join(xff, ","), ",")
		for i := len(hops) - 1; i >= 0; i-- {
			addr, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
			if err != nil {
				break
			}
			if !isTrusted(addr.String(), trustedProxies) || i == 0 {
				return addr.Unmap().String()
			}
		}
	}

	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.Unmap().String()
	}
	return peer
}

func isTrusted(ip string, trustedProxies []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trustedProxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// AdminTokenFromRequest returns the admin token presented by the client and
// where it came from: bearer header, X-Admin-Token header, cookie or query
// parameter.
func AdminTokenFromRequest(r *http.Request) (token, source string) {
	if h := r.Header.Get("Authorization"); h != "" {
		if rest, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(rest), "bearer"
		}
	}
	if h := r.Header.Get(AdminTokenHeader); h != "" {
		return h, "header"
	}
	if c, err := r.Cookie(AdminTokenCookie); err == nil && c.Value != "" {
		return c.Value, "cookie"
	}
	if q := r.URL.Query().Get(AdminTokenQuery); q != "" {
		return q, "query"
	}
	return "", ""
}

// RequireAdmin rejects requests that do not carry the admin token. A token
// accepted from the query string is stored in a cookie so that links and
// forms on the admin page keep working without it.
func RequireAdmin(adminToken string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, source := AdminTokenFromRequest(r)
		if err := auth.ValidateAdminToken(token, adminToken); err != nil {
			slog.Warn("admin request rejected",
				"request_id", RequestID(r.Context()),
				"path", r.URL.Path,
				"source", source,
			)
			ErrorResponse(w, http.StatusUnauthorized, "Unauthorized access. Admin token required.")
			return
		}

		if source == "query" {
			http.SetCookie(w, &http.Cookie{
				Name:     AdminTokenCookie,
				Value:    token,
				Path:     "/admin",
				HttpOnly: true,
				SameSite: http.SameSiteStrictMode,
				Secure:   r.TLS != nil,
			})
		}

		next(w, r)
	}
}
