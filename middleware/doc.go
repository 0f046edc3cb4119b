// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /_health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (status,
duration_ms), both tagged with a request ID. The ID is taken from an incoming
X-Request-ID header or generated, echoed back in the response, and available
to handlers through RequestID(r.Context()).

# Admin Gate

Admin routes share one token from the configuration:

	mux.HandleFunc("GET /admin/voting-status",
		middleware.WithLogging(middleware.RequireAdmin(cfg.AdminToken, h.VotingStatus)))

The token is accepted as "Authorization: Bearer <token>", an X-Admin-Token
header, the admin_token cookie, or a ?token= query parameter (in that order).
Comparison is byte-for-byte in constant time. A query-string token is moved
into an HttpOnly cookie scoped to /admin.

# CORS Middleware

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

Allows methods GET, POST, PUT, DELETE, OPTIONS with headers
Content-Type, Authorization, X-Admin-Token.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")
	middleware.FieldErrorResponse(w, http.StatusBadRequest, "voter_id", "message")

	var req models.VotingControlRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

	ip := middleware.GetClientIP(r, cfg.TrustedProxies)

Uses RemoteAddr. Only when the socket peer is one of the trusted proxies are
X-Forwarded-For (rightmost untrusted hop) and then X-Real-IP consulted. The
result keys the ballot rate limit, so a client talking to the server directly
cannot change its key by sending forwarding headers.
*/
package middleware
