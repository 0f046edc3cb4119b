// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/danielhkuo/quickly-elect/election"
	"github.com/danielhkuo/quickly-elect/middleware"
)

// statusFor maps an election error to its HTTP status.
func statusFor(err error) int {
	if errors.Is(err, election.ErrVotingClosed) {
		return http.StatusForbidden
	}
	switch election.KindOf(err) {
	case election.KindValidation:
		return http.StatusBadRequest
	case election.KindAuth:
		return http.StatusUnauthorized
	case election.KindState:
		return http.StatusConflict
	case election.KindNotFound:
		return http.StatusNotFound
	case election.KindRateLimit:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// writeError sends err as a JSON error response. Storage failures are logged
// with their cause and reported with a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed",
			"request_id", middleware.RequestID(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}

	setRetryAfter(w, err)
	middleware.FieldErrorResponse(w, status, errorField(err), election.Message(err))
}

func setRetryAfter(w http.ResponseWriter, err error) {
	var e *election.Error
	if errors.As(err, &e) && e.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(e.RetryAfter.Seconds()))))
	}
}

func errorField(err error) string {
	var e *election.Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}
