// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/quickly-elect/election"
	"github.com/danielhkuo/quickly-elect/models"
	"github.com/danielhkuo/quickly-elect/testutil"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"voting closed", election.ErrVotingClosed, http.StatusForbidden},
		{"already voted", election.ErrAlreadyVoted, http.StatusConflict},
		{"no positions", election.ErrNoPositions, http.StatusConflict},
		{"no selections", election.ErrNoSelections, http.StatusBadRequest},
		{"bad credentials", election.ErrInvalidCredentials, http.StatusUnauthorized},
		{"not found", election.ErrNotFound, http.StatusNotFound},
		{"rate limited", &election.Error{Kind: election.KindRateLimit}, http.StatusTooManyRequests},
		{"credential space", election.ErrCredentialSpaceExhausted, http.StatusInternalServerError},
		{"plain error", errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	t.Run("retry after", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/vote", nil)
		writeError(w, r, &election.Error{Kind: election.KindRateLimit, Message: "slow down", RetryAfter: 1500 * time.Millisecond})

		testutil.AssertStatus(t, w, http.StatusTooManyRequests)
		if got := w.Header().Get("Retry-After"); got != "2" {
			t.Errorf("Retry-After = %q, want 2", got)
		}
	})

	t.Run("field is reported", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/vote", nil)
		writeError(w, r, election.ErrNoSelections)

		var resp models.ErrorResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.Field != "selections" || resp.Message == "" {
			t.Errorf("unexpected error response %+v", resp)
		}
	})

	t.Run("storage cause is hidden", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/admin", nil)
		writeError(w, r, errors.New("pq: password authentication failed"))

		testutil.AssertStatus(t, w, http.StatusInternalServerError)
		var resp models.ErrorResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.Message == "" || resp.Message == "pq: password authentication failed" {
			t.Errorf("storage error leaked or empty: %q", resp.Message)
		}
	})
}
