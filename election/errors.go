// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies an election error for the transport layer.
type Kind int

const (
	KindValidation Kind = iota + 1 // user-correctable input
	KindAuth                       // bad credential pair or admin token
	KindState                      // voting closed, already voted, conflicting state
	KindNotFound
	KindRateLimit
	KindStorage // transaction or commit failure; details are never shown to users
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindState:
		return "state"
	case KindNotFound:
		return "not_found"
	case KindRateLimit:
		return "rate_limit"
	case KindStorage:
		return "storage"
	}
	return "unknown"
}

// Error is the single error type returned by Store operations.
type Error struct {
	Kind       Kind
	Field      string // offending input field, validation errors only
	Message    string // safe to show to the user
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

var (
	ErrVotingClosed       = &Error{Kind: KindState, Message: "Voting is currently closed."}
	ErrAlreadyVoted       = &Error{Kind: KindState, Message: "This Voter ID has already been used."}
	ErrNoPositions        = &Error{Kind: KindState, Message: "No positions are open for voting."}
	ErrNoSelections       = &Error{Kind: KindValidation, Field: "selections", Message: "Please select at least one candidate for the available positions."}
	ErrInvalidCredentials = &Error{Kind: KindAuth, Message: "Invalid Voter ID or Voting Token combination."}
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "Not found."}
	ErrHasVotes           = &Error{Kind: KindState, Message: "Candidates and positions with recorded votes cannot be moved or deleted; use a full reset."}
	ErrVotesExist         = &Error{Kind: KindState, Message: "Votes have already been cast; use a full reset to clear the roster."}
	ErrDuplicateMember    = &Error{Kind: KindState, Field: "member_id", Message: "A voter with this member ID already exists."}
	ErrDuplicatePosition  = &Error{Kind: KindState, Field: "name", Message: "A position with this name already exists."}

	// Voter ID or token namespace exhausted: the deployment's format is too
	// small for the roster.
	ErrCredentialSpaceExhausted = &Error{Kind: KindStorage, Message: "Could not generate unique voter credentials."}
)

// KindOf classifies any error. Errors that are not *Error are storage errors.
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// Message returns the user-facing message for err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindStorage {
		return e.Message
	}
	if errors.Is(err, ErrCredentialSpaceExhausted) {
		return ErrCredentialSpaceExhausted.Message
	}
	return "Something went wrong. Please try again."
}

func validationError(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message}
}

func storageError(op string, err error) *Error {
	return &Error{Kind: KindStorage, Message: "Database error", Err: fmt.Errorf("%s: %w", op, err)}
}

func rateLimited(retryAfter time.Duration) *Error {
	return &Error{
		Kind:       KindRateLimit,
		Message:    fmt.Sprintf("Too many voting attempts. Please wait %s before trying again.", waitText(retryAfter)),
		RetryAfter: retryAfter,
	}
}

func waitText(d time.Duration) string {
	if d <= time.Minute {
		secs := int((d + time.Second - 1) / time.Second)
		if secs <= 1 {
			return "a moment"
		}
		return fmt.Sprintf("%d seconds", secs)
	}
	mins := int((d + time.Minute - 1) / time.Minute)
	return fmt.Sprintf("%d minutes", mins)
}
