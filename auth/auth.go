// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var (
	ErrInvalidAdminToken = errors.New("invalid admin token")
	ErrInvalidToken      = errors.New("invalid token format")
	ErrInvalidVoterID    = errors.New("invalid voter ID format")
	ErrUnknownFormat     = errors.New("unknown token format")
)

// Token formats. Deployments pick one; every voting token in a roster uses it.
const (
	FormatNumeric      = "numeric"
	FormatAlphanumeric = "alphanumeric"
)

const (
	numericAlphabet      = "0123456789"
	alphanumericAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

	numericTokenLen      = 8
	alphanumericTokenLen = 16

	MinVoterIDLen = 3
	MaxVoterIDLen = 20
)

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GenerateVotingToken creates a random voting token in the given format.
// Characters are drawn uniformly from the format's alphabet using crypto/rand.
func GenerateVotingToken(format string) (string, error) {
	alphabet, length, err := tokenShape(format)
	if err != nil {
		return "", err
	}

	size := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("failed to generate voting token: %w", err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}

// ValidateVotingToken checks a token against the deployment's format.
func ValidateVotingToken(token, format string) error {
	alphabet, length, err := tokenShape(format)
	if err != nil {
		return err
	}
	if len(token) != length {
		return ErrInvalidToken
	}
	for i := 0; i < len(token); i++ {
		if strings.IndexByte(alphabet, token[i]) < 0 {
			return ErrInvalidToken
		}
	}
	return nil
}

// TokenFormatHint describes a format for user-facing validation messages.
func TokenFormatHint(format string) string {
	switch format {
	case FormatAlphanumeric:
		return fmt.Sprintf("exactly %d letters or digits", alphanumericTokenLen)
	default:
		return fmt.Sprintf("exactly %d digits", numericTokenLen)
	}
}

// IsValidFormat reports whether format names a known token format.
func IsValidFormat(format string) bool {
	_, _, err := tokenShape(format)
	return err == nil
}

func tokenShape(format string) (alphabet string, length int, err error) {
	switch format {
	case FormatNumeric:
		return numericAlphabet, numericTokenLen, nil
	case FormatAlphanumeric:
		return alphanumericAlphabet, alphanumericTokenLen, nil
	}
	return "", 0, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// ValidateVoterID checks the public login identifier: 3-20 characters,
// letters, digits and dashes only.
func ValidateVoterID(voterID string) error {
	if len(voterID) < MinVoterIDLen || len(voterID) > MaxVoterIDLen {
		return ErrInvalidVoterID
	}
	for _, c := range voterID {
		isAlnum := (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		if !isAlnum && c != '-' {
			return ErrInvalidVoterID
		}
	}
	return nil
}

// SequentialVoterID formats the n-th generated voter ID, e.g. VTR007.
func SequentialVoterID(prefix string, n int) string {
	return fmt.Sprintf("%s%03d", prefix, n)
}

// ValidateAdminToken compares the presented token with the configured secret
// byte-for-byte in constant time. An empty secret never matches.
func ValidateAdminToken(presented, expected string) error {
	if expected == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) != 1 {
		return ErrInvalidAdminToken
	}
	return nil
}

// HashIP creates a one-way hash of an IP address for privacy
// Includes salt to prevent rainbow table attacks
func HashIP(ip, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(ip))
	sum := h.Sum(nil)
	// Return first 16 hex chars (64 bits) - enough for deduplication
	return hex.EncodeToString(sum[:8])
}
