// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/danielhkuo/quickly-elect/auth"
	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/db"
)

const (
	TestAdminToken = "test-admin-token"
	TestSecretKey  = "test-secret-key"
)

// SetupTestDB opens a fresh in-memory database with the full schema.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := db.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:          3318,
		DatabaseType:  cliparse.DatabaseSQLite,
		SecretKey:     TestSecretKey,
		AdminToken:    TestAdminToken,
		TokenFormat:   auth.FormatNumeric,
		VoterIDPrefix: "VTR",
		RateLimit:     10,
		RateWindow:    5 * time.Minute,
		LogLevel:      "error",
	}
}

// SetVotingOpen writes the voting_open flag directly, bypassing the store.
func SetVotingOpen(t *testing.T, conn *sql.DB, open bool) {
	t.Helper()

	value := "false"
	if open {
		value = "true"
	}
	_, err := conn.Exec(`
		INSERT INTO settings (key, value, updated_at) VALUES ('voting_open', $1, $2)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value
	`, value, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to set voting_open: %v", err)
	}
}

// CreateTestPosition inserts an enabled or disabled position and returns its ID.
func CreateTestPosition(t *testing.T, conn *sql.DB, name string, enabled bool) string {
	t.Helper()

	id, _ := auth.GenerateID(16)
	var order int
	conn.QueryRow(`SELECT COUNT(*) FROM positions`).Scan(&order)

	_, err := conn.Exec(`
		INSERT INTO positions (id, name, description, voting_enabled, max_votes, display_order, created_at)
		VALUES ($1, $2, '', $3, 1, $4, $5)
	`, id, name, enabled, order+1, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test position: %v", err)
	}

	return id
}

// AddTestCandidate adds a candidate to a position and returns its ID.
func AddTestCandidate(t *testing.T, conn *sql.DB, positionID, name string) string {
	t.Helper()

	id, _ := auth.GenerateID(16)
	_, err := conn.Exec(`
		INSERT INTO candidates (id, position_id, name, bio, created_at)
		VALUES ($1, $2, $3, '', $4)
	`, id, positionID, name, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test candidate: %v", err)
	}

	return id
}

// CreateTestVoter inserts a voter with the given credentials and returns the
// row ID.
func CreateTestVoter(t *testing.T, conn *sql.DB, memberID, voterID, token string) string {
	t.Helper()

	id, _ := auth.GenerateID(16)
	_, err := conn.Exec(`
		INSERT INTO voters (id, member_id, full_name, phone_number, voter_id, voting_token, has_voted, created_at)
		VALUES ($1, $2, $3, '555-0100', $4, $5, FALSE, $6)
	`, id, memberID, "Voter "+memberID, voterID, token, time.Now().UTC())
	if err != nil {
		t.Fatalf("Failed to create test voter: %v", err)
	}

	return id
}

// CountRows runs a COUNT query and fails the test on error.
func CountRows(t *testing.T, conn *sql.DB, query string, args ...any) int {
	t.Helper()

	var n int
	if err := conn.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	return n
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AdminHeaders returns headers carrying the test admin token.
func AdminHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + TestAdminToken}
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
