// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/middleware"
	"github.com/danielhkuo/quickly-elect/models"
	"github.com/danielhkuo/quickly-elect/ratelimit"
	"github.com/danielhkuo/quickly-elect/testutil"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	cfg.UploadDir = t.TempDir()
	return NewRouter(db, cfg, ratelimit.New(ratelimit.NewMemoryStore(), cfg.RateLimit, cfg.RateWindow))
}

func serve(mux *http.ServeMux, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	mux := newTestMux(t)

	for _, path := range []string{"/_health", "/health"} {
		w := serve(mux, httptest.NewRequest("GET", path, nil))
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.HealthResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.Status != "ok" {
			t.Errorf("%s status = %q, want ok", path, resp.Status)
		}
	}
}

func TestRootEndpoint(t *testing.T) {
	mux := newTestMux(t)

	w := serve(mux, httptest.NewRequest("GET", "/", nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), "Voting is currently closed") {
		t.Errorf("unexpected landing page:\n%s", w.Body.String())
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected an X-Request-ID header")
	}

	// Only the exact root is the landing page
	w = serve(mux, httptest.NewRequest("GET", "/nope", nil))
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestRouteExistence(t *testing.T) {
	mux := newTestMux(t)

	// Handlers may answer 400 or 404 for these bodies and IDs; the route
	// itself must exist
	testCases := []struct {
		method string
		path   string
	}{
		{"GET", "/vote"},
		{"POST", "/vote"},
		{"GET", "/thank-you"},
		{"GET", "/dashboard"},
		{"GET", "/uploads/missing.png"},

		{"GET", "/admin"},
		{"POST", "/admin/upload-voters"},
		{"POST", "/admin/voting-control"},
		{"GET", "/admin/voting-status"},
		{"GET", "/admin/export-results"},
		{"POST", "/admin/clear-voters"},
		{"POST", "/admin/seed-positions"},
		{"GET", "/admin/candidates"},
		{"POST", "/admin/candidates"},
		{"PUT", "/admin/candidates/test-id"},
		{"DELETE", "/admin/candidates/test-id"},
		{"GET", "/admin/positions"},
		{"POST", "/admin/positions"},
		{"DELETE", "/admin/positions/test-id"},
		{"POST", "/admin/positions/test-id/toggle-voting"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := testutil.MakeRequest(tc.method, tc.path, nil, testutil.AdminHeaders())
			w := serve(mux, req)

			if w.Code == http.StatusMethodNotAllowed || w.Code == http.StatusUnauthorized {
				t.Errorf("%s %s returned %d, expected the route handler to run", tc.method, tc.path, w.Code)
			}
		})
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	mux := newTestMux(t)

	testCases := []struct {
		method string
		path   string
	}{
		{"GET", "/admin"},
		{"POST", "/admin/upload-voters"},
		{"POST", "/admin/voting-control"},
		{"GET", "/admin/voting-status"},
		{"GET", "/admin/export-results"},
		{"POST", "/admin/clear-all-data"},
		{"POST", "/admin/clear-voters"},
		{"POST", "/admin/seed-positions"},
		{"GET", "/admin/candidates"},
		{"POST", "/admin/candidates"},
		{"PUT", "/admin/candidates/test-id"},
		{"DELETE", "/admin/candidates/test-id"},
		{"GET", "/admin/positions"},
		{"POST", "/admin/positions"},
		{"DELETE", "/admin/positions/test-id"},
		{"POST", "/admin/positions/test-id/toggle-voting"},
	}

	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := serve(mux, httptest.NewRequest(tc.method, tc.path, nil))
			testutil.AssertStatus(t, w, http.StatusUnauthorized)

			req := httptest.NewRequest(tc.method, tc.path, nil)
			req.Header.Set("Authorization", "Bearer wrong-token")
			w = serve(mux, req)
			testutil.AssertStatus(t, w, http.StatusUnauthorized)
		})
	}
}

func TestSpecificMethodRouting(t *testing.T) {
	mux := newTestMux(t)

	testCases := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{"POST to health endpoint", "POST", "/_health", http.StatusMethodNotAllowed},
		{"DELETE the ballot form", "DELETE", "/vote", http.StatusMethodNotAllowed},
		{"GET a reset", "GET", "/admin/clear-all-data", http.StatusMethodNotAllowed},
		{"PUT to positions", "PUT", "/admin/positions/test-id", http.StatusMethodNotAllowed},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := serve(mux, httptest.NewRequest(tc.method, tc.path, nil))
			if w.Code != tc.expectedStatus {
				t.Errorf("Expected %d for %s %s, got %d", tc.expectedStatus, tc.method, tc.path, w.Code)
			}
		})
	}
}

func TestAdminQueryTokenCookie(t *testing.T) {
	mux := newTestMux(t)

	w := serve(mux, httptest.NewRequest("GET", "/admin?token="+testutil.TestAdminToken, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var cookie *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.AdminTokenCookie {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("expected the admin cookie to be set")
	}

	req := httptest.NewRequest("GET", "/admin/voting-status", nil)
	req.AddCookie(cookie)
	testutil.AssertStatus(t, serve(mux, req), http.StatusOK)
}

// TestElectionWorkflow drives a whole election through the router: seed,
// roster upload, opening, voting, results, export and reset.
func TestElectionWorkflow(t *testing.T) {
	mux := newTestMux(t)
	admin := testutil.AdminHeaders()

	// Seed positions
	seed := "positions:\n  - name: President\n    candidates:\n      - name: Alice\n      - name: Bob\n  - name: Treasurer\n    candidates:\n      - name: Carol\n"
	req := httptest.NewRequest("POST", "/admin/seed-positions", strings.NewReader(seed))
	req.Header.Set("Authorization", admin["Authorization"])
	testutil.AssertStatus(t, serve(mux, req), http.StatusOK)

	// Upload the roster
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "roster.csv")
	fw.Write([]byte("\ufeffmember_id,full_name,phone_number\nM-100,Ann Lee,555 0101\nM-200,Ben Ko,555 0102\n"))
	mw.Close()
	req = httptest.NewRequest("POST", "/admin/upload-voters", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", admin["Authorization"])
	w := serve(mux, req)
	testutil.AssertStatus(t, w, http.StatusOK)
	var upload models.UploadVotersResponse
	testutil.AssertJSON(t, w, &upload)
	if upload.Added != 2 {
		t.Fatalf("upload = %+v, want 2 added", upload)
	}

	// Voting is closed until opened
	closed := models.CastVoteRequest{VoterID: "M-100", VotingToken: "00000000"}
	testutil.AssertStatus(t, serve(mux, testutil.MakeRequest("POST", "/vote", closed, nil)), http.StatusForbidden)

	w = serve(mux, testutil.MakeRequest("POST", "/admin/voting-control",
		models.VotingControlRequest{Action: models.ActionOpen, Minutes: 30}, admin))
	testutil.AssertStatus(t, w, http.StatusOK)

	// Read credentials and ballot IDs from the admin dashboard
	req = testutil.MakeRequest("GET", "/admin", nil, admin)
	req.Header.Set("Accept", "application/json")
	w = serve(mux, req)
	testutil.AssertStatus(t, w, http.StatusOK)
	var dash models.AdminDashboard
	testutil.AssertJSON(t, w, &dash)

	tokens := map[string]string{}
	for _, v := range dash.Voters {
		tokens[v.VoterID] = v.VotingToken
	}
	if len(tokens) != 2 || tokens["M-100"] == "" {
		t.Fatalf("voters = %+v, want member IDs reused as voter IDs", dash.Voters)
	}
	ids := map[string]string{}
	for _, p := range dash.Positions {
		ids[p.Name] = p.ID
	}
	for _, c := range dash.Candidates {
		ids[c.Name] = c.ID
	}

	// Ann votes with the HTML form
	form := url.Values{
		"voter_id":                     {"M-100"},
		"voting_token":                 {tokens["M-100"]},
		"position_" + ids["President"]: {ids["Alice"]},
		"position_" + ids["Treasurer"]: {ids["Carol"]},
	}
	req = httptest.NewRequest("POST", "/vote", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = serve(mux, req)
	testutil.AssertStatus(t, w, http.StatusSeeOther)

	// A second ballot from Ann is refused
	req = httptest.NewRequest("POST", "/vote", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w = serve(mux, req)
	testutil.AssertStatus(t, w, http.StatusConflict)
	if !strings.Contains(w.Body.String(), "already been used") {
		t.Error("duplicate ballot should explain the refusal")
	}

	// Ben votes over JSON
	ben := models.CastVoteRequest{VoterID: "M-200", VotingToken: tokens["M-200"],
		Selections: map[string]string{ids["President"]: ids["Bob"]}}
	w = serve(mux, testutil.MakeRequest("POST", "/vote", ben, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	// Export
	w = serve(mux, testutil.MakeRequest("GET", "/admin/export-results", nil, admin))
	testutil.AssertStatus(t, w, http.StatusOK)
	records, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	counts := map[string]string{}
	for _, rec := range records[1:] {
		counts[rec[1]] = rec[2]
	}
	if counts["Alice"] != "1" || counts["Bob"] != "1" || counts["Carol"] != "1" {
		t.Errorf("export counts = %v", counts)
	}

	// Close and reset
	w = serve(mux, testutil.MakeRequest("POST", "/admin/voting-control",
		models.VotingControlRequest{Action: models.ActionClose}, admin))
	testutil.AssertStatus(t, w, http.StatusOK)

	w = serve(mux, testutil.MakeRequest("POST", "/admin/clear-all-data", nil, admin))
	testutil.AssertStatus(t, w, http.StatusOK)
	var reset models.ResetResponse
	testutil.AssertJSON(t, w, &reset)
	if reset.VotesCleared != 3 || reset.VotersCleared != 2 || reset.CandidatesCleared != 3 {
		t.Errorf("reset = %+v", reset)
	}
}

func TestBallotRateLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	cfg.RateLimit = 3
	limiter := ratelimit.New(ratelimit.NewMemoryStore(), cfg.RateLimit, time.Minute)
	mux := NewRouter(db, cfg, limiter)
	testutil.SetVotingOpen(t, db, true)

	bad := models.CastVoteRequest{VoterID: "NOBODY", VotingToken: "00000000"}
	for i := 0; i < cfg.RateLimit; i++ {
		testutil.AssertStatus(t, serve(mux, testutil.MakeRequest("POST", "/vote", bad, nil)), http.StatusUnauthorized)
	}
	w := serve(mux, testutil.MakeRequest("POST", "/vote", bad, nil))
	testutil.AssertStatus(t, w, http.StatusTooManyRequests)
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After")
	}
}

func TestBallotRateLimit_ForwardedHeaders(t *testing.T) {
	tests := []struct {
		name        string
		trusted     string
		wantLimited bool
	}{
		{"untrusted peer cannot rotate its address", "", true},
		{"trusted proxy forwards distinct clients", "192.0.2.0/24", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := testutil.SetupTestDB(t)
			cfg := testutil.GetTestConfig()
			cfg.RateLimit = 3
			proxies, err := cliparse.ParseTrustedProxies(tt.trusted)
			if err != nil {
				t.Fatal(err)
			}
			cfg.TrustedProxies = proxies
			mux := NewRouter(db, cfg, ratelimit.New(ratelimit.NewMemoryStore(), cfg.RateLimit, time.Minute))
			testutil.SetVotingOpen(t, db, true)

			bad := models.CastVoteRequest{VoterID: "NOBODY", VotingToken: "00000000"}
			limited := 0
			for i := 0; i < 10; i++ {
				req := testutil.MakeRequest("POST", "/vote", bad, nil)
				req.RemoteAddr = "192.0.2.1:40000"
				req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i+1))
				if serve(mux, req).Code == http.StatusTooManyRequests {
					limited++
				}
			}

			if tt.wantLimited && limited != 10-cfg.RateLimit {
				t.Errorf("rotating X-Forwarded-For: %d of 10 attempts limited, want %d", limited, 10-cfg.RateLimit)
			}
			if !tt.wantLimited && limited != 0 {
				t.Errorf("distinct forwarded clients: %d attempts limited, want 0", limited)
			}
		})
	}
}
