// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"database/sql"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/election"
	"github.com/danielhkuo/quickly-elect/ratelimit"
	"github.com/danielhkuo/quickly-elect/testutil"
)

type testEnv struct {
	conn   *sql.DB
	cfg    cliparse.Config
	store  *election.Store
	public *PublicHandler
	admin  *AdminHandler
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithLimiter(t, nil)
}

func newTestEnvWithLimiter(t *testing.T, limiter *ratelimit.Limiter) *testEnv {
	t.Helper()

	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	cfg.UploadDir = t.TempDir()
	store := election.New(conn, election.OptionsFromConfig(cfg, limiter))

	return &testEnv{
		conn:   conn,
		cfg:    cfg,
		store:  store,
		public: NewPublicHandler(store, cfg),
		admin:  NewAdminHandler(store, cfg),
	}
}

// ballotFixture is an open election with President (Alice, Bob), Treasurer
// (Carol) and one voter MEM-1 / 12345678.
type ballotFixture struct {
	president, treasurer string
	alice, bob, carol    string
}

func (e *testEnv) openBallot(t *testing.T) ballotFixture {
	t.Helper()

	var f ballotFixture
	f.president = testutil.CreateTestPosition(t, e.conn, "President", true)
	f.treasurer = testutil.CreateTestPosition(t, e.conn, "Treasurer", true)
	f.alice = testutil.AddTestCandidate(t, e.conn, f.president, "Alice")
	f.bob = testutil.AddTestCandidate(t, e.conn, f.president, "Bob")
	f.carol = testutil.AddTestCandidate(t, e.conn, f.treasurer, "Carol")
	testutil.CreateTestVoter(t, e.conn, "1001", "MEM-1", "12345678")
	testutil.SetVotingOpen(t, e.conn, true)
	return f
}

// givePhoto stores a photo file for the candidate and returns its path on disk.
func (e *testEnv) givePhoto(t *testing.T, candidateID, name string) string {
	t.Helper()
	path := filepath.Join(e.cfg.UploadDir, name)
	if err := os.WriteFile(path, pngBytes, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := e.conn.Exec(`UPDATE candidates SET photo_url = $1 WHERE id = $2`, uploadsPath+name, candidateID); err != nil {
		t.Fatal(err)
	}
	return path
}

// postForm builds a browser-style form post.
func postForm(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "text/html")
	return req
}

// multipartRequest builds a multipart request with plain fields and at most
// one file part.
func multipartRequest(t *testing.T, method, path string, fields map[string]string, fileField, fileName string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if fileField != "" {
		fw, err := mw.CreateFormFile(fileField, fileName)
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(content)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
