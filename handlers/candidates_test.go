// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielhkuo/quickly-elect/election"
	"github.com/danielhkuo/quickly-elect/models"
	"github.com/danielhkuo/quickly-elect/testutil"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake")

func TestCreateCandidate_JSON(t *testing.T) {
	env := newTestEnv(t)
	president := testutil.CreateTestPosition(t, env.conn, "President", true)

	tests := []struct {
		name           string
		body           models.CreateCandidateRequest
		expectedStatus int
	}{
		{"valid", models.CreateCandidateRequest{Name: "Alice", Bio: "Runs things", PositionID: president}, http.StatusCreated},
		{"missing name", models.CreateCandidateRequest{PositionID: president}, http.StatusBadRequest},
		{"unknown position", models.CreateCandidateRequest{Name: "Bob", PositionID: "nope"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			env.admin.CreateCandidate(w, testutil.MakeRequest(http.MethodPost, "/admin/candidates", tt.body, nil))
			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}

	w := httptest.NewRecorder()
	env.admin.ListCandidates(w, httptest.NewRequest(http.MethodGet, "/admin/candidates", nil))
	var candidates []models.Candidate
	testutil.AssertJSON(t, w, &candidates)
	if len(candidates) != 1 || candidates[0].Name != "Alice" || candidates[0].PhotoURL != nil {
		t.Errorf("candidates = %+v", candidates)
	}
}

func TestCreateCandidate_Multipart(t *testing.T) {
	env := newTestEnv(t)
	president := testutil.CreateTestPosition(t, env.conn, "President", true)

	fields := map[string]string{"name": "Alice", "bio": "Runs things", "position_id": president}
	req := multipartRequest(t, http.MethodPost, "/admin/candidates", fields, "photo_file", "my photo.png", pngBytes)
	w := httptest.NewRecorder()
	env.admin.CreateCandidate(w, req)
	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.CreatedResponse
	testutil.AssertJSON(t, w, &resp)
	c, err := env.store.GetCandidate(context.Background(), resp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if c.PhotoURL == nil || *c.PhotoURL != "/uploads/my_photo.png" {
		t.Fatalf("photo_url = %v, want /uploads/my_photo.png", c.PhotoURL)
	}
	if _, err := os.Stat(filepath.Join(env.cfg.UploadDir, "my_photo.png")); err != nil {
		t.Errorf("photo not saved: %v", err)
	}

	// A second upload with the same name gets a prefixed file
	fields["name"] = "Bob"
	req = multipartRequest(t, http.MethodPost, "/admin/candidates", fields, "photo_file", "my photo.png", pngBytes)
	w = httptest.NewRecorder()
	env.admin.CreateCandidate(w, req)
	testutil.AssertStatus(t, w, http.StatusCreated)
	testutil.AssertJSON(t, w, &resp)
	bob, _ := env.store.GetCandidate(context.Background(), resp.ID)
	if bob.PhotoURL == nil || *bob.PhotoURL == "/uploads/my_photo.png" || !strings.HasSuffix(*bob.PhotoURL, "_my_photo.png") {
		t.Errorf("second photo_url = %v, want a timestamp prefix", bob.PhotoURL)
	}
}

func TestCreateCandidate_BadPhoto(t *testing.T) {
	env := newTestEnv(t)
	president := testutil.CreateTestPosition(t, env.conn, "President", true)

	fields := map[string]string{"name": "Alice", "position_id": president}
	req := multipartRequest(t, http.MethodPost, "/admin/candidates", fields, "photo_file", "payload.exe", []byte("MZ"))
	w := httptest.NewRecorder()
	env.admin.CreateCandidate(w, req)
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	var resp models.ErrorResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Field != "photo_file" {
		t.Errorf("field = %q, want photo_file", resp.Field)
	}
	if n := testutil.CountRows(t, env.conn, `SELECT COUNT(*) FROM candidates`); n != 0 {
		t.Errorf("candidates = %d, want 0", n)
	}

	// A rejected candidate does not leave its photo behind
	fields = map[string]string{"name": "", "position_id": president}
	req = multipartRequest(t, http.MethodPost, "/admin/candidates", fields, "photo_file", "orphan.png", pngBytes)
	w = httptest.NewRecorder()
	env.admin.CreateCandidate(w, req)
	testutil.AssertStatus(t, w, http.StatusBadRequest)
	if _, err := os.Stat(filepath.Join(env.cfg.UploadDir, "orphan.png")); !os.IsNotExist(err) {
		t.Error("photo of a rejected candidate should be removed")
	}
}

func TestUpdateCandidate(t *testing.T) {
	env := newTestEnv(t)
	f := env.openBallot(t)

	update := func(id string, req *http.Request) *httptest.ResponseRecorder {
		req.SetPathValue("id", id)
		w := httptest.NewRecorder()
		env.admin.UpdateCandidate(w, req)
		return w
	}

	name := "Alice Smith"
	w := update(f.alice, testutil.MakeRequest(http.MethodPut, "/admin/candidates/"+f.alice, models.UpdateCandidateRequest{Name: &name}, nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	var c models.Candidate
	testutil.AssertJSON(t, w, &c)
	if c.Name != name || c.PositionID != f.president {
		t.Errorf("updated = %+v", c)
	}

	// New photo replaces the old file
	req := multipartRequest(t, http.MethodPut, "/admin/candidates/"+f.alice, nil, "photo_file", "a.png", pngBytes)
	testutil.AssertStatus(t, update(f.alice, req), http.StatusOK)
	req = multipartRequest(t, http.MethodPut, "/admin/candidates/"+f.alice, nil, "photo_file", "b.png", pngBytes)
	testutil.AssertStatus(t, update(f.alice, req), http.StatusOK)
	if _, err := os.Stat(filepath.Join(env.cfg.UploadDir, "a.png")); !os.IsNotExist(err) {
		t.Error("replaced photo should be removed")
	}
	c, _ = env.store.GetCandidate(context.Background(), f.alice)
	if c.Name != name || c.PhotoURL == nil || *c.PhotoURL != "/uploads/b.png" {
		t.Errorf("after photo update = %+v", c)
	}

	w = update("missing", testutil.MakeRequest(http.MethodPut, "/admin/candidates/missing", models.UpdateCandidateRequest{Name: &name}, nil))
	testutil.AssertStatus(t, w, http.StatusNotFound)

	// A candidate with votes cannot change position
	if _, err := env.store.CastVote(context.Background(), election.Ballot{
		VoterID: "MEM-1", VotingToken: "12345678",
		Selections: map[string]string{f.president: f.alice},
	}); err != nil {
		t.Fatal(err)
	}
	w = update(f.alice, testutil.MakeRequest(http.MethodPut, "/admin/candidates/"+f.alice, models.UpdateCandidateRequest{PositionID: &f.treasurer}, nil))
	testutil.AssertStatus(t, w, http.StatusConflict)
}

func TestDeleteCandidate(t *testing.T) {
	env := newTestEnv(t)
	f := env.openBallot(t)

	photoPath := filepath.Join(env.cfg.UploadDir, "bob.png")
	os.WriteFile(photoPath, pngBytes, 0o644)
	env.conn.Exec(`UPDATE candidates SET photo_url = '/uploads/bob.png' WHERE id = $1`, f.bob)

	del := func(id string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodDelete, "/admin/candidates/"+id, nil)
		req.SetPathValue("id", id)
		w := httptest.NewRecorder()
		env.admin.DeleteCandidate(w, req)
		return w
	}

	testutil.AssertStatus(t, del(f.bob), http.StatusOK)
	if _, err := os.Stat(photoPath); !os.IsNotExist(err) {
		t.Error("deleted candidate's photo should be removed")
	}
	testutil.AssertStatus(t, del(f.bob), http.StatusNotFound)

	if _, err := env.store.CastVote(context.Background(), election.Ballot{
		VoterID: "MEM-1", VotingToken: "12345678",
		Selections: map[string]string{f.president: f.alice},
	}); err != nil {
		t.Fatal(err)
	}
	testutil.AssertStatus(t, del(f.alice), http.StatusConflict)
}
