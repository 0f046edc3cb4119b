// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielhkuo/quickly-elect/testutil"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.png", "photo.png"},
		{"my photo.png", "my_photo.png"},
		{"../../etc/passwd", "passwd"},
		{`C:\Users\me\face.jpg`, "face.jpg"},
		{".hidden.png", "hidden.png"},
		{"résumé.gif", "rsum.gif"},
		{"..", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := sanitizeFilename(tt.in); got != tt.want {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestUploads(t *testing.T) {
	env := newTestEnv(t)
	if err := os.WriteFile(filepath.Join(env.cfg.UploadDir, "alice.png"), pngBytes, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name           string
		file           string
		expectedStatus int
	}{
		{"existing file", "alice.png", http.StatusOK},
		{"missing file", "bob.png", http.StatusNotFound},
		{"traversal", "../secret", http.StatusNotFound},
		{"hidden name", ".env", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/uploads/x", nil)
			req.SetPathValue("file", tt.file)
			w := httptest.NewRecorder()
			env.public.Uploads(w, req)
			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}
}
