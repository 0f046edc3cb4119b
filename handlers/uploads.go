// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/danielhkuo/quickly-elect/election"
)

// Multipart bodies (CSV rosters, candidate photos) above this size are rejected.
const maxUploadBytes = 10 << 20

// Photos are served back from this path prefix.
const uploadsPath = "/uploads/"

var photoExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

var errBadPhoto = &election.Error{
	Kind:    election.KindValidation,
	Field:   "photo_file",
	Message: "Photo must be a PNG, JPEG, GIF or WebP image.",
}

// sanitizeFilename reduces a client-supplied name to a safe base name made of
// letters, digits, dots, dashes and underscores.
func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}

	return strings.TrimLeft(b.String(), "._")
}

// savePhoto stores an uploaded photo in dir and returns the URL it is served
// under. A name already in use gets a timestamp prefix.
func savePhoto(dir string, fh *multipart.FileHeader, now time.Time) (string, error) {
	name := sanitizeFilename(fh.Filename)
	if name == "" || !photoExtensions[strings.ToLower(filepath.Ext(name))] {
		return "", errBadPhoto
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	dst, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		name = now.UTC().Format("20060102150405") + "_" + name
		dst, err = os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	}
	if err != nil {
		return "", fmt.Errorf("create photo: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("write photo: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("close photo: %w", err)
	}

	slog.Info("photo uploaded", "file", name, "bytes", fh.Size)
	return uploadsPath + name, nil
}

// removePhoto deletes a photo previously stored by savePhoto. URLs that do
// not point into the upload directory are left alone.
func removePhoto(dir string, photoURL *string) {
	if photoURL == nil {
		return
	}
	name, ok := strings.CutPrefix(*photoURL, uploadsPath)
	if !ok || name == "" || sanitizeFilename(name) != name {
		return
	}
	if err := os.Remove(filepath.Join(dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to remove photo", "file", name, "error", err)
	}
}

func removePhotos(dir string, photoURLs []string) {
	for i := range photoURLs {
		removePhoto(dir, &photoURLs[i])
	}
}

// Uploads handles GET /uploads/{file}
func (h *PublicHandler) Uploads(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")
	if name == "" || sanitizeFilename(name) != name {
		http.NotFound(w, r)
		return
	}

	full := filepath.Join(h.cfg.UploadDir, name)
	if info, err := os.Stat(full); err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeFile(w, r, full)
}
