// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"strings"

	"github.com/danielhkuo/quickly-elect/middleware"
	"github.com/danielhkuo/quickly-elect/models"
)

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// formValue returns a pointer to the named multipart value, or nil when the
// form does not carry it.
func formValue(r *http.Request, name string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	values, ok := r.MultipartForm.Value[name]
	if !ok || len(values) == 0 {
		return nil
	}
	return &values[0]
}

// uploadedPhoto saves the photo_file part if present and returns its URL.
func (h *AdminHandler) uploadedPhoto(r *http.Request) (*string, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File["photo_file"]) == 0 {
		return nil, nil
	}
	fh := r.MultipartForm.File["photo_file"][0]
	if fh.Filename == "" {
		return nil, nil
	}
	url, err := savePhoto(h.cfg.UploadDir, fh, h.now())
	if err != nil {
		return nil, err
	}
	return &url, nil
}

// ListCandidates handles GET /admin/candidates
func (h *AdminHandler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.store.ListCandidates(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, candidates)
}

// CreateCandidate handles POST /admin/candidates (JSON or multipart with an
// optional photo_file)
func (h *AdminHandler) CreateCandidate(w http.ResponseWriter, r *http.Request) {
	var (
		req      models.CreateCandidateRequest
		uploaded *string
		err      error
	)

	if isMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid form data")
			return
		}
		req.Name = r.FormValue("name")
		req.Bio = r.FormValue("bio")
		req.PositionID = r.FormValue("position_id")
		req.PhotoURL = formValue(r, "photo_url")

		if uploaded, err = h.uploadedPhoto(r); err != nil {
			writeError(w, r, err)
			return
		}
		if uploaded != nil {
			req.PhotoURL = uploaded
		}
	} else if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	c, err := h.store.CreateCandidate(r.Context(), req)
	if err != nil {
		removePhoto(h.cfg.UploadDir, uploaded)
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, models.CreatedResponse{
		Message: "Candidate created successfully",
		ID:      c.ID,
	})
}

// UpdateCandidate handles PUT /admin/candidates/{id}. Fields left out of the
// request keep their current value.
func (h *AdminHandler) UpdateCandidate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req models.UpdateCandidateRequest

	if isMultipart(r) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid form data")
			return
		}
		req.Name = formValue(r, "name")
		req.Bio = formValue(r, "bio")
		req.PositionID = formValue(r, "position_id")
		req.PhotoURL = formValue(r, "photo_url")
	} else if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	before, err := h.store.GetCandidate(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	photo, err := h.uploadedPhoto(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if photo != nil {
		req.PhotoURL = photo
	}

	c, err := h.store.UpdateCandidate(r.Context(), id, req)
	if err != nil {
		removePhoto(h.cfg.UploadDir, photo)
		writeError(w, r, err)
		return
	}

	if before.PhotoURL != nil && (c.PhotoURL == nil || *c.PhotoURL != *before.PhotoURL) {
		removePhoto(h.cfg.UploadDir, before.PhotoURL)
	}
	middleware.JSONResponse(w, http.StatusOK, c)
}

// DeleteCandidate handles DELETE /admin/candidates/{id}
func (h *AdminHandler) DeleteCandidate(w http.ResponseWriter, r *http.Request) {
	c, err := h.store.DeleteCandidate(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	removePhoto(h.cfg.UploadDir, c.PhotoURL)
	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Candidate deleted successfully"})
}
