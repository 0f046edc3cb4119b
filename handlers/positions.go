// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"fmt"
	"net/http"

	"github.com/danielhkuo/quickly-elect/middleware"
	"github.com/danielhkuo/quickly-elect/models"
)

// ListPositions handles GET /admin/positions
func (h *AdminHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	positions, err := h.store.ListPositions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, positions)
}

// CreatePosition handles POST /admin/positions
func (h *AdminHandler) CreatePosition(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePositionRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	p, err := h.store.CreatePosition(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, models.CreatedResponse{
		Message: "Position created successfully",
		ID:      p.ID,
	})
}

// DeletePosition handles DELETE /admin/positions/{id}
func (h *AdminHandler) DeletePosition(w http.ResponseWriter, r *http.Request) {
	photos, err := h.store.DeletePosition(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	removePhotos(h.cfg.UploadDir, photos)
	middleware.JSONResponse(w, http.StatusOK, models.MessageResponse{Message: "Position deleted successfully"})
}

// TogglePosition handles POST /admin/positions/{id}/toggle-voting
func (h *AdminHandler) TogglePosition(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.TogglePositionVoting(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	state := "disabled"
	if p.VotingEnabled {
		state = "enabled"
	}
	msg := fmt.Sprintf("Voting %s for %s", state, p.Name)
	respond(w, r, http.StatusOK, models.TogglePositionResponse{
		Message:       msg,
		PositionID:    p.ID,
		Name:          p.Name,
		VotingEnabled: p.VotingEnabled,
	}, msg)
}
