// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/election"
	"github.com/danielhkuo/quickly-elect/middleware"
	"github.com/danielhkuo/quickly-elect/models"
)

type AdminHandler struct {
	store *election.Store
	cfg   cliparse.Config
	now   func() time.Time
}

func NewAdminHandler(store *election.Store, cfg cliparse.Config) *AdminHandler {
	return &AdminHandler{store: store, cfg: cfg, now: time.Now}
}

type adminPage struct {
	Dashboard models.AdminDashboard
	Notice    string
}

// wantsHTML reports whether the request is a plain browser form post from
// the admin page, which is answered with a redirect back to it.
func wantsHTML(r *http.Request) bool {
	return !middleware.WantsJSON(r) && strings.Contains(r.Header.Get("Accept"), "text/html")
}

func respond(w http.ResponseWriter, r *http.Request, status int, payload any, notice string) {
	if wantsHTML(r) {
		http.Redirect(w, r, "/admin?notice="+url.QueryEscape(notice), http.StatusSeeOther)
		return
	}
	middleware.JSONResponse(w, status, payload)
}

// Dashboard handles GET /admin
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		d   models.AdminDashboard
		err error
	)
	if d.Status, err = h.store.Status(ctx); err != nil {
		writeError(w, r, err)
		return
	}
	if d.TotalVoters, d.VotedCount, err = h.store.VoterCounts(ctx); err != nil {
		writeError(w, r, err)
		return
	}
	if d.Positions, err = h.store.ListPositions(ctx); err != nil {
		writeError(w, r, err)
		return
	}
	if d.Candidates, err = h.store.ListCandidates(ctx); err != nil {
		writeError(w, r, err)
		return
	}
	if d.Voters, err = h.store.ListVoters(ctx); err != nil {
		writeError(w, r, err)
		return
	}
	if d.Results, err = h.store.Tally(ctx, true); err != nil {
		writeError(w, r, err)
		return
	}

	if middleware.WantsJSON(r) {
		middleware.JSONResponse(w, http.StatusOK, d)
		return
	}
	render(w, r, http.StatusOK, "admin.html", adminPage{Dashboard: d, Notice: r.URL.Query().Get("notice")})
}

// UploadVoters handles POST /admin/upload-voters (multipart, field "file")
func (h *AdminHandler) UploadVoters(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.FieldErrorResponse(w, http.StatusBadRequest, "file", "No file uploaded")
		return
	}
	defer file.Close()

	if !strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		middleware.FieldErrorResponse(w, http.StatusBadRequest, "file", "Please upload a CSV file")
		return
	}

	res, err := h.store.ImportVotersCSV(r.Context(), file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	msg := fmt.Sprintf("Upload complete: %d added, %d skipped, %d invalid.", res.Added, res.Skipped, res.Invalid)
	respond(w, r, http.StatusOK, models.UploadVotersResponse{
		Message: msg,
		Added:   res.Added,
		Skipped: res.Skipped,
		Invalid: res.Invalid,
		Errors:  res.Errors,
	}, msg)
}

// VotingControl handles POST /admin/voting-control. Accepts JSON
// {"action": "open"|"close", "minutes": n} or the same as form fields.
func (h *AdminHandler) VotingControl(w http.ResponseWriter, r *http.Request) {
	var req models.VotingControlRequest
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if err := middleware.ParseJSONBody(r, &req); err != nil {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
	} else {
		req.Action = r.FormValue("action")
		if m := strings.TrimSpace(r.FormValue("minutes")); m != "" {
			n, err := strconv.Atoi(m)
			if err != nil {
				middleware.FieldErrorResponse(w, http.StatusBadRequest, "minutes", "minutes must be a whole number")
				return
			}
			req.Minutes = n
		}
	}

	var (
		status models.VotingStatus
		msg    string
		err    error
	)
	switch req.Action {
	case models.ActionOpen:
		status, err = h.store.OpenVoting(r.Context(), req.Minutes)
		msg = "Voting opened"
		if status.VotingUntil != nil {
			msg = fmt.Sprintf("Voting opened for %d minutes", req.Minutes)
		}
	case models.ActionClose:
		err = h.store.CloseVoting(r.Context())
		msg = "Voting closed"
	default:
		middleware.FieldErrorResponse(w, http.StatusBadRequest, "action", `action must be "open" or "close"`)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	respond(w, r, http.StatusOK, models.VotingControlResponse{
		Message:     msg,
		VotingOpen:  status.VotingOpen,
		VotingUntil: status.VotingUntil,
	}, msg)
}

// VotingStatus handles GET /admin/voting-status
func (h *AdminHandler) VotingStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.store.Status(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, status)
}

// ExportResults handles GET /admin/export-results
func (h *AdminHandler) ExportResults(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.store.WriteResultsCSV(r.Context(), &buf); err != nil {
		writeError(w, r, err)
		return
	}

	filename := "election_results_" + h.now().UTC().Format("20060102_150405") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// ClearAllData handles POST /admin/clear-all-data: deletes votes,
// candidates and voters and closes voting. Positions are kept.
func (h *AdminHandler) ClearAllData(w http.ResponseWriter, r *http.Request) {
	res, err := h.store.Reset(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	removePhotos(h.cfg.UploadDir, res.PhotoURLs)
	respond(w, r, http.StatusOK, res, res.Message)
}

// ClearVoters handles POST /admin/clear-voters
func (h *AdminHandler) ClearVoters(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.ClearVoters(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	msg := fmt.Sprintf("Cleared %d voters", n)
	respond(w, r, http.StatusOK, models.ResetResponse{Message: msg, VotersCleared: n}, msg)
}

// SeedPositions handles POST /admin/seed-positions. The body is a YAML (or
// JSON) seed document; an empty body applies the configured seed file.
func (h *AdminHandler) SeedPositions(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Could not read request body")
		return
	}

	var seed *election.Seed
	switch {
	case len(bytes.TrimSpace(body)) > 0:
		seed, err = election.ParseSeed(bytes.NewReader(body))
	case h.cfg.SeedFile != "":
		seed, err = election.LoadSeedFile(h.cfg.SeedFile)
	default:
		middleware.ErrorResponse(w, http.StatusBadRequest, "No seed document in the request and no seed file configured")
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.store.ApplySeed(r.Context(), seed)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("positions seeded", "created", res.Created, "existing", res.Existing)
	respond(w, r, http.StatusOK, res, res.Message)
}
