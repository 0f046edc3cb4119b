// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielhkuo/quickly-elect/auth"
	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/election"
	"github.com/danielhkuo/quickly-elect/middleware"
	"github.com/danielhkuo/quickly-elect/models"
)

// Ballot form fields are named position_<position id>.
const positionFieldPrefix = "position_"

func positionField(positionID string) string {
	return positionFieldPrefix + positionID
}

type PublicHandler struct {
	store *election.Store
	cfg   cliparse.Config
}

func NewPublicHandler(store *election.Store, cfg cliparse.Config) *PublicHandler {
	return &PublicHandler{store: store, cfg: cfg}
}

type indexPage struct {
	Status      models.VotingStatus
	TotalVoters int
	Voted       int
}

type votePage struct {
	Status    models.VotingStatus
	Ballot    []models.PositionWithCandidates
	VoterID   string
	TokenHint string
	Error     string
}

type dashboardPage struct {
	Status      models.VotingStatus    `json:"status"`
	TotalVoters int                    `json:"total_voters"`
	Voted       int                    `json:"voted_count"`
	Results     []models.PositionTally `json:"results"`
}

// Index handles GET /
func (h *PublicHandler) Index(w http.ResponseWriter, r *http.Request) {
	status, err := h.store.Status(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, voted, err := h.store.VoterCounts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	render(w, r, http.StatusOK, "index.html", indexPage{Status: status, TotalVoters: total, Voted: voted})
}

// VoteForm handles GET /vote. A closed election gets the page without the
// ballot and a 403.
func (h *PublicHandler) VoteForm(w http.ResponseWriter, r *http.Request) {
	page, err := h.votePage(r, "")
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := http.StatusOK
	if !page.Status.VotingOpen {
		status = http.StatusForbidden
	}
	render(w, r, status, "vote.html", page)
}

// CastVote handles POST /vote. Form posts get HTML back; clients sending
// JSON or asking for it get JSON.
func (h *PublicHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	wantsJSON := middleware.WantsJSON(r)

	ballot, err := h.parseBallot(r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid ballot submission")
		return
	}
	ballot.IPAddress = middleware.GetClientIP(r, h.cfg.TrustedProxies)
	ballot.UserAgent = r.UserAgent()

	recorded, err := h.store.CastVote(r.Context(), ballot)
	if err != nil {
		if election.KindOf(err) != election.KindStorage {
			slog.Info("ballot rejected",
				"request_id", middleware.RequestID(r.Context()),
				"kind", election.KindOf(err).String(),
				"error", err,
			)
		}
		if wantsJSON {
			writeError(w, r, err)
			return
		}
		h.renderVoteError(w, r, ballot.VoterID, err)
		return
	}

	if wantsJSON {
		middleware.JSONResponse(w, http.StatusOK, models.CastVoteResponse{
			Message:       "Your vote has been recorded successfully!",
			VotesRecorded: recorded,
		})
		return
	}
	http.Redirect(w, r, "/thank-you", http.StatusSeeOther)
}

func (h *PublicHandler) parseBallot(r *http.Request) (election.Ballot, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var req models.CastVoteRequest
		if err := middleware.ParseJSONBody(r, &req); err != nil {
			return election.Ballot{}, err
		}
		return election.Ballot{
			VoterID:     req.VoterID,
			VotingToken: req.VotingToken,
			Selections:  req.Selections,
		}, nil
	}

	if err := r.ParseForm(); err != nil {
		return election.Ballot{}, err
	}
	b := election.Ballot{
		VoterID:     r.PostForm.Get("voter_id"),
		VotingToken: r.PostForm.Get("voting_token"),
		Selections:  make(map[string]string),
	}
	for key, values := range r.PostForm {
		positionID, ok := strings.CutPrefix(key, positionFieldPrefix)
		if !ok || positionID == "" || len(values) == 0 || values[0] == "" {
			continue
		}
		b.Selections[positionID] = values[0]
	}
	return b, nil
}

func (h *PublicHandler) renderVoteError(w http.ResponseWriter, r *http.Request, voterID string, cause error) {
	status := statusFor(cause)
	if status == http.StatusInternalServerError {
		slog.Error("failed to cast vote",
			"request_id", middleware.RequestID(r.Context()),
			"error", cause,
		)
	}

	page, err := h.votePage(r, election.Message(cause))
	if err != nil {
		writeError(w, r, err)
		return
	}
	page.VoterID = strings.TrimSpace(voterID)

	setRetryAfter(w, cause)
	render(w, r, status, "vote.html", page)
}

func (h *PublicHandler) votePage(r *http.Request, message string) (votePage, error) {
	status, err := h.store.Status(r.Context())
	if err != nil {
		return votePage{}, err
	}
	page := votePage{
		Status:    status,
		TokenHint: "Your voting token is " + auth.TokenFormatHint(h.store.TokenFormat()) + ".",
		Error:     message,
	}
	if status.VotingOpen {
		if page.Ballot, err = h.store.Ballot(r.Context()); err != nil {
			return votePage{}, err
		}
	}
	return page, nil
}

// ThankYou handles GET /thank-you
func (h *PublicHandler) ThankYou(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, "thank_you.html", nil)
}

// Dashboard handles GET /dashboard: live results for enabled positions.
func (h *PublicHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	status, err := h.store.Status(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, voted, err := h.store.VoterCounts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	results, err := h.store.Tally(r.Context(), false)
	if err != nil {
		writeError(w, r, err)
		return
	}

	page := dashboardPage{Status: status, TotalVoters: total, Voted: voted, Results: results}
	if middleware.WantsJSON(r) {
		middleware.JSONResponse(w, http.StatusOK, page)
		return
	}
	render(w, r, http.StatusOK, "dashboard.html", page)
}

// Health handles GET /_health and GET /health
func (h *PublicHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Healthy(r.Context()); err != nil {
		slog.Error("health check failed", "error", err)
		middleware.JSONResponse(w, http.StatusInternalServerError, models.HealthResponse{Status: "error"})
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.HealthResponse{Status: "ok"})
}
