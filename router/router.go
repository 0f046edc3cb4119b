// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/election"
	"github.com/danielhkuo/quickly-elect/handlers"
	"github.com/danielhkuo/quickly-elect/middleware"
	"github.com/danielhkuo/quickly-elect/ratelimit"
)

// NewRouter wires every route. limiter may be nil, which disables the ballot
// rate limit.
func NewRouter(db *sql.DB, cfg cliparse.Config, limiter *ratelimit.Limiter) *http.ServeMux {
	mux := http.NewServeMux()

	store := election.New(db, election.OptionsFromConfig(cfg, limiter))

	// Initialize handlers
	public := handlers.NewPublicHandler(store, cfg)
	admin := handlers.NewAdminHandler(store, cfg)

	adminOnly := func(h http.HandlerFunc) http.HandlerFunc {
		return middleware.WithLogging(middleware.RequireAdmin(cfg.AdminToken, h))
	}

	// Health checks
	mux.HandleFunc("GET /_health", public.Health)
	mux.HandleFunc("GET /health", public.Health)

	// Public pages
	mux.HandleFunc("GET /{$}", middleware.WithLogging(public.Index))
	mux.HandleFunc("GET /vote", middleware.WithLogging(public.VoteForm))
	mux.HandleFunc("POST /vote", middleware.WithLogging(public.CastVote))
	mux.HandleFunc("GET /thank-you", middleware.WithLogging(public.ThankYou))
	mux.HandleFunc("GET /dashboard", middleware.WithLogging(public.Dashboard))
	mux.HandleFunc("GET /uploads/{file}", public.Uploads)

	// Admin dashboard and election control
	mux.HandleFunc("GET /admin", adminOnly(admin.Dashboard))
	mux.HandleFunc("POST /admin/upload-voters", adminOnly(admin.UploadVoters))
	mux.HandleFunc("POST /admin/voting-control", adminOnly(admin.VotingControl))
	mux.HandleFunc("GET /admin/voting-status", adminOnly(admin.VotingStatus))
	mux.HandleFunc("GET /admin/export-results", adminOnly(admin.ExportResults))
	mux.HandleFunc("POST /admin/clear-all-data", adminOnly(admin.ClearAllData))
	mux.HandleFunc("POST /admin/clear-voters", adminOnly(admin.ClearVoters))
	mux.HandleFunc("POST /admin/seed-positions", adminOnly(admin.SeedPositions))

	// Candidates
	mux.HandleFunc("GET /admin/candidates", adminOnly(admin.ListCandidates))
	mux.HandleFunc("POST /admin/candidates", adminOnly(admin.CreateCandidate))
	mux.HandleFunc("PUT /admin/candidates/{id}", adminOnly(admin.UpdateCandidate))
	mux.HandleFunc("DELETE /admin/candidates/{id}", adminOnly(admin.DeleteCandidate))

	// Positions
	mux.HandleFunc("GET /admin/positions", adminOnly(admin.ListPositions))
	mux.HandleFunc("POST /admin/positions", adminOnly(admin.CreatePosition))
	mux.HandleFunc("DELETE /admin/positions/{id}", adminOnly(admin.DeletePosition))
	mux.HandleFunc("POST /admin/positions/{id}/toggle-voting", adminOnly(admin.TogglePosition))

	return mux
}
