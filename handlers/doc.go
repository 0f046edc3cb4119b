// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains the HTTP handlers for the election site.

# Handler Types

Handlers are structs over an *election.Store and the server Config:

	store := election.New(conn, election.OptionsFromConfig(cfg, limiter))
	public := handlers.NewPublicHandler(store, cfg)
	admin := handlers.NewAdminHandler(store, cfg)

PublicHandler serves the landing page, the ballot form and its submission,
the thank-you page, live results, uploaded photos and the health check.
AdminHandler serves the dashboard, roster upload, voting control, position
and candidate management, the results export, resets and seeding.

Handlers never touch SQL; every read and write goes through the store.

# Ballot Submission

POST /vote accepts a form post (voter_id, voting_token and one
position_<id> field per position) or a JSON CastVoteRequest. Form posts are
redirected to /thank-you or get the ballot page back with the error; JSON
clients get a CastVoteResponse or an ErrorResponse.

# Errors

Store errors carry a kind, mapped to a status by writeError:

	validation     400 (with the offending field)
	auth           401
	voting closed  403
	state          409
	not found      404
	rate limit     429 (with Retry-After)
	storage        500 (cause logged, generic message returned)

# Admin Forms

Admin endpoints answer JSON. A plain form post from the admin page
(Accept: text/html) is redirected back to /admin with a notice instead.

# Templates

Pages live in templates/ and are embedded into the binary. Each page is
parsed together with base.html and rendered to a buffer before anything is
written, so a template error still yields a clean 500.
*/
package handlers
