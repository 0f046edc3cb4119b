// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines the HTTP routes of the election site.

# Route Registration

NewRouter builds the election store and returns a configured ServeMux:

	mux := router.NewRouter(db, cfg, limiter)

# Endpoints

Health:

	GET /_health
	GET /health

Public:

	GET  /                - Landing page
	GET  /vote            - Ballot form
	POST /vote            - Cast a ballot (form or JSON)
	GET  /thank-you       - Confirmation page
	GET  /dashboard       - Live results (HTML or JSON)
	GET  /uploads/{file}  - Candidate photos

Admin (admin token as bearer, X-Admin-Token, cookie or ?token=):

	GET    /admin                               - Dashboard (HTML or JSON)
	POST   /admin/upload-voters                 - Roster CSV upload
	POST   /admin/voting-control                - Open or close voting
	GET    /admin/voting-status                 - Current status
	GET    /admin/export-results                - Results CSV
	POST   /admin/clear-all-data                - Full reset
	POST   /admin/clear-voters                  - Delete the roster
	POST   /admin/seed-positions                - Apply a YAML seed
	GET    /admin/candidates                    - List candidates
	POST   /admin/candidates                    - Create candidate
	PUT    /admin/candidates/{id}               - Update candidate
	DELETE /admin/candidates/{id}               - Delete candidate
	GET    /admin/positions                     - List positions
	POST   /admin/positions                     - Create position
	DELETE /admin/positions/{id}                - Delete position
	POST   /admin/positions/{id}/toggle-voting  - Enable or disable voting
*/
package router
