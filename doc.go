// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Quickly Elect server.

Quickly Elect runs a roster-based election: an administrator uploads the
voter roster, manages positions and candidates and opens voting; each
registered voter casts one ballot with a voter ID and voting token.

# Starting the Server

With no database URL the server keeps its data in an embedded SQLite file:

	SECRET_KEY=... ADMIN_TOKEN=... go run .

Or against PostgreSQL with flags:

	go run . -p 3318 -d "postgres://..." -admin-token ... -secret-key ...

# Configuration

Required settings:

  - SECRET_KEY (-secret-key): key for hashing client IPs in the rate limiter
  - ADMIN_TOKEN (-admin-token): shared token for every /admin route

Optional settings:

  - PORT (-p): server port (default 3318)
  - DATABASE_URL (-d), DATABASE_TYPE (-t), SQLITE_PATH (-sqlite-path)
  - REDIS_URL (-redis-url): shared rate-limit store
  - UPLOAD_DIR (-upload-dir): candidate photos
  - TOKEN_FORMAT, VOTER_ID_PREFIX: credential formats
  - RATE_LIMIT, RATE_WINDOW: ballot attempts per client and window
  - TRUSTED_PROXIES (-trusted-proxies): proxy IPs or CIDRs whose
    X-Forwarded-For and X-Real-IP headers are believed
  - SEED_FILE (-seed): YAML positions applied to an empty database
  - LOG_LEVEL, LOG_FORMAT=json

A .env file in the working directory is read first.

# Architecture

  - election: every read and write of election data
  - handlers: HTTP handlers and embedded page templates
  - router: route table (Go 1.22+ patterns)
  - middleware: logging, admin gate, CORS, JSON helpers
  - ratelimit: sliding-window limiter over memory or Redis
  - models: request, response and domain types
  - auth: credential generation and checks
  - db: connection and schema migrations
  - cliparse: configuration parsing

See package documentation for each component.
*/
package main
