// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the store and manages the schema.

# Opening

Open picks the driver from the configuration. PostgreSQL (lib/pq) when a
DATABASE_URL is configured, otherwise an embedded SQLite file
(modernc.org/sqlite, no cgo):

	conn, err := db.Open(ctx, cfg)

All queries in this module use $N placeholders, which both drivers accept.

# Migrations

Schema changes are explicit, versioned and forward-only:

	if err := db.Migrate(ctx, conn); err != nil {
		log.Fatal(err)
	}

Applied versions are recorded in schema_migrations; Migrate is safe to call
on every start. Queries never probe for missing columns.

# Tables

	voters     roster with credential pair and has_voted flag
	positions  electable roles with a per-position voting_enabled flag
	candidates belong to one position
	votes      one row per (voter, position), audit IP and user agent
	settings   key/value election configuration

# Relationships

	positions 1──* candidates   (ON DELETE CASCADE)
	candidates 1──* votes
	voters 1──* votes

Votes are not cascaded from voters or candidates; only a full reset deletes
them.
*/
package db
