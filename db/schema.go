// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Migration is one forward-only schema step. Statements run in order inside
// a single transaction together with the schema_migrations bookkeeping row.
type Migration struct {
	Version    int
	Name       string
	Statements []string
}

// Migrations is the ordered schema history. Append only; never edit a
// released entry.
var Migrations = []Migration{
	{
		Version: 1,
		Name:    "initial roster, ballot and settings tables",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS voters (
				id TEXT PRIMARY KEY,
				member_id TEXT NOT NULL UNIQUE,
				full_name TEXT NOT NULL,
				phone_number TEXT,
				voter_id TEXT NOT NULL UNIQUE,
				voting_token TEXT NOT NULL UNIQUE,
				has_voted BOOLEAN NOT NULL DEFAULT FALSE,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS positions (
				id TEXT PRIMARY KEY,
				name TEXT NOT NULL UNIQUE,
				description TEXT NOT NULL DEFAULT '',
				voting_enabled BOOLEAN NOT NULL DEFAULT TRUE,
				max_votes INTEGER NOT NULL DEFAULT 1,
				display_order INTEGER NOT NULL DEFAULT 0,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS candidates (
				id TEXT PRIMARY KEY,
				position_id TEXT NOT NULL REFERENCES positions(id) ON DELETE CASCADE,
				name TEXT NOT NULL,
				bio TEXT NOT NULL DEFAULT '',
				photo_url TEXT,
				created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_candidates_position_id ON candidates(position_id)`,
			`CREATE TABLE IF NOT EXISTS votes (
				id TEXT PRIMARY KEY,
				voter_id TEXT NOT NULL REFERENCES voters(id),
				candidate_id TEXT NOT NULL REFERENCES candidates(id),
				position_id TEXT NOT NULL REFERENCES positions(id),
				ip_address TEXT,
				user_agent TEXT,
				cast_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE INDEX IF NOT EXISTS idx_votes_candidate_id ON votes(candidate_id)`,
			`CREATE TABLE IF NOT EXISTS settings (
				key TEXT PRIMARY KEY,
				value TEXT NOT NULL,
				updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
			)`,
		},
	},
	{
		Version: 2,
		Name:    "one vote per voter and position",
		Statements: []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_votes_voter_position ON votes(voter_id, position_id)`,
			`CREATE INDEX IF NOT EXISTS idx_voters_has_voted ON voters(has_voted)`,
		},
	},
}

// Migrate applies every migration newer than the recorded schema version.
// Safe to call on every start.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	current, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range Migrations {
		if m.Version <= current {
			continue
		}
		if err := apply(ctx, db, m); err != nil {
			return err
		}
		slog.Info("migration applied", "version", m.Version, "name", m.Name)
	}

	return nil
}

// SchemaVersion returns the highest applied migration version, 0 if none.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version sql.NullInt64
	err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(version.Int64), nil
}

func apply(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %d: begin: %w", m.Version, err)
	}
	defer tx.Rollback()

	for i, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d statement %d: %w", m.Version, i+1, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO schema_migrations (version, name, applied_at)
		VALUES ($1, $2, $3)
	`, m.Version, m.Name, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("migration %d: record: %w", m.Version, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %d: commit: %w", m.Version, err)
	}
	return nil
}
