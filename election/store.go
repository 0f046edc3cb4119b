// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/danielhkuo/quickly-elect/auth"
	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/ratelimit"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Options struct {
	TokenFormat   string
	VoterIDPrefix string

	// Limiter gates CastVote per client; nil disables limiting.
	Limiter   *ratelimit.Limiter
	IPHashKey string

	Now func() time.Time
}

// OptionsFromConfig maps the server configuration onto store options.
func OptionsFromConfig(cfg cliparse.Config, limiter *ratelimit.Limiter) Options {
	return Options{
		TokenFormat:   cfg.TokenFormat,
		VoterIDPrefix: cfg.VoterIDPrefix,
		Limiter:       limiter,
		IPHashKey:     cfg.SecretKey,
	}
}

// Store runs every election operation against the database.
type Store struct {
	db            *sql.DB
	tokenFormat   string
	voterIDPrefix string
	limiter       *ratelimit.Limiter
	ipHashKey     string
	now           func() time.Time
}

func New(db *sql.DB, opts Options) *Store {
	s := &Store{
		db:            db,
		tokenFormat:   opts.TokenFormat,
		voterIDPrefix: opts.VoterIDPrefix,
		limiter:       opts.Limiter,
		ipHashKey:     opts.IPHashKey,
		now:           opts.Now,
	}
	if s.tokenFormat == "" {
		s.tokenFormat = auth.FormatNumeric
	}
	if s.voterIDPrefix == "" {
		s.voterIDPrefix = "VTR"
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *Store) TokenFormat() string { return s.tokenFormat }

// Healthy performs a trivial read against the store.
func (s *Store) Healthy(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return storageError("health check", err)
	}
	return nil
}

func exists(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	var found bool
	err := q.QueryRowContext(ctx, `SELECT EXISTS(`+query+`)`, args...).Scan(&found)
	return found, err
}

func countRows(ctx context.Context, q querier, query string, args ...any) (int, error) {
	var n int
	err := q.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

func isNoRows(err error) bool { return errors.Is(err, sql.ErrNoRows) }

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
