// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/danielhkuo/quickly-elect/cliparse"
)

// sqlitePragmas are appended to every SQLite DSN. Foreign keys are off by
// default in SQLite and the schema relies on ON DELETE CASCADE.
const sqlitePragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

// Open connects to the configured store and verifies the connection.
// PostgreSQL is used when configured; otherwise an embedded SQLite file.
func Open(ctx context.Context, cfg cliparse.Config) (*sql.DB, error) {
	var (
		conn *sql.DB
		err  error
	)

	switch cfg.DatabaseType {
	case cliparse.DatabasePostgres:
		conn, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		conn.SetMaxOpenConns(20)
		conn.SetConnMaxLifetime(5 * time.Minute)

	case cliparse.DatabaseSQLite:
		dsn := cfg.DatabaseURL
		if dsn == "" {
			if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("create sqlite directory: %w", err)
				}
			}
			dsn = "file:" + cfg.SQLitePath
		}
		conn, err = OpenSQLite(dsn)
		if err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("unknown database type %q", cfg.DatabaseType)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.DatabaseType, err)
	}

	return conn, nil
}

// OpenSQLite opens a SQLite database with the pragmas the schema needs.
// SQLite allows one writer at a time, so the pool holds a single connection;
// that also keeps ":memory:" databases shared across calls.
func OpenSQLite(dsn string) (*sql.DB, error) {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}

	conn, err := sql.Open("sqlite", dsn+sep+sqlitePragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	conn.SetMaxOpenConns(1)

	return conn, nil
}
