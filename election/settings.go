// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/danielhkuo/quickly-elect/models"
)

const upsertSettingSQL = `
	INSERT INTO settings (key, value, updated_at) VALUES ($1, $2, $3)
	ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`

// Status reports whether voting is open. A deadline that has passed closes
// voting as a side effect of the read; there is no background timer.
func (s *Store) Status(ctx context.Context) (models.VotingStatus, error) {
	open, rawUntil, err := s.readSettings(ctx)
	if err != nil {
		return models.VotingStatus{}, storageError("read settings", err)
	}

	status := models.VotingStatus{VotingOpen: open}
	if rawUntil == "" {
		return status, nil
	}

	until, err := time.Parse(time.RFC3339Nano, rawUntil)
	if err != nil {
		slog.Warn("ignoring unparseable voting deadline", "value", rawUntil, "error", err)
		return status, nil
	}

	if s.now().After(until) {
		if err := s.expireDeadline(ctx, rawUntil); err != nil {
			return models.VotingStatus{}, err
		}
		return models.VotingStatus{VotingOpen: false}, nil
	}

	until = until.UTC()
	status.VotingUntil = &until
	return status, nil
}

// OpenVoting opens voting, optionally with a deadline minutes from now.
// Zero minutes clears any deadline.
func (s *Store) OpenVoting(ctx context.Context, minutes int) (models.VotingStatus, error) {
	if minutes < 0 {
		return models.VotingStatus{}, validationError("minutes", "Minutes must be zero or positive.")
	}

	now := s.now().UTC()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.VotingStatus{}, storageError("begin", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, upsertSettingSQL, models.SettingVotingOpen, "true", now); err != nil {
		return models.VotingStatus{}, storageError("open voting", err)
	}

	status := models.VotingStatus{VotingOpen: true}
	if minutes > 0 {
		until := now.Add(time.Duration(minutes) * time.Minute)
		if _, err := tx.ExecContext(ctx, upsertSettingSQL, models.SettingVotingUntil, until.Format(time.RFC3339Nano), now); err != nil {
			return models.VotingStatus{}, storageError("set deadline", err)
		}
		status.VotingUntil = &until
	} else {
		if _, err := tx.ExecContext(ctx, `DELETE FROM settings WHERE key = $1`, models.SettingVotingUntil); err != nil {
			return models.VotingStatus{}, storageError("clear deadline", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.VotingStatus{}, storageError("commit", err)
	}

	slog.Info("voting opened", "minutes", minutes)
	return status, nil
}

// CloseVoting closes voting and drops any deadline.
func (s *Store) CloseVoting(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError("begin", err)
	}
	defer tx.Rollback()

	if err := closeVoting(ctx, tx, s.now().UTC()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return storageError("commit", err)
	}

	slog.Info("voting closed")
	return nil
}

func closeVoting(ctx context.Context, q querier, now time.Time) error {
	if _, err := q.ExecContext(ctx, upsertSettingSQL, models.SettingVotingOpen, "false", now); err != nil {
		return storageError("close voting", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM settings WHERE key = $1`, models.SettingVotingUntil); err != nil {
		return storageError("clear deadline", err)
	}
	return nil
}

// expireDeadline closes voting only if the deadline is still the one that was
// read, so a concurrent re-open with a new deadline is not clobbered.
func (s *Store) expireDeadline(ctx context.Context, rawUntil string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageError("begin", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM settings WHERE key = $1 AND value = $2`, models.SettingVotingUntil, rawUntil)
	if err != nil {
		return storageError("expire deadline", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil
	}

	if _, err := tx.ExecContext(ctx, upsertSettingSQL, models.SettingVotingOpen, "false", s.now().UTC()); err != nil {
		return storageError("expire deadline", err)
	}
	if err := tx.Commit(); err != nil {
		return storageError("commit", err)
	}

	slog.Info("voting deadline passed, voting closed", "deadline", rawUntil)
	return nil
}

func (s *Store) readSettings(ctx context.Context) (open bool, until string, err error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM settings WHERE key IN ($1, $2)`,
		models.SettingVotingOpen, models.SettingVotingUntil)
	if err != nil {
		return false, "", err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return false, "", err
		}
		switch key {
		case models.SettingVotingOpen:
			open, _ = strconv.ParseBool(value)
		case models.SettingVotingUntil:
			until = value
		}
	}
	return open, until, rows.Err()
}
