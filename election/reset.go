// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"log/slog"

	"github.com/danielhkuo/quickly-elect/models"
)

// Reset deletes every vote, candidate and voter and closes voting, in one
// transaction. Positions survive with their enabled flags. The result lists
// the photos of the deleted candidates.
func (s *Store) Reset(ctx context.Context) (models.ResetResponse, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.ResetResponse{}, storageError("begin", err)
	}
	defer tx.Rollback()

	photos, err := candidatePhotos(ctx, tx, "")
	if err != nil {
		return models.ResetResponse{}, err
	}

	out := models.ResetResponse{PhotoURLs: photos}
	for _, step := range []struct {
		table string
		count *int64
	}{
		{"votes", &out.VotesCleared},
		{"candidates", &out.CandidatesCleared},
		{"voters", &out.VotersCleared},
	} {
		res, err := tx.ExecContext(ctx, `DELETE FROM `+step.table)
		if err != nil {
			return models.ResetResponse{}, storageError("clear "+step.table, err)
		}
		*step.count, _ = res.RowsAffected()
	}

	if err := closeVoting(ctx, tx, s.now().UTC()); err != nil {
		return models.ResetResponse{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.ResetResponse{}, storageError("commit", err)
	}

	slog.Warn("election reset",
		"votes", out.VotesCleared,
		"candidates", out.CandidatesCleared,
		"voters", out.VotersCleared)
	out.Message = "All voters, candidates and votes cleared; voting is closed."
	return out, nil
}
