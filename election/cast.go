// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/danielhkuo/quickly-elect/auth"
)

// Ballot is one submission. Selections maps position ID to candidate ID;
// entries for unknown, disabled or empty positions are ignored.
type Ballot struct {
	VoterID     string
	VotingToken string
	Selections  map[string]string
	IPAddress   string
	UserAgent   string
}

// CastVote records a ballot. Either every vote of the ballot is stored and
// the voter is marked as voted, or nothing changes. Returns the number of
// votes recorded.
func (s *Store) CastVote(ctx context.Context, b Ballot) (int, error) {
	status, err := s.Status(ctx)
	if err != nil {
		return 0, err
	}
	if !status.VotingOpen {
		return 0, ErrVotingClosed
	}

	if err := s.checkRate(ctx, b.IPAddress); err != nil {
		return 0, err
	}

	voterID := strings.TrimSpace(b.VoterID)
	token := strings.TrimSpace(b.VotingToken)
	if voterID == "" {
		return 0, validationError("voter_id", "Please enter your Voter ID.")
	}
	if token == "" {
		return 0, validationError("voting_token", "Please enter your Voting Token.")
	}
	if auth.ValidateVoterID(voterID) != nil {
		return 0, validationError("voter_id", "Voter ID must be 3-20 letters, digits or dashes.")
	}
	if auth.ValidateVotingToken(token, s.tokenFormat) != nil {
		return 0, validationError("voting_token", "Voting Token must be "+auth.TokenFormatHint(s.tokenFormat)+".")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageError("begin", err)
	}
	defer tx.Rollback()

	var voterRef string
	var hasVoted bool
	err = tx.QueryRowContext(ctx,
		`SELECT id, has_voted FROM voters WHERE voter_id = $1 AND voting_token = $2`,
		voterID, token,
	).Scan(&voterRef, &hasVoted)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Warn("rejected ballot: bad credentials", "voter_id", voterID)
		return 0, ErrInvalidCredentials
	}
	if err != nil {
		return 0, storageError("look up voter", err)
	}
	if hasVoted {
		return 0, ErrAlreadyVoted
	}

	// Concurrent submissions for the same voter serialize on this row; the
	// loser sees zero rows affected.
	res, err := tx.ExecContext(ctx,
		`UPDATE voters SET has_voted = TRUE WHERE id = $1 AND has_voted = FALSE`, voterRef)
	if err != nil {
		return 0, storageError("mark voter", err)
	}
	if n, err := res.RowsAffected(); err != nil || n != 1 {
		return 0, ErrAlreadyVoted
	}

	eligible, err := votableCandidates(ctx, tx)
	if err != nil {
		return 0, err
	}
	if len(eligible) == 0 {
		return 0, ErrNoPositions
	}

	castAt := s.now().UTC()
	recorded := 0
	for positionID, candidates := range eligible {
		candidateID := strings.TrimSpace(b.Selections[positionID])
		if candidateID == "" || !candidates[candidateID] {
			continue
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO votes (id, voter_id, candidate_id, position_id, ip_address, user_agent, cast_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, uuid.NewString(), voterRef, candidateID, positionID, b.IPAddress, b.UserAgent, castAt)
		if err != nil {
			return 0, storageError("insert vote", err)
		}
		recorded++
	}
	if recorded == 0 {
		return 0, ErrNoSelections
	}

	if err := tx.Commit(); err != nil {
		return 0, storageError("commit", err)
	}

	slog.Info("vote cast", "voter_id", voterID, "votes", recorded)
	return recorded, nil
}

// checkRate counts this attempt against the client's allowance. A failing
// limiter store lets the attempt through.
func (s *Store) checkRate(ctx context.Context, ip string) error {
	if s.limiter == nil {
		return nil
	}
	res, err := s.limiter.Allow(ctx, auth.HashIP(ip, s.ipHashKey))
	if err != nil {
		slog.Warn("rate limiter unavailable", "error", err)
		return nil
	}
	if !res.Allowed {
		slog.Warn("rate limit exceeded", "attempts", res.Count)
		return rateLimited(res.RetryAfter)
	}
	return nil
}

// votableCandidates maps each enabled position to its candidate IDs.
func votableCandidates(ctx context.Context, q querier) (map[string]map[string]bool, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT c.position_id, c.id
		FROM candidates c
		JOIN positions p ON p.id = c.position_id
		WHERE p.voting_enabled = TRUE
	`)
	if err != nil {
		return nil, storageError("load positions", err)
	}
	defer rows.Close()

	eligible := make(map[string]map[string]bool)
	for rows.Next() {
		var positionID, candidateID string
		if err := rows.Scan(&positionID, &candidateID); err != nil {
			return nil, storageError("scan candidates", err)
		}
		if eligible[positionID] == nil {
			eligible[positionID] = make(map[string]bool)
		}
		eligible[positionID][candidateID] = true
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("load positions", err)
	}
	return eligible, nil
}
