// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"strconv"
	"strings"

	"github.com/danielhkuo/quickly-elect/auth"
)

// Attempts per credential before giving up on a collision-free value.
const maxCredentialAttempts = 10

// newVoterID reuses the member ID when it is a well-formed, unused voter ID.
// Otherwise it hands out the next prefix + sequence number.
func (s *Store) newVoterID(ctx context.Context, q querier, memberID string) (string, error) {
	if auth.ValidateVoterID(memberID) == nil {
		taken, err := voterIDTaken(ctx, q, memberID)
		if err != nil {
			return "", err
		}
		if !taken {
			return memberID, nil
		}
	}

	next, err := s.nextVoterSequence(ctx, q)
	if err != nil {
		return "", err
	}
	for attempt := 0; attempt < maxCredentialAttempts; attempt++ {
		candidate := auth.SequentialVoterID(s.voterIDPrefix, next+attempt)
		if auth.ValidateVoterID(candidate) != nil {
			break
		}
		taken, err := voterIDTaken(ctx, q, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", ErrCredentialSpaceExhausted
}

// nextVoterSequence is one past the highest numeric suffix among voter IDs
// carrying the configured prefix.
func (s *Store) nextVoterSequence(ctx context.Context, q querier) (int, error) {
	rows, err := q.QueryContext(ctx, `SELECT voter_id FROM voters WHERE voter_id LIKE $1`, s.voterIDPrefix+"%")
	if err != nil {
		return 0, storageError("scan voter ids", err)
	}
	defer rows.Close()

	highest := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, storageError("scan voter ids", err)
		}
		if !strings.HasPrefix(id, s.voterIDPrefix) {
			continue
		}
		n, err := strconv.Atoi(id[len(s.voterIDPrefix):])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	if err := rows.Err(); err != nil {
		return 0, storageError("scan voter ids", err)
	}
	return highest + 1, nil
}

func (s *Store) newVotingToken(ctx context.Context, q querier) (string, error) {
	for attempt := 0; attempt < maxCredentialAttempts; attempt++ {
		token, err := auth.GenerateVotingToken(s.tokenFormat)
		if err != nil {
			return "", storageError("generate token", err)
		}
		taken, err := tokenTaken(ctx, q, token)
		if err != nil {
			return "", err
		}
		if !taken {
			return token, nil
		}
	}
	return "", ErrCredentialSpaceExhausted
}

func voterIDTaken(ctx context.Context, q querier, voterID string) (bool, error) {
	taken, err := exists(ctx, q, `SELECT 1 FROM voters WHERE voter_id = $1`, voterID)
	if err != nil {
		return false, storageError("check voter id", err)
	}
	return taken, nil
}

func tokenTaken(ctx context.Context, q querier, token string) (bool, error) {
	taken, err := exists(ctx, q, `SELECT 1 FROM voters WHERE voting_token = $1`, token)
	if err != nil {
		return false, storageError("check voting token", err)
	}
	return taken, nil
}
