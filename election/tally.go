// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"database/sql"
	"encoding/csv"
	"io"
	"strconv"

	"github.com/danielhkuo/quickly-elect/models"
)

// Tally counts votes per candidate, grouped by position. Positions without
// candidates are omitted. Unless includeDisabled is set, only positions open
// for voting are included.
func (s *Store) Tally(ctx context.Context, includeDisabled bool) ([]models.PositionTally, error) {
	query := `
		SELECT p.id, p.name, p.voting_enabled, c.id, c.name, c.photo_url, COUNT(v.id)
		FROM positions p
		JOIN candidates c ON c.position_id = p.id
		LEFT JOIN votes v ON v.candidate_id = c.id
	`
	if !includeDisabled {
		query += ` WHERE p.voting_enabled = TRUE`
	}
	query += `
		GROUP BY p.id, p.name, p.voting_enabled, p.display_order, c.id, c.name, c.photo_url
		ORDER BY p.display_order, p.name, c.name
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storageError("tally", err)
	}
	defer rows.Close()

	tallies := []models.PositionTally{}
	for rows.Next() {
		var pt models.PositionTally
		var ct models.CandidateTally
		var photo sql.NullString
		if err := rows.Scan(&pt.PositionID, &pt.Name, &pt.VotingEnabled, &ct.CandidateID, &ct.Name, &photo, &ct.Votes); err != nil {
			return nil, storageError("scan tally", err)
		}
		if photo.Valid {
			ct.PhotoURL = &photo.String
		}

		if n := len(tallies); n == 0 || tallies[n-1].PositionID != pt.PositionID {
			tallies = append(tallies, pt)
		}
		last := &tallies[len(tallies)-1]
		last.Candidates = append(last.Candidates, ct)
		last.TotalVotes += ct.Votes
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("tally", err)
	}
	return tallies, nil
}

// WriteResultsCSV writes one Position,Candidate,Votes row per candidate,
// disabled positions included.
func (s *Store) WriteResultsCSV(ctx context.Context, w io.Writer) error {
	tallies, err := s.Tally(ctx, true)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Position", "Candidate", "Votes"}); err != nil {
		return err
	}
	for _, pt := range tallies {
		for _, ct := range pt.Candidates {
			if err := cw.Write([]string{pt.Name, ct.Name, strconv.Itoa(ct.Votes)}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
