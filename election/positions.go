// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/danielhkuo/quickly-elect/auth"
	"github.com/danielhkuo/quickly-elect/models"
)

const positionColumns = `
	p.id, p.name, p.description, p.voting_enabled, p.max_votes, p.display_order, p.created_at,
	(SELECT COUNT(*) FROM candidates c WHERE c.position_id = p.id)
`

// ListPositions returns every position with its candidate count.
func (s *Store) ListPositions(ctx context.Context) ([]models.Position, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+positionColumns+` FROM positions p ORDER BY p.display_order, p.name`)
	if err != nil {
		return nil, storageError("list positions", err)
	}
	defer rows.Close()

	positions := []models.Position{}
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, storageError("scan position", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list positions", err)
	}
	return positions, nil
}

func getPosition(ctx context.Context, q querier, id string) (models.Position, error) {
	row := q.QueryRowContext(ctx, `SELECT `+positionColumns+` FROM positions p WHERE p.id = $1`, id)
	p, err := scanPosition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Position{}, ErrNotFound
	}
	if err != nil {
		return models.Position{}, storageError("get position", err)
	}
	return p, nil
}

func (s *Store) CreatePosition(ctx context.Context, req models.CreatePositionRequest) (models.Position, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Position{}, storageError("begin", err)
	}
	defer tx.Rollback()

	p, err := s.insertPosition(ctx, tx, req)
	if err != nil {
		return models.Position{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Position{}, storageError("commit", err)
	}

	slog.Info("position created", "position_id", p.ID, "name", p.Name)
	return p, nil
}

func (s *Store) insertPosition(ctx context.Context, q querier, req models.CreatePositionRequest) (models.Position, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return models.Position{}, validationError("name", "Position name is required.")
	}
	maxVotes := req.MaxVotes
	if maxVotes == 0 {
		maxVotes = 1
	}
	if maxVotes < 0 {
		return models.Position{}, validationError("max_votes", "max_votes must be at least 1.")
	}

	dup, err := exists(ctx, q, `SELECT 1 FROM positions WHERE name = $1`, name)
	if err != nil {
		return models.Position{}, storageError("check position name", err)
	}
	if dup {
		return models.Position{}, ErrDuplicatePosition
	}

	id, err := auth.GenerateID(16)
	if err != nil {
		return models.Position{}, storageError("generate id", err)
	}
	p := models.Position{
		ID:            id,
		Name:          name,
		Description:   strings.TrimSpace(req.Description),
		VotingEnabled: req.VotingEnabled == nil || *req.VotingEnabled,
		MaxVotes:      maxVotes,
		DisplayOrder:  req.DisplayOrder,
		CreatedAt:     s.now().UTC(),
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO positions (id, name, description, voting_enabled, max_votes, display_order, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.Name, p.Description, p.VotingEnabled, p.MaxVotes, p.DisplayOrder, p.CreatedAt)
	if err != nil {
		return models.Position{}, storageError("insert position", err)
	}
	return p, nil
}

// DeletePosition removes a position and its candidates and returns the
// candidates' photo URLs. Refused once the position has votes.
func (s *Store) DeletePosition(ctx context.Context, id string) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageError("begin", err)
	}
	defer tx.Rollback()

	if _, err := getPosition(ctx, tx, id); err != nil {
		return nil, err
	}
	voted, err := exists(ctx, tx, `SELECT 1 FROM votes WHERE position_id = $1`, id)
	if err != nil {
		return nil, storageError("check votes", err)
	}
	if voted {
		return nil, ErrHasVotes
	}

	photos, err := candidatePhotos(ctx, tx, `AND position_id = $1`, id)
	if err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM candidates WHERE position_id = $1`, id); err != nil {
		return nil, storageError("delete candidates", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM positions WHERE id = $1`, id); err != nil {
		return nil, storageError("delete position", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, storageError("commit", err)
	}

	slog.Info("position deleted", "position_id", id, "photos", len(photos))
	return photos, nil
}

// TogglePositionVoting flips a position's voting_enabled flag.
func (s *Store) TogglePositionVoting(ctx context.Context, id string) (models.Position, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Position{}, storageError("begin", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `UPDATE positions SET voting_enabled = NOT voting_enabled WHERE id = $1`, id)
	if err != nil {
		return models.Position{}, storageError("toggle position", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.Position{}, ErrNotFound
	}
	p, err := getPosition(ctx, tx, id)
	if err != nil {
		return models.Position{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Position{}, storageError("commit", err)
	}

	slog.Info("position voting toggled", "position_id", id, "voting_enabled", p.VotingEnabled)
	return p, nil
}

// Ballot returns the enabled positions that have at least one candidate,
// each with its candidates, in display order.
func (s *Store) Ballot(ctx context.Context) ([]models.PositionWithCandidates, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.description, p.voting_enabled, p.max_votes, p.display_order, p.created_at,
			c.id, c.position_id, c.name, c.bio, c.photo_url, c.created_at
		FROM positions p
		JOIN candidates c ON c.position_id = p.id
		WHERE p.voting_enabled = TRUE
		ORDER BY p.display_order, p.name, c.name
	`)
	if err != nil {
		return nil, storageError("load ballot", err)
	}
	defer rows.Close()

	ballot := []models.PositionWithCandidates{}
	for rows.Next() {
		var p models.Position
		var c models.Candidate
		var photo sql.NullString
		err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.VotingEnabled, &p.MaxVotes, &p.DisplayOrder, &p.CreatedAt,
			&c.ID, &c.PositionID, &c.Name, &c.Bio, &photo, &c.CreatedAt)
		if err != nil {
			return nil, storageError("scan ballot", err)
		}
		if photo.Valid {
			c.PhotoURL = &photo.String
		}

		if n := len(ballot); n == 0 || ballot[n-1].Position.ID != p.ID {
			ballot = append(ballot, models.PositionWithCandidates{Position: p})
		}
		last := &ballot[len(ballot)-1]
		last.Candidates = append(last.Candidates, c)
		last.Position.CandidateCount = len(last.Candidates)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("load ballot", err)
	}
	return ballot, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPosition(row rowScanner) (models.Position, error) {
	var p models.Position
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.VotingEnabled, &p.MaxVotes, &p.DisplayOrder, &p.CreatedAt, &p.CandidateCount)
	return p, err
}
