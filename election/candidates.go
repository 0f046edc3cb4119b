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

func (s *Store) ListCandidates(ctx context.Context) ([]models.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.position_id, c.name, c.bio, c.photo_url, c.created_at
		FROM candidates c
		JOIN positions p ON p.id = c.position_id
		ORDER BY p.display_order, p.name, c.name
	`)
	if err != nil {
		return nil, storageError("list candidates", err)
	}
	defer rows.Close()

	candidates := []models.Candidate{}
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, storageError("scan candidate", err)
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list candidates", err)
	}
	return candidates, nil
}

func (s *Store) GetCandidate(ctx context.Context, id string) (models.Candidate, error) {
	return getCandidate(ctx, s.db, id)
}

func getCandidate(ctx context.Context, q querier, id string) (models.Candidate, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, position_id, name, bio, photo_url, created_at
		FROM candidates WHERE id = $1
	`, id)
	c, err := scanCandidate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Candidate{}, ErrNotFound
	}
	if err != nil {
		return models.Candidate{}, storageError("get candidate", err)
	}
	return c, nil
}

func (s *Store) CreateCandidate(ctx context.Context, req models.CreateCandidateRequest) (models.Candidate, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Candidate{}, storageError("begin", err)
	}
	defer tx.Rollback()

	c, err := s.insertCandidate(ctx, tx, req)
	if err != nil {
		return models.Candidate{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Candidate{}, storageError("commit", err)
	}

	slog.Info("candidate created", "candidate_id", c.ID, "position_id", c.PositionID)
	return c, nil
}

func (s *Store) insertCandidate(ctx context.Context, q querier, req models.CreateCandidateRequest) (models.Candidate, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return models.Candidate{}, validationError("name", "Candidate name is required.")
	}
	if err := requirePosition(ctx, q, req.PositionID); err != nil {
		return models.Candidate{}, err
	}

	id, err := auth.GenerateID(16)
	if err != nil {
		return models.Candidate{}, storageError("generate id", err)
	}
	c := models.Candidate{
		ID:         id,
		PositionID: req.PositionID,
		Name:       name,
		Bio:        strings.TrimSpace(req.Bio),
		CreatedAt:  s.now().UTC(),
	}
	if req.PhotoURL != nil {
		c.PhotoURL = nullable(strings.TrimSpace(*req.PhotoURL))
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO candidates (id, position_id, name, bio, photo_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.PositionID, c.Name, c.Bio, c.PhotoURL, c.CreatedAt)
	if err != nil {
		return models.Candidate{}, storageError("insert candidate", err)
	}
	return c, nil
}

// UpdateCandidate applies the non-nil fields of req. A candidate with votes
// cannot move to another position.
func (s *Store) UpdateCandidate(ctx context.Context, id string, req models.UpdateCandidateRequest) (models.Candidate, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Candidate{}, storageError("begin", err)
	}
	defer tx.Rollback()

	c, err := getCandidate(ctx, tx, id)
	if err != nil {
		return models.Candidate{}, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return models.Candidate{}, validationError("name", "Candidate name is required.")
		}
		c.Name = name
	}
	if req.Bio != nil {
		c.Bio = strings.TrimSpace(*req.Bio)
	}
	if req.PhotoURL != nil {
		c.PhotoURL = nullable(*req.PhotoURL)
	}
	if req.PositionID != nil && *req.PositionID != c.PositionID {
		if err := requirePosition(ctx, tx, *req.PositionID); err != nil {
			return models.Candidate{}, err
		}
		voted, err := candidateHasVotes(ctx, tx, id)
		if err != nil {
			return models.Candidate{}, err
		}
		if voted {
			return models.Candidate{}, ErrHasVotes
		}
		c.PositionID = *req.PositionID
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE candidates SET name = $1, bio = $2, photo_url = $3, position_id = $4 WHERE id = $5
	`, c.Name, c.Bio, c.PhotoURL, c.PositionID, c.ID)
	if err != nil {
		return models.Candidate{}, storageError("update candidate", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Candidate{}, storageError("commit", err)
	}

	slog.Info("candidate updated", "candidate_id", c.ID)
	return c, nil
}

// DeleteCandidate removes a candidate with no votes and returns what was
// deleted.
func (s *Store) DeleteCandidate(ctx context.Context, id string) (models.Candidate, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Candidate{}, storageError("begin", err)
	}
	defer tx.Rollback()

	c, err := getCandidate(ctx, tx, id)
	if err != nil {
		return models.Candidate{}, err
	}
	voted, err := candidateHasVotes(ctx, tx, id)
	if err != nil {
		return models.Candidate{}, err
	}
	if voted {
		return models.Candidate{}, ErrHasVotes
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM candidates WHERE id = $1`, id); err != nil {
		return models.Candidate{}, storageError("delete candidate", err)
	}
	if err := tx.Commit(); err != nil {
		return models.Candidate{}, storageError("commit", err)
	}

	slog.Info("candidate deleted", "candidate_id", id)
	return c, nil
}

func requirePosition(ctx context.Context, q querier, positionID string) error {
	if positionID == "" {
		return validationError("position_id", "Position is required.")
	}
	found, err := exists(ctx, q, `SELECT 1 FROM positions WHERE id = $1`, positionID)
	if err != nil {
		return storageError("check position", err)
	}
	if !found {
		return validationError("position_id", "Position does not exist.")
	}
	return nil
}

// candidatePhotos lists the photo URLs of the candidates matched by cond,
// which is appended to the WHERE clause.
func candidatePhotos(ctx context.Context, q querier, cond string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT photo_url FROM candidates WHERE photo_url IS NOT NULL `+cond, args...)
	if err != nil {
		return nil, storageError("list photos", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, storageError("scan photo", err)
		}
		urls = append(urls, url)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list photos", err)
	}
	return urls, nil
}

func candidateHasVotes(ctx context.Context, q querier, id string) (bool, error) {
	voted, err := exists(ctx, q, `SELECT 1 FROM votes WHERE candidate_id = $1`, id)
	if err != nil {
		return false, storageError("check votes", err)
	}
	return voted, nil
}

func scanCandidate(row rowScanner) (models.Candidate, error) {
	var c models.Candidate
	var photo sql.NullString
	if err := row.Scan(&c.ID, &c.PositionID, &c.Name, &c.Bio, &photo, &c.CreatedAt); err != nil {
		return models.Candidate{}, err
	}
	if photo.Valid {
		c.PhotoURL = &photo.String
	}
	return c, nil
}
