// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/danielhkuo/quickly-elect/models"
)

// Seed lists positions, with optional candidates, to create up front.
//
//	positions:
//	  - name: President
//	    description: Chairs the board
//	    candidates:
//	      - name: Alice
//	        bio: Treasurer since 2021
type Seed struct {
	Positions []SeedPosition `yaml:"positions"`
}

type SeedPosition struct {
	Name          string          `yaml:"name"`
	Description   string          `yaml:"description"`
	VotingEnabled *bool           `yaml:"voting_enabled"`
	MaxVotes      int             `yaml:"max_votes"`
	Candidates    []SeedCandidate `yaml:"candidates"`
}

type SeedCandidate struct {
	Name     string `yaml:"name"`
	Bio      string `yaml:"bio"`
	PhotoURL string `yaml:"photo_url"`
}

// LoadSeedFile reads a seed from a YAML file.
func LoadSeedFile(path string) (*Seed, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer file.Close()

	return ParseSeed(file)
}

// ParseSeed decodes and validates a YAML seed document. JSON is accepted too.
func ParseSeed(r io.Reader) (*Seed, error) {
	var seed Seed
	d := yaml.NewDecoder(r)
	d.SetStrict(true)
	if err := d.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return nil, validationError("seed", fmt.Sprintf("Invalid seed document: %v", err))
	}

	names := make(map[string]bool)
	for i, p := range seed.Positions {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return nil, validationError("seed", fmt.Sprintf("Position %d has no name.", i+1))
		}
		if names[name] {
			return nil, validationError("seed", fmt.Sprintf("Position %q is listed twice.", name))
		}
		names[name] = true
		for j, c := range p.Candidates {
			if strings.TrimSpace(c.Name) == "" {
				return nil, validationError("seed", fmt.Sprintf("Candidate %d of %q has no name.", j+1, name))
			}
		}
	}
	return &seed, nil
}

// ApplySeed creates the positions that do not exist yet (matched by name),
// with their candidates. Positions that exist only get their voting_enabled
// flag updated when the seed sets one.
func (s *Store) ApplySeed(ctx context.Context, seed *Seed) (models.SeedResponse, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.SeedResponse{}, storageError("begin", err)
	}
	defer tx.Rollback()

	var out models.SeedResponse
	for i, sp := range seed.Positions {
		name := strings.TrimSpace(sp.Name)

		var existingID string
		err := tx.QueryRowContext(ctx, `SELECT id FROM positions WHERE name = $1`, name).Scan(&existingID)
		switch {
		case err == nil:
			if sp.VotingEnabled != nil {
				if _, err := tx.ExecContext(ctx, `UPDATE positions SET voting_enabled = $1 WHERE id = $2`, *sp.VotingEnabled, existingID); err != nil {
					return models.SeedResponse{}, storageError("update position", err)
				}
			}
			out.Existing++
			continue
		case !isNoRows(err):
			return models.SeedResponse{}, storageError("look up position", err)
		}

		p, err := s.insertPosition(ctx, tx, models.CreatePositionRequest{
			Name:          name,
			Description:   sp.Description,
			VotingEnabled: sp.VotingEnabled,
			MaxVotes:      sp.MaxVotes,
			DisplayOrder:  i + 1,
		})
		if err != nil {
			return models.SeedResponse{}, err
		}
		for _, sc := range sp.Candidates {
			photo := sc.PhotoURL
			_, err := s.insertCandidate(ctx, tx, models.CreateCandidateRequest{
				Name:       sc.Name,
				Bio:        sc.Bio,
				PositionID: p.ID,
				PhotoURL:   &photo,
			})
			if err != nil {
				return models.SeedResponse{}, err
			}
		}
		out.Created++
	}

	if out.Total, err = countRows(ctx, tx, `SELECT COUNT(*) FROM positions`); err != nil {
		return models.SeedResponse{}, storageError("count positions", err)
	}
	if err := tx.Commit(); err != nil {
		return models.SeedResponse{}, storageError("commit", err)
	}

	slog.Info("seed applied", "created", out.Created, "existing", out.Existing)
	out.Message = fmt.Sprintf("Created %d positions, %d already existed.", out.Created, out.Existing)
	return out, nil
}

// SeedIfEmpty applies seed only when no position exists yet.
func (s *Store) SeedIfEmpty(ctx context.Context, seed *Seed) (bool, error) {
	n, err := countRows(ctx, s.db, `SELECT COUNT(*) FROM positions`)
	if err != nil {
		return false, storageError("count positions", err)
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.ApplySeed(ctx, seed); err != nil {
		return false, err
	}
	return true, nil
}
