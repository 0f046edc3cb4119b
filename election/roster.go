// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/danielhkuo/quickly-elect/auth"
	"github.com/danielhkuo/quickly-elect/models"
)

// Row errors beyond this many are counted but not reported.
const maxReportedErrors = 10

// NewVoter is one roster entry. VotingToken is optional; an empty, malformed
// or already-used token is replaced by a generated one.
type NewVoter struct {
	MemberID    string
	FullName    string
	PhoneNumber string
	VotingToken string
}

type ImportResult struct {
	Added   int
	Skipped int // member ID already on the roster or earlier in the file
	Invalid int
	Errors  []string
}

// CreateVoter adds a single voter with freshly assigned credentials.
func (s *Store) CreateVoter(ctx context.Context, nv NewVoter) (models.Voter, error) {
	nv = trimVoter(nv)
	if nv.MemberID == "" || nv.FullName == "" {
		return models.Voter{}, validationError("member_id", "Member ID and full name are required.")
	}
	if nv.PhoneNumber != "" && !hasDigit(nv.PhoneNumber) {
		return models.Voter{}, validationError("phone_number", "Phone number must contain at least one digit.")
	}
	if nv.VotingToken != "" && auth.ValidateVotingToken(nv.VotingToken, s.tokenFormat) != nil {
		return models.Voter{}, validationError("voting_token", "Voting Token must be "+auth.TokenFormatHint(s.tokenFormat)+".")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Voter{}, storageError("begin", err)
	}
	defer tx.Rollback()

	dup, err := memberExists(ctx, tx, nv.MemberID)
	if err != nil {
		return models.Voter{}, err
	}
	if dup {
		return models.Voter{}, ErrDuplicateMember
	}

	v, _, err := s.insertVoter(ctx, tx, nv)
	if err != nil {
		return models.Voter{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.Voter{}, storageError("commit", err)
	}

	slog.Info("voter added", "voter_id", v.VoterID)
	return v, nil
}

// ImportVotersCSV adds every valid row of a member_id, full_name,
// phone_number[, voting_token] file in one transaction. Bad rows are
// counted and described; they never abort the batch.
func (s *Store) ImportVotersCSV(ctx context.Context, r io.Reader) (ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return ImportResult{}, validationError("file", "Could not read the uploaded file.")
	}
	if !utf8.Valid(data) {
		return ImportResult{}, validationError("file", "File encoding error. Please save your CSV file as UTF-8.")
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ImportResult{}, storageError("begin", err)
	}
	defer tx.Rollback()

	var res ImportResult
	seen := make(map[string]bool)
	first := true
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			first = false
			res.Invalid++
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: %v", perr.StartLine, perr.Err))
			continue
		}
		if err != nil {
			return ImportResult{}, validationError("file", fmt.Sprintf("Error processing CSV file: %v", err))
		}

		line, _ := reader.FieldPos(0)
		if first {
			first = false
			if isHeaderRow(row) {
				continue
			}
		}
		if isBlankRow(row) {
			continue
		}

		if len(row) < 3 {
			res.Invalid++
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: expected member_id, full_name and phone_number", line))
			continue
		}
		nv := trimVoter(NewVoter{MemberID: row[0], FullName: row[1], PhoneNumber: row[2]})
		if len(row) > 3 {
			nv.VotingToken = strings.TrimSpace(row[3])
		}

		if nv.MemberID == "" || nv.FullName == "" || nv.PhoneNumber == "" {
			res.Invalid++
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: Missing required data (MemberID, FullName, or Phone)", line))
			continue
		}
		if !hasDigit(nv.PhoneNumber) {
			res.Invalid++
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: Invalid phone number (no digits): %s", line, nv.PhoneNumber))
			continue
		}

		if seen[nv.MemberID] {
			res.Skipped++
			continue
		}
		dup, err := memberExists(ctx, tx, nv.MemberID)
		if err != nil {
			return ImportResult{}, err
		}
		if dup {
			res.Skipped++
			continue
		}

		if nv.VotingToken != "" && auth.ValidateVotingToken(nv.VotingToken, s.tokenFormat) != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: Invalid voting token format for %s, generating new one", line, nv.MemberID))
			nv.VotingToken = ""
		}

		_, replaced, err := s.insertVoter(ctx, tx, nv)
		if err != nil {
			return ImportResult{}, err
		}
		if replaced {
			res.Errors = append(res.Errors, fmt.Sprintf("Row %d: Voting token for %s already in use, generating new one", line, nv.MemberID))
		}
		seen[nv.MemberID] = true
		res.Added++
	}

	if first {
		return ImportResult{}, validationError("file", "The CSV file is empty.")
	}

	if err := tx.Commit(); err != nil {
		return ImportResult{}, storageError("commit", err)
	}

	if len(res.Errors) > maxReportedErrors {
		res.Errors = res.Errors[:maxReportedErrors]
	}
	slog.Info("voters imported", "added", res.Added, "skipped", res.Skipped, "invalid", res.Invalid)
	return res, nil
}

// insertVoter assigns credentials and writes the row. replaced reports that a
// supplied token was already taken and a generated one used instead.
func (s *Store) insertVoter(ctx context.Context, q querier, nv NewVoter) (v models.Voter, replaced bool, err error) {
	voterID, err := s.newVoterID(ctx, q, nv.MemberID)
	if err != nil {
		return models.Voter{}, false, err
	}

	token := nv.VotingToken
	if token != "" {
		taken, err := tokenTaken(ctx, q, token)
		if err != nil {
			return models.Voter{}, false, err
		}
		if taken {
			token = ""
			replaced = true
		}
	}
	if token == "" {
		if token, err = s.newVotingToken(ctx, q); err != nil {
			return models.Voter{}, false, err
		}
	}

	id, err := auth.GenerateID(16)
	if err != nil {
		return models.Voter{}, false, storageError("generate id", err)
	}

	v = models.Voter{
		ID:          id,
		MemberID:    nv.MemberID,
		FullName:    nv.FullName,
		PhoneNumber: nullable(nv.PhoneNumber),
		VoterID:     voterID,
		VotingToken: token,
		CreatedAt:   s.now().UTC(),
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO voters (id, member_id, full_name, phone_number, voter_id, voting_token, has_voted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, $7)
	`, v.ID, v.MemberID, v.FullName, v.PhoneNumber, v.VoterID, v.VotingToken, v.CreatedAt)
	if err != nil {
		return models.Voter{}, false, storageError("insert voter", err)
	}
	return v, replaced, nil
}

// ListVoters returns the whole roster, credentials included.
func (s *Store) ListVoters(ctx context.Context) ([]models.Voter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, member_id, full_name, phone_number, voter_id, voting_token, has_voted, created_at
		FROM voters
		ORDER BY created_at, voter_id
	`)
	if err != nil {
		return nil, storageError("list voters", err)
	}
	defer rows.Close()

	voters := []models.Voter{}
	for rows.Next() {
		var v models.Voter
		var phone sql.NullString
		if err := rows.Scan(&v.ID, &v.MemberID, &v.FullName, &phone, &v.VoterID, &v.VotingToken, &v.HasVoted, &v.CreatedAt); err != nil {
			return nil, storageError("scan voter", err)
		}
		if phone.Valid {
			v.PhoneNumber = &phone.String
		}
		voters = append(voters, v)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list voters", err)
	}
	return voters, nil
}

// VoterCounts returns the roster size and how many have voted.
func (s *Store) VoterCounts(ctx context.Context) (total, voted int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN has_voted THEN 1 ELSE 0 END), 0)
		FROM voters
	`).Scan(&total, &voted)
	if err != nil {
		return 0, 0, storageError("count voters", err)
	}
	return total, voted, nil
}

// ClearVoters deletes the roster. Refused once any vote exists.
func (s *Store) ClearVoters(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageError("begin", err)
	}
	defer tx.Rollback()

	votes, err := countRows(ctx, tx, `SELECT COUNT(*) FROM votes`)
	if err != nil {
		return 0, storageError("count votes", err)
	}
	if votes > 0 {
		return 0, ErrVotesExist
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM voters`)
	if err != nil {
		return 0, storageError("clear voters", err)
	}
	n, _ := res.RowsAffected()
	if err := tx.Commit(); err != nil {
		return 0, storageError("commit", err)
	}

	slog.Info("voters cleared", "count", n)
	return n, nil
}

func memberExists(ctx context.Context, q querier, memberID string) (bool, error) {
	found, err := exists(ctx, q, `SELECT 1 FROM voters WHERE member_id = $1`, memberID)
	if err != nil {
		return false, storageError("check member id", err)
	}
	return found, nil
}

func trimVoter(nv NewVoter) NewVoter {
	return NewVoter{
		MemberID:    strings.TrimSpace(nv.MemberID),
		FullName:    strings.TrimSpace(nv.FullName),
		PhoneNumber: strings.TrimSpace(nv.PhoneNumber),
		VotingToken: strings.TrimSpace(nv.VotingToken),
	}
}

func isHeaderRow(row []string) bool {
	if len(row) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimSpace(row[0]))
	first = strings.NewReplacer("_", "", " ", "", "-", "").Replace(first)
	return first == "memberid"
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}
