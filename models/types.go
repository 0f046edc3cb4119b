package models

import "time"

// Setting keys
const (
	SettingVotingOpen  = "voting_open"
	SettingVotingUntil = "voting_until"
)

// Voting control actions
const (
	ActionOpen  = "open"
	ActionClose = "close"
)

// Request types

type VotingControlRequest struct {
	Action  string `json:"action"`
	Minutes int    `json:"minutes,omitempty"`
}

type CreateCandidateRequest struct {
	Name       string  `json:"name"`
	Bio        string  `json:"bio"`
	PositionID string  `json:"position_id"`
	PhotoURL   *string `json:"photo_url,omitempty"`
}

// Nil fields are left unchanged
type UpdateCandidateRequest struct {
	Name       *string `json:"name,omitempty"`
	Bio        *string `json:"bio,omitempty"`
	PositionID *string `json:"position_id,omitempty"`
	PhotoURL   *string `json:"photo_url,omitempty"`
}

type CreatePositionRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	VotingEnabled *bool  `json:"voting_enabled,omitempty"`
	MaxVotes      int    `json:"max_votes,omitempty"`
	DisplayOrder  int    `json:"display_order,omitempty"`
}

// position_id -> candidate_id
type CastVoteRequest struct {
	VoterID     string            `json:"voter_id"`
	VotingToken string            `json:"voting_token"`
	Selections  map[string]string `json:"selections"`
}

// Response types

type MessageResponse struct {
	Message string `json:"message"`
}

type CreatedResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

type VotingStatus struct {
	VotingOpen  bool       `json:"voting_open"`
	VotingUntil *time.Time `json:"voting_until"`
}

type VotingControlResponse struct {
	Message     string     `json:"message"`
	VotingOpen  bool       `json:"voting_open"`
	VotingUntil *time.Time `json:"voting_until"`
}

type CastVoteResponse struct {
	Message       string `json:"message"`
	VotesRecorded int    `json:"votes_recorded"`
}

type UploadVotersResponse struct {
	Message string   `json:"message"`
	Added   int      `json:"added"`
	Skipped int      `json:"skipped"`
	Invalid int      `json:"invalid"`
	Errors  []string `json:"errors,omitempty"`
}

type TogglePositionResponse struct {
	Message       string `json:"message"`
	PositionID    string `json:"position_id"`
	Name          string `json:"name"`
	VotingEnabled bool   `json:"voting_enabled"`
}

type ResetResponse struct {
	Message           string `json:"message"`
	VotersCleared     int64  `json:"voters_cleared"`
	VotesCleared      int64  `json:"votes_cleared"`
	CandidatesCleared int64  `json:"candidates_cleared"`

	// Photos of the deleted candidates, for the caller to remove
	PhotoURLs []string `json:"-"`
}

type SeedResponse struct {
	Message  string `json:"message"`
	Created  int    `json:"created"`
	Existing int    `json:"existing"`
	Total    int    `json:"total_positions"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type AdminDashboard struct {
	TotalVoters int             `json:"total_voters"`
	VotedCount  int             `json:"voted_count"`
	Positions   []Position      `json:"positions"`
	Candidates  []Candidate     `json:"candidates"`
	Voters      []Voter         `json:"voters"`
	Results     []PositionTally `json:"results"`
	Status      VotingStatus    `json:"status"`
}

// Domain types

type Voter struct {
	ID          string    `json:"id"`
	MemberID    string    `json:"member_id"`
	FullName    string    `json:"full_name"`
	PhoneNumber *string   `json:"phone_number,omitempty"`
	VoterID     string    `json:"voter_id"`
	VotingToken string    `json:"voting_token"` // Admin views only
	HasVoted    bool      `json:"has_voted"`
	CreatedAt   time.Time `json:"created_at"`
}

type Position struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	VotingEnabled  bool      `json:"voting_enabled"`
	MaxVotes       int       `json:"max_votes"`
	DisplayOrder   int       `json:"display_order"`
	CandidateCount int       `json:"candidate_count"`
	CreatedAt      time.Time `json:"created_at"`
}

type Candidate struct {
	ID         string    `json:"id"`
	PositionID string    `json:"position_id"`
	Name       string    `json:"name"`
	Bio        string    `json:"bio"`
	PhotoURL   *string   `json:"photo_url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type PositionWithCandidates struct {
	Position   Position    `json:"position"`
	Candidates []Candidate `json:"candidates"`
}

type Vote struct {
	ID          string    `json:"id"`
	VoterRef    string    `json:"-"` // voters.id, never the public voter_id
	CandidateID string    `json:"candidate_id"`
	PositionID  string    `json:"position_id"`
	IPAddress   string    `json:"-"` // Audit only
	UserAgent   string    `json:"-"` // Audit only
	CastAt      time.Time `json:"cast_at"`
}

// Tally types

type CandidateTally struct {
	CandidateID string  `json:"candidate_id"`
	Name        string  `json:"name"`
	PhotoURL    *string `json:"photo_url,omitempty"`
	Votes       int     `json:"votes"`
}

type PositionTally struct {
	PositionID    string           `json:"position_id"`
	Name          string           `json:"name"`
	VotingEnabled bool             `json:"voting_enabled"`
	TotalVotes    int              `json:"total_votes"`
	Candidates    []CandidateTally `json:"candidates"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Field   string `json:"field,omitempty"`
}
