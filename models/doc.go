// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

  - VotingControlRequest: action ("open"|"close"), optional minutes
  - CastVoteRequest: voter_id, voting_token, selections (position_id -> candidate_id)
  - CreateCandidateRequest / UpdateCandidateRequest
  - CreatePositionRequest

# Response Types

  - VotingStatus: voting_open, voting_until (RFC 3339 or null)
  - CastVoteResponse: message, votes_recorded
  - UploadVotersResponse: added, skipped, invalid, errors
  - AdminDashboard: totals, roster, positions, candidates, full tally
  - ErrorResponse: error, message, field

# Domain Types

  - Voter: identity, credential pair, has_voted
  - Position: electable role with its own voting_enabled flag
  - Candidate: belongs to one position
  - Vote: immutable (voter, candidate, position) record with audit fields
  - PositionTally / CandidateTally: counts computed on read

# Settings Keys

	SettingVotingOpen  = "voting_open"   // "true" | "false"
	SettingVotingUntil = "voting_until"  // RFC 3339, optional
*/
package models
