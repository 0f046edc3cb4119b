// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides credential generation and validation primitives.

Nothing in this package touches storage; uniqueness against the voter roster
is the election package's job.

# Voting Tokens

Voting tokens are the secret half of a voter's credential pair. Two formats
exist and a deployment picks one:

	token, err := auth.GenerateVotingToken(auth.FormatNumeric)      // "48213907"
	token, err := auth.GenerateVotingToken(auth.FormatAlphanumeric) // "q7Rk2M0aZx91LbTe"

Characters are drawn from crypto/rand. ValidateVotingToken checks a submitted
token against the same format before any database lookup.

# Voter IDs

Voter IDs are the public half: 3-20 letters, digits or dashes.

	err := auth.ValidateVoterID("VTR001")
	id := auth.SequentialVoterID("VTR", 7) // "VTR007"

# Admin Token

The admin surface is gated by one shared secret, compared byte-for-byte in
constant time:

	err := auth.ValidateAdminToken(presented, cfg.AdminToken)

# ID Generation

Random hex IDs for database records:

	id, err := auth.GenerateID(16)  // 32 hex characters

# IP Hashing

Rate-limit keys use a keyed hash of the client address rather than the
address itself:

	key := auth.HashIP(ipAddress, secretKey)
*/
package auth
