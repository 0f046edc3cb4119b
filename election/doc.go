// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package election holds every operation that reads or writes election data.

A Store wraps the database handle. Handlers call it and never issue SQL
themselves.

	store := election.New(conn, election.OptionsFromConfig(cfg, limiter))
	n, err := store.CastVote(ctx, election.Ballot{
		VoterID:     "VTR001",
		VotingToken: "48213377",
		Selections:  map[string]string{positionID: candidateID},
		IPAddress:   ip,
	})

# Voter lifecycle

A voter is created by ImportVotersCSV or CreateVoter with a voter ID and a
voting token unique across the roster. The voter ID reuses the member ID when
that is a valid, unused voter ID, otherwise it is the next prefixed sequence
number (VTR001, VTR002, ...). CastVote moves a voter from not-voted to voted
exactly once; only Reset undoes it.

# Casting

CastVote checks, in order: election open (expiring a passed deadline),
rate limit, credential format, credential match, has_voted. The voter row is
marked with a conditional UPDATE before any vote is written, so of two
concurrent ballots for one voter only one can commit. Selections for
disabled positions, unknown positions or candidates of another position are
dropped; a ballot left with no votes is rejected and nothing is stored.

# Deadlines

There is no timer. Status compares voting_until with the clock on every read
and closes voting once it has passed. CastVote goes through Status.

# Errors

Every failure is an *Error with a Kind. Use KindOf to map it to a response
and Message for the text that is safe to show.
*/
package election
