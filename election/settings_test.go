// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package election

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/danielhkuo/quickly-elect/testutil"
)

func TestStatus_DefaultClosed(t *testing.T) {
	s, _, _ := newTestStore(t)

	status, err := s.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.VotingOpen || status.VotingUntil != nil {
		t.Errorf("fresh store should be closed with no deadline, got %+v", status)
	}
}

func TestOpenVoting(t *testing.T) {
	ctx := context.Background()
	s, conn, clock := newTestStore(t)

	status, err := s.OpenVoting(ctx, 30)
	if err != nil {
		t.Fatalf("OpenVoting() error = %v", err)
	}
	want := clock.t.Add(30 * time.Minute)
	if !status.VotingOpen || status.VotingUntil == nil || !status.VotingUntil.Equal(want) {
		t.Fatalf("OpenVoting(30) = %+v, want open until %s", status, want)
	}

	got, err := s.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !got.VotingOpen || got.VotingUntil == nil || !got.VotingUntil.Equal(want) {
		t.Errorf("Status() = %+v, want open until %s", got, want)
	}

	// Re-opening without minutes clears the deadline
	if _, err := s.OpenVoting(ctx, 0); err != nil {
		t.Fatal(err)
	}
	if n := testutil.CountRows(t, conn, `SELECT COUNT(*) FROM settings WHERE key = 'voting_until'`); n != 0 {
		t.Errorf("open-ended voting should have no deadline row, found %d", n)
	}
	got, _ = s.Status(ctx)
	if !got.VotingOpen || got.VotingUntil != nil {
		t.Errorf("Status() = %+v, want open with no deadline", got)
	}
}

func TestOpenVoting_NegativeMinutes(t *testing.T) {
	s, _, _ := newTestStore(t)

	_, err := s.OpenVoting(context.Background(), -5)
	if KindOf(err) != KindValidation {
		t.Errorf("OpenVoting(-5) error = %v, want validation error", err)
	}
}

func TestCloseVoting(t *testing.T) {
	ctx := context.Background()
	s, conn, _ := newTestStore(t)

	if _, err := s.OpenVoting(ctx, 10); err != nil {
		t.Fatal(err)
	}
	if err := s.CloseVoting(ctx); err != nil {
		t.Fatalf("CloseVoting() error = %v", err)
	}

	status, _ := s.Status(ctx)
	if status.VotingOpen {
		t.Error("voting should be closed")
	}
	if n := testutil.CountRows(t, conn, `SELECT COUNT(*) FROM settings WHERE key = 'voting_until'`); n != 0 {
		t.Error("closing should clear the deadline")
	}
}

func TestStatus_LazyDeadline(t *testing.T) {
	ctx := context.Background()
	s, conn, clock := newTestStore(t)
	positionID := testutil.CreateTestPosition(t, conn, "President", true)
	candidateID := testutil.AddTestCandidate(t, conn, positionID, "Alice")
	testutil.CreateTestVoter(t, conn, "M1", "MEM-1", "12345678")

	if _, err := s.OpenVoting(ctx, 5); err != nil {
		t.Fatal(err)
	}

	clock.advance(4 * time.Minute)
	if status, _ := s.Status(ctx); !status.VotingOpen {
		t.Fatal("voting should still be open before the deadline")
	}

	clock.advance(2 * time.Minute)
	status, err := s.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if status.VotingOpen || status.VotingUntil != nil {
		t.Errorf("Status() after deadline = %+v, want closed", status)
	}

	// The read itself closed voting in storage
	var open string
	conn.QueryRow(`SELECT value FROM settings WHERE key = 'voting_open'`).Scan(&open)
	if open != "false" {
		t.Errorf("voting_open = %q after deadline, want false", open)
	}
	if n := testutil.CountRows(t, conn, `SELECT COUNT(*) FROM settings WHERE key = 'voting_until'`); n != 0 {
		t.Error("expired deadline should be deleted")
	}

	_, err = s.CastVote(ctx, Ballot{
		VoterID:     "MEM-1",
		VotingToken: "12345678",
		Selections:  map[string]string{positionID: candidateID},
	})
	if !errors.Is(err, ErrVotingClosed) {
		t.Errorf("CastVote() after deadline error = %v, want ErrVotingClosed", err)
	}
}

func TestStatus_CastVoteEnforcesDeadlineWithoutStatusRead(t *testing.T) {
	ctx := context.Background()
	s, conn, clock := newTestStore(t)
	positionID := testutil.CreateTestPosition(t, conn, "President", true)
	candidateID := testutil.AddTestCandidate(t, conn, positionID, "Alice")
	testutil.CreateTestVoter(t, conn, "M1", "MEM-1", "12345678")

	if _, err := s.OpenVoting(ctx, 1); err != nil {
		t.Fatal(err)
	}
	clock.advance(time.Hour)

	_, err := s.CastVote(ctx, Ballot{
		VoterID:     "MEM-1",
		VotingToken: "12345678",
		Selections:  map[string]string{positionID: candidateID},
	})
	if KindOf(err) != KindState {
		t.Fatalf("CastVote() error = %v, want state error", err)
	}
	if n := testutil.CountRows(t, conn, `SELECT COUNT(*) FROM votes`); n != 0 {
		t.Errorf("no vote should be recorded, found %d", n)
	}
}

func TestStatus_UnparseableDeadlineIgnored(t *testing.T) {
	ctx := context.Background()
	s, conn, _ := newTestStore(t)

	testutil.SetVotingOpen(t, conn, true)
	_, err := conn.Exec(`INSERT INTO settings (key, value, updated_at) VALUES ('voting_until', 'next tuesday', $1)`, time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}

	status, err := s.Status(ctx)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !status.VotingOpen || status.VotingUntil != nil {
		t.Errorf("Status() = %+v, want open with the bad deadline ignored", status)
	}
}

func TestExpireDeadline_KeepsNewerDeadline(t *testing.T) {
	ctx := context.Background()
	s, conn, _ := newTestStore(t)

	if _, err := s.OpenVoting(ctx, 60); err != nil {
		t.Fatal(err)
	}

	// An expiry racing with a re-open only deletes the deadline it read
	if err := s.expireDeadline(ctx, "2000-01-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}
	status, _ := s.Status(ctx)
	if !status.VotingOpen || status.VotingUntil == nil {
		t.Errorf("Status() = %+v, a newer deadline must survive a stale expiry", status)
	}
	if n := testutil.CountRows(t, conn, `SELECT COUNT(*) FROM settings WHERE key = 'voting_until'`); n != 1 {
		t.Errorf("deadline rows = %d, want 1", n)
	}
}
