package game

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/arena/go/internal/models"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testSettings() models.GameSettings {
	return models.GameSettings{
		PlayersMin:          2,
		PlayersMax:          3,
		FreeGrabs:           1,
		FreeSlaps:           2,
		FreeSneaks:          1,
		GrabHoldSec:         10,
		SneakHoldSec:        3,
		CountdownSec:        0,
		DurationSec:         120,
		PrizeLamports:       1_000_000,
		ActionPriceLamports: 10_000,
	}
}

func newTestSession(t *testing.T, settings models.GameSettings) models.GameSession {
	t.Helper()
	s, err := NewSession(uuid.New(), "grabbit", settings, t0.Add(time.Minute), t0)
	require.NoError(t, err)
	return s
}

// activeSession returns a session with alice and bob joined, advanced past
// its start time.
func activeSession(t *testing.T) (models.GameSession, time.Time) {
	t.Helper()
	s := newTestSession(t, testSettings())
	var err error
	s, _, err = Join(s, "alice", nil, t0)
	require.NoError(t, err)
	s, _, err = Join(s, "bob", nil, t0)
	require.NoError(t, err)

	now := s.StartTime
	s, err = AdvanceClock(s, now)
	require.NoError(t, err)
	require.Equal(t, models.GameStatusActive, s.Status)
	return s, now
}

func TestNewSessionValidation(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*models.GameSettings)
		expErr bool
	}{
		{name: "valid", mutate: func(*models.GameSettings) {}},
		{name: "zero players_min", mutate: func(s *models.GameSettings) { s.PlayersMin = 0 }, expErr: true},
		{name: "max below min", mutate: func(s *models.GameSettings) { s.PlayersMax = 1 }, expErr: true},
		{name: "negative allotment", mutate: func(s *models.GameSettings) { s.FreeSlaps = -1 }, expErr: true},
		{name: "zero hold", mutate: func(s *models.GameSettings) { s.SneakHoldSec = 0 }, expErr: true},
		{name: "zero duration", mutate: func(s *models.GameSettings) { s.DurationSec = 0 }, expErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			settings := testSettings()
			tc.mutate(&settings)
			_, err := NewSession(uuid.New(), "grabbit", settings, t0, t0)
			if tc.expErr {
				require.ErrorIs(t, err, ErrInvalidSettings)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestJoin(t *testing.T) {
	base := newTestSession(t, testSettings())

	s, entry, err := Join(base, "alice", []byte(`{"name":"Alice"}`), t0)
	require.NoError(t, err)
	assert.Equal(t, models.ActionCounts{Grabs: 1, Slaps: 2, Sneaks: 1}, entry.Remaining)
	assert.Len(t, s.Players, 1)
	assert.Empty(t, base.Players, "input snapshot must not change")
	assert.True(t, s.AwaitingPlayers())
	assert.Equal(t, "AWAITING_PLAYERS", s.Phase())

	_, _, err = Join(s, "alice", nil, t0)
	require.ErrorIs(t, err, ErrAlreadyJoined)

	_, _, err = Join(s, "  ", nil, t0)
	require.ErrorIs(t, err, ErrInvalidIdentity)

	s, _, err = Join(s, "bob", nil, t0)
	require.NoError(t, err)
	s, _, err = Join(s, "carol", nil, t0)
	require.NoError(t, err)

	_, _, err = Join(s, "dave", nil, t0)
	require.ErrorIs(t, err, ErrSessionFull)
}

func TestJoinPrecedence(t *testing.T) {
	s, now := activeSession(t)

	// Already joined wins over wrong phase.
	_, _, err := Join(s, "alice", nil, now)
	require.ErrorIs(t, err, ErrAlreadyJoined)

	_, _, err = Join(s, "zed", nil, now)
	require.ErrorIs(t, err, ErrWrongPhase)

	settings := testSettings()
	settings.PlayersMax = 2
	full := newTestSession(t, settings)
	full, _, err = Join(full, "alice", nil, t0)
	require.NoError(t, err)
	full, _, err = Join(full, "bob", nil, t0)
	require.NoError(t, err)
	full, err = AdvanceClock(full, full.StartTime)
	require.NoError(t, err)

	// Full wins over wrong phase.
	_, _, err = Join(full, "carol", nil, full.StartTime)
	require.ErrorIs(t, err, ErrSessionFull)
}

func TestAdvanceClockStartsOnceAndNeverRegresses(t *testing.T) {
	s := newTestSession(t, testSettings())
	var err error
	s, _, err = Join(s, "alice", nil, t0)
	require.NoError(t, err)
	s, _, err = Join(s, "bob", nil, t0)
	require.NoError(t, err)

	before, err := AdvanceClock(s, s.StartTime.Add(-time.Second))
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusCreated, before.Status)

	transitions := 0
	status := before.Status
	for i := 0; i < 10; i++ {
		next, err := AdvanceClock(before, s.StartTime.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		if next.Status != status {
			transitions++
			status = next.Status
		}
		require.GreaterOrEqual(t, next.Status, before.Status)
		before = next
	}
	assert.Equal(t, 1, transitions)
	assert.Equal(t, models.GameStatusActive, before.Status)

	// An earlier clock reading does not move the session backwards.
	again, err := AdvanceClock(before, t0)
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusActive, again.Status)
}

func TestAdvanceClockCountdown(t *testing.T) {
	settings := testSettings()
	settings.CountdownSec = 10
	s := newTestSession(t, settings)
	var err error
	s, _, err = Join(s, "alice", nil, t0)
	require.NoError(t, err)
	s, _, err = Join(s, "bob", nil, t0)
	require.NoError(t, err)

	s, err = AdvanceClock(s, s.StartTime.Add(-5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusCountdown, s.Status)

	// No joins once the countdown is running.
	_, _, err = Join(s, "carol", nil, s.StartTime.Add(-4*time.Second))
	require.ErrorIs(t, err, ErrWrongPhase)

	s, err = AdvanceClock(s, s.StartTime)
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusActive, s.Status)
}

func TestAdvanceClockWaitsForPlayers(t *testing.T) {
	s := newTestSession(t, testSettings())
	s, _, err := Join(s, "alice", nil, t0)
	require.NoError(t, err)

	s, err = AdvanceClock(s, s.StartTime.Add(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusCreated, s.Status)

	// A late second player completes the roster and the game starts.
	s, _, err = Join(s, "bob", nil, s.StartTime.Add(6*time.Second))
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusActive, s.Status)
}

func TestAdvanceClockEndsUnfilledSession(t *testing.T) {
	s := newTestSession(t, testSettings())
	s, err := AdvanceClock(s, s.EndTime)
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusEnded, s.Status)
	assert.Nil(t, s.Winner)
}

func TestApplyActionBudgetExhausted(t *testing.T) {
	s, now := activeSession(t)

	s, outcome, err := ApplyAction(s, "alice", models.ActionGrab, now)
	require.NoError(t, err)
	assert.Equal(t, 0, outcome.Remaining)
	require.NotNil(t, outcome.Hold)

	_, _, err = ApplyAction(s, "alice", models.ActionGrab, now.Add(time.Second))
	require.ErrorIs(t, err, ErrBudgetExhausted)

	p, _, ok := s.Player("alice")
	require.True(t, ok)
	assert.Equal(t, 0, p.Remaining.Grabs)
	assert.Equal(t, 1, p.Used.Grabs)
}

func TestApplyActionNeverGoesNegative(t *testing.T) {
	s, now := activeSession(t)
	kinds := []models.ActionKind{models.ActionSlap, models.ActionSlap, models.ActionSlap, models.ActionSneak, models.ActionSneak, models.ActionGrab, models.ActionGrab}

	for i, kind := range kinds {
		next, _, err := ApplyAction(s, "bob", kind, now.Add(time.Duration(i)*100*time.Millisecond))
		if err != nil {
			require.ErrorIs(t, err, ErrBudgetExhausted)
		}
		s = next
		for _, p := range s.Players {
			require.GreaterOrEqual(t, p.Remaining.Grabs, 0)
			require.GreaterOrEqual(t, p.Remaining.Slaps, 0)
			require.GreaterOrEqual(t, p.Remaining.Sneaks, 0)
		}
	}
	p, _, _ := s.Player("bob")
	assert.Equal(t, models.ActionCounts{Grabs: 1, Slaps: 2, Sneaks: 1}, p.Used)
}

func TestApplyActionErrors(t *testing.T) {
	s, now := activeSession(t)

	_, _, err := ApplyAction(s, "mallory", models.ActionGrab, now)
	require.ErrorIs(t, err, ErrNoPlayer)

	_, _, err = ApplyAction(s, "alice", models.ActionKind("KICK"), now)
	require.ErrorIs(t, err, ErrInvalidAction)

	pre := newTestSession(t, testSettings())
	_, _, err = ApplyAction(pre, "alice", models.ActionGrab, t0)
	require.ErrorIs(t, err, ErrWrongPhase)
}

func TestGrabHoldWins(t *testing.T) {
	s, now := activeSession(t)

	s, _, err := ApplyAction(s, "alice", models.ActionGrab, now)
	require.NoError(t, err)

	mid, err := AdvanceClock(s, now.Add(9*time.Second))
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusActive, mid.Status)

	done, err := AdvanceClock(s, now.Add(10*time.Second))
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusEnded, done.Status)
	require.NotNil(t, done.Winner)
	assert.Equal(t, "alice", *done.Winner)
	assert.Equal(t, now.Add(10*time.Second), *done.EndedAt)
}

func TestSneakHoldWinsSooner(t *testing.T) {
	s, now := activeSession(t)

	s, outcome, err := ApplyAction(s, "bob", models.ActionSneak, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(3*time.Second), outcome.Hold.Deadline)

	s, err = AdvanceClock(s, now.Add(3*time.Second))
	require.NoError(t, err)
	require.NotNil(t, s.Winner)
	assert.Equal(t, "bob", *s.Winner)
}

func TestSlapInterruptsHold(t *testing.T) {
	s, now := activeSession(t)

	s, _, err := ApplyAction(s, "alice", models.ActionGrab, now)
	require.NoError(t, err)

	s, outcome, err := ApplyAction(s, "bob", models.ActionSlap, now.Add(5*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "alice", outcome.Interrupted)
	assert.Nil(t, s.Hold)

	s, err = AdvanceClock(s, now.Add(11*time.Second))
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusActive, s.Status)
	assert.Nil(t, s.Winner)

	s, err = AdvanceClock(s, s.EndTime)
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusEnded, s.Status)
	assert.Nil(t, s.Winner, "an interrupted hold must never produce a winner")
}

func TestSlapOwnHoldHasNoEffect(t *testing.T) {
	s, now := activeSession(t)

	s, _, err := ApplyAction(s, "alice", models.ActionGrab, now)
	require.NoError(t, err)
	s, outcome, err := ApplyAction(s, "alice", models.ActionSlap, now.Add(time.Second))
	require.NoError(t, err)
	assert.Empty(t, outcome.Interrupted)
	require.NotNil(t, s.Hold)
	assert.Equal(t, "alice", s.Hold.Player)
}

func TestSlapAfterHoldCompletedIsTooLate(t *testing.T) {
	s, now := activeSession(t)

	s, _, err := ApplyAction(s, "alice", models.ActionSneak, now)
	require.NoError(t, err)

	s, _, err = ApplyAction(s, "bob", models.ActionSlap, now.Add(4*time.Second))
	require.ErrorIs(t, err, ErrWrongPhase)
	assert.Equal(t, models.GameStatusEnded, s.Status)
	require.NotNil(t, s.Winner)
	assert.Equal(t, "alice", *s.Winner)
}

func TestGrabDisplacesHolder(t *testing.T) {
	s, now := activeSession(t)

	s, _, err := ApplyAction(s, "alice", models.ActionGrab, now)
	require.NoError(t, err)
	s, outcome, err := ApplyAction(s, "bob", models.ActionGrab, now.Add(8*time.Second))
	require.NoError(t, err)
	assert.Equal(t, "alice", outcome.Displaced)

	// Alice's original deadline passes without a winner.
	s, err = AdvanceClock(s, now.Add(10*time.Second))
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusActive, s.Status)

	s, err = AdvanceClock(s, now.Add(18*time.Second))
	require.NoError(t, err)
	require.NotNil(t, s.Winner)
	assert.Equal(t, "bob", *s.Winner)
}

func TestHoldPastEndTimeDoesNotWin(t *testing.T) {
	s, _ := activeSession(t)
	late := s.EndTime.Add(-2 * time.Second)

	s, _, err := ApplyAction(s, "alice", models.ActionGrab, late)
	require.NoError(t, err)

	s, err = AdvanceClock(s, s.EndTime.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, models.GameStatusEnded, s.Status)
	assert.Nil(t, s.Winner)
}

func TestClaimPrize(t *testing.T) {
	s, now := activeSession(t)

	_, _, err := ClaimPrize(s, "alice", now)
	require.ErrorIs(t, err, ErrWrongPhase)

	s, _, err = ApplyAction(s, "alice", models.ActionSneak, now)
	require.NoError(t, err)
	end := now.Add(3 * time.Second)

	_, _, err = ClaimPrize(s, "bob", end)
	require.ErrorIs(t, err, ErrNotWinner)

	claimed, rcpt, err := ClaimPrize(s, "alice", end)
	require.NoError(t, err)
	assert.True(t, claimed.PrizeClaimed)
	assert.Equal(t, "alice", rcpt.Winner)
	assert.Equal(t, int64(1_000_000), rcpt.Amount)
	assert.Equal(t, PayoutReference(s.ID), rcpt.Reference)

	_, _, err = ClaimPrize(claimed, "alice", end.Add(time.Second))
	require.ErrorIs(t, err, ErrAlreadyClaimed)

	pending, err := PendingClaim(claimed)
	require.NoError(t, err)
	assert.Nil(t, pending.Tx)

	paid, rcpt, err := RecordClaimTx(claimed, "5igSig", end.Add(2*time.Second))
	require.NoError(t, err)
	require.NotNil(t, rcpt.Tx)
	assert.Equal(t, "5igSig", *rcpt.Tx)

	_, _, err = RecordClaimTx(paid, "other", end.Add(3*time.Second))
	require.ErrorIs(t, err, ErrAlreadyClaimed)
	_, _, err = ClaimPrize(paid, "alice", end.Add(3*time.Second))
	require.ErrorIs(t, err, ErrAlreadyClaimed)
	_, err = PendingClaim(paid)
	require.ErrorIs(t, err, ErrClaimNotPending)
}

func TestPurchaseActions(t *testing.T) {
	s, now := activeSession(t)

	s, _, err := ApplyAction(s, "alice", models.ActionGrab, now)
	require.NoError(t, err)

	s, entry, err := PurchaseActions(s, "alice", models.ActionGrab, 2, now)
	require.NoError(t, err)
	assert.Equal(t, 2, entry.Remaining.Grabs)
	assert.Equal(t, 2, entry.Purchased.Grabs)
	assert.Equal(t, 1, entry.Used.Grabs)

	// used <= free + purchased always holds
	assert.LessOrEqual(t, entry.Used.Grabs, s.Settings.FreeGrabs+entry.Purchased.Grabs)

	_, _, err = PurchaseActions(s, "alice", models.ActionGrab, 0, now)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	_, _, err = PurchaseActions(s, "nobody", models.ActionGrab, 1, now)
	require.ErrorIs(t, err, ErrNoPlayer)
}

func TestNextDeadline(t *testing.T) {
	s := newTestSession(t, testSettings())
	require.Equal(t, s.EndTime, *NextDeadline(s))

	s, now := activeSession(t)
	require.Equal(t, s.EndTime, *NextDeadline(s))

	s, _, err := ApplyAction(s, "alice", models.ActionGrab, now)
	require.NoError(t, err)
	require.Equal(t, now.Add(10*time.Second), *NextDeadline(s))

	s, err = AdvanceClock(s, now.Add(10*time.Second))
	require.NoError(t, err)
	require.Nil(t, NextDeadline(s))
}

func TestStateChanged(t *testing.T) {
	s, now := activeSession(t)
	same, err := AdvanceClock(s, now)
	require.NoError(t, err)
	assert.False(t, StateChanged(s, same))

	next, _, err := ApplyAction(s, "alice", models.ActionSlap, now)
	require.NoError(t, err)
	assert.True(t, StateChanged(s, next))
}
