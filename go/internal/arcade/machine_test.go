package arcade

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/arena/go/internal/models"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testGame() models.ArcadeGame {
	return models.ArcadeGame{ID: "snake", Name: "Snake", PlayTimeMinutes: 2, EntryFeeLamports: 5_000}
}

func startedRun(t *testing.T) models.ArcadeRun {
	t.Helper()
	run, err := Start(testGame(), "player-1", 10_000, t0, uuid.New(), uuid.New())
	require.NoError(t, err)
	return run
}

func TestStart(t *testing.T) {
	testCases := []struct {
		name    string
		player  string
		balance int64
		wantErr error
	}{
		{name: "enough balance", player: "player-1", balance: 5_000},
		{name: "insufficient balance", player: "player-1", balance: 4_999, wantErr: ErrInsufficientBalance},
		{name: "missing player", player: " ", balance: 10_000, wantErr: ErrInvalidPlayer},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			run, err := Start(testGame(), tc.player, tc.balance, t0, uuid.New(), uuid.New())
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 120, run.TimeBudget)
			assert.Equal(t, t0.Add(2*time.Minute), run.ExpiresAt)
			assert.False(t, run.Submitted())
		})
	}
}

func TestSubmitScoreOnce(t *testing.T) {
	run := startedRun(t)

	next, err := SubmitScore(run, run.TokenID, 420, 90, t0.Add(90*time.Second))
	require.NoError(t, err)
	require.NotNil(t, next.Score)
	assert.Equal(t, int64(420), *next.Score)
	assert.True(t, next.Submitted())
	assert.False(t, run.Submitted(), "input run must not change")

	_, err = SubmitScore(next, run.TokenID, 999, 95, t0.Add(95*time.Second))
	require.ErrorIs(t, err, ErrAlreadySubmitted)
}

func TestSubmitScoreErrors(t *testing.T) {
	run := startedRun(t)

	testCases := []struct {
		name    string
		token   uuid.UUID
		score   int64
		elapsed int
		at      time.Time
		wantErr error
	}{
		{name: "wrong token", token: uuid.New(), score: 1, elapsed: 1, at: t0.Add(time.Second), wantErr: ErrInvalidToken},
		{name: "no time left", token: run.TokenID, score: 1, elapsed: 120, at: t0.Add(2 * time.Minute), wantErr: ErrTimeExpired},
		{name: "negative score", token: run.TokenID, score: -1, elapsed: 1, at: t0.Add(time.Second), wantErr: ErrInvalidScore},
		{name: "elapsed beyond budget", token: run.TokenID, score: 1, elapsed: 121, at: t0.Add(time.Second), wantErr: ErrInvalidScore},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := SubmitScore(run, tc.token, tc.score, tc.elapsed, tc.at)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}
