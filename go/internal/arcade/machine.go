package arcade

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/arena/go/internal/models"
)

// Start opens a run of game for playerID. balance is the player's balance
// in lamports, checked against the entry fee.
func Start(game models.ArcadeGame, playerID string, balance int64, now time.Time, runID, tokenID uuid.UUID) (models.ArcadeRun, error) {
	if strings.TrimSpace(playerID) == "" {
		return models.ArcadeRun{}, ErrInvalidPlayer
	}
	if game.PlayTimeMinutes <= 0 {
		return models.ArcadeRun{}, fmt.Errorf("%w: game %q has no play time", ErrGameNotFound, game.ID)
	}
	if balance < game.EntryFeeLamports {
		return models.ArcadeRun{}, ErrInsufficientBalance
	}

	budget := game.TimeBudget()
	return models.ArcadeRun{
		ID:         runID,
		GameID:     game.ID,
		PlayerID:   playerID,
		TokenID:    tokenID,
		TimeBudget: int(budget / time.Second),
		EntryFee:   game.EntryFeeLamports,
		StartedAt:  now,
		ExpiresAt:  now.Add(budget),
	}, nil
}

// SubmitScore accepts the final score of run. It fails when tokenID is not
// the run's token, when a score was already accepted, or when no play time
// is left at now.
func SubmitScore(run models.ArcadeRun, tokenID uuid.UUID, score int64, elapsedSec int, now time.Time) (models.ArcadeRun, error) {
	if tokenID != run.TokenID {
		return run, ErrInvalidToken
	}
	if run.Submitted() {
		return run, ErrAlreadySubmitted
	}
	if run.Remaining(now) <= 0 {
		return run, ErrTimeExpired
	}
	if score < 0 {
		return run, fmt.Errorf("%w: score must not be negative", ErrInvalidScore)
	}
	if elapsedSec < 0 || elapsedSec > run.TimeBudget {
		return run, fmt.Errorf("%w: elapsed %ds outside the %ds budget", ErrInvalidScore, elapsedSec, run.TimeBudget)
	}

	next := run
	next.Score = &score
	next.ElapsedSec = &elapsedSec
	submittedAt := now
	next.SubmittedAt = &submittedAt
	return next, nil
}
