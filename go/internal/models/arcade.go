package models

import (
	"time"

	"github.com/google/uuid"
)

// ArcadeGame is a catalogue entry for a timed score-attack game.
type ArcadeGame struct {
	ID               string `json:"id" yaml:"id"`
	Name             string `json:"name" yaml:"name"`
	PlayTimeMinutes  int    `json:"play_time" yaml:"play_time"`
	EntryFeeLamports int64  `json:"entry_fee_lamports" yaml:"entry_fee_lamports"`
}

// TimeBudget is the play window granted to one run.
func (g ArcadeGame) TimeBudget() time.Duration {
	return time.Duration(g.PlayTimeMinutes) * 60 * time.Second
}

// ArcadeRun is one timed play of an arcade game.
type ArcadeRun struct {
	ID          uuid.UUID  `json:"id"`
	GameID      string     `json:"game_id"`
	PlayerID    string     `json:"player_id"`
	TokenID     uuid.UUID  `json:"-"`
	TimeBudget  int        `json:"time_budget_sec"`
	EntryFee    int64      `json:"entry_fee_lamports"`
	StartedAt   time.Time  `json:"started_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	Score       *int64     `json:"score,omitempty"`
	ElapsedSec  *int       `json:"elapsed_sec,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
}

// Submitted reports whether a score has been accepted for the run.
func (r ArcadeRun) Submitted() bool {
	return r.SubmittedAt != nil
}

// Remaining returns the play time left at now, never negative.
func (r ArcadeRun) Remaining(now time.Time) time.Duration {
	left := r.ExpiresAt.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}
