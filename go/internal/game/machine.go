package game

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/arena/go/internal/models"
)

// The functions in this file are the only way a GameSession changes. Each
// takes a snapshot by value and returns a new one; inputs are never mutated.
//
// Join, ApplyAction, PurchaseActions and ClaimPrize resolve pending clock
// transitions before validating. When they fail, the returned session is that
// clock-advanced snapshot so callers can still persist the transition.

// ActionOutcome describes the effect of one applied action.
type ActionOutcome struct {
	Kind      models.ActionKind `json:"kind"`
	Player    string            `json:"player"`
	Remaining int               `json:"remaining"`
	// Hold is set when the action started or restarted a hold.
	Hold *models.Hold `json:"hold,omitempty"`
	// Displaced is the previous holder replaced by a new grab or sneak.
	Displaced string `json:"displaced,omitempty"`
	// Interrupted is the holder whose hold a slap cancelled.
	Interrupted string `json:"interrupted,omitempty"`
}

// ClaimReceipt is the result of reserving the prize for the winner.
type ClaimReceipt struct {
	SessionID uuid.UUID `json:"session_id"`
	Winner    string    `json:"winner"`
	Amount    int64     `json:"amount_lamports"`
	Reference string    `json:"reference"`
	ClaimedAt time.Time `json:"claimed_at"`
	Tx        *string   `json:"tx,omitempty"`
}

// NewSession builds a Created session that starts at startAt.
func NewSession(id uuid.UUID, gameID string, settings models.GameSettings, startAt, now time.Time) (models.GameSession, error) {
	if err := ValidateSettings(settings); err != nil {
		return models.GameSession{}, err
	}
	if strings.TrimSpace(gameID) == "" {
		return models.GameSession{}, fmt.Errorf("%w: game id is required", ErrInvalidSettings)
	}
	if startAt.IsZero() || now.IsZero() {
		return models.GameSession{}, ErrInvalidTime
	}
	return models.GameSession{
		ID:        id,
		GameID:    gameID,
		Status:    models.GameStatusCreated,
		Settings:  settings,
		StartTime: startAt,
		EndTime:   startAt.Add(time.Duration(settings.DurationSec) * time.Second),
		Players:   []models.PlayerEntry{},
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ValidateSettings checks a settings block before a session is created.
func ValidateSettings(s models.GameSettings) error {
	switch {
	case s.PlayersMin < 1:
		return fmt.Errorf("%w: players_min must be at least 1", ErrInvalidSettings)
	case s.PlayersMax < s.PlayersMin:
		return fmt.Errorf("%w: players_max must be >= players_min", ErrInvalidSettings)
	case s.FreeGrabs < 0 || s.FreeSlaps < 0 || s.FreeSneaks < 0:
		return fmt.Errorf("%w: free allotments cannot be negative", ErrInvalidSettings)
	case s.GrabHoldSec <= 0 || s.SneakHoldSec <= 0:
		return fmt.Errorf("%w: hold durations must be positive", ErrInvalidSettings)
	case s.DurationSec <= 0:
		return fmt.Errorf("%w: duration_sec must be positive", ErrInvalidSettings)
	case s.CountdownSec < 0:
		return fmt.Errorf("%w: countdown_sec cannot be negative", ErrInvalidSettings)
	case s.PrizeLamports < 0 || s.ActionPriceLamports < 0:
		return fmt.Errorf("%w: amounts cannot be negative", ErrInvalidSettings)
	}
	return nil
}

// Join adds identity to the session seeded with the free allotments.
func Join(s models.GameSession, identity string, displayMeta json.RawMessage, now time.Time) (models.GameSession, models.PlayerEntry, error) {
	next, err := AdvanceClock(s, now)
	if err != nil {
		return s, models.PlayerEntry{}, err
	}
	if strings.TrimSpace(identity) == "" {
		return next, models.PlayerEntry{}, ErrInvalidIdentity
	}
	if _, _, ok := next.Player(identity); ok {
		return next, models.PlayerEntry{}, ErrAlreadyJoined
	}
	if len(next.Players) >= next.Settings.PlayersMax {
		return next, models.PlayerEntry{}, ErrSessionFull
	}
	if next.Status != models.GameStatusCreated {
		return next, models.PlayerEntry{}, fmt.Errorf("%w: joining requires %s, game is %s", ErrWrongPhase, models.GameStatusCreated, next.Status)
	}

	entry := models.PlayerEntry{
		Identity:    identity,
		DisplayMeta: displayMeta,
		Remaining:   next.Settings.FreeActions(),
		JoinedAt:    now,
	}
	next.Players = append(next.Players, entry)
	next.UpdatedAt = now

	// The new player may complete the roster inside the countdown window.
	next, err = AdvanceClock(next, now)
	if err != nil {
		return s, models.PlayerEntry{}, err
	}
	return next, entry, nil
}

// ApplyAction spends one action of kind for identity and applies its effect.
func ApplyAction(s models.GameSession, identity string, kind models.ActionKind, now time.Time) (models.GameSession, ActionOutcome, error) {
	next, err := AdvanceClock(s, now)
	if err != nil {
		return s, ActionOutcome{}, err
	}
	if !kind.Valid() {
		return next, ActionOutcome{}, fmt.Errorf("%w: %q", ErrInvalidAction, kind)
	}
	if next.Status != models.GameStatusActive {
		return next, ActionOutcome{}, fmt.Errorf("%w: %s requires %s, game is %s", ErrWrongPhase, kind, models.GameStatusActive, next.Status)
	}
	player, idx, ok := next.Player(identity)
	if !ok {
		return next, ActionOutcome{}, ErrNoPlayer
	}
	if player.Remaining.Of(kind) <= 0 {
		return next, ActionOutcome{}, fmt.Errorf("%w: %s", ErrBudgetExhausted, kind)
	}

	player.Remaining = player.Remaining.Add(kind, -1)
	player.Used = player.Used.Add(kind, 1)
	next.Players[idx] = player

	outcome := ActionOutcome{
		Kind:      kind,
		Player:    identity,
		Remaining: player.Remaining.Of(kind),
	}

	switch kind {
	case models.ActionGrab, models.ActionSneak:
		if next.Hold != nil && next.Hold.Player != identity {
			outcome.Displaced = next.Hold.Player
		}
		hold := models.Hold{
			Player:    identity,
			Kind:      kind,
			StartedAt: now,
			Deadline:  now.Add(next.Settings.HoldDuration(kind)),
		}
		next.Hold = &hold
		h := hold
		outcome.Hold = &h
	case models.ActionSlap:
		if next.Hold != nil && next.Hold.Player != identity {
			outcome.Interrupted = next.Hold.Player
			next.Hold = nil
		}
	}
	next.UpdatedAt = now
	return next, outcome, nil
}

// AdvanceClock applies every time-driven transition due at now. Status only
// moves forward; calling it again with the same now is a no-op.
func AdvanceClock(s models.GameSession, now time.Time) (models.GameSession, error) {
	if now.IsZero() {
		return s, ErrInvalidTime
	}
	next := s.Clone()
	changed := false

	for {
		switch next.Status {
		case models.GameStatusCreated:
			if len(next.Players) >= next.Settings.PlayersMin {
				if !now.Before(next.StartTime) {
					next.Status = models.GameStatusActive
					changed = true
					continue
				}
				countdown := time.Duration(next.Settings.CountdownSec) * time.Second
				if countdown > 0 && !now.Before(next.StartTime.Add(-countdown)) {
					next.Status = models.GameStatusCountdown
					changed = true
					continue
				}
			} else if !now.Before(next.EndTime) {
				end(&next, next.EndTime, nil)
				changed = true
			}
		case models.GameStatusCountdown:
			if !now.Before(next.StartTime) {
				next.Status = models.GameStatusActive
				changed = true
				continue
			}
		case models.GameStatusActive:
			if h := next.Hold; h != nil && !now.Before(h.Deadline) && !h.Deadline.After(next.EndTime) {
				winner := h.Player
				end(&next, h.Deadline, &winner)
				changed = true
			} else if !now.Before(next.EndTime) {
				end(&next, next.EndTime, nil)
				changed = true
			}
		}
		break
	}

	if changed {
		next.UpdatedAt = now
	}
	return next, nil
}

func end(s *models.GameSession, at time.Time, winner *string) {
	s.Status = models.GameStatusEnded
	s.Hold = nil
	s.Winner = winner
	endedAt := at
	s.EndedAt = &endedAt
}

// ClaimPrize reserves the prize for the winner. The payout transaction is
// attached afterwards with RecordClaimTx.
func ClaimPrize(s models.GameSession, identity string, now time.Time) (models.GameSession, ClaimReceipt, error) {
	next, err := AdvanceClock(s, now)
	if err != nil {
		return s, ClaimReceipt{}, err
	}
	if next.Status != models.GameStatusEnded {
		return next, ClaimReceipt{}, fmt.Errorf("%w: claiming requires %s, game is %s", ErrWrongPhase, models.GameStatusEnded, next.Status)
	}
	if next.Winner == nil || *next.Winner != identity {
		return next, ClaimReceipt{}, ErrNotWinner
	}
	if next.PrizeClaimed {
		return next, ClaimReceipt{}, ErrAlreadyClaimed
	}

	next.PrizeClaimed = true
	claimedAt := now
	next.ClaimedAt = &claimedAt
	next.UpdatedAt = now

	return next, receipt(next), nil
}

// RecordClaimTx attaches the payout transaction to a reserved claim.
func RecordClaimTx(s models.GameSession, tx string, now time.Time) (models.GameSession, ClaimReceipt, error) {
	if strings.TrimSpace(tx) == "" {
		return s, ClaimReceipt{}, fmt.Errorf("%w: payout transaction is required", ErrPaymentRejected)
	}
	if !s.PrizeClaimed {
		return s, ClaimReceipt{}, ErrClaimNotPending
	}
	if s.PrizeClaimTx != nil {
		return s, ClaimReceipt{}, ErrAlreadyClaimed
	}
	next := s.Clone()
	next.PrizeClaimTx = &tx
	next.UpdatedAt = now
	return next, receipt(next), nil
}

// PendingClaim returns the receipt of a claim that was reserved but never
// paid out.
func PendingClaim(s models.GameSession) (ClaimReceipt, error) {
	if !s.PrizeClaimed || s.PrizeClaimTx != nil || s.Winner == nil {
		return ClaimReceipt{}, ErrClaimNotPending
	}
	return receipt(s), nil
}

func receipt(s models.GameSession) ClaimReceipt {
	r := ClaimReceipt{
		SessionID: s.ID,
		Amount:    s.Settings.PrizeLamports,
		Reference: PayoutReference(s.ID),
		Tx:        s.PrizeClaimTx,
	}
	if s.Winner != nil {
		r.Winner = *s.Winner
	}
	if s.ClaimedAt != nil {
		r.ClaimedAt = *s.ClaimedAt
	}
	return r
}

// PayoutReference is the idempotency key sent with a prize payout. It is
// stable per session so a retried payout cannot pay twice.
func PayoutReference(sessionID uuid.UUID) string {
	return "grabbit-prize-" + sessionID.String()
}

// PurchaseActions adds paid actions of kind to identity's budget.
func PurchaseActions(s models.GameSession, identity string, kind models.ActionKind, qty int, now time.Time) (models.GameSession, models.PlayerEntry, error) {
	next, err := AdvanceClock(s, now)
	if err != nil {
		return s, models.PlayerEntry{}, err
	}
	if !kind.Valid() {
		return next, models.PlayerEntry{}, fmt.Errorf("%w: %q", ErrInvalidAction, kind)
	}
	if qty <= 0 {
		return next, models.PlayerEntry{}, ErrInvalidQuantity
	}
	if next.Status == models.GameStatusEnded {
		return next, models.PlayerEntry{}, fmt.Errorf("%w: game has ended", ErrWrongPhase)
	}
	player, idx, ok := next.Player(identity)
	if !ok {
		return next, models.PlayerEntry{}, ErrNoPlayer
	}
	player.Remaining = player.Remaining.Add(kind, qty)
	player.Purchased = player.Purchased.Add(kind, qty)
	next.Players[idx] = player
	next.UpdatedAt = now
	return next, player, nil
}

// NextDeadline returns the next instant at which AdvanceClock would change
// the session, or nil when nothing is scheduled.
func NextDeadline(s models.GameSession) *time.Time {
	var at time.Time
	switch s.Status {
	case models.GameStatusCreated:
		if len(s.Players) >= s.Settings.PlayersMin {
			at = s.StartTime
			countdown := time.Duration(s.Settings.CountdownSec) * time.Second
			if countdown > 0 {
				at = s.StartTime.Add(-countdown)
			}
		} else {
			at = s.EndTime
		}
	case models.GameStatusCountdown:
		at = s.StartTime
	case models.GameStatusActive:
		at = s.EndTime
		if s.Hold != nil && s.Hold.Deadline.Before(at) {
			at = s.Hold.Deadline
		}
	default:
		return nil
	}
	return &at
}

// StateChanged reports whether next differs from prev in anything a client
// observes.
func StateChanged(prev, next models.GameSession) bool {
	if prev.Status != next.Status || len(prev.Players) != len(next.Players) || prev.PrizeClaimed != next.PrizeClaimed {
		return true
	}
	if (prev.Hold == nil) != (next.Hold == nil) {
		return true
	}
	if prev.Hold != nil && *prev.Hold != *next.Hold {
		return true
	}
	if (prev.PrizeClaimTx == nil) != (next.PrizeClaimTx == nil) {
		return true
	}
	for i := range prev.Players {
		a, b := prev.Players[i], next.Players[i]
		if a.Identity != b.Identity || a.Remaining != b.Remaining || a.Used != b.Used || a.Purchased != b.Purchased {
			return true
		}
	}
	return false
}
