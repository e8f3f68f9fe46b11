package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/arena/go/internal/game/events"
	"github.com/mcdev12/arena/go/internal/gameerr"
	"github.com/mcdev12/arena/go/internal/models"
)

// SessionRepository defines what the game app layer needs from storage
type SessionRepository interface {
	CreateSession(ctx context.Context, s models.GameSession, evts []events.Event) (*models.GameSession, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.GameSession, error)
	ListOpenSessions(ctx context.Context, limit int32) ([]models.GameSession, error)
	SaveSession(ctx context.Context, m Mutation) (*models.GameSession, error)
}

// PrizePayer sends the prize to the winner. reference is an idempotency
// key; paying the same reference twice must not transfer twice.
type PrizePayer interface {
	PayPrize(ctx context.Context, recipient string, lamports int64, reference string) (string, error)
}

// PaymentVerifier confirms that a top-up payment landed.
type PaymentVerifier interface {
	ConfirmSignature(ctx context.Context, signature string) (bool, error)
}

const defaultMaxRetries = 3

// App handles Grabbit session business logic
type App struct {
	repo       SessionRepository
	payer      PrizePayer
	payments   PaymentVerifier
	clock      clockwork.Clock
	presets    map[string]models.GameSettings
	maxRetries int
}

// NewApp creates a new game App
func NewApp(repo SessionRepository, payer PrizePayer, payments PaymentVerifier, clock clockwork.Clock, presets map[string]models.GameSettings) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &App{
		repo:       repo,
		payer:      payer,
		payments:   payments,
		clock:      clock,
		presets:    presets,
		maxRetries: defaultMaxRetries,
	}
}

// CreateGame creates a new session from a preset, optionally overriding its settings
func (a *App) CreateGame(ctx context.Context, req CreateGameRequest) (*models.GameSession, error) {
	now := a.clock.Now()

	settings, ok := a.presets[req.GameID]
	if req.Settings != nil {
		settings = *req.Settings
	} else if !ok {
		return nil, fmt.Errorf("%w: no preset for game %q", ErrInvalidSettings, req.GameID)
	}

	startAt := req.StartAt
	if startAt.IsZero() {
		startAt = now.Add(time.Duration(settings.CountdownSec) * time.Second)
	}
	if startAt.Before(now) {
		return nil, fmt.Errorf("%w: start time must not be in the past", ErrInvalidTime)
	}

	s, err := NewSession(uuid.New(), req.GameID, settings, startAt, now)
	if err != nil {
		return nil, err
	}

	created, err := a.repo.CreateSession(ctx, s, []events.Event{{
		Type: events.EventSessionCreated,
		Payload: events.SessionCreatedPayload{
			SessionID:  s.ID.String(),
			GameID:     s.GameID,
			StartTime:  s.StartTime,
			EndTime:    s.EndTime,
			PlayersMin: s.Settings.PlayersMin,
			PlayersMax: s.Settings.PlayersMax,
		},
	}})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("session_id", created.ID.String()).
		Str("game_id", created.GameID).
		Time("start_time", created.StartTime).
		Msg("created game session")
	return created, nil
}

// GetSession returns the stored snapshot of a session
func (a *App) GetSession(ctx context.Context, id uuid.UUID) (*models.GameSession, error) {
	return a.repo.GetSession(ctx, id)
}

// ListOpenSessions returns sessions that still need clock driving or a payout
func (a *App) ListOpenSessions(ctx context.Context, limit int32) ([]models.GameSession, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be greater than 0", ErrInvalidQuantity)
	}
	return a.repo.ListOpenSessions(ctx, limit)
}

// Join adds a player to a session
func (a *App) Join(ctx context.Context, req JoinRequest) (*models.GameSession, models.PlayerEntry, error) {
	var entry models.PlayerEntry
	saved, err := a.mutate(ctx, req.SessionID, func(s models.GameSession, now time.Time) (models.GameSession, []events.Event, error) {
		next, e, err := Join(s, req.Identity, req.DisplayMeta, now)
		if err != nil {
			return next, nil, err
		}
		entry = e
		return next, []events.Event{{
			Type: events.EventPlayerJoined,
			Payload: events.PlayerJoinedPayload{
				SessionID:   s.ID.String(),
				Identity:    e.Identity,
				PlayerCount: len(next.Players),
				JoinedAt:    now,
			},
		}}, nil
	})
	if err != nil {
		return saved, models.PlayerEntry{}, err
	}

	log.Info().
		Str("session_id", req.SessionID.String()).
		Str("identity", req.Identity).
		Int("players", len(saved.Players)).
		Msg("player joined")
	return saved, entry, nil
}

// ApplyAction applies a grab, slap or sneak for a joined player
func (a *App) ApplyAction(ctx context.Context, sessionID uuid.UUID, identity string, kind models.ActionKind) (*models.GameSession, ActionOutcome, error) {
	var outcome ActionOutcome
	saved, err := a.mutate(ctx, sessionID, func(s models.GameSession, now time.Time) (models.GameSession, []events.Event, error) {
		next, o, err := ApplyAction(s, identity, kind, now)
		if err != nil {
			return next, nil, err
		}
		outcome = o
		payload := events.ActionAppliedPayload{
			SessionID:   s.ID.String(),
			Player:      identity,
			Kind:        string(kind),
			Remaining:   o.Remaining,
			Displaced:   o.Displaced,
			Interrupted: o.Interrupted,
			AppliedAt:   now,
		}
		if o.Hold != nil {
			deadline := o.Hold.Deadline
			payload.HoldDeadline = &deadline
		}
		return next, []events.Event{{Type: events.EventActionApplied, Payload: payload}}, nil
	})
	if err != nil {
		return saved, ActionOutcome{}, err
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Str("identity", identity).
		Str("kind", string(kind)).
		Int("remaining", outcome.Remaining).
		Str("interrupted", outcome.Interrupted).
		Msg("action applied")
	return saved, outcome, nil
}

// Refresh applies due clock transitions and persists them
func (a *App) Refresh(ctx context.Context, sessionID uuid.UUID) (*models.GameSession, error) {
	return a.mutate(ctx, sessionID, func(s models.GameSession, now time.Time) (models.GameSession, []events.Event, error) {
		next, err := AdvanceClock(s, now)
		return next, nil, err
	})
}

// PurchaseActions verifies a payment and tops up the player's budget
func (a *App) PurchaseActions(ctx context.Context, req PurchaseRequest) (*models.GameSession, models.PlayerEntry, error) {
	if strings.TrimSpace(req.PaymentTx) == "" {
		return nil, models.PlayerEntry{}, fmt.Errorf("%w: payment transaction is required", ErrPaymentRejected)
	}
	if req.Quantity <= 0 {
		return nil, models.PlayerEntry{}, ErrInvalidQuantity
	}
	if a.payments == nil {
		return nil, models.PlayerEntry{}, fmt.Errorf("%w: payments are not enabled", ErrPaymentRejected)
	}
	confirmed, err := a.payments.ConfirmSignature(ctx, req.PaymentTx)
	if err != nil {
		return nil, models.PlayerEntry{}, gameerr.Transport("confirm payment", err)
	}
	if !confirmed {
		return nil, models.PlayerEntry{}, ErrPaymentRejected
	}

	var entry models.PlayerEntry
	saved, err := a.mutateWith(ctx, req.SessionID, &Payment{
		Signature: req.PaymentTx,
		Identity:  req.Identity,
		Kind:      req.Kind,
		Quantity:  req.Quantity,
	}, func(s models.GameSession, now time.Time) (models.GameSession, []events.Event, error) {
		next, e, err := PurchaseActions(s, req.Identity, req.Kind, req.Quantity, now)
		if err != nil {
			return next, nil, err
		}
		entry = e
		return next, []events.Event{{
			Type: events.EventActionsPurchased,
			Payload: events.ActionsPurchasedPayload{
				SessionID: s.ID.String(),
				Player:    req.Identity,
				Kind:      string(req.Kind),
				Quantity:  req.Quantity,
				PaymentTx: req.PaymentTx,
			},
		}}, nil
	})
	if err != nil {
		return saved, models.PlayerEntry{}, err
	}

	log.Info().
		Str("session_id", req.SessionID.String()).
		Str("identity", req.Identity).
		Str("kind", string(req.Kind)).
		Int("quantity", req.Quantity).
		Msg("actions purchased")
	return saved, entry, nil
}

// ClaimPrize reserves the prize for the winner, pays it out and records the
// payout transaction. A reservation is written before any money moves, so a
// second claim fails with ErrAlreadyClaimed instead of paying twice.
func (a *App) ClaimPrize(ctx context.Context, sessionID uuid.UUID, identity string) (*models.GameSession, ClaimReceipt, error) {
	var rcpt ClaimReceipt
	saved, err := a.mutate(ctx, sessionID, func(s models.GameSession, now time.Time) (models.GameSession, []events.Event, error) {
		next, r, err := ClaimPrize(s, identity, now)
		if err != nil {
			return next, nil, err
		}
		rcpt = r
		return next, []events.Event{{
			Type:    events.EventPrizeReserved,
			Payload: claimPayload(r, now),
		}}, nil
	})
	if err != nil {
		return saved, ClaimReceipt{}, err
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Str("winner", identity).
		Int64("amount", rcpt.Amount).
		Msg("prize reserved")

	return a.payout(ctx, sessionID, rcpt)
}

// RetryPayout completes a claim whose payout failed after the reservation.
func (a *App) RetryPayout(ctx context.Context, sessionID uuid.UUID) (*models.GameSession, ClaimReceipt, error) {
	s, err := a.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, ClaimReceipt{}, err
	}
	rcpt, err := PendingClaim(*s)
	if err != nil {
		return s, ClaimReceipt{}, err
	}
	return a.payout(ctx, sessionID, rcpt)
}

func (a *App) payout(ctx context.Context, sessionID uuid.UUID, rcpt ClaimReceipt) (*models.GameSession, ClaimReceipt, error) {
	if a.payer == nil {
		return nil, rcpt, gameerr.Transport("pay prize", errors.New("no payout collaborator configured"))
	}
	tx, err := a.payer.PayPrize(ctx, rcpt.Winner, rcpt.Amount, rcpt.Reference)
	if err != nil {
		log.Error().
			Err(err).
			Str("session_id", sessionID.String()).
			Str("reference", rcpt.Reference).
			Msg("prize payout failed, claim left pending")
		return nil, rcpt, gameerr.Transport("pay prize", err)
	}

	var final ClaimReceipt
	saved, err := a.mutate(ctx, sessionID, func(s models.GameSession, now time.Time) (models.GameSession, []events.Event, error) {
		next, r, err := RecordClaimTx(s, tx, now)
		if err != nil {
			return next, nil, err
		}
		final = r
		return next, []events.Event{{
			Type:    events.EventPrizeClaimed,
			Payload: claimPayload(r, now),
		}}, nil
	})
	if err != nil {
		return saved, rcpt, err
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Str("winner", final.Winner).
		Str("tx", tx).
		Msg("prize claimed")
	return saved, final, nil
}

func claimPayload(r ClaimReceipt, now time.Time) events.PrizeClaimPayload {
	return events.PrizeClaimPayload{
		SessionID: r.SessionID.String(),
		Winner:    r.Winner,
		Amount:    r.Amount,
		Reference: r.Reference,
		Tx:        r.Tx,
		At:        now,
	}
}

type mutateFunc func(s models.GameSession, now time.Time) (models.GameSession, []events.Event, error)

func (a *App) mutate(ctx context.Context, id uuid.UUID, fn mutateFunc) (*models.GameSession, error) {
	return a.mutateWith(ctx, id, nil, fn)
}

// mutateWith runs read, transform, conditional save. A version conflict
// re-reads and re-applies fn. Clock transitions computed while fn fails are
// still saved so that every reader sees them.
func (a *App) mutateWith(ctx context.Context, id uuid.UUID, payment *Payment, fn mutateFunc) (*models.GameSession, error) {
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		cur, err := a.repo.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}

		now := a.clock.Now()
		next, opEvents, opErr := fn(*cur, now)
		if !StateChanged(*cur, next) {
			if opErr != nil {
				return cur, opErr
			}
			return cur, nil
		}

		m := Mutation{
			Next:            next,
			ExpectedVersion: cur.Version,
			Events:          append(opEvents, transitionEvents(*cur, next, now)...),
		}
		if opErr == nil {
			m.Payment = payment
		}

		saved, err := a.repo.SaveSession(ctx, m)
		if errors.Is(err, ErrVersionConflict) {
			log.Debug().
				Str("session_id", id.String()).
				Int("attempt", attempt+1).
				Msg("version conflict, retrying")
			continue
		}
		if err != nil {
			return nil, err
		}
		if opErr != nil {
			return saved, opErr
		}
		return saved, nil
	}
	return nil, ErrVersionConflict
}

func transitionEvents(prev, next models.GameSession, now time.Time) []events.Event {
	if prev.Status == next.Status {
		return nil
	}
	var out []events.Event
	status := func(st models.GameStatus) events.StatusChangedPayload {
		return events.StatusChangedPayload{
			SessionID: next.ID.String(),
			Status:    int16(st),
			StartTime: next.StartTime,
			EndTime:   next.EndTime,
			ChangedAt: now,
		}
	}
	if next.Status == models.GameStatusCountdown {
		out = append(out, events.Event{Type: events.EventCountdownStarted, Payload: status(models.GameStatusCountdown)})
	}
	if next.Status == models.GameStatusActive {
		out = append(out, events.Event{Type: events.EventSessionStarted, Payload: status(models.GameStatusActive)})
	}
	if next.Status == models.GameStatusEnded {
		endedAt := now
		if next.EndedAt != nil {
			endedAt = *next.EndedAt
		}
		out = append(out, events.Event{
			Type: events.EventSessionEnded,
			Payload: events.SessionEndedPayload{
				SessionID: next.ID.String(),
				Winner:    next.Winner,
				EndedAt:   endedAt,
			},
		})
	}
	return out
}
