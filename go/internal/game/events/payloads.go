package events

import (
	"time"
)

// Event payload types shared by the game service, the ticker and the gateway.

// EventType names a domain event. It is also the last token of the
// JetStream subject the event is published on.
type EventType string

const (
	EventSessionCreated   EventType = "SessionCreated"
	EventPlayerJoined     EventType = "PlayerJoined"
	EventCountdownStarted EventType = "CountdownStarted"
	EventSessionStarted   EventType = "SessionStarted"
	EventActionApplied    EventType = "ActionApplied"
	EventActionsPurchased EventType = "ActionsPurchased"
	EventSessionEnded     EventType = "SessionEnded"
	EventPrizeReserved    EventType = "PrizeReserved"
	EventPrizeClaimed     EventType = "PrizeClaimed"
	EventArcadeRunStarted EventType = "ArcadeRunStarted"
	EventScoreSubmitted   EventType = "ScoreSubmitted"
)

// Event is a domain event waiting to be written to the outbox.
type Event struct {
	Type    EventType
	Payload any
}

// SessionCreatedPayload is the payload for a SessionCreated event
type SessionCreatedPayload struct {
	SessionID  string    `json:"session_id"`
	GameID     string    `json:"game_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	PlayersMin int       `json:"players_min"`
	PlayersMax int       `json:"players_max"`
}

// PlayerJoinedPayload is the payload for a PlayerJoined event
type PlayerJoinedPayload struct {
	SessionID   string    `json:"session_id"`
	Identity    string    `json:"identity"`
	PlayerCount int       `json:"player_count"`
	JoinedAt    time.Time `json:"joined_at"`
}

// StatusChangedPayload is the payload for CountdownStarted and SessionStarted
type StatusChangedPayload struct {
	SessionID string    `json:"session_id"`
	Status    int16     `json:"status"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	ChangedAt time.Time `json:"changed_at"`
}

// ActionAppliedPayload is the payload for an ActionApplied event
type ActionAppliedPayload struct {
	SessionID    string     `json:"session_id"`
	Player       string     `json:"player"`
	Kind         string     `json:"kind"`
	Remaining    int        `json:"remaining"`
	HoldDeadline *time.Time `json:"hold_deadline,omitempty"`
	Displaced    string     `json:"displaced,omitempty"`
	Interrupted  string     `json:"interrupted,omitempty"`
	AppliedAt    time.Time  `json:"applied_at"`
}

// ActionsPurchasedPayload is the payload for an ActionsPurchased event
type ActionsPurchasedPayload struct {
	SessionID string `json:"session_id"`
	Player    string `json:"player"`
	Kind      string `json:"kind"`
	Quantity  int    `json:"quantity"`
	PaymentTx string `json:"payment_tx"`
}

// SessionEndedPayload is the payload for a SessionEnded event
type SessionEndedPayload struct {
	SessionID string    `json:"session_id"`
	Winner    *string   `json:"winner,omitempty"`
	EndedAt   time.Time `json:"ended_at"`
}

// PrizeClaimPayload is the payload for PrizeReserved and PrizeClaimed
type PrizeClaimPayload struct {
	SessionID string    `json:"session_id"`
	Winner    string    `json:"winner"`
	Amount    int64     `json:"amount_lamports"`
	Reference string    `json:"reference"`
	Tx        *string   `json:"tx,omitempty"`
	At        time.Time `json:"at"`
}

// ArcadeRunStartedPayload is the payload for an ArcadeRunStarted event
type ArcadeRunStartedPayload struct {
	RunID      string    `json:"run_id"`
	GameID     string    `json:"game_id"`
	PlayerID   string    `json:"player_id"`
	TimeBudget int       `json:"time_budget_sec"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// ScoreSubmittedPayload is the payload for a ScoreSubmitted event
type ScoreSubmittedPayload struct {
	RunID       string    `json:"run_id"`
	GameID      string    `json:"game_id"`
	PlayerID    string    `json:"player_id"`
	Score       int64     `json:"score"`
	ElapsedSec  int       `json:"elapsed_sec"`
	SubmittedAt time.Time `json:"submitted_at"`
}
