package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// GameStatus is the lifecycle status of a game session. The integer values
// are persisted and shared with clients.
type GameStatus int16

const (
	GameStatusCreated   GameStatus = 1
	GameStatusCountdown GameStatus = 2
	GameStatusActive    GameStatus = 3
	GameStatusEnded     GameStatus = 4
)

func (s GameStatus) String() string {
	switch s {
	case GameStatusCreated:
		return "CREATED"
	case GameStatusCountdown:
		return "COUNTDOWN"
	case GameStatusActive:
		return "ACTIVE"
	case GameStatusEnded:
		return "ENDED"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether s is one of the known statuses.
func (s GameStatus) Valid() bool {
	return s >= GameStatusCreated && s <= GameStatusEnded
}

// ActionKind is a player action in a Grabbit session.
type ActionKind string

const (
	ActionGrab  ActionKind = "GRAB"
	ActionSlap  ActionKind = "SLAP"
	ActionSneak ActionKind = "SNEAK"
)

// Valid reports whether k is a known action.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionGrab, ActionSlap, ActionSneak:
		return true
	}
	return false
}

// ActionCounts holds one counter per action kind.
type ActionCounts struct {
	Grabs  int `json:"grabs"`
	Slaps  int `json:"slaps"`
	Sneaks int `json:"sneaks"`
}

// Of returns the counter for kind.
func (c ActionCounts) Of(kind ActionKind) int {
	switch kind {
	case ActionGrab:
		return c.Grabs
	case ActionSlap:
		return c.Slaps
	case ActionSneak:
		return c.Sneaks
	}
	return 0
}

// Add returns a copy of c with delta added to the counter for kind.
func (c ActionCounts) Add(kind ActionKind, delta int) ActionCounts {
	switch kind {
	case ActionGrab:
		c.Grabs += delta
	case ActionSlap:
		c.Slaps += delta
	case ActionSneak:
		c.Sneaks += delta
	}
	return c
}

// GameSettings holds the JSONB configuration of a session.
type GameSettings struct {
	PlayersMin          int   `json:"players_min" yaml:"players_min"`
	PlayersMax          int   `json:"players_max" yaml:"players_max"`
	FreeGrabs           int   `json:"free_grabs" yaml:"free_grabs"`
	FreeSlaps           int   `json:"free_slaps" yaml:"free_slaps"`
	FreeSneaks          int   `json:"free_sneaks" yaml:"free_sneaks"`
	GrabHoldSec         int   `json:"grab_hold_sec" yaml:"grab_hold_sec"`
	SneakHoldSec        int   `json:"sneak_hold_sec" yaml:"sneak_hold_sec"`
	CountdownSec        int   `json:"countdown_sec" yaml:"countdown_sec"`
	DurationSec         int   `json:"duration_sec" yaml:"duration_sec"`
	PrizeLamports       int64 `json:"prize_lamports" yaml:"prize_lamports"`
	ActionPriceLamports int64 `json:"action_price_lamports" yaml:"action_price_lamports"`
}

// FreeActions returns the allotment each player starts with.
func (s GameSettings) FreeActions() ActionCounts {
	return ActionCounts{Grabs: s.FreeGrabs, Slaps: s.FreeSlaps, Sneaks: s.FreeSneaks}
}

// HoldDuration returns how long a hold of kind must survive to win.
func (s GameSettings) HoldDuration(kind ActionKind) time.Duration {
	switch kind {
	case ActionGrab:
		return time.Duration(s.GrabHoldSec) * time.Second
	case ActionSneak:
		return time.Duration(s.SneakHoldSec) * time.Second
	}
	return 0
}

// PlayerEntry is one joined player and their action economy.
type PlayerEntry struct {
	Identity    string          `json:"identity"`
	DisplayMeta json.RawMessage `json:"display_meta,omitempty"`
	Remaining   ActionCounts    `json:"remaining"`
	Used        ActionCounts    `json:"used"`
	Purchased   ActionCounts    `json:"purchased"`
	JoinedAt    time.Time       `json:"joined_at"`
}

// Hold is the in-progress hold-to-win on the contested prize.
type Hold struct {
	Player    string     `json:"player"`
	Kind      ActionKind `json:"kind"`
	StartedAt time.Time  `json:"started_at"`
	Deadline  time.Time  `json:"deadline"`
}

// GameSession is one Grabbit play session. Values are treated as immutable
// snapshots; use Clone before deriving a new one.
type GameSession struct {
	ID           uuid.UUID     `json:"id"`
	GameID       string        `json:"game_id"`
	Status       GameStatus    `json:"status"`
	Settings     GameSettings  `json:"settings"`
	StartTime    time.Time     `json:"start_time"`
	EndTime      time.Time     `json:"end_time"`
	Players      []PlayerEntry `json:"players"`
	Hold         *Hold         `json:"hold,omitempty"`
	Winner       *string       `json:"winner,omitempty"`
	EndedAt      *time.Time    `json:"ended_at,omitempty"`
	PrizeClaimed bool          `json:"prize_claimed"`
	PrizeClaimTx *string       `json:"prize_claim_tx,omitempty"`
	ClaimedAt    *time.Time    `json:"claimed_at,omitempty"`
	Version      int64         `json:"version"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Player returns the entry for identity and its index.
func (s GameSession) Player(identity string) (PlayerEntry, int, bool) {
	for i, p := range s.Players {
		if p.Identity == identity {
			return p, i, true
		}
	}
	return PlayerEntry{}, -1, false
}

// AwaitingPlayers reports whether the session is pre-game and still short of
// its minimum player count.
func (s GameSession) AwaitingPlayers() bool {
	return s.Status == GameStatusCreated && len(s.Players) < s.Settings.PlayersMin
}

// Phase is the client facing phase name, which splits Created into
// AWAITING_PLAYERS and CREATED.
func (s GameSession) Phase() string {
	if s.AwaitingPlayers() {
		return "AWAITING_PLAYERS"
	}
	return s.Status.String()
}

// Clone returns a deep copy of s.
func (s GameSession) Clone() GameSession {
	out := s
	if s.Players != nil {
		out.Players = make([]PlayerEntry, len(s.Players))
		copy(out.Players, s.Players)
	}
	if s.Hold != nil {
		h := *s.Hold
		out.Hold = &h
	}
	if s.Winner != nil {
		w := *s.Winner
		out.Winner = &w
	}
	if s.EndedAt != nil {
		t := *s.EndedAt
		out.EndedAt = &t
	}
	if s.PrizeClaimTx != nil {
		tx := *s.PrizeClaimTx
		out.PrizeClaimTx = &tx
	}
	if s.ClaimedAt != nil {
		t := *s.ClaimedAt
		out.ClaimedAt = &t
	}
	return out
}
