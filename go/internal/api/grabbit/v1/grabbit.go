// Package grabbitv1 holds the request and response messages of
// arena.grabbit.v1.GrabbitService. Messages are JSON coded.
package grabbitv1

import (
	"encoding/json"
	"time"
)

// Status is embedded in every response. Callers branch on Success; Code is
// stable and Message is meant for display.
type Status struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

type ActionCounts struct {
	Grabs  int32 `json:"grabs"`
	Slaps  int32 `json:"slaps"`
	Sneaks int32 `json:"sneaks"`
}

type GameSettings struct {
	PlayersMin          int32 `json:"playersMin"`
	PlayersMax          int32 `json:"playersMax"`
	FreeGrabs           int32 `json:"freeGrabs"`
	FreeSlaps           int32 `json:"freeSlaps"`
	FreeSneaks          int32 `json:"freeSneaks"`
	GrabHoldSec         int32 `json:"grabHoldSec"`
	SneakHoldSec        int32 `json:"sneakHoldSec"`
	CountdownSec        int32 `json:"countdownSec"`
	DurationSec         int32 `json:"durationSec"`
	PrizeLamports       int64 `json:"prizeLamports,string"`
	ActionPriceLamports int64 `json:"actionPriceLamports,string"`
}

type PlayerEntry struct {
	Identity    string          `json:"identity"`
	DisplayMeta json.RawMessage `json:"displayMeta,omitempty"`
	Remaining   ActionCounts    `json:"remaining"`
	Used        ActionCounts    `json:"used"`
	Purchased   ActionCounts    `json:"purchased"`
	JoinedAt    time.Time       `json:"joinedAt"`
}

type Hold struct {
	Player    string    `json:"player"`
	Kind      string    `json:"kind"`
	StartedAt time.Time `json:"startedAt"`
	Deadline  time.Time `json:"deadline"`
}

// Session is the client view of a game session. Status is the persisted
// integer (1 created, 2 countdown, 3 active, 4 ended); Phase also
// distinguishes AWAITING_PLAYERS.
type Session struct {
	Id           string        `json:"id"`
	GameId       string        `json:"gameId"`
	Status       int32         `json:"status"`
	Phase        string        `json:"phase"`
	Settings     GameSettings  `json:"settings"`
	StartTime    time.Time     `json:"startTime"`
	EndTime      time.Time     `json:"endTime"`
	Players      []PlayerEntry `json:"players"`
	Hold         *Hold         `json:"hold,omitempty"`
	Winner       string        `json:"winner,omitempty"`
	EndedAt      *time.Time    `json:"endedAt,omitempty"`
	PrizeClaimed bool          `json:"prizeClaimed"`
	PrizeClaimTx string        `json:"prizeClaimTx,omitempty"`
	NextDeadline *time.Time    `json:"nextDeadline,omitempty"`
	Version      int64         `json:"version,string"`
}

type ActionOutcome struct {
	Kind        string `json:"kind"`
	Player      string `json:"player"`
	Remaining   int32  `json:"remaining"`
	Hold        *Hold  `json:"hold,omitempty"`
	Displaced   string `json:"displaced,omitempty"`
	Interrupted string `json:"interrupted,omitempty"`
}

type ClaimReceipt struct {
	SessionId string    `json:"sessionId"`
	Winner    string    `json:"winner"`
	Amount    int64     `json:"amountLamports,string"`
	Reference string    `json:"reference"`
	ClaimedAt time.Time `json:"claimedAt"`
	Tx        string    `json:"tx,omitempty"`
}

type CreateGameRequest struct {
	GameId   string        `json:"gameId"`
	StartAt  *time.Time    `json:"startAt,omitempty"`
	Settings *GameSettings `json:"settings,omitempty"`
}

type CreateGameResponse struct {
	Status
	Session *Session `json:"session,omitempty"`
}

type GetSessionRequest struct {
	SessionId string `json:"sessionId"`
}

type GetSessionResponse struct {
	Status
	Session *Session `json:"session,omitempty"`
}

type ListOpenSessionsRequest struct {
	Limit int32 `json:"limit"`
}

type ListOpenSessionsResponse struct {
	Status
	Sessions []*Session `json:"sessions"`
}

type JoinRequest struct {
	SessionId   string          `json:"sessionId"`
	Identity    string          `json:"identity"`
	DisplayMeta json.RawMessage `json:"displayMeta,omitempty"`
}

type JoinResponse struct {
	Status
	Player  *PlayerEntry `json:"player,omitempty"`
	Session *Session     `json:"session,omitempty"`
}

// ActionRequest is shared by Grab, Slap and Sneak.
type ActionRequest struct {
	SessionId string `json:"sessionId"`
	Identity  string `json:"identity"`
}

type ActionResponse struct {
	Status
	Outcome *ActionOutcome `json:"outcome,omitempty"`
	Session *Session       `json:"session,omitempty"`
}

type RefreshSessionRequest struct {
	SessionId string `json:"sessionId"`
}

type RefreshSessionResponse struct {
	Status
	Session *Session `json:"session,omitempty"`
}

type PurchaseActionsRequest struct {
	SessionId string `json:"sessionId"`
	Identity  string `json:"identity"`
	Kind      string `json:"kind"`
	Quantity  int32  `json:"quantity"`
	PaymentTx string `json:"paymentTx"`
}

type PurchaseActionsResponse struct {
	Status
	Player  *PlayerEntry `json:"player,omitempty"`
	Session *Session     `json:"session,omitempty"`
}

type ClaimPrizeRequest struct {
	SessionId string `json:"sessionId"`
	Identity  string `json:"identity"`
}

type ClaimPrizeResponse struct {
	Status
	Receipt *ClaimReceipt `json:"receipt,omitempty"`
	Session *Session      `json:"session,omitempty"`
}

type RetryPayoutRequest struct {
	SessionId string `json:"sessionId"`
}
