// Package arcadev1 holds the request and response messages of
// arena.arcade.v1.ArcadeService. Messages are JSON coded.
package arcadev1

import "time"

// Status is embedded in every response. Callers branch on Success.
type Status struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

type Run struct {
	Id               string     `json:"id"`
	GameId           string     `json:"gameId"`
	PlayerId         string     `json:"playerId"`
	TimeBudgetSec    int32      `json:"timeBudgetSec"`
	EntryFeeLamports int64      `json:"entryFeeLamports,string"`
	StartedAt        time.Time  `json:"startedAt"`
	ExpiresAt        time.Time  `json:"expiresAt"`
	Score            *int64     `json:"score,omitempty"`
	ElapsedSec       *int32     `json:"elapsedSec,omitempty"`
	SubmittedAt      *time.Time `json:"submittedAt,omitempty"`
}

type StartSessionRequest struct {
	GameId   string `json:"gameId"`
	PlayerId string `json:"playerId"`
}

type StartSessionResponse struct {
	Status
	SessionToken string `json:"sessionToken,omitempty"`
	Run          *Run   `json:"run,omitempty"`
}

// EndSessionRequest carries either a plain Score or a SealedScore.
type EndSessionRequest struct {
	SessionToken string `json:"sessionToken"`
	Score        *int64 `json:"score,omitempty"`
	ElapsedSec   int32  `json:"elapsedSec"`
	SealedScore  string `json:"sealedScore,omitempty"`
}

type EndSessionResponse struct {
	Status
	Run *Run `json:"run,omitempty"`
}

type GetLeaderboardRequest struct {
	GameId string `json:"gameId"`
	Limit  int32  `json:"limit"`
}

type GetLeaderboardResponse struct {
	Status
	Runs []*Run `json:"runs"`
}
