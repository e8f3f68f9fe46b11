package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	grabbitv1 "github.com/mcdev12/arena/go/internal/api/grabbit/v1"
	"github.com/mcdev12/arena/go/internal/api/grabbit/v1/grabbitv1connect"
	"github.com/mcdev12/arena/go/internal/game"
	"github.com/mcdev12/arena/go/internal/gameerr"
	"github.com/mcdev12/arena/go/internal/models"
)

// ErrSessionNotFound is returned by a StateProvider for unknown sessions.
var ErrSessionNotFound = errors.New("session not found")

// StateProvider supplies snapshots for the REST endpoints
type StateProvider interface {
	GetSessionState(ctx context.Context, sessionID uuid.UUID) (*SessionStateResponse, error)
	ListOpenSessions(ctx context.Context) ([]SessionSummary, error)
}

type SessionStateResponse struct {
	SessionID        string        `json:"session_id"`
	GameID           string        `json:"game_id"`
	Status           string        `json:"status"`
	Phase            string        `json:"phase"`
	StartTime        time.Time     `json:"start_time"`
	EndTime          time.Time     `json:"end_time"`
	Players          []PlayerState `json:"players"`
	Hold             *HoldState    `json:"hold,omitempty"`
	Winner           string        `json:"winner,omitempty"`
	PrizeClaimed     bool          `json:"prize_claimed"`
	NextDeadline     *time.Time    `json:"next_deadline,omitempty"`
	TimeRemainingSec *int          `json:"time_remaining_sec,omitempty"`
	Version          int64         `json:"version"`
}

type PlayerState struct {
	Identity  string         `json:"identity"`
	Remaining map[string]int `json:"remaining"`
}

type HoldState struct {
	Player   string    `json:"player"`
	Kind     string    `json:"kind"`
	Deadline time.Time `json:"deadline"`
}

type SessionSummary struct {
	SessionID   string    `json:"session_id"`
	GameID      string    `json:"game_id"`
	Status      string    `json:"status"`
	Phase       string    `json:"phase"`
	PlayerCount int       `json:"player_count"`
	PlayersMax  int       `json:"players_max"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

const openSessionsLimit = 200

// GrabbitStateProvider reads session state from the game service
type GrabbitStateProvider struct {
	client grabbitv1connect.GrabbitServiceClient
	clock  clockwork.Clock
}

func NewGrabbitStateProvider(client grabbitv1connect.GrabbitServiceClient, clock clockwork.Clock) *GrabbitStateProvider {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &GrabbitStateProvider{client: client, clock: clock}
}

func (p *GrabbitStateProvider) GetSessionState(ctx context.Context, sessionID uuid.UUID) (*SessionStateResponse, error) {
	resp, err := p.client.GetSession(ctx, connect.NewRequest(&grabbitv1.GetSessionRequest{
		SessionId: sessionID.String(),
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if !resp.Msg.Success {
		if resp.Msg.Code == gameerr.CodeOf(game.ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %s: %s", resp.Msg.Code, resp.Msg.Message)
	}
	return p.toState(resp.Msg.Session), nil
}

func (p *GrabbitStateProvider) ListOpenSessions(ctx context.Context) ([]SessionSummary, error) {
	resp, err := p.client.ListOpenSessions(ctx, connect.NewRequest(&grabbitv1.ListOpenSessionsRequest{
		Limit: openSessionsLimit,
	}))
	if err != nil {
		return nil, fmt.Errorf("failed to list open sessions: %w", err)
	}
	if !resp.Msg.Success {
		return nil, fmt.Errorf("list open sessions: %s: %s", resp.Msg.Code, resp.Msg.Message)
	}

	out := make([]SessionSummary, 0, len(resp.Msg.Sessions))
	for _, s := range resp.Msg.Sessions {
		out = append(out, SessionSummary{
			SessionID:   s.Id,
			GameID:      s.GameId,
			Status:      models.GameStatus(s.Status).String(),
			Phase:       s.Phase,
			PlayerCount: len(s.Players),
			PlayersMax:  int(s.Settings.PlayersMax),
			StartTime:   s.StartTime,
			EndTime:     s.EndTime,
		})
	}
	return out, nil
}

func (p *GrabbitStateProvider) toState(s *grabbitv1.Session) *SessionStateResponse {
	state := &SessionStateResponse{
		SessionID:    s.Id,
		GameID:       s.GameId,
		Status:       models.GameStatus(s.Status).String(),
		Phase:        s.Phase,
		StartTime:    s.StartTime,
		EndTime:      s.EndTime,
		Players:      make([]PlayerState, 0, len(s.Players)),
		Winner:       s.Winner,
		PrizeClaimed: s.PrizeClaimed,
		NextDeadline: s.NextDeadline,
		Version:      s.Version,
	}
	for _, pl := range s.Players {
		state.Players = append(state.Players, PlayerState{
			Identity: pl.Identity,
			Remaining: map[string]int{
				string(models.ActionGrab):  int(pl.Remaining.Grabs),
				string(models.ActionSlap):  int(pl.Remaining.Slaps),
				string(models.ActionSneak): int(pl.Remaining.Sneaks),
			},
		})
	}
	if s.Hold != nil {
		state.Hold = &HoldState{Player: s.Hold.Player, Kind: s.Hold.Kind, Deadline: s.Hold.Deadline}
	}
	if s.NextDeadline != nil {
		remaining := int(s.NextDeadline.Sub(p.clock.Now()).Seconds())
		if remaining > 0 {
			state.TimeRemainingSec = &remaining
		}
	}
	return state
}
