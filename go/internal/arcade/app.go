package arcade

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/arena/go/internal/game/events"
	"github.com/mcdev12/arena/go/internal/gameerr"
	"github.com/mcdev12/arena/go/internal/models"
)

// RunRepository defines what the arcade app needs from storage
type RunRepository interface {
	CreateRun(ctx context.Context, run models.ArcadeRun, evt events.Event) (*models.ArcadeRun, error)
	GetRun(ctx context.Context, id uuid.UUID) (*models.ArcadeRun, error)
	SaveScore(ctx context.Context, run models.ArcadeRun, evt events.Event) (*models.ArcadeRun, error)
	ListTopScores(ctx context.Context, gameID string, limit int32) ([]models.ArcadeRun, error)
}

// BalanceChecker reports an account's balance in lamports.
type BalanceChecker interface {
	GetBalance(ctx context.Context, account string) (int64, error)
}

// StartResult is a new run and the token that must accompany its score.
type StartResult struct {
	Run   models.ArcadeRun
	Token string
}

// EndRequest submits the score of a run. Either Sealed or Score must be set.
type EndRequest struct {
	Token      string
	Score      *int64
	ElapsedSec int
	Sealed     string
}

// App handles arcade runs
type App struct {
	repo     RunRepository
	balances BalanceChecker
	tokens   *TokenIssuer
	cipher   *ScoreCipher
	clock    clockwork.Clock
	games    map[string]models.ArcadeGame
}

// NewApp creates a new arcade App. cipher may be nil, in which case only
// plain scores are accepted.
func NewApp(repo RunRepository, balances BalanceChecker, tokens *TokenIssuer, cipher *ScoreCipher, clock clockwork.Clock, games []models.ArcadeGame) *App {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	byID := make(map[string]models.ArcadeGame, len(games))
	for _, g := range games {
		byID[g.ID] = g
	}
	return &App{
		repo:     repo,
		balances: balances,
		tokens:   tokens,
		cipher:   cipher,
		clock:    clock,
		games:    byID,
	}
}

// Game returns the configured catalogue entry for id.
func (a *App) Game(id string) (models.ArcadeGame, bool) {
	g, ok := a.games[id]
	return g, ok
}

// StartSession checks the player's balance against the entry fee and opens a run
func (a *App) StartSession(ctx context.Context, gameID, playerID string) (*StartResult, error) {
	game, ok := a.games[gameID]
	if !ok {
		return nil, ErrGameNotFound
	}

	var balance int64
	if game.EntryFeeLamports > 0 {
		if a.balances == nil {
			return nil, gameerr.Transport("get balance", fmt.Errorf("no balance collaborator configured"))
		}
		b, err := a.balances.GetBalance(ctx, playerID)
		if err != nil {
			return nil, gameerr.Transport("get balance", err)
		}
		balance = b
	}

	now := a.clock.Now()
	run, err := Start(game, playerID, balance, now, uuid.New(), uuid.New())
	if err != nil {
		return nil, err
	}

	token, err := a.tokens.Issue(run)
	if err != nil {
		return nil, err
	}

	created, err := a.repo.CreateRun(ctx, run, events.Event{
		Type: events.EventArcadeRunStarted,
		Payload: events.ArcadeRunStartedPayload{
			RunID:      run.ID.String(),
			GameID:     run.GameID,
			PlayerID:   run.PlayerID,
			TimeBudget: run.TimeBudget,
			ExpiresAt:  run.ExpiresAt,
		},
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("run_id", created.ID.String()).
		Str("game_id", gameID).
		Str("player_id", playerID).
		Int("time_budget_sec", created.TimeBudget).
		Msg("arcade run started")

	return &StartResult{Run: *created, Token: token}, nil
}

// EndSession verifies the run token and records the score once
func (a *App) EndSession(ctx context.Context, req EndRequest) (*models.ArcadeRun, error) {
	claims, err := a.tokens.Parse(req.Token)
	if err != nil {
		return nil, err
	}

	score, elapsed, err := a.scoreOf(req, claims)
	if err != nil {
		return nil, err
	}

	run, err := a.repo.GetRun(ctx, claims.RunID)
	if err != nil {
		return nil, err
	}
	if run.PlayerID != claims.PlayerID {
		return nil, ErrInvalidToken
	}

	now := a.clock.Now()
	next, err := SubmitScore(*run, claims.TokenID, score, elapsed, now)
	if err != nil {
		return nil, err
	}

	saved, err := a.repo.SaveScore(ctx, next, events.Event{
		Type: events.EventScoreSubmitted,
		Payload: events.ScoreSubmittedPayload{
			RunID:       next.ID.String(),
			GameID:      next.GameID,
			PlayerID:    next.PlayerID,
			Score:       score,
			ElapsedSec:  elapsed,
			SubmittedAt: now,
		},
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("run_id", saved.ID.String()).
		Str("player_id", saved.PlayerID).
		Int64("score", score).
		Int("elapsed_sec", elapsed).
		Msg("arcade score submitted")
	return saved, nil
}

// Leaderboard returns the best submitted runs of a game
func (a *App) Leaderboard(ctx context.Context, gameID string, limit int32) ([]models.ArcadeRun, error) {
	if _, ok := a.games[gameID]; !ok {
		return nil, ErrGameNotFound
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	return a.repo.ListTopScores(ctx, gameID, limit)
}

func (a *App) scoreOf(req EndRequest, claims SessionClaims) (int64, int, error) {
	if req.Sealed == "" {
		if req.Score == nil {
			return 0, 0, fmt.Errorf("%w: score is required", ErrInvalidScore)
		}
		return *req.Score, req.ElapsedSec, nil
	}
	if a.cipher == nil {
		return 0, 0, fmt.Errorf("%w: sealed scores are not enabled", ErrInvalidScore)
	}
	p, err := a.cipher.Open(req.Sealed)
	if err != nil {
		return 0, 0, err
	}
	if p.TokenID != claims.TokenID.String() {
		return 0, 0, ErrInvalidToken
	}
	return p.Score, p.ElapsedSec, nil
}
