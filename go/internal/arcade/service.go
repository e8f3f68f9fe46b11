package arcade

import (
	"context"

	"connectrpc.com/connect"

	arcadev1 "github.com/mcdev12/arena/go/internal/api/arcade/v1"
	"github.com/mcdev12/arena/go/internal/api/arcade/v1/arcadev1connect"
	"github.com/mcdev12/arena/go/internal/gameerr"
	"github.com/mcdev12/arena/go/internal/models"
)

// ArcadeApp defines what the service layer needs from the arcade application
type ArcadeApp interface {
	StartSession(ctx context.Context, gameID, playerID string) (*StartResult, error)
	EndSession(ctx context.Context, req EndRequest) (*models.ArcadeRun, error)
	Leaderboard(ctx context.Context, gameID string, limit int32) ([]models.ArcadeRun, error)
}

// Service implements the ArcadeService connect interface
type Service struct {
	app ArcadeApp
}

func NewService(app ArcadeApp) *Service {
	return &Service{app: app}
}

var _ arcadev1connect.ArcadeServiceHandler = (*Service)(nil)

func (s *Service) StartSession(ctx context.Context, req *connect.Request[arcadev1.StartSessionRequest]) (*connect.Response[arcadev1.StartSessionResponse], error) {
	res, err := s.app.StartSession(ctx, req.Msg.GameId, req.Msg.PlayerId)
	if err != nil {
		st, err := outcome(err)
		if err != nil {
			return nil, err
		}
		return connect.NewResponse(&arcadev1.StartSessionResponse{Status: st}), nil
	}
	return connect.NewResponse(&arcadev1.StartSessionResponse{
		Status:       arcadev1.Status{Success: true},
		SessionToken: res.Token,
		Run:          runToProto(res.Run),
	}), nil
}

func (s *Service) EndSession(ctx context.Context, req *connect.Request[arcadev1.EndSessionRequest]) (*connect.Response[arcadev1.EndSessionResponse], error) {
	run, err := s.app.EndSession(ctx, EndRequest{
		Token:      req.Msg.SessionToken,
		Score:      req.Msg.Score,
		ElapsedSec: int(req.Msg.ElapsedSec),
		Sealed:     req.Msg.SealedScore,
	})
	if err != nil {
		st, err := outcome(err)
		if err != nil {
			return nil, err
		}
		return connect.NewResponse(&arcadev1.EndSessionResponse{Status: st}), nil
	}
	return connect.NewResponse(&arcadev1.EndSessionResponse{
		Status: arcadev1.Status{Success: true, Message: "score accepted"},
		Run:    runToProto(*run),
	}), nil
}

func (s *Service) GetLeaderboard(ctx context.Context, req *connect.Request[arcadev1.GetLeaderboardRequest]) (*connect.Response[arcadev1.GetLeaderboardResponse], error) {
	runs, err := s.app.Leaderboard(ctx, req.Msg.GameId, req.Msg.Limit)
	if err != nil {
		st, err := outcome(err)
		if err != nil {
			return nil, err
		}
		return connect.NewResponse(&arcadev1.GetLeaderboardResponse{Status: st}), nil
	}
	out := make([]*arcadev1.Run, 0, len(runs))
	for _, r := range runs {
		out = append(out, runToProto(r))
	}
	return connect.NewResponse(&arcadev1.GetLeaderboardResponse{
		Status: arcadev1.Status{Success: true},
		Runs:   out,
	}), nil
}

func outcome(err error) (arcadev1.Status, error) {
	if gameerr.IsExpected(err) {
		return arcadev1.Status{
			Success: false,
			Code:    gameerr.CodeOf(err),
			Message: gameerr.Message(err),
		}, nil
	}
	return arcadev1.Status{}, gameerr.ConnectError(err)
}

func runToProto(r models.ArcadeRun) *arcadev1.Run {
	out := &arcadev1.Run{
		Id:               r.ID.String(),
		GameId:           r.GameID,
		PlayerId:         r.PlayerID,
		TimeBudgetSec:    int32(r.TimeBudget),
		EntryFeeLamports: r.EntryFee,
		StartedAt:        r.StartedAt,
		ExpiresAt:        r.ExpiresAt,
		Score:            r.Score,
		SubmittedAt:      r.SubmittedAt,
	}
	if r.ElapsedSec != nil {
		e := int32(*r.ElapsedSec)
		out.ElapsedSec = &e
	}
	return out
}
