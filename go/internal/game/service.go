package game

import (
	"context"
	"crypto/subtle"
	"fmt"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	grabbitv1 "github.com/mcdev12/arena/go/internal/api/grabbit/v1"
	"github.com/mcdev12/arena/go/internal/api/grabbit/v1/grabbitv1connect"
	"github.com/mcdev12/arena/go/internal/gameerr"
	"github.com/mcdev12/arena/go/internal/models"
)

// AdminKeyHeader carries the key required by admin procedures.
const AdminKeyHeader = "X-Admin-Key"

// GameApp defines what the service layer needs from the game application
type GameApp interface {
	CreateGame(ctx context.Context, req CreateGameRequest) (*models.GameSession, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.GameSession, error)
	ListOpenSessions(ctx context.Context, limit int32) ([]models.GameSession, error)
	Join(ctx context.Context, req JoinRequest) (*models.GameSession, models.PlayerEntry, error)
	ApplyAction(ctx context.Context, sessionID uuid.UUID, identity string, kind models.ActionKind) (*models.GameSession, ActionOutcome, error)
	Refresh(ctx context.Context, sessionID uuid.UUID) (*models.GameSession, error)
	PurchaseActions(ctx context.Context, req PurchaseRequest) (*models.GameSession, models.PlayerEntry, error)
	ClaimPrize(ctx context.Context, sessionID uuid.UUID, identity string) (*models.GameSession, ClaimReceipt, error)
	RetryPayout(ctx context.Context, sessionID uuid.UUID) (*models.GameSession, ClaimReceipt, error)
}

// Service implements the GrabbitService connect interface
type Service struct {
	app      GameApp
	adminKey string
}

// NewService creates a new Grabbit connect service. An empty adminKey
// disables the admin procedures.
func NewService(app GameApp, adminKey string) *Service {
	return &Service{
		app:      app,
		adminKey: adminKey,
	}
}

// Verify that Service implements the GrabbitServiceHandler interface
var _ grabbitv1connect.GrabbitServiceHandler = (*Service)(nil)

// CreateGame creates a new session. Requires the admin key.
func (s *Service) CreateGame(ctx context.Context, req *connect.Request[grabbitv1.CreateGameRequest]) (*connect.Response[grabbitv1.CreateGameResponse], error) {
	if !s.authorized(req.Header().Get(AdminKeyHeader)) {
		return connect.NewResponse(&grabbitv1.CreateGameResponse{Status: failed(ErrUnauthorized)}), nil
	}

	appReq := CreateGameRequest{GameID: req.Msg.GameId}
	if req.Msg.StartAt != nil {
		appReq.StartAt = *req.Msg.StartAt
	}
	if req.Msg.Settings != nil {
		settings := protoToSettings(req.Msg.Settings)
		appReq.Settings = &settings
	}

	session, err := s.app.CreateGame(ctx, appReq)
	if err != nil {
		st, err := outcome(err)
		if err != nil {
			return nil, err
		}
		return connect.NewResponse(&grabbitv1.CreateGameResponse{Status: st}), nil
	}

	return connect.NewResponse(&grabbitv1.CreateGameResponse{
		Status:  ok(),
		Session: sessionToProto(session),
	}), nil
}

// GetSession returns the stored snapshot of a session
func (s *Service) GetSession(ctx context.Context, req *connect.Request[grabbitv1.GetSessionRequest]) (*connect.Response[grabbitv1.GetSessionResponse], error) {
	id, err := uuid.Parse(req.Msg.SessionId)
	if err != nil {
		return connect.NewResponse(&grabbitv1.GetSessionResponse{Status: failed(invalidSessionID(err))}), nil
	}

	session, err := s.app.GetSession(ctx, id)
	if err != nil {
		st, err := outcome(err)
		if err != nil {
			return nil, err
		}
		return connect.NewResponse(&grabbitv1.GetSessionResponse{Status: st}), nil
	}

	return connect.NewResponse(&grabbitv1.GetSessionResponse{
		Status:  ok(),
		Session: sessionToProto(session),
	}), nil
}

// ListOpenSessions lists sessions that are not finished
func (s *Service) ListOpenSessions(ctx context.Context, req *connect.Request[grabbitv1.ListOpenSessionsRequest]) (*connect.Response[grabbitv1.ListOpenSessionsResponse], error) {
	limit := req.Msg.Limit
	if limit == 0 {
		limit = 100
	}

	sessions, err := s.app.ListOpenSessions(ctx, limit)
	if err != nil {
		st, err := outcome(err)
		if err != nil {
			return nil, err
		}
		return connect.NewResponse(&grabbitv1.ListOpenSessionsResponse{Status: st}), nil
	}

	out := make([]*grabbitv1.Session, 0, len(sessions))
	for i := range sessions {
		out = append(out, sessionToProto(&sessions[i]))
	}
	return connect.NewResponse(&grabbitv1.ListOpenSessionsResponse{
		Status:   ok(),
		Sessions: out,
	}), nil
}

// Join adds the caller to a session
func (s *Service) Join(ctx context.Context, req *connect.Request[grabbitv1.JoinRequest]) (*connect.Response[grabbitv1.JoinResponse], error) {
	id, err := uuid.Parse(req.Msg.SessionId)
	if err != nil {
		return connect.NewResponse(&grabbitv1.JoinResponse{Status: failed(invalidSessionID(err))}), nil
	}

	session, entry, err := s.app.Join(ctx, JoinRequest{
		SessionID:   id,
		Identity:    req.Msg.Identity,
		DisplayMeta: req.Msg.DisplayMeta,
	})
	if err != nil {
		st, err := outcome(err)
		if err != nil {
			return nil, err
		}
		return connect.NewResponse(&grabbitv1.JoinResponse{Status: st, Session: sessionToProto(session)}), nil
	}

	return connect.NewResponse(&grabbitv1.JoinResponse{
		Status:  ok(),
		Player:  playerToProto(entry),
		Session: sessionToProto(session),
	}), nil
}

// Grab starts or restarts a grab hold
func (s *Service) Grab(ctx context.Context, req *connect.Request[grabbitv1.ActionRequest]) (*connect.Response[grabbitv1.ActionResponse], error) {
	return s.applyAction(ctx, req.Msg, models.ActionGrab)
}

// Slap cancels another player's hold
func (s *Service) Slap(ctx context.Context, req *connect.Request[grabbitv1.ActionRequest]) (*connect.Response[grabbitv1.ActionResponse], error) {
	return s.applyAction(ctx, req.Msg, models.ActionSlap)
}

// Sneak starts a short sneak hold
func (s *Service) Sneak(ctx context.Context, req *connect.Request[grabbitv1.ActionRequest]) (*connect.Response[grabbitv1.ActionResponse], error) {
	return s.applyAction(ctx, req.Msg, models.ActionSneak)
}

func (s *Service) applyAction(ctx context.Context, msg *grabbitv1.ActionRequest, kind models.ActionKind) (*connect.Response[grabbitv1.ActionResponse], error) {
	id, err := uuid.Parse(msg.SessionId)
	if err != nil {
		return connect.NewResponse(&grabbitv1.ActionResponse{Status: failed(invalidSessionID(err))}), nil
	}

	session, result, err := s.app.ApplyAction(ctx, id, msg.Identity, kind)
	if err != nil {
		st, err := outcome(err)
		if err != nil {
			return nil, err
		}
		return connect.NewResponse(&grabbitv1.ActionResponse{Status: st, Session: sessionToProto(session)}), nil
	}

	return connect.NewResponse(&grabbitv1.ActionResponse{
		Status:  ok(),
		Outcome: outcomeToProto(result),
		Session: sessionToProto(session),
	}), nil
}

// RefreshSession applies due clock transitions and returns the result
func (s *Service) RefreshSession(ctx context.Context, req *connect.Request[grabbitv1.RefreshSessionRequest]) (*connect.Response[grabbitv1.RefreshSessionResponse], error) {
	id, err := uuid.Parse(req.Msg.SessionId)
	if err != nil {
		return connect.NewResponse(&grabbitv1.RefreshSessionResponse{Status: failed(invalidSessionID(err))}), nil
	}

	session, err := s.app.Refresh(ctx, id)
	if err != nil {
		st, err := outcome(err)
		if err != nil {
			return nil, err
		}
		return connect.NewResponse(&grabbitv1.RefreshSessionResponse{Status: st}), nil
	}

	return connect.NewResponse(&grabbitv1.RefreshSessionResponse{
		Status:  ok(),
		Session: sessionToProto(session),
	}), nil
}

// PurchaseActions tops up a player's budget after a confirmed payment
func (s *Service) PurchaseActions(ctx context.Context, req *connect.Request[grabbitv1.PurchaseActionsRequest]) (*connect.Response[grabbitv1.PurchaseActionsResponse], error) {
	id, err := uuid.Parse(req.Msg.SessionId)
	if err != nil {
		return connect.NewResponse(&grabbitv1.PurchaseActionsResponse{Status: failed(invalidSessionID(err))}), nil
	}

	session, entry, err := s.app.PurchaseActions(ctx, PurchaseRequest{
		SessionID: id,
		Identity:  req.Msg.Identity,
		Kind:      models.ActionKind(req.Msg.Kind),
		Quantity:  int(req.Msg.Quantity),
		PaymentTx: req.Msg.PaymentTx,
	})
	if err != nil {
		st, err := outcome(err)
		if err != nil {
			return nil, err
		}
		return connect.NewResponse(&grabbitv1.PurchaseActionsResponse{Status: st, Session: sessionToProto(session)}), nil
	}

	return connect.NewResponse(&grabbitv1.PurchaseActionsResponse{
		Status:  ok(),
		Player:  playerToProto(entry),
		Session: sessionToProto(session),
	}), nil
}

// ClaimPrize pays the prize to the winner
func (s *Service) ClaimPrize(ctx context.Context, req *connect.Request[grabbitv1.ClaimPrizeRequest]) (*connect.Response[grabbitv1.ClaimPrizeResponse], error) {
	id, err := uuid.Parse(req.Msg.SessionId)
	if err != nil {
		return connect.NewResponse(&grabbitv1.ClaimPrizeResponse{Status: failed(invalidSessionID(err))}), nil
	}
	session, rcpt, err := s.app.ClaimPrize(ctx, id, req.Msg.Identity)
	return claimResponse(session, rcpt, err)
}

// RetryPayout completes a reserved claim whose payout failed. Requires the admin key.
func (s *Service) RetryPayout(ctx context.Context, req *connect.Request[grabbitv1.RetryPayoutRequest]) (*connect.Response[grabbitv1.ClaimPrizeResponse], error) {
	if !s.authorized(req.Header().Get(AdminKeyHeader)) {
		return connect.NewResponse(&grabbitv1.ClaimPrizeResponse{Status: failed(ErrUnauthorized)}), nil
	}
	id, err := uuid.Parse(req.Msg.SessionId)
	if err != nil {
		return connect.NewResponse(&grabbitv1.ClaimPrizeResponse{Status: failed(invalidSessionID(err))}), nil
	}
	session, rcpt, err := s.app.RetryPayout(ctx, id)
	return claimResponse(session, rcpt, err)
}

func claimResponse(session *models.GameSession, rcpt ClaimReceipt, err error) (*connect.Response[grabbitv1.ClaimPrizeResponse], error) {
	if err != nil {
		st, err := outcome(err)
		if err != nil {
			return nil, err
		}
		return connect.NewResponse(&grabbitv1.ClaimPrizeResponse{Status: st, Session: sessionToProto(session)}), nil
	}
	return connect.NewResponse(&grabbitv1.ClaimPrizeResponse{
		Status:  ok(),
		Receipt: receiptToProto(rcpt),
		Session: sessionToProto(session),
	}), nil
}

func (s *Service) authorized(key string) bool {
	if s.adminKey == "" || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.adminKey)) == 1
}

func invalidSessionID(err error) error {
	return fmt.Errorf("%w: invalid session id: %v", ErrSessionNotFound, err)
}

func ok() grabbitv1.Status {
	return grabbitv1.Status{Success: true}
}

func failed(err error) grabbitv1.Status {
	return grabbitv1.Status{
		Success: false,
		Code:    gameerr.CodeOf(err),
		Message: gameerr.Message(err),
	}
}

// outcome turns an expected domain error into a failed Status. Anything
// else is returned as a connect error.
func outcome(err error) (grabbitv1.Status, error) {
	if gameerr.IsExpected(err) {
		return failed(err), nil
	}
	return grabbitv1.Status{}, gameerr.ConnectError(err)
}

// Helper methods for conversion between proto and domain models

func sessionToProto(s *models.GameSession) *grabbitv1.Session {
	if s == nil {
		return nil
	}
	out := &grabbitv1.Session{
		Id:           s.ID.String(),
		GameId:       s.GameID,
		Status:       int32(s.Status),
		Phase:        s.Phase(),
		Settings:     settingsToProto(s.Settings),
		StartTime:    s.StartTime,
		EndTime:      s.EndTime,
		Players:      make([]grabbitv1.PlayerEntry, 0, len(s.Players)),
		Hold:         holdToProto(s.Hold),
		EndedAt:      s.EndedAt,
		PrizeClaimed: s.PrizeClaimed,
		NextDeadline: NextDeadline(*s),
		Version:      s.Version,
	}
	for _, p := range s.Players {
		out.Players = append(out.Players, *playerToProto(p))
	}
	if s.Winner != nil {
		out.Winner = *s.Winner
	}
	if s.PrizeClaimTx != nil {
		out.PrizeClaimTx = *s.PrizeClaimTx
	}
	return out
}

func playerToProto(p models.PlayerEntry) *grabbitv1.PlayerEntry {
	return &grabbitv1.PlayerEntry{
		Identity:    p.Identity,
		DisplayMeta: p.DisplayMeta,
		Remaining:   countsToProto(p.Remaining),
		Used:        countsToProto(p.Used),
		Purchased:   countsToProto(p.Purchased),
		JoinedAt:    p.JoinedAt,
	}
}

func countsToProto(c models.ActionCounts) grabbitv1.ActionCounts {
	return grabbitv1.ActionCounts{
		Grabs:  int32(c.Grabs),
		Slaps:  int32(c.Slaps),
		Sneaks: int32(c.Sneaks),
	}
}

func holdToProto(h *models.Hold) *grabbitv1.Hold {
	if h == nil {
		return nil
	}
	return &grabbitv1.Hold{
		Player:    h.Player,
		Kind:      string(h.Kind),
		StartedAt: h.StartedAt,
		Deadline:  h.Deadline,
	}
}

func outcomeToProto(o ActionOutcome) *grabbitv1.ActionOutcome {
	return &grabbitv1.ActionOutcome{
		Kind:        string(o.Kind),
		Player:      o.Player,
		Remaining:   int32(o.Remaining),
		Hold:        holdToProto(o.Hold),
		Displaced:   o.Displaced,
		Interrupted: o.Interrupted,
	}
}

func receiptToProto(r ClaimReceipt) *grabbitv1.ClaimReceipt {
	out := &grabbitv1.ClaimReceipt{
		SessionId: r.SessionID.String(),
		Winner:    r.Winner,
		Amount:    r.Amount,
		Reference: r.Reference,
		ClaimedAt: r.ClaimedAt,
	}
	if r.Tx != nil {
		out.Tx = *r.Tx
	}
	return out
}

func settingsToProto(s models.GameSettings) grabbitv1.GameSettings {
	return grabbitv1.GameSettings{
		PlayersMin:          int32(s.PlayersMin),
		PlayersMax:          int32(s.PlayersMax),
		FreeGrabs:           int32(s.FreeGrabs),
		FreeSlaps:           int32(s.FreeSlaps),
		FreeSneaks:          int32(s.FreeSneaks),
		GrabHoldSec:         int32(s.GrabHoldSec),
		SneakHoldSec:        int32(s.SneakHoldSec),
		CountdownSec:        int32(s.CountdownSec),
		DurationSec:         int32(s.DurationSec),
		PrizeLamports:       s.PrizeLamports,
		ActionPriceLamports: s.ActionPriceLamports,
	}
}

func protoToSettings(s *grabbitv1.GameSettings) models.GameSettings {
	return models.GameSettings{
		PlayersMin:          int(s.PlayersMin),
		PlayersMax:          int(s.PlayersMax),
		FreeGrabs:           int(s.FreeGrabs),
		FreeSlaps:           int(s.FreeSlaps),
		FreeSneaks:          int(s.FreeSneaks),
		GrabHoldSec:         int(s.GrabHoldSec),
		SneakHoldSec:        int(s.SneakHoldSec),
		CountdownSec:        int(s.CountdownSec),
		DurationSec:         int(s.DurationSec),
		PrizeLamports:       s.PrizeLamports,
		ActionPriceLamports: s.ActionPriceLamports,
	}
}
