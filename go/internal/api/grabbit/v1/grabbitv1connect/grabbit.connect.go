// Package grabbitv1connect wires arena.grabbit.v1.GrabbitService to
// connect handlers and clients using the JSON codec.
package grabbitv1connect

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	v1 "github.com/mcdev12/arena/go/internal/api/grabbit/v1"
	"github.com/mcdev12/arena/go/internal/connectjson"
)

// GrabbitServiceName is the fully-qualified name of the GrabbitService service.
const GrabbitServiceName = "arena.grabbit.v1.GrabbitService"

const (
	GrabbitServiceCreateGameProcedure       = "/arena.grabbit.v1.GrabbitService/CreateGame"
	GrabbitServiceGetSessionProcedure       = "/arena.grabbit.v1.GrabbitService/GetSession"
	GrabbitServiceListOpenSessionsProcedure = "/arena.grabbit.v1.GrabbitService/ListOpenSessions"
	GrabbitServiceJoinProcedure             = "/arena.grabbit.v1.GrabbitService/Join"
	GrabbitServiceGrabProcedure             = "/arena.grabbit.v1.GrabbitService/Grab"
	GrabbitServiceSlapProcedure             = "/arena.grabbit.v1.GrabbitService/Slap"
	GrabbitServiceSneakProcedure            = "/arena.grabbit.v1.GrabbitService/Sneak"
	GrabbitServiceRefreshSessionProcedure   = "/arena.grabbit.v1.GrabbitService/RefreshSession"
	GrabbitServicePurchaseActionsProcedure  = "/arena.grabbit.v1.GrabbitService/PurchaseActions"
	GrabbitServiceClaimPrizeProcedure       = "/arena.grabbit.v1.GrabbitService/ClaimPrize"
	GrabbitServiceRetryPayoutProcedure      = "/arena.grabbit.v1.GrabbitService/RetryPayout"
)

// GrabbitServiceClient is a client for the arena.grabbit.v1.GrabbitService service.
type GrabbitServiceClient interface {
	CreateGame(context.Context, *connect.Request[v1.CreateGameRequest]) (*connect.Response[v1.CreateGameResponse], error)
	GetSession(context.Context, *connect.Request[v1.GetSessionRequest]) (*connect.Response[v1.GetSessionResponse], error)
	ListOpenSessions(context.Context, *connect.Request[v1.ListOpenSessionsRequest]) (*connect.Response[v1.ListOpenSessionsResponse], error)
	Join(context.Context, *connect.Request[v1.JoinRequest]) (*connect.Response[v1.JoinResponse], error)
	Grab(context.Context, *connect.Request[v1.ActionRequest]) (*connect.Response[v1.ActionResponse], error)
	Slap(context.Context, *connect.Request[v1.ActionRequest]) (*connect.Response[v1.ActionResponse], error)
	Sneak(context.Context, *connect.Request[v1.ActionRequest]) (*connect.Response[v1.ActionResponse], error)
	RefreshSession(context.Context, *connect.Request[v1.RefreshSessionRequest]) (*connect.Response[v1.RefreshSessionResponse], error)
	PurchaseActions(context.Context, *connect.Request[v1.PurchaseActionsRequest]) (*connect.Response[v1.PurchaseActionsResponse], error)
	ClaimPrize(context.Context, *connect.Request[v1.ClaimPrizeRequest]) (*connect.Response[v1.ClaimPrizeResponse], error)
	RetryPayout(context.Context, *connect.Request[v1.RetryPayoutRequest]) (*connect.Response[v1.ClaimPrizeResponse], error)
}

// NewGrabbitServiceClient constructs a client for the arena.grabbit.v1.GrabbitService
// service. The JSON codec is always registered.
func NewGrabbitServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) GrabbitServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connectjson.WithCodec()}, opts...)
	return &grabbitServiceClient{
		createGame:       connect.NewClient[v1.CreateGameRequest, v1.CreateGameResponse](httpClient, baseURL+GrabbitServiceCreateGameProcedure, opts...),
		getSession:       connect.NewClient[v1.GetSessionRequest, v1.GetSessionResponse](httpClient, baseURL+GrabbitServiceGetSessionProcedure, opts...),
		listOpenSessions: connect.NewClient[v1.ListOpenSessionsRequest, v1.ListOpenSessionsResponse](httpClient, baseURL+GrabbitServiceListOpenSessionsProcedure, opts...),
		join:             connect.NewClient[v1.JoinRequest, v1.JoinResponse](httpClient, baseURL+GrabbitServiceJoinProcedure, opts...),
		grab:             connect.NewClient[v1.ActionRequest, v1.ActionResponse](httpClient, baseURL+GrabbitServiceGrabProcedure, opts...),
		slap:             connect.NewClient[v1.ActionRequest, v1.ActionResponse](httpClient, baseURL+GrabbitServiceSlapProcedure, opts...),
		sneak:            connect.NewClient[v1.ActionRequest, v1.ActionResponse](httpClient, baseURL+GrabbitServiceSneakProcedure, opts...),
		refreshSession:   connect.NewClient[v1.RefreshSessionRequest, v1.RefreshSessionResponse](httpClient, baseURL+GrabbitServiceRefreshSessionProcedure, opts...),
		purchaseActions:  connect.NewClient[v1.PurchaseActionsRequest, v1.PurchaseActionsResponse](httpClient, baseURL+GrabbitServicePurchaseActionsProcedure, opts...),
		claimPrize:       connect.NewClient[v1.ClaimPrizeRequest, v1.ClaimPrizeResponse](httpClient, baseURL+GrabbitServiceClaimPrizeProcedure, opts...),
		retryPayout:      connect.NewClient[v1.RetryPayoutRequest, v1.ClaimPrizeResponse](httpClient, baseURL+GrabbitServiceRetryPayoutProcedure, opts...),
	}
}

type grabbitServiceClient struct {
	createGame       *connect.Client[v1.CreateGameRequest, v1.CreateGameResponse]
	getSession       *connect.Client[v1.GetSessionRequest, v1.GetSessionResponse]
	listOpenSessions *connect.Client[v1.ListOpenSessionsRequest, v1.ListOpenSessionsResponse]
	join             *connect.Client[v1.JoinRequest, v1.JoinResponse]
	grab             *connect.Client[v1.ActionRequest, v1.ActionResponse]
	slap             *connect.Client[v1.ActionRequest, v1.ActionResponse]
	sneak            *connect.Client[v1.ActionRequest, v1.ActionResponse]
	refreshSession   *connect.Client[v1.RefreshSessionRequest, v1.RefreshSessionResponse]
	purchaseActions  *connect.Client[v1.PurchaseActionsRequest, v1.PurchaseActionsResponse]
	claimPrize       *connect.Client[v1.ClaimPrizeRequest, v1.ClaimPrizeResponse]
	retryPayout      *connect.Client[v1.RetryPayoutRequest, v1.ClaimPrizeResponse]
}

func (c *grabbitServiceClient) CreateGame(ctx context.Context, req *connect.Request[v1.CreateGameRequest]) (*connect.Response[v1.CreateGameResponse], error) {
	return c.createGame.CallUnary(ctx, req)
}

func (c *grabbitServiceClient) GetSession(ctx context.Context, req *connect.Request[v1.GetSessionRequest]) (*connect.Response[v1.GetSessionResponse], error) {
	return c.getSession.CallUnary(ctx, req)
}

func (c *grabbitServiceClient) ListOpenSessions(ctx context.Context, req *connect.Request[v1.ListOpenSessionsRequest]) (*connect.Response[v1.ListOpenSessionsResponse], error) {
	return c.listOpenSessions.CallUnary(ctx, req)
}

func (c *grabbitServiceClient) Join(ctx context.Context, req *connect.Request[v1.JoinRequest]) (*connect.Response[v1.JoinResponse], error) {
	return c.join.CallUnary(ctx, req)
}

func (c *grabbitServiceClient) Grab(ctx context.Context, req *connect.Request[v1.ActionRequest]) (*connect.Response[v1.ActionResponse], error) {
	return c.grab.CallUnary(ctx, req)
}

func (c *grabbitServiceClient) Slap(ctx context.Context, req *connect.Request[v1.ActionRequest]) (*connect.Response[v1.ActionResponse], error) {
	return c.slap.CallUnary(ctx, req)
}

func (c *grabbitServiceClient) Sneak(ctx context.Context, req *connect.Request[v1.ActionRequest]) (*connect.Response[v1.ActionResponse], error) {
	return c.sneak.CallUnary(ctx, req)
}

func (c *grabbitServiceClient) RefreshSession(ctx context.Context, req *connect.Request[v1.RefreshSessionRequest]) (*connect.Response[v1.RefreshSessionResponse], error) {
	return c.refreshSession.CallUnary(ctx, req)
}

func (c *grabbitServiceClient) PurchaseActions(ctx context.Context, req *connect.Request[v1.PurchaseActionsRequest]) (*connect.Response[v1.PurchaseActionsResponse], error) {
	return c.purchaseActions.CallUnary(ctx, req)
}

func (c *grabbitServiceClient) ClaimPrize(ctx context.Context, req *connect.Request[v1.ClaimPrizeRequest]) (*connect.Response[v1.ClaimPrizeResponse], error) {
	return c.claimPrize.CallUnary(ctx, req)
}

func (c *grabbitServiceClient) RetryPayout(ctx context.Context, req *connect.Request[v1.RetryPayoutRequest]) (*connect.Response[v1.ClaimPrizeResponse], error) {
	return c.retryPayout.CallUnary(ctx, req)
}

// GrabbitServiceHandler is an implementation of the arena.grabbit.v1.GrabbitService service.
type GrabbitServiceHandler interface {
	CreateGame(context.Context, *connect.Request[v1.CreateGameRequest]) (*connect.Response[v1.CreateGameResponse], error)
	GetSession(context.Context, *connect.Request[v1.GetSessionRequest]) (*connect.Response[v1.GetSessionResponse], error)
	ListOpenSessions(context.Context, *connect.Request[v1.ListOpenSessionsRequest]) (*connect.Response[v1.ListOpenSessionsResponse], error)
	Join(context.Context, *connect.Request[v1.JoinRequest]) (*connect.Response[v1.JoinResponse], error)
	Grab(context.Context, *connect.Request[v1.ActionRequest]) (*connect.Response[v1.ActionResponse], error)
	Slap(context.Context, *connect.Request[v1.ActionRequest]) (*connect.Response[v1.ActionResponse], error)
	Sneak(context.Context, *connect.Request[v1.ActionRequest]) (*connect.Response[v1.ActionResponse], error)
	RefreshSession(context.Context, *connect.Request[v1.RefreshSessionRequest]) (*connect.Response[v1.RefreshSessionResponse], error)
	PurchaseActions(context.Context, *connect.Request[v1.PurchaseActionsRequest]) (*connect.Response[v1.PurchaseActionsResponse], error)
	ClaimPrize(context.Context, *connect.Request[v1.ClaimPrizeRequest]) (*connect.Response[v1.ClaimPrizeResponse], error)
	RetryPayout(context.Context, *connect.Request[v1.RetryPayoutRequest]) (*connect.Response[v1.ClaimPrizeResponse], error)
}

// NewGrabbitServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewGrabbitServiceHandler(svc GrabbitServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connectjson.WithCodec()}, opts...)
	createGame := connect.NewUnaryHandler(GrabbitServiceCreateGameProcedure, svc.CreateGame, opts...)
	getSession := connect.NewUnaryHandler(GrabbitServiceGetSessionProcedure, svc.GetSession, opts...)
	listOpenSessions := connect.NewUnaryHandler(GrabbitServiceListOpenSessionsProcedure, svc.ListOpenSessions, opts...)
	join := connect.NewUnaryHandler(GrabbitServiceJoinProcedure, svc.Join, opts...)
	grab := connect.NewUnaryHandler(GrabbitServiceGrabProcedure, svc.Grab, opts...)
	slap := connect.NewUnaryHandler(GrabbitServiceSlapProcedure, svc.Slap, opts...)
	sneak := connect.NewUnaryHandler(GrabbitServiceSneakProcedure, svc.Sneak, opts...)
	refreshSession := connect.NewUnaryHandler(GrabbitServiceRefreshSessionProcedure, svc.RefreshSession, opts...)
	purchaseActions := connect.NewUnaryHandler(GrabbitServicePurchaseActionsProcedure, svc.PurchaseActions, opts...)
	claimPrize := connect.NewUnaryHandler(GrabbitServiceClaimPrizeProcedure, svc.ClaimPrize, opts...)
	retryPayout := connect.NewUnaryHandler(GrabbitServiceRetryPayoutProcedure, svc.RetryPayout, opts...)
	return "/arena.grabbit.v1.GrabbitService/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case GrabbitServiceCreateGameProcedure:
			createGame.ServeHTTP(w, r)
		case GrabbitServiceGetSessionProcedure:
			getSession.ServeHTTP(w, r)
		case GrabbitServiceListOpenSessionsProcedure:
			listOpenSessions.ServeHTTP(w, r)
		case GrabbitServiceJoinProcedure:
			join.ServeHTTP(w, r)
		case GrabbitServiceGrabProcedure:
			grab.ServeHTTP(w, r)
		case GrabbitServiceSlapProcedure:
			slap.ServeHTTP(w, r)
		case GrabbitServiceSneakProcedure:
			sneak.ServeHTTP(w, r)
		case GrabbitServiceRefreshSessionProcedure:
			refreshSession.ServeHTTP(w, r)
		case GrabbitServicePurchaseActionsProcedure:
			purchaseActions.ServeHTTP(w, r)
		case GrabbitServiceClaimPrizeProcedure:
			claimPrize.ServeHTTP(w, r)
		case GrabbitServiceRetryPayoutProcedure:
			retryPayout.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// UnimplementedGrabbitServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedGrabbitServiceHandler struct{}

func (UnimplementedGrabbitServiceHandler) CreateGame(context.Context, *connect.Request[v1.CreateGameRequest]) (*connect.Response[v1.CreateGameResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("arena.grabbit.v1.GrabbitService.CreateGame is not implemented"))
}

func (UnimplementedGrabbitServiceHandler) GetSession(context.Context, *connect.Request[v1.GetSessionRequest]) (*connect.Response[v1.GetSessionResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("arena.grabbit.v1.GrabbitService.GetSession is not implemented"))
}

func (UnimplementedGrabbitServiceHandler) ListOpenSessions(context.Context, *connect.Request[v1.ListOpenSessionsRequest]) (*connect.Response[v1.ListOpenSessionsResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("arena.grabbit.v1.GrabbitService.ListOpenSessions is not implemented"))
}

func (UnimplementedGrabbitServiceHandler) Join(context.Context, *connect.Request[v1.JoinRequest]) (*connect.Response[v1.JoinResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("arena.grabbit.v1.GrabbitService.Join is not implemented"))
}

func (UnimplementedGrabbitServiceHandler) Grab(context.Context, *connect.Request[v1.ActionRequest]) (*connect.Response[v1.ActionResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("arena.grabbit.v1.GrabbitService.Grab is not implemented"))
}

func (UnimplementedGrabbitServiceHandler) Slap(context.Context, *connect.Request[v1.ActionRequest]) (*connect.Response[v1.ActionResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("arena.grabbit.v1.GrabbitService.Slap is not implemented"))
}

func (UnimplementedGrabbitServiceHandler) Sneak(context.Context, *connect.Request[v1.ActionRequest]) (*connect.Response[v1.ActionResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("arena.grabbit.v1.GrabbitService.Sneak is not implemented"))
}

func (UnimplementedGrabbitServiceHandler) RefreshSession(context.Context, *connect.Request[v1.RefreshSessionRequest]) (*connect.Response[v1.RefreshSessionResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("arena.grabbit.v1.GrabbitService.RefreshSession is not implemented"))
}

func (UnimplementedGrabbitServiceHandler) PurchaseActions(context.Context, *connect.Request[v1.PurchaseActionsRequest]) (*connect.Response[v1.PurchaseActionsResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("arena.grabbit.v1.GrabbitService.PurchaseActions is not implemented"))
}

func (UnimplementedGrabbitServiceHandler) ClaimPrize(context.Context, *connect.Request[v1.ClaimPrizeRequest]) (*connect.Response[v1.ClaimPrizeResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("arena.grabbit.v1.GrabbitService.ClaimPrize is not implemented"))
}

func (UnimplementedGrabbitServiceHandler) RetryPayout(context.Context, *connect.Request[v1.RetryPayoutRequest]) (*connect.Response[v1.ClaimPrizeResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("arena.grabbit.v1.GrabbitService.RetryPayout is not implemented"))
}
