// Package arcadev1connect wires arena.arcade.v1.ArcadeService to connect
// handlers and clients using the JSON codec.
package arcadev1connect

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	v1 "github.com/mcdev12/arena/go/internal/api/arcade/v1"
	"github.com/mcdev12/arena/go/internal/connectjson"
)

// ArcadeServiceName is the fully-qualified name of the ArcadeService service.
const ArcadeServiceName = "arena.arcade.v1.ArcadeService"

const (
	ArcadeServiceStartSessionProcedure   = "/arena.arcade.v1.ArcadeService/StartSession"
	ArcadeServiceEndSessionProcedure     = "/arena.arcade.v1.ArcadeService/EndSession"
	ArcadeServiceGetLeaderboardProcedure = "/arena.arcade.v1.ArcadeService/GetLeaderboard"
)

// ArcadeServiceClient is a client for the arena.arcade.v1.ArcadeService service.
type ArcadeServiceClient interface {
	StartSession(context.Context, *connect.Request[v1.StartSessionRequest]) (*connect.Response[v1.StartSessionResponse], error)
	EndSession(context.Context, *connect.Request[v1.EndSessionRequest]) (*connect.Response[v1.EndSessionResponse], error)
	GetLeaderboard(context.Context, *connect.Request[v1.GetLeaderboardRequest]) (*connect.Response[v1.GetLeaderboardResponse], error)
}

// NewArcadeServiceClient constructs a client for the arena.arcade.v1.ArcadeService service.
func NewArcadeServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) ArcadeServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connectjson.WithCodec()}, opts...)
	return &arcadeServiceClient{
		startSession:   connect.NewClient[v1.StartSessionRequest, v1.StartSessionResponse](httpClient, baseURL+ArcadeServiceStartSessionProcedure, opts...),
		endSession:     connect.NewClient[v1.EndSessionRequest, v1.EndSessionResponse](httpClient, baseURL+ArcadeServiceEndSessionProcedure, opts...),
		getLeaderboard: connect.NewClient[v1.GetLeaderboardRequest, v1.GetLeaderboardResponse](httpClient, baseURL+ArcadeServiceGetLeaderboardProcedure, opts...),
	}
}

type arcadeServiceClient struct {
	startSession   *connect.Client[v1.StartSessionRequest, v1.StartSessionResponse]
	endSession     *connect.Client[v1.EndSessionRequest, v1.EndSessionResponse]
	getLeaderboard *connect.Client[v1.GetLeaderboardRequest, v1.GetLeaderboardResponse]
}

func (c *arcadeServiceClient) StartSession(ctx context.Context, req *connect.Request[v1.StartSessionRequest]) (*connect.Response[v1.StartSessionResponse], error) {
	return c.startSession.CallUnary(ctx, req)
}

func (c *arcadeServiceClient) EndSession(ctx context.Context, req *connect.Request[v1.EndSessionRequest]) (*connect.Response[v1.EndSessionResponse], error) {
	return c.endSession.CallUnary(ctx, req)
}

func (c *arcadeServiceClient) GetLeaderboard(ctx context.Context, req *connect.Request[v1.GetLeaderboardRequest]) (*connect.Response[v1.GetLeaderboardResponse], error) {
	return c.getLeaderboard.CallUnary(ctx, req)
}

// ArcadeServiceHandler is an implementation of the arena.arcade.v1.ArcadeService service.
type ArcadeServiceHandler interface {
	StartSession(context.Context, *connect.Request[v1.StartSessionRequest]) (*connect.Response[v1.StartSessionResponse], error)
	EndSession(context.Context, *connect.Request[v1.EndSessionRequest]) (*connect.Response[v1.EndSessionResponse], error)
	GetLeaderboard(context.Context, *connect.Request[v1.GetLeaderboardRequest]) (*connect.Response[v1.GetLeaderboardResponse], error)
}

// NewArcadeServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewArcadeServiceHandler(svc ArcadeServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connectjson.WithCodec()}, opts...)
	startSession := connect.NewUnaryHandler(ArcadeServiceStartSessionProcedure, svc.StartSession, opts...)
	endSession := connect.NewUnaryHandler(ArcadeServiceEndSessionProcedure, svc.EndSession, opts...)
	getLeaderboard := connect.NewUnaryHandler(ArcadeServiceGetLeaderboardProcedure, svc.GetLeaderboard, opts...)
	return "/arena.arcade.v1.ArcadeService/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case ArcadeServiceStartSessionProcedure:
			startSession.ServeHTTP(w, r)
		case ArcadeServiceEndSessionProcedure:
			endSession.ServeHTTP(w, r)
		case ArcadeServiceGetLeaderboardProcedure:
			getLeaderboard.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// UnimplementedArcadeServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedArcadeServiceHandler struct{}

func (UnimplementedArcadeServiceHandler) StartSession(context.Context, *connect.Request[v1.StartSessionRequest]) (*connect.Response[v1.StartSessionResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("arena.arcade.v1.ArcadeService.StartSession is not implemented"))
}

func (UnimplementedArcadeServiceHandler) EndSession(context.Context, *connect.Request[v1.EndSessionRequest]) (*connect.Response[v1.EndSessionResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("arena.arcade.v1.ArcadeService.EndSession is not implemented"))
}

func (UnimplementedArcadeServiceHandler) GetLeaderboard(context.Context, *connect.Request[v1.GetLeaderboardRequest]) (*connect.Response[v1.GetLeaderboardResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("arena.arcade.v1.ArcadeService.GetLeaderboard is not implemented"))
}
