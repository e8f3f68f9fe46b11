package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Service fans session events out to WebSocket clients and serves session
// snapshots over REST
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	eventConsumer     *EventConsumer
	stateHandler      *StateHandler
}

type Config struct {
	ConnectionConfig ConnectionConfig
	JetStreamConfig  JetStreamConsumerConfig
	StateCache       StateCacheConfig
}

func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		JetStreamConfig:  DefaultJetStreamConsumerConfig(),
		StateCache:       DefaultStateCacheConfig(),
	}
}

func NewService(ctx context.Context, config Config, stateProvider StateProvider) (*Service, error) {
	connectionManager := NewConnectionManager(config.ConnectionConfig)
	stateHandler := NewStateHandler(stateProvider, config.StateCache)

	eventConsumer, err := NewEventConsumer(ctx, connectionManager, stateHandler.Invalidate, config.JetStreamConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create event consumer: %w", err)
	}

	return &Service{
		connectionManager: connectionManager,
		wsHandler:         NewWebSocketHandler(connectionManager),
		eventConsumer:     eventConsumer,
		stateHandler:      stateHandler,
	}, nil
}

// Start runs the connection manager and the event consumer until ctx is
// done or the consumer fails.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting session gateway")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.connectionManager.Start(gctx)
		return nil
	})
	g.Go(func() error {
		return s.eventConsumer.Start(gctx)
	})
	err := g.Wait()

	if stopErr := s.eventConsumer.Stop(); stopErr != nil {
		log.Error().Err(stopErr).Msg("failed to stop event consumer")
	}
	return err
}

func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
}

func (s *Service) GetStats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}

// NATSConn exposes the consumer's connection for health checks.
func (s *Service) NATSConn() *nats.Conn {
	return s.eventConsumer.Conn()
}
