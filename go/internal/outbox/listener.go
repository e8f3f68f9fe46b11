package outbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

type ListenerConfig struct {
	DatabaseURL      string        // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel    string        // Channel name to LISTEN on
	FallbackInterval time.Duration // How often to poll for missed events
	MaxRetries       int
	RetryDelay       time.Duration
	PingInterval     time.Duration
	BatchSize        int32 // Max events to fetch per batch
}

func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		NotifyChannel:    "game_outbox_events",
		FallbackInterval: 30 * time.Second,
		MaxRetries:       5,
		RetryDelay:       200 * time.Millisecond,
		PingInterval:     90 * time.Second,
		BatchSize:        100,
	}
}

// EventStore is what the listener needs from the outbox table.
type EventStore interface {
	FetchUnsentOutbox(ctx context.Context, limit int32) ([]OutboxEvent, error)
	FetchOutboxByID(ctx context.Context, id uuid.UUID) (*OutboxEvent, error)
	MarkOutboxSent(ctx context.Context, id uuid.UUID) error
	CountPendingOutbox(ctx context.Context) (int64, error)
}

type Listener struct {
	store     EventStore
	listener  *pq.Listener
	publisher EventPublisher
	metrics   MetricsCollector
	cfg       ListenerConfig

	// mu serialises notifications and sweeps. backlog is set while an
	// earlier event failed to publish; notifications then go through the
	// ordered sweep instead of relaying their row directly.
	mu      sync.Mutex
	backlog bool

	running   atomic.Bool
	processed atomic.Uint64
	lastEvent atomic.Int64
}

func NewListener(store EventStore, publisher EventPublisher, metrics MetricsCollector, cfg ListenerConfig) (*Listener, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("listening for notifications")

	return newListener(store, l, publisher, metrics, cfg), nil
}

func newListener(store EventStore, pl *pq.Listener, publisher EventPublisher, metrics MetricsCollector, cfg ListenerConfig) *Listener {
	if metrics == nil {
		metrics = &NoOpMetricsCollector{}
	}
	return &Listener{
		store:     store,
		listener:  pl,
		publisher: NewMetricPublisher(publisher, metrics),
		metrics:   metrics,
		cfg:       cfg,
	}
}

func (l *Listener) Start(ctx context.Context) error {
	log.Info().
		Str("channel", l.cfg.NotifyChannel).
		Dur("ping_interval", l.cfg.PingInterval).
		Dur("fallback_interval", l.cfg.FallbackInterval).
		Msg("listener started")

	l.running.Store(true)
	defer l.running.Store(false)

	pingTicker := time.NewTicker(l.cfg.PingInterval)
	fallbackTicker := time.NewTicker(l.cfg.FallbackInterval)
	defer pingTicker.Stop()
	defer fallbackTicker.Stop()

	// rows written while the relay was down
	if err := l.processUnsent(ctx); err != nil {
		log.Error().Err(err).Msg("failed to process unsent events")
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("listener shutting down")
			return l.Stop()
		case note := <-l.listener.Notify:
			if note == nil {
				// connection was re-established, sweep for anything missed
				if err := l.processUnsent(ctx); err != nil {
					log.Error().Err(err).Msg("failed to process unsent events")
				}
				continue
			}
			if err := l.handleNotification(ctx, note.Extra); err != nil {
				log.Error().Err(err).Msg("failed to handle notification")
			}
		case <-fallbackTicker.C:
			if err := l.processUnsent(ctx); err != nil {
				log.Error().Err(err).Msg("failed to process unsent events")
			}
		case <-pingTicker.C:
			if err := l.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

func (l *Listener) Stop() error {
	if l.listener == nil {
		return nil
	}
	return l.listener.Close()
}

// Running reports whether Start is looping.
func (l *Listener) Running() bool {
	return l.running.Load()
}

// Stats returns the number of events relayed and when the last one was.
func (l *Listener) Stats() (uint64, time.Time) {
	last := l.lastEvent.Load()
	if last == 0 {
		return l.processed.Load(), time.Time{}
	}
	return l.processed.Load(), time.Unix(0, last)
}

// handleNotification relays the outbox row named by a NOTIFY payload.
func (l *Listener) handleNotification(ctx context.Context, extra string) error {
	id, err := uuid.Parse(extra)
	if err != nil {
		return fmt.Errorf("invalid event ID in notification: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.backlog {
		return l.sweep(ctx)
	}

	event, err := l.store.FetchOutboxByID(ctx, id)
	if errors.Is(err, ErrEventNotFound) {
		// already relayed by a sweep
		return nil
	}
	if err != nil {
		return err
	}
	if err := l.relay(ctx, *event); err != nil {
		l.backlog = true
		return err
	}
	return nil
}

// processUnsent relays unsent events oldest first.
func (l *Listener) processUnsent(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sweep(ctx)
}

// sweep must be called with mu held. It stops at the first event that cannot
// be published so later events of the same session do not overtake it.
func (l *Listener) sweep(ctx context.Context) error {
	start := time.Now()
	unsent, err := l.store.FetchUnsentOutbox(ctx, l.cfg.BatchSize)
	if err != nil {
		return err
	}

	relayed := 0
	l.backlog = false
	for _, event := range unsent {
		if err := l.relay(ctx, event); err != nil {
			log.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to relay event")
			l.backlog = true
			break
		}
		relayed++
	}
	l.metrics.RecordBatchProcessed(relayed, time.Since(start))

	if pending, err := l.store.CountPendingOutbox(ctx); err == nil {
		l.metrics.RecordOutboxLag(int(pending))
	}
	return nil
}

func (l *Listener) relay(ctx context.Context, event OutboxEvent) error {
	if err := l.publishWithRetry(ctx, event); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	if err := l.store.MarkOutboxSent(ctx, event.ID); err != nil {
		return err
	}

	l.processed.Add(1)
	l.lastEvent.Store(time.Now().UnixNano())
	log.Debug().
		Str("event_id", event.ID.String()).
		Str("event_type", event.EventType).
		Msg("published and marked event as sent")
	return nil
}

// publishWithRetry publishes with a linearly growing delay between attempts.
func (l *Listener) publishWithRetry(ctx context.Context, event OutboxEvent) error {
	attempts := l.cfg.MaxRetries + 1
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(l.cfg.RetryDelay * time.Duration(attempt-1)):
			}
		}

		err = l.publisher.Publish(ctx, event)
		l.metrics.RecordPublishAttempt(event.EventType, attempt, err == nil)
		if err == nil {
			if attempt > 1 {
				log.Info().Int("attempt", attempt).Str("event_id", event.ID.String()).Msg("publish succeeded after retry")
			}
			return nil
		}
		log.Warn().Err(err).Int("attempt", attempt).Str("event_id", event.ID.String()).Msg("publish failed")
	}
	return fmt.Errorf("publish failed after %d attempts: %w", attempts, err)
}
