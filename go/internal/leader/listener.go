package leader

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

type ListenerConfig struct {
	DatabaseURL      string        // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel    string        // Channel the leader_records trigger notifies on
	FallbackInterval time.Duration // How often to re-read records in case a notification was missed
	PingInterval     time.Duration
}

func DefaultListenerConfig() ListenerConfig {
	return ListenerConfig{
		NotifyChannel:    "leader_changes",
		FallbackInterval: 5 * time.Second,
		PingInterval:     90 * time.Second,
	}
}

// Listener is a Feed backed by Postgres LISTEN/NOTIFY on leader_records.
type Listener struct {
	store    Store
	listener *pq.Listener
	subs     *subscribers
	cfg      ListenerConfig
}

var _ Feed = (*Listener)(nil)

func NewListener(store Store, cfg ListenerConfig) (*Listener, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("leader listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().
		Str("channel", cfg.NotifyChannel).
		Msg("listening for leader changes")

	return &Listener{
		store:    store,
		listener: l,
		subs:     newSubscribers(),
		cfg:      cfg,
	}, nil
}

func (l *Listener) Subscribe(leaderID string, fn func(Notification)) func() {
	return l.subs.add(leaderID, fn)
}

// Start dispatches notifications until ctx is done.
func (l *Listener) Start(ctx context.Context) error {
	pingTicker := time.NewTicker(l.cfg.PingInterval)
	fallbackTicker := time.NewTicker(l.cfg.FallbackInterval)
	defer pingTicker.Stop()
	defer fallbackTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("leader listener shutting down")
			return l.listener.Close()
		case note := <-l.listener.Notify:
			if note == nil {
				// connection was re-established, notifications may have been lost
				l.resync(ctx)
				continue
			}
			var n Notification
			if err := json.Unmarshal([]byte(note.Extra), &n); err != nil {
				log.Error().Err(err).Str("payload", note.Extra).Msg("invalid leader notification")
				continue
			}
			l.subs.publish(n)
		case <-fallbackTicker.C:
			l.resync(ctx)
		case <-pingTicker.C:
			if err := l.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping leader listener")
			}
		}
	}
}

// resync re-reads every subscribed record and republishes its holder.
func (l *Listener) resync(ctx context.Context) {
	for _, id := range l.subs.leaderIDs() {
		rec, err := l.store.Get(ctx, id)
		if err != nil {
			log.Warn().Err(err).Str("leader_id", id).Msg("failed to re-read leader record")
			continue
		}
		if rec == nil {
			continue
		}
		l.subs.publish(Notification{LeaderID: rec.LeaderID, HolderKey: rec.HolderKey})
	}
}
