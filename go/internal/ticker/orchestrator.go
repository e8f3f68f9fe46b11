// Package ticker drives the clock of running game sessions. Every replica
// tracks the open sessions, but only the replica elected for a session calls
// RefreshSession for it, waking at the session's next deadline.
package ticker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	grabbitv1 "github.com/mcdev12/arena/go/internal/api/grabbit/v1"
	"github.com/mcdev12/arena/go/internal/game"
	"github.com/mcdev12/arena/go/internal/gameerr"
	"github.com/mcdev12/arena/go/internal/leader"
	"github.com/mcdev12/arena/go/internal/models"
)

// SessionClient is the part of the grabbit API the ticker calls.
type SessionClient interface {
	ListOpenSessions(ctx context.Context, req *connect.Request[grabbitv1.ListOpenSessionsRequest]) (*connect.Response[grabbitv1.ListOpenSessionsResponse], error)
	RefreshSession(ctx context.Context, req *connect.Request[grabbitv1.RefreshSessionRequest]) (*connect.Response[grabbitv1.RefreshSessionResponse], error)
}

type Config struct {
	HolderKey          string
	HeartbeatInterval  time.Duration
	StaleThreshold     time.Duration
	ResyncInterval     time.Duration // how often the open session list is re-read
	MaxRefreshInterval time.Duration // upper bound between refreshes of a led session
	MinRefreshInterval time.Duration // floor for deadlines already in the past
	RetryBackoff       time.Duration // wait after a failed refresh
	ListLimit          int32
}

func DefaultConfig() Config {
	return Config{
		HeartbeatInterval:  leader.DefaultHeartbeatInterval,
		StaleThreshold:     leader.DefaultStaleThreshold,
		ResyncInterval:     10 * time.Second,
		MaxRefreshInterval: 5 * time.Second,
		MinRefreshInterval: 250 * time.Millisecond,
		RetryBackoff:       time.Second,
		ListLimit:          500,
	}
}

// LeaderID is the election scope of one session.
func LeaderID(sessionID uuid.UUID) string {
	return "session:" + sessionID.String()
}

// Orchestrator runs one elector per open session.
type Orchestrator struct {
	client        SessionClient
	store         leader.Store
	feed          leader.Feed
	clock         clockwork.Clock
	leaderMetrics *leader.Metrics
	metrics       *Metrics
	cfg           Config

	mu       sync.Mutex
	sessions map[uuid.UUID]*sessionRunner
	finished chan uuid.UUID
}

type sessionRunner struct {
	id          uuid.UUID
	elector     *leader.Elector
	cancel      context.CancelFunc
	done        chan struct{}
	unsubscribe func()

	// touched only by the poll goroutine, which never runs twice at once
	lastVersion  int64
	lastDeadline *time.Time
}

// NewOrchestrator returns an orchestrator. leaderMetrics and metrics may be nil.
func NewOrchestrator(client SessionClient, store leader.Store, feed leader.Feed, clock clockwork.Clock, leaderMetrics *leader.Metrics, metrics *Metrics, cfg Config) (*Orchestrator, error) {
	if cfg.HolderKey == "" {
		return nil, fmt.Errorf("holder key is required")
	}
	def := DefaultConfig()
	if cfg.ResyncInterval <= 0 {
		cfg.ResyncInterval = def.ResyncInterval
	}
	if cfg.MaxRefreshInterval <= 0 {
		cfg.MaxRefreshInterval = def.MaxRefreshInterval
	}
	if cfg.MinRefreshInterval <= 0 {
		cfg.MinRefreshInterval = def.MinRefreshInterval
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = def.RetryBackoff
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = def.ListLimit
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Orchestrator{
		client:        client,
		store:         store,
		feed:          feed,
		clock:         clock,
		leaderMetrics: leaderMetrics,
		metrics:       metrics,
		cfg:           cfg,
		sessions:      make(map[uuid.UUID]*sessionRunner),
		finished:      make(chan uuid.UUID, 64),
	}, nil
}

// Run resyncs the open sessions every ResyncInterval until ctx is done, then
// stops every elector it started.
func (o *Orchestrator) Run(ctx context.Context) error {
	log.Info().
		Str("holder", o.cfg.HolderKey).
		Dur("resync_interval", o.cfg.ResyncInterval).
		Msg("ticker orchestrator starting")
	defer o.stopAll()

	ticker := o.clock.NewTicker(o.cfg.ResyncInterval)
	defer ticker.Stop()

	for {
		o.resync(ctx)
	wait:
		for {
			select {
			case <-ctx.Done():
				log.Info().Str("holder", o.cfg.HolderKey).Msg("ticker orchestrator shutting down")
				return nil
			case <-ticker.Chan():
				break wait
			case id := <-o.finished:
				o.stopSession(id)
				o.metrics.setTracked(o.Tracked())
			}
		}
	}
}

// Tracked returns how many sessions currently have an elector.
func (o *Orchestrator) Tracked() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.sessions)
}

// resync starts electors for newly opened sessions and stops those whose
// session is no longer listed.
func (o *Orchestrator) resync(ctx context.Context) {
	resp, err := o.client.ListOpenSessions(ctx, connect.NewRequest(&grabbitv1.ListOpenSessionsRequest{Limit: o.cfg.ListLimit}))
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Err(err).Msg("failed to list open sessions")
		}
		return
	}
	if !resp.Msg.Success {
		log.Warn().Str("code", resp.Msg.Code).Str("message", resp.Msg.Message).Msg("list open sessions rejected")
		return
	}

	open := make(map[uuid.UUID]struct{}, len(resp.Msg.Sessions))
	for _, s := range resp.Msg.Sessions {
		// ended sessions stay listed until their prize is paid; no clock left to drive
		if models.GameStatus(s.Status) == models.GameStatusEnded {
			continue
		}
		id, err := uuid.Parse(s.Id)
		if err != nil {
			log.Warn().Err(err).Str("session_id", s.Id).Msg("skipping session with invalid id")
			continue
		}
		open[id] = struct{}{}
	}

	o.mu.Lock()
	var stale []uuid.UUID
	for id := range o.sessions {
		if _, ok := open[id]; !ok {
			stale = append(stale, id)
		}
	}
	o.mu.Unlock()

	for _, id := range stale {
		o.stopSession(id)
	}
	for id := range open {
		if err := o.startSession(ctx, id); err != nil {
			log.Error().Err(err).Str("session_id", id.String()).Msg("failed to start session elector")
		}
	}
	o.metrics.setTracked(o.Tracked())
}

func (o *Orchestrator) startSession(ctx context.Context, id uuid.UUID) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.sessions[id]; ok {
		return nil
	}

	r := &sessionRunner{id: id, done: make(chan struct{})}
	elector, err := leader.NewElector(leader.Config{
		LeaderID:          LeaderID(id),
		HolderKey:         o.cfg.HolderKey,
		HeartbeatInterval: o.cfg.HeartbeatInterval,
		StaleThreshold:    o.cfg.StaleThreshold,
	}, o.store, o.clock, o.drive(r), o.leaderMetrics)
	if err != nil {
		return err
	}
	r.elector = elector

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.unsubscribe = o.feed.Subscribe(elector.LeaderID(), elector.OnLeaderChanged)
	go func() {
		defer close(r.done)
		_ = elector.Run(runCtx)
	}()

	o.sessions[id] = r
	log.Debug().Str("session_id", id.String()).Str("holder", o.cfg.HolderKey).Msg("tracking session")
	return nil
}

func (o *Orchestrator) stopSession(id uuid.UUID) {
	o.mu.Lock()
	r, ok := o.sessions[id]
	delete(o.sessions, id)
	o.mu.Unlock()
	if !ok {
		return
	}
	r.unsubscribe()
	r.cancel()
	<-r.done
	log.Debug().Str("session_id", id.String()).Msg("stopped tracking session")
}

func (o *Orchestrator) stopAll() {
	o.mu.Lock()
	ids := make([]uuid.UUID, 0, len(o.sessions))
	for id := range o.sessions {
		ids = append(ids, id)
	}
	o.mu.Unlock()
	for _, id := range ids {
		o.stopSession(id)
	}
	o.metrics.setTracked(0)
}

// drive is the poll loop of a led session: refresh now, then again at the
// next deadline, until leadership is lost or the session ends.
func (o *Orchestrator) drive(r *sessionRunner) leader.PollFunc {
	return func(ctx context.Context) {
		log.Info().Str("session_id", r.id.String()).Str("holder", o.cfg.HolderKey).Msg("driving session clock")

		var timer clockwork.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			wait, ended := o.refresh(ctx, r)
			if ended {
				select {
				case o.finished <- r.id:
				default:
				}
				return
			}

			if timer == nil {
				timer = o.clock.NewTimer(wait)
			} else {
				timer.Reset(wait)
			}
			select {
			case <-ctx.Done():
				return
			case <-timer.Chan():
			}
		}
	}
}

// refresh calls RefreshSession once and returns how long to wait before the
// next call, or ended when there is nothing left to drive.
func (o *Orchestrator) refresh(ctx context.Context, r *sessionRunner) (time.Duration, bool) {
	resp, err := o.client.RefreshSession(ctx, connect.NewRequest(&grabbitv1.RefreshSessionRequest{SessionId: r.id.String()}))
	if err != nil {
		if ctx.Err() == nil {
			o.metrics.refreshed("error")
			log.Warn().Err(err).Str("session_id", r.id.String()).Msg("refresh session failed")
		}
		return o.cfg.RetryBackoff, false
	}

	msg := resp.Msg
	if !msg.Success {
		if msg.Code == gameerr.CodeOf(game.ErrSessionNotFound) {
			o.metrics.refreshed("not_found")
			return 0, true
		}
		o.metrics.refreshed("rejected")
		log.Warn().
			Str("session_id", r.id.String()).
			Str("code", msg.Code).
			Str("message", msg.Message).
			Msg("refresh session rejected")
		return o.cfg.MaxRefreshInterval, false
	}
	if msg.Session == nil {
		o.metrics.refreshed("rejected")
		return o.cfg.MaxRefreshInterval, false
	}

	s := msg.Session
	if s.Version < r.lastVersion {
		o.metrics.refreshed("stale")
		log.Debug().
			Str("session_id", r.id.String()).
			Int64("version", s.Version).
			Int64("last_version", r.lastVersion).
			Msg("discarding out of date refresh")
		return o.untilDeadline(r.lastDeadline), false
	}
	o.metrics.refreshed("ok")
	r.lastVersion = s.Version
	r.lastDeadline = s.NextDeadline

	if models.GameStatus(s.Status) == models.GameStatusEnded {
		log.Info().
			Str("session_id", r.id.String()).
			Str("winner", s.Winner).
			Msg("session ended, clock no longer driven")
		return 0, true
	}
	return o.untilDeadline(s.NextDeadline), false
}

func (o *Orchestrator) untilDeadline(deadline *time.Time) time.Duration {
	if deadline == nil {
		return o.cfg.MaxRefreshInterval
	}
	wait := deadline.Sub(o.clock.Now())
	if wait < o.cfg.MinRefreshInterval {
		return o.cfg.MinRefreshInterval
	}
	if wait > o.cfg.MaxRefreshInterval {
		return o.cfg.MaxRefreshInterval
	}
	return wait
}
