// Package leader elects one replica per scope to drive polling of a shared
// resource, using a lease stored in a shared record.
//
// A holder keeps the lease by heartbeating every HeartbeatInterval. Any
// replica may take over a record whose last heartbeat is StaleThreshold old.
// Two replicas can briefly both believe they lead after a takeover; the
// only consequence is duplicate polling until the next heartbeat or change
// notification demotes the old holder.
package leader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/arena/go/internal/gameerr"
	"github.com/mcdev12/arena/go/internal/models"
)

const (
	DefaultHeartbeatInterval = time.Second
	DefaultStaleThreshold    = 3 * time.Second
)

// ErrThresholdTooLow is returned when the staleness threshold leaves less
// than two heartbeats of margin.
var ErrThresholdTooLow = errors.New("stale threshold must be at least twice the heartbeat interval")

// PollFunc runs while the elector holds leadership. ctx is cancelled when
// leadership is lost or the elector stops. It must not call back into the
// elector that runs it.
type PollFunc func(ctx context.Context)

type Config struct {
	LeaderID          string
	HolderKey         string
	HeartbeatInterval time.Duration
	StaleThreshold    time.Duration
}

// Elector is one replica's view of one leader scope.
type Elector struct {
	cfg     Config
	store   Store
	clock   clockwork.Clock
	poll    PollFunc
	metrics *Metrics

	isLeader atomic.Bool

	mu         sync.Mutex
	baseCtx    context.Context
	pollCancel context.CancelFunc
	pollDone   chan struct{}
}

// NewElector validates cfg and returns an elector that starts as a follower.
// poll and metrics may be nil.
func NewElector(cfg Config, store Store, clock clockwork.Clock, poll PollFunc, metrics *Metrics) (*Elector, error) {
	if cfg.LeaderID == "" || cfg.HolderKey == "" {
		return nil, fmt.Errorf("leader id and holder key are required")
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.StaleThreshold == 0 {
		cfg.StaleThreshold = DefaultStaleThreshold
	}
	if cfg.HeartbeatInterval < 0 || cfg.StaleThreshold < 2*cfg.HeartbeatInterval {
		return nil, fmt.Errorf("%w: heartbeat %s, threshold %s", ErrThresholdTooLow, cfg.HeartbeatInterval, cfg.StaleThreshold)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Elector{
		cfg:     cfg,
		store:   store,
		clock:   clock,
		poll:    poll,
		metrics: metrics,
		baseCtx: context.Background(),
	}, nil
}

// IsLeader reports the local belief that this replica holds the lease.
func (e *Elector) IsLeader() bool {
	return e.isLeader.Load()
}

// LeaderID returns the scope this elector competes for.
func (e *Elector) LeaderID() string {
	return e.cfg.LeaderID
}

// TryBecomeLeader attempts to take the lease. Losing a race is not an
// error; it returns false.
func (e *Elector) TryBecomeLeader(ctx context.Context) (bool, error) {
	now := e.clock.Now()

	rec, err := e.store.Get(ctx, e.cfg.LeaderID)
	if err != nil {
		e.metrics.storeError("get")
		return false, gameerr.Transport("read leader record", err)
	}

	if rec == nil {
		err := e.store.Insert(ctx, models.LeaderRecord{
			LeaderID:     e.cfg.LeaderID,
			HolderKey:    e.cfg.HolderKey,
			LastActiveAt: now,
		})
		if errors.Is(err, ErrRecordExists) {
			return false, nil
		}
		if err != nil {
			e.metrics.storeError("insert")
			return false, gameerr.Transport("insert leader record", err)
		}
		e.promote()
		return true, nil
	}

	if rec.HolderKey == e.cfg.HolderKey {
		touched, err := e.store.Touch(ctx, e.cfg.LeaderID, e.cfg.HolderKey, now)
		if err != nil {
			e.metrics.storeError("touch")
			return false, gameerr.Transport("touch leader record", err)
		}
		if touched {
			e.promote()
		}
		return touched, nil
	}

	if !rec.IsStale(now, e.cfg.StaleThreshold) {
		e.demote()
		return false, nil
	}

	claimed, err := e.store.ClaimIfStale(ctx, e.cfg.LeaderID, e.cfg.HolderKey, now, now.Add(-e.cfg.StaleThreshold))
	if err != nil {
		e.metrics.storeError("claim")
		return false, gameerr.Transport("claim leader record", err)
	}
	if claimed {
		log.Info().
			Str("leader_id", e.cfg.LeaderID).
			Str("holder", e.cfg.HolderKey).
			Str("previous", rec.HolderKey).
			Msg("took over stale leadership")
		e.promote()
	}
	return claimed, nil
}

// SendHeartbeat renews the lease. It does nothing unless this replica
// believes it leads; a heartbeat that no longer matches the record demotes.
func (e *Elector) SendHeartbeat(ctx context.Context) error {
	if !e.IsLeader() {
		return nil
	}
	touched, err := e.store.Touch(ctx, e.cfg.LeaderID, e.cfg.HolderKey, e.clock.Now())
	if err != nil {
		e.metrics.storeError("touch")
		return gameerr.Transport("heartbeat", err)
	}
	if !touched {
		log.Info().
			Str("leader_id", e.cfg.LeaderID).
			Str("holder", e.cfg.HolderKey).
			Msg("heartbeat matched no record, stepping down")
		e.demote()
	}
	return nil
}

// OnLeaderChanged applies a pushed holder change.
func (e *Elector) OnLeaderChanged(n Notification) {
	if n.LeaderID != e.cfg.LeaderID {
		return
	}
	if n.HolderKey == e.cfg.HolderKey {
		e.promote()
		return
	}
	e.demote()
}

// Run heartbeats while leading and competes for the lease otherwise, once
// per heartbeat interval, until ctx is done. Store errors are logged and
// retried on the next tick.
func (e *Elector) Run(ctx context.Context) error {
	e.mu.Lock()
	e.baseCtx = ctx
	e.mu.Unlock()
	defer e.demote()

	ticker := e.clock.NewTicker(e.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		e.tick(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
		}
	}
}

func (e *Elector) tick(ctx context.Context) {
	var err error
	if e.IsLeader() {
		err = e.SendHeartbeat(ctx)
	} else {
		_, err = e.TryBecomeLeader(ctx)
	}
	if err != nil && ctx.Err() == nil {
		log.Warn().
			Err(err).
			Str("leader_id", e.cfg.LeaderID).
			Str("holder", e.cfg.HolderKey).
			Msg("leader election tick failed")
	}
}

func (e *Elector) promote() {
	if !e.isLeader.Swap(true) {
		e.metrics.setLeader(e.cfg.LeaderID, true)
		log.Debug().Str("leader_id", e.cfg.LeaderID).Str("holder", e.cfg.HolderKey).Msg("became leader")
	}
	e.startPolling()
}

func (e *Elector) demote() {
	if e.isLeader.Swap(false) {
		e.metrics.setLeader(e.cfg.LeaderID, false)
		log.Debug().Str("leader_id", e.cfg.LeaderID).Str("holder", e.cfg.HolderKey).Msg("lost leadership")
	}
	e.stopPolling()
}

func (e *Elector) startPolling() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.poll == nil || e.pollCancel != nil || e.baseCtx.Err() != nil {
		return
	}
	ctx, cancel := context.WithCancel(e.baseCtx)
	done := make(chan struct{})
	e.pollCancel = cancel
	e.pollDone = done
	go func() {
		defer close(done)
		e.poll(ctx)
	}()
}

// stopPolling cancels the running poll and waits for it to return.
func (e *Elector) stopPolling() {
	e.mu.Lock()
	cancel, done := e.pollCancel, e.pollDone
	e.pollCancel, e.pollDone = nil, nil
	e.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
