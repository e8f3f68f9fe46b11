package leader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/arena/go/internal/gameerr"
	"github.com/mcdev12/arena/go/internal/models"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

const testLeaderID = "session:test"

func newTestElector(t *testing.T, store Store, clock clockwork.Clock, holder string, poll PollFunc) *Elector {
	t.Helper()
	e, err := NewElector(Config{LeaderID: testLeaderID, HolderKey: holder}, store, clock, poll, nil)
	require.NoError(t, err)
	return e
}

func TestNewElectorValidation(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name: "defaults",
			cfg:  Config{LeaderID: "a", HolderKey: "h"},
		},
		{
			name: "exactly twice the heartbeat",
			cfg:  Config{LeaderID: "a", HolderKey: "h", HeartbeatInterval: time.Second, StaleThreshold: 2 * time.Second},
		},
		{
			name:    "threshold below twice the heartbeat",
			cfg:     Config{LeaderID: "a", HolderKey: "h", HeartbeatInterval: time.Second, StaleThreshold: 1500 * time.Millisecond},
			wantErr: ErrThresholdTooLow,
		},
		{
			name:    "missing holder key",
			cfg:     Config{LeaderID: "a"},
			wantErr: errors.New("leader id and holder key are required"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewElector(tc.cfg, NewMemoryStore(), clockwork.NewFakeClockAt(t0), nil, nil)
			if tc.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			if errors.Is(tc.wantErr, ErrThresholdTooLow) {
				assert.ErrorIs(t, err, ErrThresholdTooLow)
			}
		})
	}
}

func TestSameTickOneWinner(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	clock := clockwork.NewFakeClockAt(t0)

	const n = 8
	electors := make([]*Elector, n)
	for i := range electors {
		electors[i] = newTestElector(t, store, clock, fmt.Sprintf("replica-%d", i), nil)
	}

	var wg sync.WaitGroup
	var wins atomic.Int32
	for _, e := range electors {
		wg.Add(1)
		go func(e *Elector) {
			defer wg.Done()
			won, err := e.TryBecomeLeader(ctx)
			assert.NoError(t, err)
			if won {
				wins.Add(1)
			}
		}(e)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	leaders := 0
	for _, e := range electors {
		if e.IsLeader() {
			leaders++
		}
	}
	assert.Equal(t, 1, leaders)
}

func TestFreshHolderIsNotReplaced(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	clock := clockwork.NewFakeClockAt(t0)
	a := newTestElector(t, store, clock, "a", nil)
	b := newTestElector(t, store, clock, "b", nil)

	won, err := a.TryBecomeLeader(ctx)
	require.NoError(t, err)
	require.True(t, won)

	clock.Advance(2999 * time.Millisecond)
	won, err = b.TryBecomeLeader(ctx)
	require.NoError(t, err)
	assert.False(t, won)
	assert.True(t, a.IsLeader())
}

func TestStaleHolderIsTakenOver(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	clock := clockwork.NewFakeClockAt(t0)
	a := newTestElector(t, store, clock, "a", nil)
	b := newTestElector(t, store, clock, "b", nil)
	store.Subscribe(testLeaderID, a.OnLeaderChanged)

	_, err := a.TryBecomeLeader(ctx)
	require.NoError(t, err)

	clock.Advance(DefaultStaleThreshold)
	won, err := b.TryBecomeLeader(ctx)
	require.NoError(t, err)
	assert.True(t, won)
	assert.True(t, b.IsLeader())
	// The takeover notification demoted a.
	assert.False(t, a.IsLeader())

	rec, err := store.Get(ctx, testLeaderID)
	require.NoError(t, err)
	assert.Equal(t, "b", rec.HolderKey)
	assert.Equal(t, clock.Now(), rec.LastActiveAt)
}

func TestHeartbeatKeepsLeadership(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	clock := clockwork.NewFakeClockAt(t0)
	a := newTestElector(t, store, clock, "a", nil)
	b := newTestElector(t, store, clock, "b", nil)

	_, err := a.TryBecomeLeader(ctx)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		clock.Advance(DefaultHeartbeatInterval)
		require.NoError(t, a.SendHeartbeat(ctx))
		won, err := b.TryBecomeLeader(ctx)
		require.NoError(t, err)
		require.False(t, won)
	}
	assert.True(t, a.IsLeader())
}

func TestHeartbeatIsNoOpForFollower(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	clock := clockwork.NewFakeClockAt(t0)
	a := newTestElector(t, store, clock, "a", nil)

	require.NoError(t, a.SendHeartbeat(ctx))
	rec, err := store.Get(ctx, testLeaderID)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestHeartbeatAfterTakeoverDemotes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	clock := clockwork.NewFakeClockAt(t0)
	a := newTestElector(t, store, clock, "a", nil)
	b := newTestElector(t, store, clock, "b", nil)

	_, err := a.TryBecomeLeader(ctx)
	require.NoError(t, err)
	clock.Advance(5 * time.Second)
	won, err := b.TryBecomeLeader(ctx)
	require.NoError(t, err)
	require.True(t, won)

	// a missed the notification and still believes it leads.
	require.True(t, a.IsLeader())
	require.NoError(t, a.SendHeartbeat(ctx))
	assert.False(t, a.IsLeader())
}

func TestOnLeaderChanged(t *testing.T) {
	store := NewMemoryStore()
	clock := clockwork.NewFakeClockAt(t0)

	var polling atomic.Int32
	poll := func(ctx context.Context) {
		polling.Add(1)
		<-ctx.Done()
		polling.Add(-1)
	}
	a := newTestElector(t, store, clock, "a", poll)

	a.OnLeaderChanged(Notification{LeaderID: testLeaderID, HolderKey: "a"})
	assert.True(t, a.IsLeader())
	require.Eventually(t, func() bool { return polling.Load() == 1 }, time.Second, time.Millisecond)

	// A repeat notification does not start a second poller.
	a.OnLeaderChanged(Notification{LeaderID: testLeaderID, HolderKey: "a"})
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), polling.Load())

	// Notifications for other scopes are ignored.
	a.OnLeaderChanged(Notification{LeaderID: "session:other", HolderKey: "b"})
	assert.True(t, a.IsLeader())

	a.OnLeaderChanged(Notification{LeaderID: testLeaderID, HolderKey: "b"})
	assert.False(t, a.IsLeader())
	// demote waits for the poller to return
	assert.Equal(t, int32(0), polling.Load())
}

func TestEventualMutualExclusion(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	clock := clockwork.NewFakeClockAt(t0)

	const n = 5
	electors := make([]*Elector, n)
	for i := range electors {
		electors[i] = newTestElector(t, store, clock, fmt.Sprintf("replica-%d", i), nil)
		store.Subscribe(testLeaderID, electors[i].OnLeaderChanged)
	}

	tick := func(e *Elector) {
		if e.IsLeader() {
			assert.NoError(t, e.SendHeartbeat(ctx))
			return
		}
		_, err := e.TryBecomeLeader(ctx)
		assert.NoError(t, err)
	}

	// Replicas tick at staggered offsets; the current leader crashes every
	// 20s and comes back 10s later.
	var crashed *Elector
	crashedAt := time.Time{}
	for step := 0; step < 600; step++ {
		clock.Advance(100 * time.Millisecond)
		elapsed := clock.Since(t0)

		if step > 0 && step%200 == 0 {
			for _, e := range electors {
				if e.IsLeader() {
					crashed = e
					crashedAt = clock.Now()
					break
				}
			}
		}
		if crashed != nil && clock.Since(crashedAt) >= 10*time.Second {
			crashed = nil
		}

		for i, e := range electors {
			if e == crashed {
				continue
			}
			if step%10 == i*2 {
				tick(e)
			}
		}

		if elapsed <= DefaultStaleThreshold {
			continue
		}
		leaders := 0
		for _, e := range electors {
			if e != crashed && e.IsLeader() {
				leaders++
			}
		}
		require.LessOrEqual(t, leaders, 1, "more than one live leader at %s", elapsed)
	}
}

type failingStore struct {
	MemoryStore
}

func (*failingStore) Get(context.Context, string) (*models.LeaderRecord, error) {
	return nil, errors.New("connection refused")
}

func TestStoreErrorsAreTransport(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	e, err := NewElector(Config{LeaderID: testLeaderID, HolderKey: "a"}, &failingStore{}, clockwork.NewFakeClockAt(t0), nil, metrics)
	require.NoError(t, err)

	won, err := e.TryBecomeLeader(context.Background())
	assert.False(t, won)
	require.Error(t, err)
	assert.Equal(t, gameerr.KindTransport, gameerr.KindOf(err))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.storeErrors.WithLabelValues("get")))
}

func TestRunElectsAndStepsDownOnShutdown(t *testing.T) {
	store := NewMemoryStore()
	clock := clockwork.NewFakeClockAt(t0)

	var polls atomic.Int32
	e := newTestElector(t, store, clock, "a", func(ctx context.Context) {
		polls.Add(1)
		<-ctx.Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	require.Eventually(t, e.IsLeader, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return polls.Load() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(DefaultHeartbeatInterval)
	require.Eventually(t, func() bool {
		rec, _ := store.Get(context.Background(), testLeaderID)
		return rec != nil && rec.LastActiveAt.Equal(t0.Add(DefaultHeartbeatInterval))
	}, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.False(t, e.IsLeader())
}
