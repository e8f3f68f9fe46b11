package ticker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	grabbitv1 "github.com/mcdev12/arena/go/internal/api/grabbit/v1"
	"github.com/mcdev12/arena/go/internal/leader"
	"github.com/mcdev12/arena/go/internal/models"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeClient struct {
	mu      sync.Mutex
	open    []*grabbitv1.Session
	respond func(sessionID string, call int) (*grabbitv1.RefreshSessionResponse, error)
	calls   map[string]int
}

func newFakeClient(respond func(string, int) (*grabbitv1.RefreshSessionResponse, error), open ...*grabbitv1.Session) *fakeClient {
	return &fakeClient{open: open, respond: respond, calls: make(map[string]int)}
}

func (f *fakeClient) ListOpenSessions(context.Context, *connect.Request[grabbitv1.ListOpenSessionsRequest]) (*connect.Response[grabbitv1.ListOpenSessionsResponse], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sessions := append([]*grabbitv1.Session(nil), f.open...)
	return connect.NewResponse(&grabbitv1.ListOpenSessionsResponse{
		Status:   grabbitv1.Status{Success: true},
		Sessions: sessions,
	}), nil
}

func (f *fakeClient) RefreshSession(_ context.Context, req *connect.Request[grabbitv1.RefreshSessionRequest]) (*connect.Response[grabbitv1.RefreshSessionResponse], error) {
	f.mu.Lock()
	f.calls[req.Msg.SessionId]++
	call := f.calls[req.Msg.SessionId]
	f.mu.Unlock()

	resp, err := f.respond(req.Msg.SessionId, call)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

func (f *fakeClient) setOpen(open ...*grabbitv1.Session) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = open
}

func (f *fakeClient) refreshCalls(sessionID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[sessionID.String()]
}

func session(id uuid.UUID, status models.GameStatus, version int64, deadline *time.Time) *grabbitv1.Session {
	return &grabbitv1.Session{
		Id:           id.String(),
		GameId:       "classic",
		Status:       int32(status),
		NextDeadline: deadline,
		Version:      version,
	}
}

func refreshed(s *grabbitv1.Session) *grabbitv1.RefreshSessionResponse {
	return &grabbitv1.RefreshSessionResponse{Status: grabbitv1.Status{Success: true}, Session: s}
}

func at(d time.Duration) *time.Time {
	t := t0.Add(d)
	return &t
}

func testConfig(holder string) Config {
	cfg := DefaultConfig()
	cfg.HolderKey = holder
	cfg.ResyncInterval = time.Hour
	return cfg
}

func newTestOrchestrator(t *testing.T, client SessionClient, store *leader.MemoryStore, clock clockwork.Clock, holder string, metrics *Metrics) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(client, store, store, clock, nil, metrics, testConfig(holder))
	require.NoError(t, err)
	return o
}

func TestNewOrchestratorRequiresHolder(t *testing.T) {
	store := leader.NewMemoryStore()
	_, err := NewOrchestrator(newFakeClient(nil), store, store, nil, nil, nil, Config{})
	require.Error(t, err)
}

func TestUntilDeadline(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	o := newTestOrchestrator(t, newFakeClient(nil), leader.NewMemoryStore(), clock, "a", nil)

	testCases := []struct {
		name     string
		deadline *time.Time
		want     time.Duration
	}{
		{name: "no deadline", deadline: nil, want: o.cfg.MaxRefreshInterval},
		{name: "within bound", deadline: at(3 * time.Second), want: 3 * time.Second},
		{name: "beyond bound", deadline: at(time.Hour), want: o.cfg.MaxRefreshInterval},
		{name: "already passed", deadline: at(-time.Second), want: o.cfg.MinRefreshInterval},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, o.untilDeadline(tc.deadline))
		})
	}
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(t0)
	id := uuid.New()

	responses := []func() (*grabbitv1.RefreshSessionResponse, error){
		func() (*grabbitv1.RefreshSessionResponse, error) {
			return refreshed(session(id, models.GameStatusActive, 2, at(3*time.Second))), nil
		},
		// an older snapshot claiming the session ended must not stop the clock
		func() (*grabbitv1.RefreshSessionResponse, error) {
			return refreshed(session(id, models.GameStatusEnded, 1, nil)), nil
		},
		func() (*grabbitv1.RefreshSessionResponse, error) {
			return nil, connect.NewError(connect.CodeUnavailable, errors.New("dial tcp: connection refused"))
		},
		func() (*grabbitv1.RefreshSessionResponse, error) {
			return &grabbitv1.RefreshSessionResponse{Status: grabbitv1.Status{Code: "VERSION_CONFLICT", Message: "retry"}}, nil
		},
		func() (*grabbitv1.RefreshSessionResponse, error) {
			return refreshed(session(id, models.GameStatusEnded, 3, nil)), nil
		},
	}
	client := newFakeClient(func(_ string, call int) (*grabbitv1.RefreshSessionResponse, error) {
		return responses[call-1]()
	})

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	o := newTestOrchestrator(t, client, leader.NewMemoryStore(), clock, "a", metrics)
	r := &sessionRunner{id: id}

	wait, ended := o.refresh(ctx, r)
	assert.False(t, ended)
	assert.Equal(t, 3*time.Second, wait)
	assert.Equal(t, int64(2), r.lastVersion)

	clock.Advance(time.Second)
	wait, ended = o.refresh(ctx, r)
	assert.False(t, ended)
	assert.Equal(t, 2*time.Second, wait, "stale snapshot keeps the previous deadline")
	assert.Equal(t, int64(2), r.lastVersion)

	wait, ended = o.refresh(ctx, r)
	assert.False(t, ended)
	assert.Equal(t, o.cfg.RetryBackoff, wait)

	wait, ended = o.refresh(ctx, r)
	assert.False(t, ended)
	assert.Equal(t, o.cfg.MaxRefreshInterval, wait)

	_, ended = o.refresh(ctx, r)
	assert.True(t, ended)
	assert.Equal(t, int64(3), r.lastVersion)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.refreshes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.refreshes.WithLabelValues("stale")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.refreshes.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.refreshes.WithLabelValues("rejected")))
}

func TestRefreshUnknownSessionEnds(t *testing.T) {
	client := newFakeClient(func(string, int) (*grabbitv1.RefreshSessionResponse, error) {
		return &grabbitv1.RefreshSessionResponse{Status: grabbitv1.Status{Code: "SESSION_NOT_FOUND", Message: "game session not found"}}, nil
	})
	o := newTestOrchestrator(t, client, leader.NewMemoryStore(), clockwork.NewFakeClockAt(t0), "a", nil)

	_, ended := o.refresh(context.Background(), &sessionRunner{id: uuid.New()})
	assert.True(t, ended)
}

func TestOnlyLeaderDrives(t *testing.T) {
	store := leader.NewMemoryStore()
	clock := clockwork.NewFakeClockAt(t0)
	id := uuid.New()
	active := session(id, models.GameStatusActive, 1, at(time.Hour))
	respond := func(string, int) (*grabbitv1.RefreshSessionResponse, error) {
		return refreshed(active), nil
	}

	ca := newFakeClient(respond, active)
	cb := newFakeClient(respond, active)
	a := newTestOrchestrator(t, ca, store, clock, "replica-a", nil)
	b := newTestOrchestrator(t, cb, store, clock, "replica-b", nil)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	run := func(o *Orchestrator) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, o.Run(ctx))
		}()
	}

	run(a)
	require.Eventually(t, func() bool { return ca.refreshCalls(id) == 1 }, time.Second, time.Millisecond)

	run(b)
	require.Eventually(t, func() bool { return b.Tracked() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, cb.refreshCalls(id))
	assert.Equal(t, 1, ca.refreshCalls(id))

	rec, err := store.Get(context.Background(), LeaderID(id))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "replica-a", rec.HolderKey)

	cancel()
	wg.Wait()
	assert.Equal(t, 0, a.Tracked())
	assert.Equal(t, 0, b.Tracked())
}

func TestEndedSessionIsReleased(t *testing.T) {
	store := leader.NewMemoryStore()
	clock := clockwork.NewFakeClockAt(t0)
	id := uuid.New()
	client := newFakeClient(func(string, int) (*grabbitv1.RefreshSessionResponse, error) {
		return refreshed(session(id, models.GameStatusEnded, 7, nil)), nil
	}, session(id, models.GameStatusActive, 6, at(time.Second)))
	o := newTestOrchestrator(t, client, store, clock, "a", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- o.Run(ctx) }()

	require.Eventually(t, func() bool { return client.refreshCalls(id) == 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return o.Tracked() == 0 }, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 1, client.refreshCalls(id))
}

func TestResyncFollowsOpenSessions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := leader.NewMemoryStore()
	clock := clockwork.NewFakeClockAt(t0)

	running, waiting, ended := uuid.New(), uuid.New(), uuid.New()
	client := newFakeClient(func(id string, _ int) (*grabbitv1.RefreshSessionResponse, error) {
		return refreshed(session(uuid.MustParse(id), models.GameStatusActive, 1, at(time.Hour))), nil
	},
		session(running, models.GameStatusActive, 1, at(time.Hour)),
		session(waiting, models.GameStatusCreated, 1, nil),
		session(ended, models.GameStatusEnded, 9, nil),
	)
	o := newTestOrchestrator(t, client, store, clock, "a", nil)
	defer o.stopAll()

	o.resync(ctx)
	assert.Equal(t, 2, o.Tracked(), "ended sessions have no clock to drive")

	o.resync(ctx)
	assert.Equal(t, 2, o.Tracked(), "resync does not start a second elector")

	client.setOpen(session(running, models.GameStatusActive, 2, at(time.Hour)))
	o.resync(ctx)
	assert.Equal(t, 1, o.Tracked())

	client.setOpen()
	o.resync(ctx)
	assert.Equal(t, 0, o.Tracked())
}
