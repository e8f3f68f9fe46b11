package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu     sync.Mutex
	events map[uuid.UUID]OutboxEvent
	sent   map[uuid.UUID]bool
}

func newMemoryStore(events ...OutboxEvent) *memoryStore {
	s := &memoryStore{events: make(map[uuid.UUID]OutboxEvent), sent: make(map[uuid.UUID]bool)}
	for _, e := range events {
		s.events[e.ID] = e
	}
	return s
}

func (s *memoryStore) FetchUnsentOutbox(_ context.Context, limit int32) ([]OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []OutboxEvent
	for id, e := range s.events {
		if !s.sent[id] {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if int(limit) < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryStore) FetchOutboxByID(_ context.Context, id uuid.UUID) (*OutboxEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok || s.sent[id] {
		return nil, ErrEventNotFound
	}
	return &e, nil
}

func (s *memoryStore) MarkOutboxSent(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[id] = true
	return nil
}

func (s *memoryStore) CountPendingOutbox(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.events) - len(s.sent)), nil
}

type recordingPublisher struct {
	mu        sync.Mutex
	published []OutboxEvent
	failFor   map[uuid.UUID]int // remaining failures per event
}

func (p *recordingPublisher) Publish(_ context.Context, event OutboxEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failFor[event.ID] != 0 {
		if p.failFor[event.ID] > 0 {
			p.failFor[event.ID]--
		}
		return errors.New("nats: timeout")
	}
	p.published = append(p.published, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.published))
	for i, e := range p.published {
		out[i] = e.EventType
	}
	return out
}

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func event(eventType string, offset time.Duration) OutboxEvent {
	return OutboxEvent{
		ID:        uuid.New(),
		SessionID: uuid.New(),
		EventType: eventType,
		Payload:   json.RawMessage(`{}`),
		CreatedAt: base.Add(offset),
	}
}

func testConfig() ListenerConfig {
	cfg := DefaultListenerConfig()
	cfg.RetryDelay = time.Millisecond
	cfg.MaxRetries = 2
	return cfg
}

func TestListener_HandleNotification(t *testing.T) {
	ctx := context.Background()
	e := event("PlayerJoined", 0)
	store := newMemoryStore(e)
	pub := &recordingPublisher{}
	l := newListener(store, nil, pub, nil, testConfig())

	require.NoError(t, l.handleNotification(ctx, e.ID.String()))
	assert.Equal(t, []string{"PlayerJoined"}, pub.types())
	assert.True(t, store.sent[e.ID])

	// a second notification for a relayed row is a no-op
	require.NoError(t, l.handleNotification(ctx, e.ID.String()))
	assert.Len(t, pub.types(), 1)

	require.Error(t, l.handleNotification(ctx, "not-a-uuid"))

	processed, last := l.Stats()
	assert.Equal(t, uint64(1), processed)
	assert.False(t, last.IsZero())
}

func TestListener_RetriesThenSucceeds(t *testing.T) {
	e := event("ActionApplied", 0)
	store := newMemoryStore(e)
	pub := &recordingPublisher{failFor: map[uuid.UUID]int{e.ID: 2}}
	reg := prometheus.NewRegistry()
	metrics := NewPrometheusMetrics(reg)
	l := newListener(store, nil, pub, metrics, testConfig())

	require.NoError(t, l.handleNotification(context.Background(), e.ID.String()))
	assert.True(t, store.sent[e.ID])
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.publishAttempts.WithLabelValues("ActionApplied", "3", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.eventCounter.WithLabelValues("ActionApplied", "failure")))
}

func TestListener_GivesUpAfterMaxRetries(t *testing.T) {
	e := event("ActionApplied", 0)
	store := newMemoryStore(e)
	pub := &recordingPublisher{failFor: map[uuid.UUID]int{e.ID: -1}}
	l := newListener(store, nil, pub, nil, testConfig())

	err := l.handleNotification(context.Background(), e.ID.String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.False(t, store.sent[e.ID])
}

func TestListener_ProcessUnsentKeepsOrder(t *testing.T) {
	first := event("SessionCreated", 0)
	second := event("PlayerJoined", time.Second)
	third := event("SessionStarted", 2*time.Second)
	store := newMemoryStore(third, first, second)
	pub := &recordingPublisher{failFor: map[uuid.UUID]int{second.ID: -1}}
	l := newListener(store, nil, pub, nil, testConfig())

	require.NoError(t, l.processUnsent(context.Background()))
	// the sweep stops at the stuck event
	assert.Equal(t, []string{"SessionCreated"}, pub.types())
	assert.False(t, store.sent[third.ID])

	delete(pub.failFor, second.ID)
	require.NoError(t, l.processUnsent(context.Background()))
	assert.Equal(t, []string{"SessionCreated", "PlayerJoined", "SessionStarted"}, pub.types())
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

func TestHealthChecker(t *testing.T) {
	store := newMemoryStore(event("PlayerJoined", 0))
	l := newListener(store, nil, &recordingPublisher{}, nil, testConfig())

	h := NewHealthChecker(l, fakePinger{}, nil, time.Minute)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	// Start has not been called
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var status HealthStatus
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&status))
	assert.True(t, status.DatabaseConnected)
	assert.False(t, status.ListenerActive)
	assert.Equal(t, int64(1), status.PendingEvents)

	l.running.Store(true)
	status = h.Check(context.Background())
	assert.True(t, status.Healthy)

	h = NewHealthChecker(l, fakePinger{err: errors.New("refused")}, nil, time.Minute)
	status = h.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.False(t, status.DatabaseConnected)
}

func TestNewEnvelope(t *testing.T) {
	e := event("PrizeClaimed", 0)
	env := NewEnvelope(e)
	assert.Equal(t, e.ID.String(), env.EventID)
	assert.Equal(t, e.SessionID.String(), env.SessionID)
	assert.Equal(t, base, env.Timestamp)
	assert.Equal(t, "game.events.PrizeClaimed", DefaultJetStreamConfig().Subject(e.EventType))
}

func TestListener_NotificationWaitsForStuckEvent(t *testing.T) {
	ctx := context.Background()
	stuck := event("PlayerJoined", 0)
	later := event("ActionApplied", time.Second)
	store := newMemoryStore(stuck)
	pub := &recordingPublisher{failFor: map[uuid.UUID]int{stuck.ID: -1}}
	l := newListener(store, nil, pub, nil, testConfig())

	require.Error(t, l.handleNotification(ctx, stuck.ID.String()))

	// the later row must not overtake the stuck one
	store.mu.Lock()
	store.events[later.ID] = later
	store.mu.Unlock()
	require.NoError(t, l.handleNotification(ctx, later.ID.String()))
	assert.Empty(t, pub.types())
	assert.False(t, store.sent[later.ID])

	delete(pub.failFor, stuck.ID)
	require.NoError(t, l.handleNotification(ctx, later.ID.String()))
	assert.Equal(t, []string{"PlayerJoined", "ActionApplied"}, pub.types())
}
