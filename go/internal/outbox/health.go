package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
)

// HealthStatus is the body served on /health.
type HealthStatus struct {
	Healthy           bool      `json:"healthy"`
	LastEventTime     time.Time `json:"last_event_time"`
	EventsProcessed   uint64    `json:"events_processed"`
	PendingEvents     int64     `json:"pending_events"`
	DatabaseConnected bool      `json:"database_connected"`
	NATSConnected     bool      `json:"nats_connected"`
	ListenerActive    bool      `json:"listener_active"`
	Errors            []string  `json:"errors"`
}

// warn records a problem that does not make the relay unhealthy.
func (s *HealthStatus) warn(format string, args ...any) {
	s.Errors = append(s.Errors, fmt.Sprintf(format, args...))
}

func (s *HealthStatus) fail(format string, args ...any) {
	s.Healthy = false
	s.warn(format, args...)
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

// backlogWarning is the pending count above which /health reports a warning.
const backlogWarning = 1000

// HealthChecker reports whether the relay is making progress.
type HealthChecker struct {
	listener *Listener
	db       Pinger
	natsConn *nats.Conn
	stallAge time.Duration
}

// NewHealthChecker builds a checker that fails when pending events have seen
// no progress for stallAge. A nil natsConn skips the broker probe.
func NewHealthChecker(listener *Listener, db Pinger, natsConn *nats.Conn, stallAge time.Duration) *HealthChecker {
	return &HealthChecker{listener: listener, db: db, natsConn: natsConn, stallAge: stallAge}
}

func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	st := HealthStatus{Healthy: true, Errors: []string{}}
	st.EventsProcessed, st.LastEventTime = h.listener.Stats()

	st.DatabaseConnected = h.db.PingContext(ctx) == nil
	if !st.DatabaseConnected {
		st.fail("database unreachable")
	}

	if h.natsConn != nil {
		if st.NATSConnected = h.natsConn.IsConnected(); !st.NATSConnected {
			st.fail("NATS disconnected")
		}
	}

	if st.ListenerActive = h.listener.Running(); !st.ListenerActive {
		st.fail("listener not active")
	}

	if st.DatabaseConnected {
		pending, err := h.listener.store.CountPendingOutbox(ctx)
		switch {
		case err != nil:
			st.warn("count pending events: %v", err)
		case pending > backlogWarning:
			st.warn("high pending event count: %d", pending)
		}
		st.PendingEvents = pending
	}

	if st.PendingEvents > 0 && !st.LastEventTime.IsZero() {
		if idle := time.Since(st.LastEventTime); idle > h.stallAge {
			st.fail("no events processed for %s", idle.Round(time.Second))
		}
	}
	return st
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	st := h.Check(ctx)
	w.Header().Set("Content-Type", "application/json")
	if !st.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(st)
}
