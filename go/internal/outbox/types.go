package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutboxEvent is one unsent row of game_outbox. SessionID is the game
// session or arcade run the event belongs to.
type OutboxEvent struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	EventType string
	Payload   json.RawMessage
	CreatedAt time.Time
}

// Envelope is the message body published for every event.
type Envelope struct {
	EventID   string          `json:"eventId"`
	EventType string          `json:"eventType"`
	SessionID string          `json:"sessionId"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Message headers set on published events.
const (
	HeaderEventType = "Event-Type"
	HeaderSessionID = "Session-ID"
	HeaderEventID   = "Event-ID"
)

type EventPublisher interface {
	Publish(ctx context.Context, event OutboxEvent) error
}
