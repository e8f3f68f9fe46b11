package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/arena/go/internal/game/events"
	"github.com/mcdev12/arena/go/internal/outbox"
)

// SessionEvent is the frame pushed to WebSocket clients of a session.
type SessionEvent struct {
	ID        string           `json:"id"`
	SessionID string           `json:"session_id"`
	Type      events.EventType `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Data      json.RawMessage  `json:"data"`
}

// sessionEventTypes are relayed to session subscribers. Arcade events are
// consumed but have no session audience.
var sessionEventTypes = map[events.EventType]bool{
	events.EventSessionCreated:   true,
	events.EventPlayerJoined:     true,
	events.EventCountdownStarted: true,
	events.EventSessionStarted:   true,
	events.EventActionApplied:    true,
	events.EventActionsPurchased: true,
	events.EventSessionEnded:     true,
	events.EventPrizeReserved:    true,
	events.EventPrizeClaimed:     true,
}

// toSessionEvent converts a published envelope. It returns nil, nil for
// event types that are not fanned out.
func toSessionEvent(env outbox.Envelope) (*SessionEvent, uuid.UUID, error) {
	sessionID, err := uuid.Parse(env.SessionID)
	if err != nil {
		return nil, uuid.Nil, fmt.Errorf("parse session ID: %w", err)
	}

	eventType := events.EventType(env.EventType)
	if !sessionEventTypes[eventType] {
		return nil, sessionID, nil
	}

	return &SessionEvent{
		ID:        env.EventID,
		SessionID: env.SessionID,
		Type:      eventType,
		Timestamp: env.Timestamp,
		Data:      env.Payload,
	}, sessionID, nil
}
