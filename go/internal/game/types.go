package game

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/arena/go/internal/models"
)

// CreateGameRequest represents a request to create a new Grabbit session
type CreateGameRequest struct {
	GameID   string               `json:"game_id"`
	StartAt  time.Time            `json:"start_at"`
	Settings *models.GameSettings `json:"settings,omitempty"`
}

// JoinRequest represents a request to join a session
type JoinRequest struct {
	SessionID   uuid.UUID       `json:"session_id"`
	Identity    string          `json:"identity"`
	DisplayMeta json.RawMessage `json:"display_meta,omitempty"`
}

// PurchaseRequest represents a paid top-up of one action kind
type PurchaseRequest struct {
	SessionID uuid.UUID         `json:"session_id"`
	Identity  string            `json:"identity"`
	Kind      models.ActionKind `json:"kind"`
	Quantity  int               `json:"quantity"`
	PaymentTx string            `json:"payment_tx"`
}
