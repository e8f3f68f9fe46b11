package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type GameSession struct {
	ID           uuid.UUID             `json:"id"`
	GameID       string                `json:"game_id"`
	Status       int16                 `json:"status"`
	Settings     json.RawMessage       `json:"settings"`
	StartTime    time.Time             `json:"start_time"`
	EndTime      time.Time             `json:"end_time"`
	Players      json.RawMessage       `json:"players"`
	Hold         pqtype.NullRawMessage `json:"hold"`
	Winner       sql.NullString        `json:"winner"`
	EndedAt      sql.NullTime          `json:"ended_at"`
	PrizeClaimed bool                  `json:"prize_claimed"`
	PrizeClaimTx sql.NullString        `json:"prize_claim_tx"`
	ClaimedAt    sql.NullTime          `json:"claimed_at"`
	Version      int64                 `json:"version"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

const gameSessionColumns = `id, game_id, status, settings, start_time, end_time, players, hold, winner, ended_at, prize_claimed, prize_claim_tx, claimed_at, version, created_at, updated_at`

func scanGameSession(row interface{ Scan(dest ...any) error }) (GameSession, error) {
	var i GameSession
	err := row.Scan(
		&i.ID,
		&i.GameID,
		&i.Status,
		&i.Settings,
		&i.StartTime,
		&i.EndTime,
		&i.Players,
		&i.Hold,
		&i.Winner,
		&i.EndedAt,
		&i.PrizeClaimed,
		&i.PrizeClaimTx,
		&i.ClaimedAt,
		&i.Version,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createGameSession = `-- name: CreateGameSession :one
INSERT INTO game_sessions (
  id, game_id, status, settings, start_time, end_time, players, version, created_at, updated_at
) VALUES (
  $1, $2, $3, $4, $5, $6, $7, 1, $8, $8
)
RETURNING ` + gameSessionColumns

type CreateGameSessionParams struct {
	ID        uuid.UUID       `json:"id"`
	GameID    string          `json:"game_id"`
	Status    int16           `json:"status"`
	Settings  json.RawMessage `json:"settings"`
	StartTime time.Time       `json:"start_time"`
	EndTime   time.Time       `json:"end_time"`
	Players   json.RawMessage `json:"players"`
	CreatedAt time.Time       `json:"created_at"`
}

func (q *Queries) CreateGameSession(ctx context.Context, arg CreateGameSessionParams) (GameSession, error) {
	row := q.db.QueryRowContext(ctx, createGameSession,
		arg.ID,
		arg.GameID,
		arg.Status,
		arg.Settings,
		arg.StartTime,
		arg.EndTime,
		arg.Players,
		arg.CreatedAt,
	)
	return scanGameSession(row)
}

const getGameSession = `-- name: GetGameSession :one
SELECT ` + gameSessionColumns + `
FROM game_sessions
WHERE id = $1
`

func (q *Queries) GetGameSession(ctx context.Context, id uuid.UUID) (GameSession, error) {
	row := q.db.QueryRowContext(ctx, getGameSession, id)
	return scanGameSession(row)
}

const updateGameSession = `-- name: UpdateGameSession :one
UPDATE game_sessions
SET status = $3,
    players = $4,
    hold = $5,
    winner = $6,
    ended_at = $7,
    prize_claimed = $8,
    prize_claim_tx = $9,
    claimed_at = $10,
    updated_at = $11,
    version = version + 1
WHERE id = $1 AND version = $2
RETURNING ` + gameSessionColumns

type UpdateGameSessionParams struct {
	ID           uuid.UUID             `json:"id"`
	Version      int64                 `json:"version"`
	Status       int16                 `json:"status"`
	Players      json.RawMessage       `json:"players"`
	Hold         pqtype.NullRawMessage `json:"hold"`
	Winner       sql.NullString        `json:"winner"`
	EndedAt      sql.NullTime          `json:"ended_at"`
	PrizeClaimed bool                  `json:"prize_claimed"`
	PrizeClaimTx sql.NullString        `json:"prize_claim_tx"`
	ClaimedAt    sql.NullTime          `json:"claimed_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// UpdateGameSession returns sql.ErrNoRows when the stored version no longer
// matches arg.Version.
func (q *Queries) UpdateGameSession(ctx context.Context, arg UpdateGameSessionParams) (GameSession, error) {
	row := q.db.QueryRowContext(ctx, updateGameSession,
		arg.ID,
		arg.Version,
		arg.Status,
		arg.Players,
		arg.Hold,
		arg.Winner,
		arg.EndedAt,
		arg.PrizeClaimed,
		arg.PrizeClaimTx,
		arg.ClaimedAt,
		arg.UpdatedAt,
	)
	return scanGameSession(row)
}

const listOpenGameSessions = `-- name: ListOpenGameSessions :many
SELECT ` + gameSessionColumns + `
FROM game_sessions
WHERE status < 4 OR (status = 4 AND prize_claimed AND prize_claim_tx IS NULL)
ORDER BY start_time
LIMIT $1
`

func (q *Queries) ListOpenGameSessions(ctx context.Context, limit int32) ([]GameSession, error) {
	rows, err := q.db.QueryContext(ctx, listOpenGameSessions, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GameSession
	for rows.Next() {
		i, err := scanGameSession(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertActionPayment = `-- name: InsertActionPayment :execrows
INSERT INTO action_payments (signature, session_id, identity, kind, quantity)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (signature) DO NOTHING
`

type InsertActionPaymentParams struct {
	Signature string    `json:"signature"`
	SessionID uuid.UUID `json:"session_id"`
	Identity  string    `json:"identity"`
	Kind      string    `json:"kind"`
	Quantity  int32     `json:"quantity"`
}

func (q *Queries) InsertActionPayment(ctx context.Context, arg InsertActionPaymentParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, insertActionPayment,
		arg.Signature,
		arg.SessionID,
		arg.Identity,
		arg.Kind,
		arg.Quantity,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
