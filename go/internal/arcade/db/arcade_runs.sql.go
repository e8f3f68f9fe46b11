package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type ArcadeRun struct {
	ID            uuid.UUID     `json:"id"`
	GameID        string        `json:"game_id"`
	PlayerID      string        `json:"player_id"`
	TokenID       uuid.UUID     `json:"token_id"`
	TimeBudgetSec int32         `json:"time_budget_sec"`
	EntryFee      int64         `json:"entry_fee"`
	StartedAt     time.Time     `json:"started_at"`
	ExpiresAt     time.Time     `json:"expires_at"`
	Score         sql.NullInt64 `json:"score"`
	ElapsedSec    sql.NullInt32 `json:"elapsed_sec"`
	SubmittedAt   sql.NullTime  `json:"submitted_at"`
}

const arcadeRunColumns = `id, game_id, player_id, token_id, time_budget_sec, entry_fee, started_at, expires_at, score, elapsed_sec, submitted_at`

func scanArcadeRun(row interface{ Scan(dest ...any) error }) (ArcadeRun, error) {
	var i ArcadeRun
	err := row.Scan(
		&i.ID,
		&i.GameID,
		&i.PlayerID,
		&i.TokenID,
		&i.TimeBudgetSec,
		&i.EntryFee,
		&i.StartedAt,
		&i.ExpiresAt,
		&i.Score,
		&i.ElapsedSec,
		&i.SubmittedAt,
	)
	return i, err
}

const createArcadeRun = `-- name: CreateArcadeRun :one
INSERT INTO arcade_runs (
  id, game_id, player_id, token_id, time_budget_sec, entry_fee, started_at, expires_at
) VALUES (
  $1, $2, $3, $4, $5, $6, $7, $8
)
RETURNING ` + arcadeRunColumns

type CreateArcadeRunParams struct {
	ID            uuid.UUID `json:"id"`
	GameID        string    `json:"game_id"`
	PlayerID      string    `json:"player_id"`
	TokenID       uuid.UUID `json:"token_id"`
	TimeBudgetSec int32     `json:"time_budget_sec"`
	EntryFee      int64     `json:"entry_fee"`
	StartedAt     time.Time `json:"started_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

func (q *Queries) CreateArcadeRun(ctx context.Context, arg CreateArcadeRunParams) (ArcadeRun, error) {
	row := q.db.QueryRowContext(ctx, createArcadeRun,
		arg.ID,
		arg.GameID,
		arg.PlayerID,
		arg.TokenID,
		arg.TimeBudgetSec,
		arg.EntryFee,
		arg.StartedAt,
		arg.ExpiresAt,
	)
	return scanArcadeRun(row)
}

const getArcadeRun = `-- name: GetArcadeRun :one
SELECT ` + arcadeRunColumns + `
FROM arcade_runs
WHERE id = $1
`

func (q *Queries) GetArcadeRun(ctx context.Context, id uuid.UUID) (ArcadeRun, error) {
	row := q.db.QueryRowContext(ctx, getArcadeRun, id)
	return scanArcadeRun(row)
}

const submitArcadeScore = `-- name: SubmitArcadeScore :one
UPDATE arcade_runs
SET score = $3,
    elapsed_sec = $4,
    submitted_at = $5
WHERE id = $1 AND token_id = $2 AND submitted_at IS NULL
RETURNING ` + arcadeRunColumns

type SubmitArcadeScoreParams struct {
	ID          uuid.UUID `json:"id"`
	TokenID     uuid.UUID `json:"token_id"`
	Score       int64     `json:"score"`
	ElapsedSec  int32     `json:"elapsed_sec"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// SubmitArcadeScore returns sql.ErrNoRows when a score was already recorded.
func (q *Queries) SubmitArcadeScore(ctx context.Context, arg SubmitArcadeScoreParams) (ArcadeRun, error) {
	row := q.db.QueryRowContext(ctx, submitArcadeScore,
		arg.ID,
		arg.TokenID,
		arg.Score,
		arg.ElapsedSec,
		arg.SubmittedAt,
	)
	return scanArcadeRun(row)
}

const listTopScores = `-- name: ListTopScores :many
SELECT ` + arcadeRunColumns + `
FROM arcade_runs
WHERE game_id = $1 AND submitted_at IS NOT NULL
ORDER BY score DESC, elapsed_sec ASC
LIMIT $2
`

func (q *Queries) ListTopScores(ctx context.Context, gameID string, limit int32) ([]ArcadeRun, error) {
	rows, err := q.db.QueryContext(ctx, listTopScores, gameID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ArcadeRun
	for rows.Next() {
		i, err := scanArcadeRun(rows)
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
