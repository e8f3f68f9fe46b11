package arcade

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mcdev12/arena/go/internal/arcade/db"
	"github.com/mcdev12/arena/go/internal/game/events"
	"github.com/mcdev12/arena/go/internal/gameerr"
	"github.com/mcdev12/arena/go/internal/models"
	outboxdb "github.com/mcdev12/arena/go/internal/outbox/db"
	"github.com/mcdev12/arena/go/internal/sqlutil"
)

type txQueries struct {
	arcade *db.Queries
	outbox *outboxdb.Queries
}

type Repository struct {
	db      *sql.DB
	queries *db.Queries
}

func NewRepository(database *sql.DB, queries *db.Queries) *Repository {
	return &Repository{
		db:      database,
		queries: queries,
	}
}

func (r *Repository) newTxQueries(tx *sql.Tx) *txQueries {
	return &txQueries{
		arcade: r.queries.WithTx(tx),
		outbox: outboxdb.New(tx),
	}
}

func (r *Repository) CreateRun(ctx context.Context, run models.ArcadeRun, evt events.Event) (*models.ArcadeRun, error) {
	var created models.ArcadeRun
	err := sqlutil.Run(ctx, r.db, r.newTxQueries, func(q *txQueries) error {
		row, err := q.arcade.CreateArcadeRun(ctx, db.CreateArcadeRunParams{
			ID:            run.ID,
			GameID:        run.GameID,
			PlayerID:      run.PlayerID,
			TokenID:       run.TokenID,
			TimeBudgetSec: int32(run.TimeBudget),
			EntryFee:      run.EntryFee,
			StartedAt:     run.StartedAt,
			ExpiresAt:     run.ExpiresAt,
		})
		if err != nil {
			return gameerr.Transport("insert arcade run", err)
		}
		created = dbRunToModel(row)
		return insertEvent(ctx, q.outbox, run.ID, evt)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create arcade run: %w", err)
	}
	return &created, nil
}

func (r *Repository) GetRun(ctx context.Context, id uuid.UUID) (*models.ArcadeRun, error) {
	row, err := r.queries.GetArcadeRun(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, gameerr.Transport("get arcade run", err)
	}
	run := dbRunToModel(row)
	return &run, nil
}

// SaveScore records the score in run if none was recorded yet.
func (r *Repository) SaveScore(ctx context.Context, run models.ArcadeRun, evt events.Event) (*models.ArcadeRun, error) {
	if run.Score == nil || run.ElapsedSec == nil || run.SubmittedAt == nil {
		return nil, fmt.Errorf("run %s has no score to save", run.ID)
	}

	var saved models.ArcadeRun
	err := sqlutil.Run(ctx, r.db, r.newTxQueries, func(q *txQueries) error {
		row, err := q.arcade.SubmitArcadeScore(ctx, db.SubmitArcadeScoreParams{
			ID:          run.ID,
			TokenID:     run.TokenID,
			Score:       *run.Score,
			ElapsedSec:  int32(*run.ElapsedSec),
			SubmittedAt: *run.SubmittedAt,
		})
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrAlreadySubmitted
			}
			return gameerr.Transport("submit arcade score", err)
		}
		saved = dbRunToModel(row)
		return insertEvent(ctx, q.outbox, run.ID, evt)
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (r *Repository) ListTopScores(ctx context.Context, gameID string, limit int32) ([]models.ArcadeRun, error) {
	rows, err := r.queries.ListTopScores(ctx, gameID, limit)
	if err != nil {
		return nil, gameerr.Transport("list top scores", err)
	}
	out := make([]models.ArcadeRun, 0, len(rows))
	for _, row := range rows {
		out = append(out, dbRunToModel(row))
	}
	return out, nil
}

func insertEvent(ctx context.Context, q *outboxdb.Queries, runID uuid.UUID, evt events.Event) error {
	payload, err := json.Marshal(evt.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", evt.Type, err)
	}
	if err := q.InsertOutboxEvent(ctx, outboxdb.InsertOutboxEventParams{
		ID:        uuid.New(),
		SessionID: runID,
		EventType: string(evt.Type),
		Payload:   payload,
	}); err != nil {
		return gameerr.Transport("insert outbox event", err)
	}
	return nil
}

func dbRunToModel(row db.ArcadeRun) models.ArcadeRun {
	return models.ArcadeRun{
		ID:          row.ID,
		GameID:      row.GameID,
		PlayerID:    row.PlayerID,
		TokenID:     row.TokenID,
		TimeBudget:  int(row.TimeBudgetSec),
		EntryFee:    row.EntryFee,
		StartedAt:   row.StartedAt,
		ExpiresAt:   row.ExpiresAt,
		Score:       sqlutil.FromSqlInt64(row.Score),
		ElapsedSec:  sqlutil.FromSqlInt32(row.ElapsedSec),
		SubmittedAt: sqlutil.FromSqlTime(row.SubmittedAt),
	}
}
