package game

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mcdev12/arena/go/internal/game/db"
	"github.com/mcdev12/arena/go/internal/game/events"
	"github.com/mcdev12/arena/go/internal/gameerr"
	"github.com/mcdev12/arena/go/internal/models"
	outboxdb "github.com/mcdev12/arena/go/internal/outbox/db"
	"github.com/mcdev12/arena/go/internal/sqlutil"
)

// ErrPaymentReused is returned when a payment signature was already applied.
var ErrPaymentReused = gameerr.New(gameerr.KindValidation, "PAYMENT_REUSED", "that payment has already been used")

// Mutation is one conditional write of a session snapshot.
type Mutation struct {
	Next            models.GameSession
	ExpectedVersion int64
	Events          []events.Event
	Payment         *Payment
}

// Payment records the transaction that paid for a top-up.
type Payment struct {
	Signature string
	Identity  string
	Kind      models.ActionKind
	Quantity  int
}

type txQueries struct {
	game   *db.Queries
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
		game:   r.queries.WithTx(tx),
		outbox: outboxdb.New(tx),
	}
}

func (r *Repository) CreateSession(ctx context.Context, s models.GameSession, evts []events.Event) (*models.GameSession, error) {
	settings, err := json.Marshal(s.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal game settings: %w", err)
	}
	players, err := json.Marshal(s.Players)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal players: %w", err)
	}

	var created models.GameSession
	err = sqlutil.Run(ctx, r.db, r.newTxQueries, func(q *txQueries) error {
		row, err := q.game.CreateGameSession(ctx, db.CreateGameSessionParams{
			ID:        s.ID,
			GameID:    s.GameID,
			Status:    int16(s.Status),
			Settings:  settings,
			StartTime: s.StartTime,
			EndTime:   s.EndTime,
			Players:   players,
			CreatedAt: s.CreatedAt,
		})
		if err != nil {
			return gameerr.Transport("insert game session", err)
		}
		created, err = dbSessionToModel(row)
		if err != nil {
			return err
		}
		return insertEvents(ctx, q.outbox, s.ID, evts)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create game session: %w", err)
	}
	return &created, nil
}

func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*models.GameSession, error) {
	row, err := r.queries.GetGameSession(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, gameerr.Transport("get game session", err)
	}
	s, err := dbSessionToModel(row)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) ListOpenSessions(ctx context.Context, limit int32) ([]models.GameSession, error) {
	rows, err := r.queries.ListOpenGameSessions(ctx, limit)
	if err != nil {
		return nil, gameerr.Transport("list open game sessions", err)
	}
	out := make([]models.GameSession, 0, len(rows))
	for _, row := range rows {
		s, err := dbSessionToModel(row)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// SaveSession writes m.Next if the stored version still equals
// m.ExpectedVersion, together with its outbox events, in one transaction.
func (r *Repository) SaveSession(ctx context.Context, m Mutation) (*models.GameSession, error) {
	players, err := json.Marshal(m.Next.Players)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal players: %w", err)
	}
	hold, err := sqlutil.ToNullRawMessage(m.Next.Hold)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal hold: %w", err)
	}

	var saved models.GameSession
	err = sqlutil.Run(ctx, r.db, r.newTxQueries, func(q *txQueries) error {
		if m.Payment != nil {
			n, err := q.game.InsertActionPayment(ctx, db.InsertActionPaymentParams{
				Signature: m.Payment.Signature,
				SessionID: m.Next.ID,
				Identity:  m.Payment.Identity,
				Kind:      string(m.Payment.Kind),
				Quantity:  int32(m.Payment.Quantity),
			})
			if err != nil {
				return gameerr.Transport("insert action payment", err)
			}
			if n == 0 {
				return ErrPaymentReused
			}
		}

		row, err := q.game.UpdateGameSession(ctx, db.UpdateGameSessionParams{
			ID:           m.Next.ID,
			Version:      m.ExpectedVersion,
			Status:       int16(m.Next.Status),
			Players:      players,
			Hold:         hold,
			Winner:       sqlutil.ToSqlString(m.Next.Winner),
			EndedAt:      sqlutil.ToSqlTime(m.Next.EndedAt),
			PrizeClaimed: m.Next.PrizeClaimed,
			PrizeClaimTx: sqlutil.ToSqlString(m.Next.PrizeClaimTx),
			ClaimedAt:    sqlutil.ToSqlTime(m.Next.ClaimedAt),
			UpdatedAt:    m.Next.UpdatedAt,
		})
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrVersionConflict
			}
			return gameerr.Transport("update game session", err)
		}
		saved, err = dbSessionToModel(row)
		if err != nil {
			return err
		}
		return insertEvents(ctx, q.outbox, m.Next.ID, m.Events)
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func insertEvents(ctx context.Context, q *outboxdb.Queries, sessionID uuid.UUID, evts []events.Event) error {
	for _, evt := range evts {
		payload, err := json.Marshal(evt.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal %s payload: %w", evt.Type, err)
		}
		if err := q.InsertOutboxEvent(ctx, outboxdb.InsertOutboxEventParams{
			ID:        uuid.New(),
			SessionID: sessionID,
			EventType: string(evt.Type),
			Payload:   payload,
		}); err != nil {
			return gameerr.Transport("insert outbox event", err)
		}
	}
	return nil
}

func dbSessionToModel(row db.GameSession) (models.GameSession, error) {
	s := models.GameSession{
		ID:           row.ID,
		GameID:       row.GameID,
		Status:       models.GameStatus(row.Status),
		StartTime:    row.StartTime,
		EndTime:      row.EndTime,
		Winner:       sqlutil.FromSqlStringPtr(row.Winner),
		EndedAt:      sqlutil.FromSqlTime(row.EndedAt),
		PrizeClaimed: row.PrizeClaimed,
		PrizeClaimTx: sqlutil.FromSqlStringPtr(row.PrizeClaimTx),
		ClaimedAt:    sqlutil.FromSqlTime(row.ClaimedAt),
		Version:      row.Version,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	if err := json.Unmarshal(row.Settings, &s.Settings); err != nil {
		return models.GameSession{}, fmt.Errorf("failed to unmarshal settings for session %s: %w", row.ID, err)
	}
	if err := json.Unmarshal(row.Players, &s.Players); err != nil {
		return models.GameSession{}, fmt.Errorf("failed to unmarshal players for session %s: %w", row.ID, err)
	}
	var hold models.Hold
	ok, err := sqlutil.FromNullRawMessage(row.Hold, &hold)
	if err != nil {
		return models.GameSession{}, fmt.Errorf("failed to unmarshal hold for session %s: %w", row.ID, err)
	}
	if ok {
		s.Hold = &hold
	}
	return s, nil
}
