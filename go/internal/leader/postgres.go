package leader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/arena/go/internal/models"
)

// PostgresStore keeps leader records in the leader_records table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, leaderID string) (*models.LeaderRecord, error) {
	var rec models.LeaderRecord
	err := s.pool.QueryRow(ctx, `
		SELECT leader_id, holder_key, last_active_at
		FROM leader_records
		WHERE leader_id = $1`,
		leaderID,
	).Scan(&rec.LeaderID, &rec.HolderKey, &rec.LastActiveAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select leader record %s: %w", leaderID, err)
	}
	return &rec, nil
}

func (s *PostgresStore) Insert(ctx context.Context, rec models.LeaderRecord) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO leader_records (leader_id, holder_key, last_active_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (leader_id) DO NOTHING`,
		rec.LeaderID, rec.HolderKey, rec.LastActiveAt,
	)
	if err != nil {
		return fmt.Errorf("insert leader record %s: %w", rec.LeaderID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRecordExists
	}
	return nil
}

func (s *PostgresStore) ClaimIfStale(ctx context.Context, leaderID, holderKey string, now, staleBefore time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE leader_records
		SET holder_key = $2, last_active_at = $3
		WHERE leader_id = $1 AND last_active_at <= $4`,
		leaderID, holderKey, now, staleBefore,
	)
	if err != nil {
		return false, fmt.Errorf("claim leader record %s: %w", leaderID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) Touch(ctx context.Context, leaderID, holderKey string, now time.Time) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE leader_records
		SET last_active_at = $3
		WHERE leader_id = $1 AND holder_key = $2`,
		leaderID, holderKey, now,
	)
	if err != nil {
		return false, fmt.Errorf("touch leader record %s: %w", leaderID, err)
	}
	return tag.RowsAffected() == 1, nil
}
