package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/arena/go/internal/dbconfig"
	"github.com/mcdev12/arena/go/internal/game"
	"github.com/mcdev12/arena/go/internal/game/events"
	"github.com/mcdev12/arena/go/internal/models"
)

type presetsFile struct {
	Grabbit struct {
		Presets map[string]models.GameSettings `yaml:"presets"`
	} `yaml:"grabbit"`
}

func main() {
	// 1) Load the presets
	path := getEnv("ARENA_CONFIG", "go/config/arena.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read config: %v\n", err)
		os.Exit(1)
	}
	var file presetsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal config: %v\n", err)
		os.Exit(1)
	}
	perPreset, err := strconv.Atoi(getEnv("SEED_SESSIONS_PER_PRESET", "1"))
	if err != nil || perPreset < 1 {
		fmt.Fprintf(os.Stderr, "SEED_SESSIONS_PER_PRESET must be a positive integer\n")
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	ctx := context.Background()
	cfg := dbconfig.NewConfigFromEnv()
	cfg.ApplicationName = "arena-seed"
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Build sessions in preset order so runs are reproducible
	ids := make([]string, 0, len(file.Grabbit.Presets))
	for id := range file.Grabbit.Presets {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	now := time.Now().UTC()
	var sessions []models.GameSession
	for _, gameID := range ids {
		for i := 0; i < perPreset; i++ {
			settings := file.Grabbit.Presets[gameID]
			startAt := now.Add(time.Duration(settings.CountdownSec) * time.Second)
			s, err := game.NewSession(uuid.New(), gameID, settings, startAt, now)
			if err != nil {
				fmt.Fprintf(os.Stderr, "preset %s: %v\n", gameID, err)
				os.Exit(1)
			}
			sessions = append(sessions, s)
		}
	}

	// 4) Insert sessions with their SessionCreated events in one transaction
	inserted, err := insertSessions(ctx, pool, sessions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed sessions: %v\n", err)
		os.Exit(1)
	}

	// 5) Print summary
	fmt.Printf(
		"Games seed complete: %d presets, %d sessions inserted\n",
		len(ids), inserted,
	)
}

func insertSessions(ctx context.Context, pool *pgxpool.Pool, sessions []models.GameSession) (int, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	batch := &pgx.Batch{}
	for _, s := range sessions {
		settings, err := json.Marshal(s.Settings)
		if err != nil {
			return 0, err
		}
		payload, err := json.Marshal(events.SessionCreatedPayload{
			SessionID:  s.ID.String(),
			GameID:     s.GameID,
			StartTime:  s.StartTime,
			EndTime:    s.EndTime,
			PlayersMin: s.Settings.PlayersMin,
			PlayersMax: s.Settings.PlayersMax,
		})
		if err != nil {
			return 0, err
		}

		batch.Queue(`
            INSERT INTO game_sessions (
              id, game_id, status, settings, start_time, end_time, players, version, created_at, updated_at
            ) VALUES ($1, $2, $3, $4, $5, $6, '[]', 1, $7, $7)
            ON CONFLICT (id) DO NOTHING
        `, s.ID, s.GameID, int16(s.Status), settings, s.StartTime, s.EndTime, s.CreatedAt)
		batch.Queue(`
            INSERT INTO game_outbox (id, session_id, event_type, payload, created_at)
            VALUES ($1, $2, $3, $4, $5)
        `, uuid.New(), s.ID, string(events.EventSessionCreated), payload, s.CreatedAt)
	}

	results := tx.SendBatch(ctx, batch)
	inserted := 0
	for range sessions {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return 0, fmt.Errorf("insert session: %w", err)
		}
		inserted += int(tag.RowsAffected())
		if _, err := results.Exec(); err != nil {
			results.Close()
			return 0, fmt.Errorf("insert outbox event: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return 0, err
	}
	return inserted, tx.Commit(ctx)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
