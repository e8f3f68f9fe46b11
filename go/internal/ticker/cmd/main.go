package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mcdev12/arena/go/internal/api/grabbit/v1/grabbitv1connect"
	"github.com/mcdev12/arena/go/internal/dbconfig"
	"github.com/mcdev12/arena/go/internal/leader"
	"github.com/mcdev12/arena/go/internal/ticker"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("LOG_LEVEL") == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	gameAPIURL := getEnv("GAME_API_URL", "http://localhost:8080")
	holderKey := getEnv("TICKER_HOLDER_KEY", defaultHolderKey())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbCfg := dbconfig.NewConfigFromEnv()
	dbCfg.ApplicationName = "arena-ticker"
	pool, err := pgxpool.New(ctx, dbCfg.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create connection pool")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}

	log.Info().
		Str("database", dbCfg.Database).
		Str("game_api_url", gameAPIURL).
		Str("holder", holderKey).
		Msg("starting session ticker")

	store := leader.NewPostgresStore(pool)
	listenerCfg := leader.DefaultListenerConfig()
	listenerCfg.DatabaseURL = dbCfg.DSN()
	feed, err := leader.NewListener(store, listenerCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to listen for leader changes")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	httpClient := &http.Client{Timeout: 10 * time.Second}
	client := grabbitv1connect.NewGrabbitServiceClient(httpClient, gameAPIURL)

	cfg := ticker.DefaultConfig()
	cfg.HolderKey = holderKey
	if d, err := time.ParseDuration(os.Getenv("TICKER_MAX_REFRESH_INTERVAL")); err == nil {
		cfg.MaxRefreshInterval = d
	}
	if d, err := time.ParseDuration(os.Getenv("TICKER_RESYNC_INTERVAL")); err == nil {
		cfg.ResyncInterval = d
	}

	orch, err := ticker.NewOrchestrator(client, store, feed, nil, leader.NewMetrics(reg), ticker.NewMetrics(reg), cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create orchestrator")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintf(w, "ok %d sessions\n", orch.Tracked())
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{
		Addr:              ":" + getEnv("TICKER_PORT", "8083"),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return feed.Start(gctx)
	})
	g.Go(func() error {
		return orch.Run(gctx)
	})
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("serving health and metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("ticker exited")
		os.Exit(1)
	}
	log.Info().Msg("ticker stopped")
}

func defaultHolderKey() string {
	host, err := os.Hostname()
	if err != nil {
		host = "ticker"
	}
	return host + "-" + uuid.NewString()[:8]
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
