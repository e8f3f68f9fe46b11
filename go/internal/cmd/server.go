package main

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/arena/go/internal/api/arcade/v1/arcadev1connect"
	"github.com/mcdev12/arena/go/internal/api/grabbit/v1/grabbitv1connect"
	"github.com/mcdev12/arena/go/internal/game"
)

func setupServer(services *Services, database *sql.DB) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Connect-Protocol-Version"},
	})

	registerServices(mux, services)
	setupHealthCheck(mux, database)

	handler := c.Handler(mux)

	// Setup HTTP/2 server
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", getEnv("PORT", "8080")),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: getEnvAsDuration("READ_HEADER_TIMEOUT", 5*time.Second),
	}
}

func registerServices(mux *http.ServeMux, services *Services) {
	grabbitPath, grabbitHandler := grabbitv1connect.NewGrabbitServiceHandler(services.Grabbit)
	mux.Handle(grabbitPath, grabbitHandler)

	arcadePath, arcadeHandler := arcadev1connect.NewArcadeServiceHandler(services.Arcade)
	mux.Handle(arcadePath, arcadeHandler)

	log.Info().
		Str("grabbit", grabbitPath).
		Str("arcade", arcadePath).
		Str("admin_header", game.AdminKeyHeader).
		Msg("registered services")
}

func setupHealthCheck(mux *http.ServeMux, database *sql.DB) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if err := database.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
