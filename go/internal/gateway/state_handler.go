package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const openSessionsKey = "open"

type StateCacheConfig struct {
	Size int
	TTL  time.Duration
}

func DefaultStateCacheConfig() StateCacheConfig {
	return StateCacheConfig{
		Size: 1024,
		TTL:  time.Second,
	}
}

// StateHandler serves session snapshots. Encoded responses are cached for a
// short TTL and concurrent misses for the same key share one upstream call.
type StateHandler struct {
	stateProvider StateProvider
	cache         *expirable.LRU[string, []byte]
	group         singleflight.Group
}

func NewStateHandler(provider StateProvider, cfg StateCacheConfig) *StateHandler {
	return &StateHandler{
		stateProvider: provider,
		cache:         expirable.NewLRU[string, []byte](cfg.Size, nil, cfg.TTL),
	}
}

// Invalidate drops the cached state of a session and the open list.
func (h *StateHandler) Invalidate(sessionID uuid.UUID) {
	h.cache.Remove(sessionID.String())
	h.cache.Remove(openSessionsKey)
}

// HandleGetSessionState handles GET /api/sessions/{id}/state
func (h *StateHandler) HandleGetSessionState(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "Invalid session ID format", http.StatusBadRequest)
		return
	}

	body, err := h.cached(r.Context(), sessionID.String(), func(ctx context.Context) (any, error) {
		return h.stateProvider.GetSessionState(ctx, sessionID)
	})
	if errors.Is(err, ErrSessionNotFound) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to get session state")
		http.Error(w, "Failed to get session state", http.StatusInternalServerError)
		return
	}

	writeJSON(w, body)
}

// HandleGetOpenSessions handles GET /api/sessions/open
func (h *StateHandler) HandleGetOpenSessions(w http.ResponseWriter, r *http.Request) {
	body, err := h.cached(r.Context(), openSessionsKey, func(ctx context.Context) (any, error) {
		return h.stateProvider.ListOpenSessions(ctx)
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to get open sessions")
		http.Error(w, "Failed to get open sessions", http.StatusInternalServerError)
		return
	}

	writeJSON(w, body)
}

func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sessions/open", h.HandleGetOpenSessions)
	mux.HandleFunc("GET /api/sessions/{id}/state", h.HandleGetSessionState)
}

func (h *StateHandler) cached(ctx context.Context, key string, load func(context.Context) (any, error)) ([]byte, error) {
	if body, ok := h.cache.Get(key); ok {
		return body, nil
	}

	v, err, _ := h.group.Do(key, func() (any, error) {
		// the shared call must not die with the first caller's request
		ctx := context.WithoutCancel(ctx)
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		res, err := load(ctx)
		if err != nil {
			return nil, err
		}
		body, err := json.Marshal(res)
		if err != nil {
			return nil, err
		}
		h.cache.Add(key, body)
		return body, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func writeJSON(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(body); err != nil {
		log.Debug().Err(err).Msg("failed to write response")
	}
}
