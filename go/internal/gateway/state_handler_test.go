package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	stateCalls atomic.Int32
	openCalls  atomic.Int32
	known      uuid.UUID
	block      chan struct{}
	err        error
}

func (p *countingProvider) GetSessionState(_ context.Context, id uuid.UUID) (*SessionStateResponse, error) {
	p.stateCalls.Add(1)
	if p.block != nil {
		<-p.block
	}
	if p.err != nil {
		return nil, p.err
	}
	if id != p.known {
		return nil, ErrSessionNotFound
	}
	return &SessionStateResponse{SessionID: id.String(), Status: "ACTIVE", Version: int64(p.stateCalls.Load())}, nil
}

func (p *countingProvider) ListOpenSessions(context.Context) ([]SessionSummary, error) {
	p.openCalls.Add(1)
	return []SessionSummary{{SessionID: p.known.String(), PlayerCount: 2}}, nil
}

func newStateServer(t *testing.T, p *countingProvider, ttl time.Duration) (*StateHandler, *httptest.Server) {
	t.Helper()
	h := NewStateHandler(p, StateCacheConfig{Size: 16, TTL: ttl})
	mux := http.NewServeMux()
	h.RegisterStateRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return h, srv
}

func getState(t *testing.T, url string) (int, SessionStateResponse) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out SessionStateResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func TestStateHandler_CachesAndInvalidates(t *testing.T) {
	p := &countingProvider{known: uuid.New()}
	h, srv := newStateServer(t, p, time.Minute)
	url := srv.URL + "/api/sessions/" + p.known.String() + "/state"

	code, first := getState(t, url)
	require.Equal(t, http.StatusOK, code)
	code, second := getState(t, url)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, first.Version, second.Version)
	assert.Equal(t, int32(1), p.stateCalls.Load())

	h.Invalidate(p.known)
	_, third := getState(t, url)
	assert.Equal(t, int32(2), p.stateCalls.Load())
	assert.NotEqual(t, first.Version, third.Version)
}

func TestStateHandler_Routing(t *testing.T) {
	p := &countingProvider{known: uuid.New()}
	_, srv := newStateServer(t, p, time.Minute)

	code, _ := getState(t, srv.URL+"/api/sessions/not-a-uuid/state")
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = getState(t, srv.URL+"/api/sessions/"+uuid.NewString()+"/state")
	assert.Equal(t, http.StatusNotFound, code)

	resp, err := http.Get(srv.URL + "/api/sessions/open")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var open []SessionSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&open))
	require.Len(t, open, 1)
	assert.Equal(t, p.known.String(), open[0].SessionID)

	resp, err = http.Post(srv.URL+"/api/sessions/open", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestStateHandler_ErrorsAreNotCached(t *testing.T) {
	p := &countingProvider{known: uuid.New(), err: errors.New("upstream down")}
	_, srv := newStateServer(t, p, time.Minute)
	url := srv.URL + "/api/sessions/" + p.known.String() + "/state"

	code, _ := getState(t, url)
	assert.Equal(t, http.StatusInternalServerError, code)

	p.err = nil
	code, _ = getState(t, url)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, int32(2), p.stateCalls.Load())
}

func TestStateHandler_CollapsesConcurrentMisses(t *testing.T) {
	p := &countingProvider{known: uuid.New(), block: make(chan struct{})}
	_, srv := newStateServer(t, p, time.Minute)
	url := srv.URL + "/api/sessions/" + p.known.String() + "/state"

	const n = 10
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i], _ = getState(t, url)
		}(i)
	}

	require.Eventually(t, func() bool { return p.stateCalls.Load() == 1 }, time.Second, time.Millisecond)
	// give the remaining requests time to join the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(p.block)
	wg.Wait()

	assert.Equal(t, int32(1), p.stateCalls.Load())
	for _, c := range codes {
		assert.Equal(t, http.StatusOK, c)
	}
}
