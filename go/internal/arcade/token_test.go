package arcade

import (
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func TestTokenRoundTrip(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	issuer, err := NewTokenIssuer(testSecret, clock)
	require.NoError(t, err)

	run := startedRun(t)
	token, err := issuer.Issue(run)
	require.NoError(t, err)

	claims, err := issuer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, run.ID, claims.RunID)
	assert.Equal(t, run.TokenID, claims.TokenID)
	assert.Equal(t, run.GameID, claims.GameID)
	assert.Equal(t, run.PlayerID, claims.PlayerID)
}

func TestTokenRejected(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	issuer, err := NewTokenIssuer(testSecret, clock)
	require.NoError(t, err)
	other, err := NewTokenIssuer([]byte(strings.Repeat("x", 32)), clock)
	require.NoError(t, err)

	run := startedRun(t)
	token, err := issuer.Issue(run)
	require.NoError(t, err)

	_, err = other.Parse(token)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = issuer.Parse("not.a.token")
	require.ErrorIs(t, err, ErrInvalidToken)

	clock.Advance(2*time.Minute + tokenGrace + time.Second)
	_, err = issuer.Parse(token)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenSecretLength(t *testing.T) {
	_, err := NewTokenIssuer([]byte("short"), nil)
	require.Error(t, err)
}
