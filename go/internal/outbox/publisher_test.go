package outbox

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStreamDrift(t *testing.T) {
	cfg := DefaultJetStreamConfig()
	want := cfg.StreamConfig()
	assert.Equal(t, []string{"game.events.>"}, want.Subjects)
	assert.Empty(t, streamDrift(want, want))

	have := want
	have.Subjects = []string{"old.events.>"}
	have.MaxAge = time.Hour
	assert.Equal(t, []string{"subjects", "max_age"}, streamDrift(have, want))

	have = want
	have.Duplicates = time.Minute
	have.Replicas = 3
	assert.Equal(t, []string{"replicas", "duplicate_window"}, streamDrift(have, want))
}
