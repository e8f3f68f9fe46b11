package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arena.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := loadConfig(filepath.Join("..", "..", "config", "arena.yaml"))
	require.NoError(t, err)

	classic, ok := cfg.Grabbit.Presets["classic"]
	require.True(t, ok)
	assert.Equal(t, 10, classic.GrabHoldSec)
	assert.Equal(t, 3, classic.SneakHoldSec)
	assert.Equal(t, int64(100000000), classic.PrizeLamports)

	require.NotEmpty(t, cfg.Arcade.Games)
	assert.Equal(t, "snake", cfg.Arcade.Games[0].ID)
	assert.Equal(t, 2*time.Minute, cfg.Arcade.Games[0].TimeBudget())
}

func TestLoadConfigRejects(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{
			name: "invalid preset",
			body: `
grabbit:
  presets:
    broken:
      players_min: 0
      players_max: 2
      grab_hold_sec: 10
      sneak_hold_sec: 3
      duration_sec: 60
`,
		},
		{
			name: "duplicate arcade game",
			body: `
arcade:
  games:
    - {id: snake, name: Snake, play_time: 2}
    - {id: snake, name: Snake again, play_time: 3}
`,
		},
		{
			name: "arcade game without play time",
			body: `
arcade:
  games:
    - {id: snake, name: Snake}
`,
		},
		{
			name: "not yaml",
			body: "grabbit: [",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestSecretFromEnv(t *testing.T) {
	t.Setenv("ARENA_TEST_SECRET", "c2VjcmV0")
	secret, err := secretFromEnv("ARENA_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, []byte("secret"), secret)

	t.Setenv("ARENA_TEST_SECRET", "not base64!")
	_, err = secretFromEnv("ARENA_TEST_SECRET")
	assert.Error(t, err)

	secret, err = secretFromEnv("ARENA_TEST_UNSET")
	require.NoError(t, err)
	assert.Nil(t, secret)
}
