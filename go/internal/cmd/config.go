package main

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/arena/go/internal/game"
	"github.com/mcdev12/arena/go/internal/models"
)

// Config is the game catalogue loaded from ARENA_CONFIG.
type Config struct {
	Grabbit struct {
		Presets map[string]models.GameSettings `yaml:"presets"`
	} `yaml:"grabbit"`
	Arcade struct {
		Games []models.ArcadeGame `yaml:"games"`
	} `yaml:"arcade"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	for id, settings := range config.Grabbit.Presets {
		if err := game.ValidateSettings(settings); err != nil {
			return nil, fmt.Errorf("preset %q: %w", id, err)
		}
	}
	seen := make(map[string]bool, len(config.Arcade.Games))
	for _, g := range config.Arcade.Games {
		if g.ID == "" || g.PlayTimeMinutes <= 0 || g.EntryFeeLamports < 0 {
			return nil, fmt.Errorf("arcade game %q: id, positive play_time and non-negative entry fee are required", g.ID)
		}
		if seen[g.ID] {
			return nil, fmt.Errorf("arcade game %q listed twice", g.ID)
		}
		seen[g.ID] = true
	}

	return &config, nil
}

// secretFromEnv decodes a base64 secret, or returns nil when key is unset.
func secretFromEnv(key string) ([]byte, error) {
	value := os.Getenv(key)
	if value == "" {
		return nil, nil
	}
	secret, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%s is not valid base64: %w", key, err)
	}
	return secret, nil
}
