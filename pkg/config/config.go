// Package config holds the server and game configuration
package config

import (
	"os"
	"strconv"
	"time"
)

// Config encapsulates everything the server needs at startup
type Config struct {
	Debug bool
	Port  string

	Game GameConfig
}

// GameConfig holds the tunable game constants. Defaults match the
// original game: a 60 second match ticking every 500ms, 10 points
// per hit and respawn intervals of 2000/1000/500ms.
type GameConfig struct {
	MatchDuration time.Duration
	TickInterval  time.Duration
	PointsPerHit  int

	EasyInterval   time.Duration
	MediumInterval time.Duration
	HardInterval   time.Duration
}

// DefaultGameConfig returns the stock game constants
func DefaultGameConfig() GameConfig {
	return GameConfig{
		MatchDuration:  60 * time.Second,
		TickInterval:   500 * time.Millisecond,
		PointsPerHit:   10,
		EasyInterval:   2000 * time.Millisecond,
		MediumInterval: 1000 * time.Millisecond,
		HardInterval:   500 * time.Millisecond,
	}
}

// LoadGameConfig returns the game constants with any environment
// overrides applied. Call after godotenv has populated the environment.
func LoadGameConfig() GameConfig {
	cfg := DefaultGameConfig()

	cfg.MatchDuration = envDuration("MATCH_DURATION_MS", cfg.MatchDuration)
	cfg.TickInterval = envDuration("TICK_INTERVAL_MS", cfg.TickInterval)
	cfg.PointsPerHit = envInt("POINTS_PER_HIT", cfg.PointsPerHit)
	cfg.EasyInterval = envDuration("EASY_INTERVAL_MS", cfg.EasyInterval)
	cfg.MediumInterval = envDuration("MEDIUM_INTERVAL_MS", cfg.MediumInterval)
	cfg.HardInterval = envDuration("HARD_INTERVAL_MS", cfg.HardInterval)

	return cfg
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms <= 0 {
		return fallback
	}
	return time.Duration(ms) * time.Millisecond
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
