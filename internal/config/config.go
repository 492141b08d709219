package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the process configuration, loaded from the environment
// with an optional .env file for development.
type Config struct {
	ListenAddr    string
	DatabaseURL   string
	RoundDuration time.Duration
	FallbackGrace time.Duration
	SweepInterval time.Duration
}

func Load() (Config, error) {
	// Missing .env is fine; real deployments set the environment.
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:    getenv("LISTEN_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RoundDuration: 20 * time.Second,
		FallbackGrace: 5 * time.Second,
		SweepInterval: 30 * time.Minute,
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is required")
	}

	var err error
	if cfg.RoundDuration, err = seconds("ROUND_SECONDS", cfg.RoundDuration); err != nil {
		return Config{}, err
	}
	if cfg.FallbackGrace, err = seconds("FALLBACK_GRACE_SECONDS", cfg.FallbackGrace); err != nil {
		return Config{}, err
	}
	if cfg.SweepInterval, err = seconds("SWEEP_INTERVAL_SECONDS", cfg.SweepInterval); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func seconds(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return time.Duration(n) * time.Second, nil
}
