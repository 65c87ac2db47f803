// Package config loads service configuration from the environment,
// with optional .env support for local development.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything the API binary needs to start. Values are
// read once at boot and never mutated afterwards.
type Config struct {
	Addr      string
	DBURL     string
	Platform  string
	Secret    string
	PolkaKey  string
	StaticDir string
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in first without overriding variables
// already set in the environment.
func Load() (Config, error) {
	// Missing .env is fine; real deployments set variables directly.
	_ = godotenv.Load()

	cfg := Config{
		Addr:      envOr("CHIRPY_ADDR", ":8080"),
		DBURL:     strings.TrimSpace(os.Getenv("DB_URL")),
		Platform:  envOr("PLATFORM", "prod"),
		Secret:    strings.TrimSpace(os.Getenv("SECRET")),
		PolkaKey:  strings.TrimSpace(os.Getenv("POLKA_KEY")),
		StaticDir: envOr("CHIRPY_STATIC_DIR", "./app"),
	}

	if cfg.Secret == "" {
		return Config{}, fmt.Errorf("SECRET must be set")
	}
	if cfg.DBURL == "" {
		return Config{}, fmt.Errorf("DB_URL must be set")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
