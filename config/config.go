// Package config loads process settings from the environment once at
// startup.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds everything the process needs to start.
type Config struct {
	ListenAddr  string
	PostgresDSN string
	RedisAddr   string
	Secret      string
	TokenTTL    time.Duration
}

// Load reads the configuration from the environment. POSTGRES_DSN wins over
// the individual POSTGRES_* variables; everything else has a default except
// the database coordinates.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr: getenv("LISTEN_ADDR", ":8080"),
		RedisAddr:  getenv("REDIS_ADDR", "localhost:6379"),
		Secret:     getenv("SECRET", "SECRET"),
		TokenTTL:   time.Hour,
	}

	if v := os.Getenv("TOKEN_TTL_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("parse TOKEN_TTL_SECONDS: %w", err)
		}
		cfg.TokenTTL = time.Duration(secs) * time.Second
	}

	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.PostgresDSN = dsn
		return cfg, nil
	}

	db := os.Getenv("POSTGRES_DB")
	user := os.Getenv("POSTGRES_USER")
	password := os.Getenv("POSTGRES_PASSWORD")
	host := getenv("DB_HOST", "localhost")
	port := getenv("DB_PORT", "5432")
	if db == "" || user == "" {
		return Config{}, fmt.Errorf("POSTGRES_DSN or POSTGRES_DB and POSTGRES_USER must be set")
	}
	cfg.PostgresDSN = fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		url.QueryEscape(user), url.QueryEscape(password), host, port, db,
	)
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
