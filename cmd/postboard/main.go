package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/postboard/backend/api"
	"github.com/postboard/backend/auth"
	"github.com/postboard/backend/config"
	"github.com/postboard/backend/postgres"
	"github.com/postboard/backend/redis"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	if err := run(logger); err != nil {
		logger.Error("Exiting", "error", err.Error())
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pg, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	if err := pg.CreateSchema(ctx); err != nil {
		return err
	}

	cache, err := redis.Connect(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}

	a := &api.API{
		Logger: logger,
		DB:     pg,
		Cache:  cache,
		Val:    api.NewValidator(),
		Auth: &auth.Service{
			Users:    pg,
			Secret:   []byte(cfg.Secret),
			TokenTTL: cfg.TokenTTL,
		},
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           a,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("Listening", "addr", cfg.ListenAddr)
	return srv.ListenAndServe()
}
