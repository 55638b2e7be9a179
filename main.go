package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/krishanu7/navalclash/config"
	"github.com/krishanu7/navalclash/internal/auth"
	"github.com/krishanu7/navalclash/internal/game"
	"github.com/krishanu7/navalclash/internal/match"
	"github.com/krishanu7/navalclash/internal/stats"
	"github.com/krishanu7/navalclash/internal/ws"
	wsPkg "github.com/krishanu7/navalclash/pkg/websocket"
)

func main() {
	cfg := config.LoadConfig()
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	logger := log.Logger

	// Postgres is optional: without it the server runs guest-only and
	// match history is dropped. Game state itself never touches disk.
	var sqlDB *sql.DB
	if cfg.DBUrl != "" {
		var err error
		sqlDB, err = sql.Open("postgres", cfg.DBUrl)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to open database")
		}
		defer sqlDB.Close()
	} else {
		logger.Warn().Msg("DB_URL not set, running without persistence")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("redis unreachable, leaderboard cache disabled")
		rdb = nil
	}
	cancel()

	registry := wsPkg.NewRegistry(logger)
	notifier := ws.NewNotifier(registry, logger)
	store := game.NewStore(logger)
	queue := match.NewQueue()
	sink := stats.NewService(sqlDB, rdb, logger)
	gameService := game.NewService(store, queue, notifier, sink, cfg.DisconnectGrace, logger)
	wsHandler := ws.NewHandler(registry, gameService, cfg.JWTSecret, logger)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	if sqlDB != nil {
		authHandler := auth.NewAuthHandler(auth.NewService(sqlDB, cfg))
		r.Post("/api/v1/auth/register", authHandler.Register)
		r.Post("/api/v1/auth/login", authHandler.Login)
		r.Get("/api/v1/leaderboard", sink.HandleLeaderboard)
	}

	r.Get("/api/v1/rooms", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(store.Snapshot()); err != nil {
			logger.Error().Err(err).Msg("failed to encode room snapshot")
		}
	})

	r.Get("/ws", wsHandler.ServeWS)

	logger.Info().Str("addr", cfg.ListenAddr).Msg("server starting")
	if err := http.ListenAndServe(cfg.ListenAddr, r); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}
