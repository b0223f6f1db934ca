package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/xeze-org/arcade-scoreboard/internal/auth"
	"github.com/xeze-org/arcade-scoreboard/internal/config"
	"github.com/xeze-org/arcade-scoreboard/internal/httpserver"
	"github.com/xeze-org/arcade-scoreboard/internal/router"
	"github.com/xeze-org/arcade-scoreboard/internal/scores"
	"github.com/xeze-org/arcade-scoreboard/internal/store"
)

// scoreboardStore is what both relational backends provide.
type scoreboardStore interface {
	auth.UserStore
	scores.Store
	Migrate(ctx context.Context) error
}

func main() {
	if err := run(); err != nil {
		slog.Error("backend stopped", "error", err)
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred closes always run.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	ctx := context.Background()

	if cfg.UsesDefaultSecret() {
		slog.Warn("JWT_SECRET not set, signing tokens with the built-in default secret")
	}

	// ── Relational store ─────────────────────────────────────
	var db scoreboardStore
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("postgres connect: %w", err)
		}
		defer pgPool.Close()
		db = store.NewPostgresStore(pgPool)
	default:
		sqliteStore, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("sqlite open: %w", err)
		}
		defer sqliteStore.Close()
		db = sqliteStore
	}
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	slog.Info("database schema ready", "driver", cfg.DatabaseDriver)

	var (
		opts     []scores.Option
		authOpts []auth.Option
	)

	// ── Redis (optional leaderboard cache) ───────────────────
	if cfg.RedisAddr != "" {
		rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer rdb.Close()
		cache := store.NewRedisCache(rdb, cfg.CacheTTL)
		opts = append(opts, scores.WithCache(cache))
		authOpts = append(authOpts, auth.WithBoardInvalidator(cache))
		slog.Info("leaderboard cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	}

	// ── MongoDB (optional score event log) ───────────────────
	if cfg.MongoURI != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		mongoClient, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			cancel()
			return fmt.Errorf("mongo connect: %w", err)
		}
		if err := mongoClient.Ping(connectCtx, nil); err != nil {
			cancel()
			return fmt.Errorf("mongo ping: %w", err)
		}
		events := store.NewMongoEventStore(mongoClient.Database(cfg.MongoDB))
		if err := events.EnsureIndexes(connectCtx); err != nil {
			slog.Warn("score event indexes not created", "error", err)
		}
		cancel()
		defer mongoClient.Disconnect(ctx)
		opts = append(opts, scores.WithEvents(events))
		slog.Info("score event log enabled", "database", cfg.MongoDB)
	}

	// ── Handlers ─────────────────────────────────────────────
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	authHandler := auth.NewHandler(db, tokens, cfg.BcryptCost, authOpts...)
	scoresHandler := scores.NewHandler(scores.NewService(db, opts...))

	r := router.New(router.Deps{
		Auth:           authHandler,
		Scores:         scoresHandler,
		Tokens:         tokens,
		AllowedOrigins: cfg.AllowedOrigins,
		AccessLog:      true,
	})

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	slog.Info("backend listening", "port", cfg.Port)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return httpserver.Run(srv, quit)
}
