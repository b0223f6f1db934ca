package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xeze-org/arcade-scoreboard/internal/config"
	"github.com/xeze-org/arcade-scoreboard/internal/httpserver"
	"github.com/xeze-org/arcade-scoreboard/internal/static"
	"github.com/xeze-org/arcade-scoreboard/internal/store"
)

func main() {
	publish := flag.Bool("publish", false, "upload GAMES_DIR into the MinIO bucket and exit")
	flag.Parse()

	if err := run(*publish); err != nil {
		slog.Error("frontend stopped", "error", err)
		os.Exit(1)
	}
}

func run(publish bool) error {
	cfg, err := config.LoadFrontend()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	ctx := context.Background()

	// ── Games: local directory or MinIO bucket ───────────────
	games := static.DirHandler(cfg.GamesDir)
	if cfg.MinioEndpoint != "" {
		bucket, err := store.NewMinioStore(
			ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
		)
		if err != nil {
			return fmt.Errorf("minio connect: %w", err)
		}

		if publish {
			n, err := static.Publish(ctx, cfg.GamesDir, bucket)
			if err != nil {
				return fmt.Errorf("publish games: %w", err)
			}
			slog.Info("games published", "files", n, "bucket", cfg.MinioBucket)
			return nil
		}

		games = static.BucketHandler(bucket)
		slog.Info("serving games from bucket", "endpoint", cfg.MinioEndpoint, "bucket", cfg.MinioBucket)
	} else if publish {
		return errors.New("publish games: MINIO_ENDPOINT is not set")
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      static.NewRouter(cfg.FrontendDir, games, true),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	slog.Info("frontend listening", "port", cfg.Port, "frontend_dir", cfg.FrontendDir, "games_dir", cfg.GamesDir)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return httpserver.Run(srv, quit)
}
