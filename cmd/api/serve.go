package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"scholars/api/internal/app"
	"scholars/api/internal/archive"
	"scholars/api/internal/cache"
	"scholars/api/internal/config"
	"scholars/api/internal/export"
	"scholars/api/internal/scholar"
	"scholars/api/internal/search"
	"scholars/api/internal/share"
	"scholars/api/internal/store"
)

// openDatabase connects and migrates the configured database.
func openDatabase(ctx context.Context, cfg config.Config) (*sql.DB, *store.Store, error) {
	dialect, path, err := store.ParseDatabaseURL(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if dialect == store.SQLite {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("create database dir: %w", err)
			}
		}
	}

	db, dialect, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := store.ApplyMigrations(ctx, db, dialect, cfg.MigrationsDir); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrations failed: %w", err)
	}
	return db, store.New(db, dialect), nil
}

func newArchiver(cfg config.Config) (*archive.Archiver, error) {
	return archive.New(archive.Config{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		Bucket:    cfg.MinioBucket,
		UseSSL:    cfg.MinioUseSSL,
	}, logger)
}

func runServe(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, sqlStore, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	var shares share.Store = sqlStore
	var cachePinger *cache.RedisStore
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisCache, err := cache.NewRedisStore(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer redisCache.Close()
		logger.Info("using redis share cache", zap.Duration("ttl", cfg.CacheTTL))
		shares = cache.NewCachedStore(sqlStore, redisCache, logger)
		cachePinger = redisCache
	}

	var engine search.Engine
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
		defer meiliClient.Close()
		engine = meiliClient
	}
	searchService := search.NewService(engine, search.NewSQL(sqlStore), logger)
	go func() {
		indexed, err := searchService.Reindex(ctx, sqlStore)
		if err != nil {
			logger.Warn("search reindex failed", zap.Error(err))
			return
		}
		if indexed > 0 {
			logger.Info("search index rebuilt", zap.Int("shares", indexed))
		}
	}()

	metrics := app.NewMetrics()
	deps := app.Deps{
		Shares:   shares,
		Settings: sqlStore,
		Answers:  scholar.NewPanel(scholar.NewGenAIFactory(cfg.GeminiModel), cfg.AnswerTimeout, logger),
		Search:   searchService,
		Export:   export.NewService(cfg.PublicBaseURL),
		Metrics:  metrics,
		Logger:   logger,
	}
	if cachePinger != nil {
		deps.Cache = cachePinger
	}
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		archiver, err := newArchiver(cfg)
		if err != nil {
			return err
		}
		if err := archiver.EnsureBucket(ctx); err != nil {
			logger.Warn("archive bucket unavailable", zap.Error(err))
		}
		deps.Archive = archiver
	}
	service := app.New(deps)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin, logger)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.AnswerTimeout + 15*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("scholars api listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	return nil
}

func runMigrate(ctx context.Context) error {
	db, _, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("migrations applied", zap.String("dir", cfg.MigrationsDir))
	return nil
}

func runReindex(ctx context.Context) error {
	if strings.TrimSpace(cfg.MeiliURL) == "" {
		return fmt.Errorf("MEILI_URL is not set")
	}
	db, sqlStore, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	meiliClient := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, logger)
	defer meiliClient.Close()
	if !meiliClient.Healthy() {
		return fmt.Errorf("meilisearch unavailable at %s", cfg.MeiliURL)
	}
	indexed, err := search.NewService(meiliClient, nil, logger).Reindex(ctx, sqlStore)
	if err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	logger.Info("search index rebuilt", zap.Int("shares", indexed))
	return nil
}

func runArchiveBackfill(ctx context.Context) error {
	if strings.TrimSpace(cfg.MinioEndpoint) == "" {
		return fmt.Errorf("MINIO_ENDPOINT is not set")
	}
	db, sqlStore, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	archiver, err := newArchiver(cfg)
	if err != nil {
		return err
	}
	if err := archiver.EnsureBucket(ctx); err != nil {
		return err
	}
	archived, err := archiver.Backfill(ctx, sqlStore)
	if err != nil {
		return fmt.Errorf("archive backfill: %w", err)
	}
	logger.Info("shares archived", zap.Int("shares", archived), zap.String("bucket", cfg.MinioBucket))
	return nil
}

func runArchiveRestore(ctx context.Context) error {
	if strings.TrimSpace(cfg.MinioEndpoint) == "" {
		return fmt.Errorf("MINIO_ENDPOINT is not set")
	}
	db, sqlStore, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	archiver, err := newArchiver(cfg)
	if err != nil {
		return err
	}
	restored, skipped, err := archiver.Restore(ctx, sqlStore)
	if err != nil {
		return fmt.Errorf("archive restore: %w", err)
	}
	logger.Info("shares restored",
		zap.Int("restored", restored),
		zap.Int("skipped", skipped),
		zap.String("bucket", cfg.MinioBucket))
	return nil
}
