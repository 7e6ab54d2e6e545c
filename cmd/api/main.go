package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"marketops/internal/catalog"
	"marketops/internal/config"
	"marketops/internal/db"
	"marketops/internal/server"
)

func main() {
	cfg := config.Load()

	logger := newLogger(cfg.Env)
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect db", zap.Error(err))
	}
	defer pool.Close()

	var cat catalog.Catalog
	switch cfg.CatalogSource {
	case "file":
		if cfg.RateCardPath == "" {
			logger.Fatal("CATALOG_SOURCE=file requires RATE_CARD_PATH")
		}
		mem, err := catalog.NewMemoryFromFile(cfg.RateCardPath)
		if err != nil {
			logger.Fatal("failed to load rate card", zap.String("path", cfg.RateCardPath), zap.Error(err))
		}
		cat = mem
	case "postgres":
		cat = catalog.NewPostgres(pool)
	default:
		logger.Fatal("unknown CATALOG_SOURCE", zap.String("source", cfg.CatalogSource))
	}

	h := server.New(pool, cat, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("api listening",
		zap.String("port", cfg.Port),
		zap.String("catalog_source", cfg.CatalogSource),
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(env string) *zap.Logger {
	if env == "production" {
		logger, err := zap.NewProduction()
		if err == nil {
			return logger
		}
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		// zap config is static here; this should not happen
		panic(err)
	}
	return logger
}
