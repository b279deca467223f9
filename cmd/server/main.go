package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/songdle/songdle-backend/internal/config"
	"github.com/songdle/songdle-backend/internal/httpapi"
	"github.com/songdle/songdle-backend/internal/lobby"
	"github.com/songdle/songdle-backend/internal/playlist"
	"github.com/songdle/songdle-backend/internal/store"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("bad configuration", zap.Error(err))
	}

	st, err := buildStore(cfg, log)
	if err != nil {
		log.Fatal("store init failed", zap.Error(err))
	}

	reaper, err := lobby.StartReaper(st, cfg.StaleAfter, cfg.ReapInterval, log)
	if err != nil {
		log.Fatal("reaper init failed", zap.Error(err))
	}
	defer reaper.Stop()

	var tracks playlist.Source
	if cfg.YouTubeAPIKey != "" {
		tracks = playlist.NewYouTube(cfg.YouTubeAPIKey, log)
	}

	api := httpapi.New(st, tracks, cfg.BaseURL, log)
	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(api),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown incomplete", zap.Error(err))
	}
}

func buildStore(cfg config.Config, log *zap.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case config.BackendFile:
		blob, err := store.NewFileBlob(cfg.BlobDir)
		if err != nil {
			return nil, err
		}
		return store.NewMemWithBlob(blob, "songdle", log)
	case config.BackendPostgres:
		db, err := gorm.Open(postgres.Open(cfg.PostgresDSN), &gorm.Config{})
		if err != nil {
			return nil, err
		}
		return store.NewGorm(db, log)
	default:
		return store.NewMem(log), nil
	}
}
