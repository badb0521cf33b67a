package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pongarena/backend/internal/config"
	"github.com/pongarena/backend/internal/coordinator"
	"github.com/pongarena/backend/internal/httpapi"
	"github.com/pongarena/backend/internal/store"
)

func main() {
	cfg := config.Load()

	logger, err := buildLogger(cfg.Env)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rec store.Recorder = store.Noop{}
	if cfg.DatabaseURL != "" {
		db, err := store.Open(cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("open store", zap.Error(err))
		}
		defer db.Close()
		rec = db
	}

	coord := coordinator.New(ctx, coordinator.Options{
		Logger:          logger,
		Recorder:        rec,
		CleanupInterval: cfg.CleanupInterval,
		MaxIdleRoomAge:  cfg.MaxIdleRoomAge,
		StaleWaitingAge: cfg.StaleWaitingAge,
		ReadyTimeout:    cfg.ReadyTimeout,
		RoundStartDelay: cfg.RoundStartDelay,
	})

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: httpapi.SetupRoutes(coord, logger, cfg.MaxMessageBytes),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func buildLogger(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
