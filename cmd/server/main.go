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

	"github.com/scrumdeck/backend/internal/config"
	"github.com/scrumdeck/backend/internal/deck"
	"github.com/scrumdeck/backend/internal/httpapi"
	"github.com/scrumdeck/backend/internal/roomsync"
	"github.com/scrumdeck/backend/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := newLogger(cfg.DevLog)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mem := store.NewMemStore(ctx, logger)
	var st store.Store = mem
	if cfg.DatabaseURL != "" {
		gs, err := store.OpenGormStore(mem, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("open durable store", zap.Error(err))
		}
		if err := gs.Load(ctx); err != nil {
			logger.Fatal("load rooms", zap.Error(err))
		}
		st = gs
	}
	defer st.Close()

	ch := roomsync.NewChannel(st, logger)
	cards := deck.Generate(cfg.DeckStart, cfg.DeckLimit)
	api := httpapi.NewAPI(st, ch, logger)
	handler := httpapi.SetupRoutes(api, ch, cards, cfg.AllowedOrigins, logger)

	srv := &http.Server{Addr: cfg.Addr, Handler: handler}

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
		logger.Fatal("server", zap.Error(err))
	}
}

func newLogger(dev bool) *zap.Logger {
	if dev {
		return zap.Must(zap.NewDevelopment())
	}
	return zap.Must(zap.NewProduction())
}
