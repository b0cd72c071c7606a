package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/caseclash/backend/internal/api"
	"github.com/caseclash/backend/internal/battle"
	"github.com/caseclash/backend/internal/chain"
	"github.com/caseclash/backend/internal/config"
	"github.com/caseclash/backend/internal/live"
	"github.com/caseclash/backend/internal/logging"
	"github.com/caseclash/backend/internal/store"
)

func main() {
	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return err
	}

	indexer := chain.NewClient(chain.Config{
		BaseURL:      cfg.IndexerURL,
		Lead:         cfg.ChainLead,
		PollAttempts: cfg.ChainPollRetries,
		PollBackoff:  cfg.ChainPollBackoff,
	})
	if err := indexer.Health(context.Background()); err != nil {
		log.Warn("block indexer unavailable at startup, games will use fallback randomness", zap.Error(err))
	}

	hub := live.NewHub(log.Named("live"))
	engine := battle.NewEngine(log.Named("battle"), db, db, indexer, hub, battle.DefaultTiming())

	// Reattach games that survived a restart; stale full boards are refunded.
	if err := engine.Recover(context.Background()); err != nil {
		return err
	}

	server := api.NewServer(log.Named("api"), engine, db, hub)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Routes(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.ListenAddr))
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-stop:
		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(ctx)
	}
}
