// The api process exposes the account command surface and the accounts
// read model over HTTP.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/accountstreams/account-cqrs-go/account/command"
	"github.com/accountstreams/account-cqrs-go/account/shell"
	"github.com/accountstreams/account-cqrs-go/config"
	"github.com/accountstreams/account-cqrs-go/eventstore/postgresengine"
	"github.com/accountstreams/account-cqrs-go/projection/accounts"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(logger); err != nil {
		logger.Error("api terminated", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.ParseEnv()
	if err != nil {
		return err
	}

	pool, err := config.EventStorePool(ctx, cfg.EventStoreDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	readDB, err := config.ReadModelDB(ctx, cfg.ReadModelDSN)
	if err != nil {
		return err
	}
	defer func() { _ = readDB.Close() }()

	eventStore, err := postgresengine.NewEventStoreFromPGXPool(pool, postgresengine.WithLogger(logger))
	if err != nil {
		return err
	}

	readStore, err := accounts.NewReadStore(readDB)
	if err != nil {
		return err
	}

	dispatcher := command.NewDispatcher(shell.NewRepository(eventStore))
	srv := newServer(dispatcher, readStore, logger)

	httpServer := &http.Server{
		Addr:              cfg.HTTPListenAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)

	go func() {
		logger.Info("api listening", "addr", cfg.HTTPListenAddr)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("api shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		return shutdownErr
	}

	if err := <-serveErr; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
