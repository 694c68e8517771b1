// The projector process consumes the event log and maintains the accounts
// read model. It resumes from its persisted checkpoint, so a restart after a
// crash continues where the previous run stopped.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/accountstreams/account-cqrs-go/config"
	"github.com/accountstreams/account-cqrs-go/eventstore/postgresengine"
	"github.com/accountstreams/account-cqrs-go/projection/accounts"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(logger); err != nil {
		logger.Error("projector terminated", "error", err)
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

	eventStore, err := postgresengine.NewEventStoreFromPGXPool(
		pool,
		postgresengine.WithLogger(logger),
		postgresengine.WithPollInterval(cfg.ProjectorPollInterval),
	)
	if err != nil {
		return err
	}

	readStore, err := accounts.NewReadStore(readDB)
	if err != nil {
		return err
	}

	if schemaErr := readStore.EnsureSchema(ctx); schemaErr != nil {
		return schemaErr
	}

	projector := accounts.NewProjector(eventStore, readStore, accounts.WithLogger(logger))

	logger.Info("projector starting", "projector", accounts.ProjectorName)

	if runErr := projector.Run(ctx); runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	logger.Info("projector stopped")

	return nil
}
