// Command events-worker consumes domain events from the broker and writes
// them to the audit log.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"gitlab.com/yelinaung/expense-tracker/internal/config"
	"gitlab.com/yelinaung/expense-tracker/internal/events"
	"gitlab.com/yelinaung/expense-tracker/internal/logger"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to load config")
	}
	if cfg.LogFormat == "json" {
		logger.SetJSON()
	}
	logger.SetLevel(cfg.LogLevel)
	logger.InitHashSalt(cfg.LogHashSalt)

	if !cfg.EventsEnabled() {
		logger.Log.Fatal().Msg("AMQP_URL is required for the events worker")
	}

	client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize AMQP client")
	}
	defer client.Close()

	logger.Log.Info().
		Str("exchange", cfg.AMQPExchange).
		Str("queue", cfg.AMQPQueue).
		Msg("Starting events worker")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := client.Consume(gctx, events.AuditHandler)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Log.Error().Err(err).Msg("Events worker stopped with error")
		client.Close()
		os.Exit(1)
	}
	logger.Log.Info().Msg("Events worker stopped")
}
