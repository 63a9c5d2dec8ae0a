package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"caixa/internal/amqp"
	"caixa/internal/config"
	"caixa/internal/core"
	"caixa/internal/identity"
	applog "caixa/internal/log"
	"caixa/internal/notify"
	"caixa/internal/services"
	"caixa/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Setup structured logging
	logger := applog.New(applog.Config{
		Level:     slog.LevelInfo,
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting caixa-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// AMQP is optional: without a broker the worker still runs its
	// periodic jobs, it just cannot react to ledger events.
	var events *amqp.Client
	if cfg.AMQPURL != "" {
		events, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer events.Close()
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	provider := identity.NewStatic(cfg.OwnerID)
	taxes := services.NewObligationService(repo, repo, nil, provider, events)
	alerts := notify.NewGenerator(repo, notify.NewCache(cfg.NotifyCachePath), provider)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Keep the running month's obligation present.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.EnsureInterval)
		defer ticker.Stop()

		for {
			ensureCurrentPeriod(ctx, taxes)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	})

	// Regenerate due-date alerts on a fixed cadence.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.NotifyInterval)
		defer ticker.Stop()

		for {
			refreshAlerts(ctx, alerts)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	})

	// A ledger change may affect the pending obligations behind the
	// alert feed, so each event triggers an immediate refresh.
	if events != nil {
		g.Go(func() error {
			return events.ConsumeLedgerEvents(ctx, func(msg *amqp.LedgerEventMessage) error {
				slog.InfoContext(ctx, "Ledger event received",
					"op", msg.Op, "entry_id", msg.EntryID)
				refreshAlerts(ctx, alerts)
				return nil
			})
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

func ensureCurrentPeriod(ctx context.Context, taxes *services.ObligationService) {
	created, o, err := taxes.EnsureCurrentPeriod(ctx, core.ZeroMoney())
	if err != nil {
		slog.ErrorContext(ctx, "Failed to ensure current period", applog.FieldError, err)
		return
	}
	if created {
		slog.InfoContext(ctx, "Obligation created for current period",
			applog.FieldPeriod, o.Period,
			applog.FieldDueDate, o.DueDate.Format(core.DisplayFormat))
	}
}

func refreshAlerts(ctx context.Context, alerts *notify.Generator) {
	added, err := alerts.Refresh(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to refresh alerts", applog.FieldError, err)
		return
	}
	if added > 0 {
		slog.InfoContext(ctx, "Alert feed refreshed", applog.FieldCount, added)
	}
}
