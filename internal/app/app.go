package app

import (
	"context"

	"gitlab.com/yelinaung/expense-tracker/internal/cache"
	"gitlab.com/yelinaung/expense-tracker/internal/category"
	"gitlab.com/yelinaung/expense-tracker/internal/config"
	"gitlab.com/yelinaung/expense-tracker/internal/events"
	"gitlab.com/yelinaung/expense-tracker/internal/httpapi"
	"gitlab.com/yelinaung/expense-tracker/internal/identity"
	"gitlab.com/yelinaung/expense-tracker/internal/ledger"
	"gitlab.com/yelinaung/expense-tracker/internal/logger"
	"gitlab.com/yelinaung/expense-tracker/internal/report"
	"gitlab.com/yelinaung/expense-tracker/internal/suggest"
)

// App is the assembled service graph.
type App struct {
	cfg *config.Config

	Stores     *Stores
	Identity   *identity.Manager
	Categories *category.Registry
	Ledger     *ledger.Ledger
	Reports    *report.Service
	Signer     *identity.TokenSigner
	Suggester  *suggest.Client

	events *events.Client
}

// New builds the App. Optional integrations that fail to start are logged
// and left disabled.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	stores, err := OpenStores(ctx, StoreOptions{
		Driver:      cfg.StoreDriver,
		SQLitePath:  cfg.SQLitePath,
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, Stores: stores, Signer: identity.NewTokenSigner(cfg.APISecret)}

	var pub events.Publisher = events.Nop{}
	if cfg.EventsEnabled() {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Event publishing disabled")
		} else {
			a.events = client
			pub = client
		}
	}

	if cfg.SuggestionsEnabled() {
		client, err := suggest.NewClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("Category suggestions disabled")
		} else {
			a.Suggester = client
		}
	}

	a.Identity = identity.NewManager(stores.Users, stores.Sessions, identity.Options{
		BcryptCost: cfg.BcryptCost,
		SessionTTL: cfg.SessionTTL,
		Publisher:  pub,
	})
	a.Categories = category.NewRegistry(stores.Categories, pub)
	a.Ledger = ledger.New(stores.Expenses, pub)
	a.Reports = report.NewService(a.Ledger, a.Categories, cfg.ReportCacheSize, cfg.ReportCacheTTL)

	return a, nil
}

// Server builds the HTTP server for the App.
func (a *App) Server() *httpapi.Server {
	deps := httpapi.Deps{
		Identity:   a.Identity,
		Categories: a.Categories,
		Expenses:   a.Ledger,
		Reports:    a.Reports,
	}
	if a.Suggester != nil {
		deps.Suggester = a.Suggester
	}

	return httpapi.NewServer(httpapi.Options{
		Addr:               a.cfg.ListenAddr,
		AuthMode:           a.cfg.AuthMode,
		AnonymousOwner:     a.cfg.AnonymousOwner,
		Signer:             a.Signer,
		RateLimitPerMinute: a.cfg.RateLimitPerMinute,
		TrustedProxies:     a.cfg.TrustedProxies,
		Ready:              a.Stores.Ping,
	}, deps)
}

// RunCacheJanitor drops expired report cache entries until ctx is done.
func (a *App) RunCacheJanitor(ctx context.Context) {
	cache.RunJanitor(ctx, a.cfg.ReportCacheTTL, a.Reports.Cache())
}

// Close releases the broker and storage connections.
func (a *App) Close() {
	if a.events != nil {
		if err := a.events.Close(); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to close event client")
		}
	}
	a.Stores.Close()
}
