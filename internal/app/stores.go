// Package app assembles the services from configuration.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"gitlab.com/yelinaung/expense-tracker/internal/config"
	"gitlab.com/yelinaung/expense-tracker/internal/database"
	"gitlab.com/yelinaung/expense-tracker/internal/database/sqlite"
	"gitlab.com/yelinaung/expense-tracker/internal/logger"
	"gitlab.com/yelinaung/expense-tracker/internal/models"
	"gitlab.com/yelinaung/expense-tracker/internal/repository"
	"gitlab.com/yelinaung/expense-tracker/internal/store"
)

// Collection names.
const (
	UsersCollection      = "users"
	SessionsCollection   = "sessions"
	CategoriesCollection = "categories"
	ExpensesCollection   = "expenses"
)

// StoreOptions selects the storage backend.
type StoreOptions struct {
	Driver      string
	SQLitePath  string
	DatabaseURL string
}

// Stores holds the loaded record collections and the backend behind them.
type Stores struct {
	Users      *store.Collection[models.User]
	Sessions   *store.Collection[models.SessionRecord]
	Categories *store.Collection[models.Category]
	Expenses   *store.Collection[models.Expense]

	ping  func(ctx context.Context) error
	close func()
}

// OpenStores connects the backend, applies migrations and loads every collection.
func OpenStores(ctx context.Context, opts StoreOptions) (*Stores, error) {
	backend, ping, closeFn, err := openBackend(ctx, opts)
	if err != nil {
		return nil, err
	}

	s := &Stores{
		Users:      store.NewCollection[models.User](UsersCollection, backend),
		Sessions:   store.NewCollection[models.SessionRecord](SessionsCollection, backend),
		Categories: store.NewCollection[models.Category](CategoriesCollection, backend),
		Expenses:   store.NewCollection[models.Expense](ExpensesCollection, backend),
		ping:       ping,
		close:      closeFn,
	}

	for _, load := range []func(context.Context) error{
		s.Users.Load, s.Sessions.Load, s.Categories.Load, s.Expenses.Load,
	} {
		if err := load(ctx); err != nil {
			s.Close()
			return nil, err
		}
	}

	logger.Log.Info().
		Str("driver", opts.Driver).
		Int("users", s.Users.Len()).
		Int("categories", s.Categories.Len()).
		Int("expenses", s.Expenses.Len()).
		Msg("Store loaded")
	return s, nil
}

// Ping checks that the backend is reachable.
func (s *Stores) Ping(ctx context.Context) error {
	if s.ping == nil {
		return nil
	}
	return s.ping(ctx)
}

// Close releases the backend connection.
func (s *Stores) Close() {
	if s.close != nil {
		s.close()
	}
}

func openBackend(ctx context.Context, opts StoreOptions) (store.Backend, func(context.Context) error, func(), error) {
	switch opts.Driver {
	case config.StoreMemory, "":
		logger.Log.Warn().Msg("Using in-memory store; data is lost on restart")
		return store.NewMemoryBackend(), nil, nil, nil

	case config.StoreSQLite:
		if err := sqlite.RunMigrations(opts.SQLitePath); err != nil {
			return nil, nil, nil, err
		}
		db, err := sqlite.Open(ctx, opts.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return repository.NewSQLiteRecordRepository(db), db.PingContext, closeSQL(db), nil

	case config.StorePostgres:
		pool, err := database.Connect(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := database.RunMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		return repository.NewRecordRepository(pool), pool.Ping, pool.Close, nil

	default:
		return nil, nil, nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

func closeSQL(db *sql.DB) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.Log.Warn().Err(err).Msg("Failed to close sqlite database")
		}
	}
}
