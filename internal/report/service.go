package report

import (
	"context"
	"fmt"
	"time"

	"gitlab.com/yelinaung/expense-tracker/internal/cache"
	"gitlab.com/yelinaung/expense-tracker/internal/logger"
	"gitlab.com/yelinaung/expense-tracker/internal/models"
)

// ExpenseSource is the part of the ledger a report reads.
type ExpenseSource interface {
	ListForOwner(owner string) []models.Expense
	Revision(owner string) uint64
}

// CategorySource is the part of the category registry a report reads.
type CategorySource interface {
	ListForOwner(ctx context.Context, owner string) ([]models.Category, error)
	Revision(owner string) uint64
}

// Service builds reports and caches them until the owner's data changes.
type Service struct {
	expenses   ExpenseSource
	categories CategorySource
	cache      *cache.LRU[Result]
	now        func() time.Time
}

// NewService creates a Service with an LRU of the given size and ttl.
func NewService(expenses ExpenseSource, categories CategorySource, cacheSize int, cacheTTL time.Duration) *Service {
	return &Service{
		expenses:   expenses,
		categories: categories,
		cache:      cache.NewLRU[Result](cacheSize, cacheTTL),
		now:        time.Now,
	}
}

// Cache exposes the result cache so it can be cleaned periodically.
func (s *Service) Cache() *cache.LRU[Result] {
	return s.cache
}

// Build returns the owner's report for f.
func (s *Service) Build(ctx context.Context, owner string, f Filter) (Result, error) {
	if err := f.Validate(); err != nil {
		return Result{}, err
	}
	now := s.now()
	f = f.Resolve(now)

	categories, err := s.categories.ListForOwner(ctx, owner)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load categories: %w", err)
	}

	key := s.cacheKey(owner, f)
	if res, ok := s.cache.Get(key); ok {
		logger.Log.Debug().Str("user_hash", logger.HashUsername(owner)).Msg("Report cache hit")
		return res, nil
	}

	res := Aggregate(s.expenses.ListForOwner(owner), categories, f, now)
	s.cache.Set(key, res)
	return res, nil
}

// Expenses returns the owner's expenses matching f, newest first.
func (s *Service) Expenses(owner string, f Filter) ([]models.Expense, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return FilterExpenses(s.expenses.ListForOwner(owner), f, s.now()), nil
}

func (s *Service) cacheKey(owner string, f Filter) string {
	return fmt.Sprintf("%s|%d|%d|%s|%d|%d",
		owner, f.Year, f.Month, f.Category,
		s.expenses.Revision(owner), s.categories.Revision(owner))
}
