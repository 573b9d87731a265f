// Package ledger records each owner's expenses.
package ledger

import (
	"context"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/expense-tracker/internal/apperr"
	"gitlab.com/yelinaung/expense-tracker/internal/events"
	"gitlab.com/yelinaung/expense-tracker/internal/logger"
	"gitlab.com/yelinaung/expense-tracker/internal/models"
	"gitlab.com/yelinaung/expense-tracker/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "gitlab.com/yelinaung/expense-tracker/internal/ledger"

// AddInput is the expense form.
type AddInput struct {
	Label    string  `json:"label"`
	Amount   float64 `json:"amount"`
	Category string  `json:"category"`
	Date     string  `json:"date"`
	Note     string  `json:"note"`
}

// Ledger is the owner-scoped expense store.
type Ledger struct {
	expenses *store.Collection[models.Expense]
	pub      events.Publisher
	now      func() time.Time

	added   metric.Int64Counter
	deleted metric.Int64Counter
}

// New creates a Ledger over a loaded collection. Counters are registered on
// the global meter provider.
func New(expenses *store.Collection[models.Expense], pub events.Publisher) *Ledger {
	if pub == nil {
		pub = events.Nop{}
	}

	meter := otel.Meter(meterName)
	added, err := meter.Int64Counter("ledger.expenses.added",
		metric.WithDescription("Number of expenses recorded"))
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to create expenses added counter")
	}
	deleted, err := meter.Int64Counter("ledger.expenses.deleted",
		metric.WithDescription("Number of expenses deleted"))
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Failed to create expenses deleted counter")
	}

	return &Ledger{
		expenses: expenses,
		pub:      pub,
		now:      time.Now,
		added:    added,
		deleted:  deleted,
	}
}

// Add validates and records an expense. It becomes the first entry of the
// owner's list.
func (l *Ledger) Add(ctx context.Context, owner string, in AddInput) (models.Expense, error) {
	label := strings.TrimSpace(in.Label)
	if label == "" {
		return models.Expense{}, apperr.Validation("label is required")
	}
	if utf8.RuneCountInString(label) > models.MaxLabelLength {
		return models.Expense{}, apperr.Validationf("label must be at most %d characters", models.MaxLabelLength)
	}

	amount, err := amountFromFloat(in.Amount)
	if err != nil {
		return models.Expense{}, err
	}

	if strings.TrimSpace(in.Date) == "" {
		return models.Expense{}, apperr.Validation("date is required")
	}
	date, err := models.ParseDate(in.Date)
	if err != nil {
		return models.Expense{}, apperr.Validation("date must be YYYY-MM-DD")
	}

	e := models.Expense{
		ID:        uuid.NewString(),
		Owner:     owner,
		Label:     label,
		Amount:    amount,
		Category:  strings.TrimSpace(in.Category),
		Date:      date,
		Note:      strings.TrimSpace(in.Note),
		CreatedAt: l.now().UTC(),
	}
	if err := l.expenses.Save(ctx, e, store.Front); err != nil {
		return models.Expense{}, err
	}

	if l.added != nil {
		l.added.Add(ctx, 1)
	}
	logger.Log.Debug().
		Str("user_hash", logger.HashUsername(owner)).
		Str("label", logger.SanitizeDescription(label)).
		Str("amount", amount.StringFixed(2)).
		Msg("Expense added")
	events.Emit(ctx, l.pub, events.New(events.ExpenseAdded, owner, e.ID))

	return e, nil
}

// Delete removes one of the owner's expenses and reports whether it existed.
func (l *Ledger) Delete(ctx context.Context, owner, id string) (bool, error) {
	e, ok := l.expenses.Get(id)
	if !ok || e.Owner != owner {
		return false, nil
	}

	deleted, err := l.expenses.Delete(ctx, id)
	if err != nil || !deleted {
		return false, err
	}

	if l.deleted != nil {
		l.deleted.Add(ctx, 1)
	}
	events.Emit(ctx, l.pub, events.New(events.ExpenseDeleted, owner, id))
	return true, nil
}

// ListForOwner returns the owner's expenses, most recently added first.
func (l *Ledger) ListForOwner(owner string) []models.Expense {
	return l.expenses.ByOwner(owner)
}

// Revision changes whenever the owner's expenses change.
func (l *Ledger) Revision(owner string) uint64 {
	return l.expenses.Revision(owner)
}

func amountFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Decimal{}, apperr.Validation("amount must be a number")
	}
	if f <= 0 {
		return decimal.Decimal{}, apperr.Validation("amount must be greater than zero")
	}
	return decimal.NewFromFloat(f), nil
}

// ParseAmount parses a positive decimal amount. A comma is accepted as the
// decimal separator.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if s == "" {
		return decimal.Decimal{}, apperr.Validation("amount is required")
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, apperr.Validation("amount must be a number")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return decimal.Decimal{}, apperr.Validation("amount must be greater than zero")
	}
	return amount, nil
}
