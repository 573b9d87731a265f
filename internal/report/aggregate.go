// Package report computes period and category summaries of an owner's expenses.
package report

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/expense-tracker/internal/apperr"
	"gitlab.com/yelinaung/expense-tracker/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Filter selects the expenses a report covers. Month 0 means the whole
// year; an empty Category or "ALL" means every category.
type Filter struct {
	Year     int    `json:"year"`
	Month    int    `json:"month"`
	Category string `json:"category"`
}

// Validate checks the month range.
func (f Filter) Validate() error {
	if f.Month < 0 || f.Month > 12 {
		return apperr.Validation("month must be between 0 and 12")
	}
	if f.Year < 0 {
		return apperr.Validation("year must not be negative")
	}
	return nil
}

// Resolve fills in the current year when Year is zero.
func (f Filter) Resolve(now time.Time) Filter {
	if f.Year == 0 {
		f.Year = now.Year()
	}
	return f
}

func (f Filter) allCategories() bool {
	c := strings.TrimSpace(f.Category)
	return c == "" || c == models.AllCategories
}

// Matches reports whether e falls inside the filter.
func (f Filter) Matches(e models.Expense) bool {
	if e.Date.Year() != f.Year {
		return false
	}
	if f.Month != 0 && int(e.Date.Month()) != f.Month {
		return false
	}
	return f.allCategories() || e.Category == f.Category
}

// Row is one category line of a report.
type Row struct {
	Category string          `json:"category"`
	Sum      decimal.Decimal `json:"sum"`
	Percent  int64           `json:"percent"`
	Color    string          `json:"color"`
}

// Result is a computed report.
type Result struct {
	Filter Filter          `json:"filter"`
	Total  decimal.Decimal `json:"total"`
	Count  int             `json:"count"`
	Rows   []Row           `json:"rows"`
	Years  []int           `json:"years"`
}

// Aggregate summarises expenses for f. A zero year means the year of now.
// Rows are sorted by descending sum; equal sums keep first-seen order.
func Aggregate(expenses []models.Expense, categories []models.Category, f Filter, now time.Time) Result {
	f = f.Resolve(now)

	res := Result{Filter: f, Total: decimal.Zero, Rows: []Row{}}
	sums := make(map[string]decimal.Decimal)
	var order []string

	for _, e := range expenses {
		if !f.Matches(e) {
			continue
		}
		res.Count++
		res.Total = res.Total.Add(e.Amount)
		if _, seen := sums[e.Category]; !seen {
			order = append(order, e.Category)
		}
		sums[e.Category] = sums[e.Category].Add(e.Amount)
	}

	colors := colorsByName(categories)
	for _, name := range order {
		res.Rows = append(res.Rows, Row{
			Category: name,
			Sum:      sums[name],
			Percent:  percent(sums[name], res.Total),
			Color:    colorFor(colors, name),
		})
	}
	slices.SortStableFunc(res.Rows, func(a, b Row) int {
		return b.Sum.Cmp(a.Sum)
	})

	res.Years = AvailableYears(expenses, now)
	return res
}

// FilterExpenses returns the expenses matching f, keeping their order.
func FilterExpenses(expenses []models.Expense, f Filter, now time.Time) []models.Expense {
	f = f.Resolve(now)
	out := make([]models.Expense, 0, len(expenses))
	for _, e := range expenses {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// AvailableYears lists the distinct expense years, newest first, or the
// current year when there are no expenses.
func AvailableYears(expenses []models.Expense, now time.Time) []int {
	seen := make(map[int]struct{})
	var years []int
	for _, e := range expenses {
		if e.Date.IsZero() {
			continue
		}
		y := e.Date.Year()
		if _, ok := seen[y]; !ok {
			seen[y] = struct{}{}
			years = append(years, y)
		}
	}
	if len(years) == 0 {
		return []int{now.Year()}
	}
	slices.Sort(years)
	slices.Reverse(years)
	return years
}

func percent(sum, total decimal.Decimal) int64 {
	if !total.IsPositive() {
		return 0
	}
	return sum.Div(total).Mul(hundred).Round(0).IntPart()
}

// colorsByName keeps the first colour seen for each name; names may repeat.
func colorsByName(categories []models.Category) map[string]string {
	m := make(map[string]string, len(categories))
	for _, c := range categories {
		if _, ok := m[c.Name]; !ok {
			m[c.Name] = c.Color
		}
	}
	return m
}

func colorFor(colors map[string]string, name string) string {
	if c, ok := colors[name]; ok && c != "" {
		return c
	}
	return models.DefaultCategoryColor
}
