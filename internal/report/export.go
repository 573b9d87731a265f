package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/go-analyze/charts"
	"gitlab.com/yelinaung/expense-tracker/internal/models"
)

const uncategorized = "Uncategorized"

// WriteCSV writes expenses as CSV with a header row.
func WriteCSV(w io.Writer, expenses []models.Expense) error {
	writer := csv.NewWriter(w)

	header := []string{"Date", "Label", "Category", "Amount", "Note"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i := range expenses {
		row := []string{
			expenses[i].Date.String(),
			expenses[i].Label,
			expenses[i].Category,
			expenses[i].Amount.StringFixed(2),
			expenses[i].Note,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}

// RenderPieChart draws the report rows as a PNG pie chart.
func RenderPieChart(res Result, title string) ([]byte, error) {
	if len(res.Rows) == 0 {
		return nil, fmt.Errorf("no expenses to chart")
	}

	values := make([]float64, len(res.Rows))
	names := make([]string, len(res.Rows))
	for i, row := range res.Rows {
		values[i] = row.Sum.InexactFloat64()
		names[i] = row.Category
		if names[i] == "" {
			names[i] = uncategorized
		}
	}

	p, err := charts.PieRender(
		values,
		charts.TitleOptionFunc(charts.TitleOption{Text: title}),
		charts.LegendLabelsOptionFunc(names),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf, nil
}

// Title describes the period of f, e.g. "Expenses 2024-01" or "Expenses 2024".
func Title(f Filter) string {
	period := fmt.Sprintf("%d", f.Year)
	if f.Month != 0 {
		period = fmt.Sprintf("%d-%02d", f.Year, f.Month)
	}
	if f.allCategories() {
		return "Expenses " + period
	}
	return fmt.Sprintf("Expenses %s (%s)", period, f.Category)
}

// Filename builds a download name such as "expenses_2024-01.csv".
func Filename(f Filter, ext string) string {
	if f.Month != 0 {
		return fmt.Sprintf("expenses_%d-%02d.%s", f.Year, f.Month, ext)
	}
	return fmt.Sprintf("expenses_%d.%s", f.Year, ext)
}
