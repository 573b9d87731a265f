//go:build ignore
// +build ignore

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/expense-tracker/internal/models"
	"gitlab.com/yelinaung/expense-tracker/internal/report"
)

func main() {
	day := models.NewDate(2026, time.January, 15)
	expenses := []models.Expense{
		{Amount: decimal.NewFromFloat(150.50), Category: "Food", Date: day},
		{Amount: decimal.NewFromFloat(130.50), Category: "Housing", Date: day},
		{Amount: decimal.NewFromFloat(60.00), Category: "Transport", Date: day},
		{Amount: decimal.NewFromFloat(25.00), Category: "Leisure", Date: day},
		{Amount: decimal.NewFromFloat(120.00), Category: "Health", Date: day},
	}

	filter := report.Filter{Year: 2026, Month: 1}
	res := report.Aggregate(expenses, nil, filter, time.Now())

	chartData, err := report.RenderPieChart(res, report.Title(filter))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile("graph.png", chartData, 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Chart saved to graph.png")
}
