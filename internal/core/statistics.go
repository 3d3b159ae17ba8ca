package core

import (
	"sort"
)

// CategoryStat is the expense total of one category inside a period.
type CategoryStat struct {
	Category   string
	Amount     Money
	Percentage float64 // share of the period's total expense, 0-100
}

// Statistics summarises a period. It is derived, never stored.
type Statistics struct {
	Period       Period
	TotalIncome  Money
	TotalExpense Money
	ByCategory   []CategoryStat
}

// Balance is income minus expense for the period.
func (s Statistics) Balance() Money {
	return s.TotalIncome.Sub(s.TotalExpense)
}

// ComputeStatistics filters txs to the period, sums each type and groups the
// expenses by category. Categories are sorted by amount descending, then by
// name so equal amounts keep a stable order.
func ComputeStatistics(txs []Transaction, period Period) Statistics {
	stats := Statistics{Period: period}
	byCategory := make(map[string]int64)

	for _, tx := range txs {
		if !period.Contains(tx.Date) {
			continue
		}
		switch tx.Type {
		case Income:
			stats.TotalIncome.Cents += tx.Amount.Cents
		case Expense:
			stats.TotalExpense.Cents += tx.Amount.Cents
			byCategory[tx.Category] += tx.Amount.Cents
		}
	}

	stats.ByCategory = make([]CategoryStat, 0, len(byCategory))
	for name, cents := range byCategory {
		var pct float64
		if stats.TotalExpense.Cents > 0 {
			pct = float64(cents) / float64(stats.TotalExpense.Cents) * 100
		}
		stats.ByCategory = append(stats.ByCategory, CategoryStat{
			Category:   name,
			Amount:     Money{Cents: cents},
			Percentage: pct,
		})
	}
	sort.Slice(stats.ByCategory, func(i, j int) bool {
		a, b := stats.ByCategory[i], stats.ByCategory[j]
		if a.Amount.Cents != b.Amount.Cents {
			return a.Amount.Cents > b.Amount.Cents
		}
		return a.Category < b.Category
	})

	return stats
}
