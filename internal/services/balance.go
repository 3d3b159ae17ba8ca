package services

import (
	"context"

	"moneytracker/internal/core"
	"moneytracker/internal/live"
)

// SumWatcher is the part of the repository the balance depends on.
type SumWatcher interface {
	WatchSum(ctx context.Context, typ core.TransactionType, period core.Period) <-chan live.Update[core.Money]
}

// BalanceUseCase derives the running balance from the income and expense
// totals of a period.
type BalanceUseCase struct {
	sums SumWatcher
}

func NewBalanceUseCase(sums SumWatcher) *BalanceUseCase {
	return &BalanceUseCase{sums: sums}
}

// Watch emits income minus expense over period, and again whenever either
// total changes. A period with no rows yields zero.
func (b *BalanceUseCase) Watch(ctx context.Context, period core.Period) <-chan live.Update[core.Money] {
	income := b.sums.WatchSum(ctx, core.Income, period)
	expense := b.sums.WatchSum(ctx, core.Expense, period)
	return live.Combine2(ctx, income, expense, func(in, out core.Money) core.Money {
		return in.Sub(out)
	})
}
