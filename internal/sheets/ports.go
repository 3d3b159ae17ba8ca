package sheets

import (
	"context"

	"moneytracker/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionMirror keeps an external copy of the transaction table.
	TransactionMirror interface {
		// ReplaceAll overwrites the mirror with txs, in the given order.
		ReplaceAll(ctx context.Context, txs []core.Transaction) error
	}

	// TransactionReader reads the mirrored rows back.
	TransactionReader interface {
		ReadAll(ctx context.Context) ([]core.Transaction, error)
	}
)

// Header is the first row written to every mirror.
var Header = []string{"ID", "Date", "Type", "Category", "Description", "Amount"}
