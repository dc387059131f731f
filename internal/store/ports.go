// Package store declares the persistence boundary. The enrichment pipeline
// and HTTP layer never touch storage directly; they speak through these
// ports.
package store

import (
	"context"

	"github.com/google/uuid"

	"parsimonious/internal/core"
)

// Ports for outbound persistence adapters.
type (
	ReceiptWriter interface {
		AddReceipt(ctx context.Context, r core.Receipt) error
	}

	ReceiptLister interface {
		// ListMonth returns receipts dated within the given year and month.
		ListMonth(ctx context.Context, year, month int) ([]core.Receipt, error)
		// ListAll returns every live receipt.
		ListAll(ctx context.Context) ([]core.Receipt, error)
	}

	ReceiptDeleter interface {
		DeleteReceipt(ctx context.Context, id uuid.UUID) error
	}

	// TaxonomyReader exposes the user's closed category set, the decision
	// space for enrichment category refinement.
	TaxonomyReader interface {
		Categories(ctx context.Context) ([]string, error)
	}

	TaxonomyWriter interface {
		AddCategory(ctx context.Context, name string) error
		RemoveCategory(ctx context.Context, name string) error
	}

	BudgetReader interface {
		// Budgets returns one entry per category; categories without an
		// explicit budget carry core.DefaultBudget.
		Budgets(ctx context.Context) ([]core.Budget, error)
	}

	BudgetWriter interface {
		SetBudget(ctx context.Context, b core.Budget) error
	}

	// SummaryReader provides aggregated monthly data for charts and the
	// export email body.
	SummaryReader interface {
		MonthOverview(ctx context.Context, year, month int) (core.MonthOverview, error)
	}

	// CategorySuggester remembers the category last used for a
	// description, so re-entering "coffee" pre-selects the old choice.
	CategorySuggester interface {
		SuggestCategory(ctx context.Context, description string) (string, bool, error)
	}
)

// Store is the full persistence surface a backend must provide.
type Store interface {
	ReceiptWriter
	ReceiptLister
	ReceiptDeleter
	TaxonomyReader
	TaxonomyWriter
	BudgetReader
	BudgetWriter
	SummaryReader
	CategorySuggester

	Close() error
}
