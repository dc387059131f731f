package core

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidDay       = errors.New("invalid day")
	ErrInvalidMonth     = errors.New("invalid month")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
)

// DefaultCategories seeds a fresh install's taxonomy.
var DefaultCategories = []string{
	"Groceries", "Rent", "Transportation", "Entertainment", "Utilities",
}

// DefaultBudget is the per-category budget applied until the user sets one.
var DefaultBudget = Money{Cents: 50000}

type (
	// Receipt is a single logged expense. The collection owning it assigns
	// the ID; receipts are created by manual entry or by the enrichment
	// pipeline and removed only by explicit user action.
	Receipt struct {
		ID          uuid.UUID
		Date        CalendarDate
		Description string
		Note        string
		Category    string
		Amount      Money
	}

	// EnrichmentResult is a receipt minus identity, produced by the
	// enrichment pipeline. It is either discarded or converted into a
	// persisted Receipt by the caller.
	EnrichmentResult struct {
		Date        CalendarDate
		Description string
		Note        string
		Category    string
		Amount      Money
	}

	// Budget is the monthly spending target for one category.
	Budget struct {
		Category string
		Amount   Money
	}
)

func (r Receipt) Validate() error {
	if err := r.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(r.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(r.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := r.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

// Receipt assigns a fresh identity to the result, making it ready to persist.
func (e EnrichmentResult) Receipt() Receipt {
	return Receipt{
		ID:          uuid.New(),
		Date:        e.Date,
		Description: e.Description,
		Note:        e.Note,
		Category:    e.Category,
		Amount:      e.Amount,
	}
}

func (e EnrichmentResult) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return ErrEmptyDescription
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	return e.Amount.Validate()
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	return b.Amount.Validate()
}
