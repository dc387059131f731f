package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"parsimonious/internal/core"
	"parsimonious/internal/store"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testReceipt(year, month, day int, desc, category string, cents int64) core.Receipt {
	return core.Receipt{
		ID:          uuid.New(),
		Date:        core.NewCalendarDate(year, month, day),
		Description: desc,
		Category:    category,
		Amount:      core.Money{Cents: cents},
	}
}

func TestReceiptRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	want := testReceipt(2025, 3, 14, "Coffee", "Groceries", 450)
	want.Note = "with Anna"
	if err := repo.AddReceipt(ctx, want); err != nil {
		t.Fatalf("AddReceipt: %v", err)
	}

	got, err := repo.ListMonth(ctx, 2025, 3)
	if err != nil {
		t.Fatalf("ListMonth: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 receipt, got %d", len(got))
	}
	if got[0] != want {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got[0], want)
	}
}

func TestListMonthOrdersByDate(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	for i, r := range []core.Receipt{
		testReceipt(2025, 3, 20, "Cinema", "Entertainment", 1500),
		testReceipt(2025, 3, 2, "Bus pass", "Transportation", 6000),
		testReceipt(2025, 4, 1, "Rent", "Rent", 120000),
	} {
		if err := repo.AddReceipt(ctx, r); err != nil {
			t.Fatalf("AddReceipt %d: %v", i, err)
		}
	}

	march, err := repo.ListMonth(ctx, 2025, 3)
	if err != nil {
		t.Fatalf("ListMonth: %v", err)
	}
	if len(march) != 2 {
		t.Fatalf("expected 2 receipts, got %d", len(march))
	}
	if march[0].Description != "Bus pass" || march[1].Description != "Cinema" {
		t.Errorf("receipts out of order: %q, %q", march[0].Description, march[1].Description)
	}

	all, err := repo.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 receipts, got %d", len(all))
	}
}

func TestDeleteReceipt(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	r := testReceipt(2025, 3, 14, "Coffee", "Groceries", 450)
	if err := repo.AddReceipt(ctx, r); err != nil {
		t.Fatalf("AddReceipt: %v", err)
	}
	if err := repo.DeleteReceipt(ctx, r.ID); err != nil {
		t.Fatalf("DeleteReceipt: %v", err)
	}
	if err := repo.DeleteReceipt(ctx, r.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTaxonomyAndBudgets(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	cats, err := repo.Categories(ctx)
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(cats) != len(core.DefaultCategories) {
		t.Fatalf("expected %d seeded categories, got %d", len(core.DefaultCategories), len(cats))
	}

	if err := repo.AddCategory(ctx, "Healthcare"); err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	// Adding twice is a no-op.
	if err := repo.AddCategory(ctx, "Healthcare"); err != nil {
		t.Fatalf("AddCategory twice: %v", err)
	}

	if err := repo.SetBudget(ctx, core.Budget{Category: "Healthcare", Amount: core.Money{Cents: 2500}}); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}
	if err := repo.SetBudget(ctx, core.Budget{Category: "Nope", Amount: core.Money{Cents: 100}}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown category, got %v", err)
	}

	budgets, err := repo.Budgets(ctx)
	if err != nil {
		t.Fatalf("Budgets: %v", err)
	}
	byCategory := map[string]int64{}
	for _, b := range budgets {
		byCategory[b.Category] = b.Amount.Cents
	}
	if byCategory["Healthcare"] != 2500 {
		t.Errorf("expected 2500 cent budget for Healthcare, got %d", byCategory["Healthcare"])
	}
	if byCategory["Groceries"] != core.DefaultBudget.Cents {
		t.Errorf("expected default budget for Groceries, got %d", byCategory["Groceries"])
	}

	if err := repo.RemoveCategory(ctx, "Healthcare"); err != nil {
		t.Fatalf("RemoveCategory: %v", err)
	}
	if err := repo.RemoveCategory(ctx, "Healthcare"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second removal, got %v", err)
	}
}

func TestMonthOverview(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	for i, r := range []core.Receipt{
		testReceipt(2025, 3, 14, "Coffee", "Groceries", 450),
		testReceipt(2025, 3, 20, "Cinema", "Entertainment", 1500),
		testReceipt(2025, 3, 21, "Popcorn", "Entertainment", 600),
		testReceipt(2025, 2, 28, "Groceries", "Groceries", 8000),
	} {
		if err := repo.AddReceipt(ctx, r); err != nil {
			t.Fatalf("AddReceipt %d: %v", i, err)
		}
	}

	overview, err := repo.MonthOverview(ctx, 2025, 3)
	if err != nil {
		t.Fatalf("MonthOverview: %v", err)
	}
	if overview.Total.Cents != 2550 {
		t.Errorf("expected total of 2550 cents, got %d", overview.Total.Cents)
	}
	if overview.PreviousTotal.Cents != 8000 {
		t.Errorf("expected previous total of 8000 cents, got %d", overview.PreviousTotal.Cents)
	}
	if len(overview.ByCategory) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(overview.ByCategory))
	}
	if overview.ByCategory[0].Name != "Entertainment" || overview.ByCategory[0].Amount.Cents != 2100 {
		t.Errorf("expected Entertainment first with 2100 cents, got %+v", overview.ByCategory[0])
	}
}

func TestSuggestCategory(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	if _, ok, err := repo.SuggestCategory(ctx, "Coffee"); err != nil || ok {
		t.Fatalf("expected no suggestion, got ok=%v err=%v", ok, err)
	}

	if err := repo.AddReceipt(ctx, testReceipt(2025, 3, 14, "Coffee", "Groceries", 450)); err != nil {
		t.Fatalf("AddReceipt: %v", err)
	}
	if err := repo.AddReceipt(ctx, testReceipt(2025, 3, 20, "coffee", "Entertainment", 500)); err != nil {
		t.Fatalf("AddReceipt: %v", err)
	}

	cat, ok, err := repo.SuggestCategory(ctx, "COFFEE")
	if err != nil {
		t.Fatalf("SuggestCategory: %v", err)
	}
	if !ok || cat != "Entertainment" {
		t.Errorf("expected most recent category Entertainment, got %q (ok=%v)", cat, ok)
	}
}
