package memory

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"parsimonious/internal/core"
	"parsimonious/internal/store"
)

func testReceipt(year, month, day int, desc, category string, cents int64) core.Receipt {
	return core.Receipt{
		ID:          uuid.New(),
		Date:        core.NewCalendarDate(year, month, day),
		Description: desc,
		Category:    category,
		Amount:      core.Money{Cents: cents},
	}
}

func TestAddAndListMonth(t *testing.T) {
	ctx := context.Background()
	s := New()

	receipts := []core.Receipt{
		testReceipt(2025, 3, 14, "Coffee", "Groceries", 450),
		testReceipt(2025, 3, 2, "Bus pass", "Transportation", 6000),
		testReceipt(2025, 4, 1, "Rent", "Rent", 120000),
	}
	for i, r := range receipts {
		if err := s.AddReceipt(ctx, r); err != nil {
			t.Fatalf("AddReceipt %d: %v", i, err)
		}
	}

	march, err := s.ListMonth(ctx, 2025, 3)
	if err != nil {
		t.Fatalf("ListMonth: %v", err)
	}
	if len(march) != 2 {
		t.Fatalf("expected 2 receipts in March, got %d", len(march))
	}
	if march[0].Description != "Bus pass" || march[1].Description != "Coffee" {
		t.Errorf("receipts not sorted by date: %q, %q", march[0].Description, march[1].Description)
	}

	all, err := s.ListAll(ctx)
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 receipts total, got %d", len(all))
	}
}

func TestAddReceiptInvalid(t *testing.T) {
	s := New()
	r := testReceipt(2025, 3, 14, "", "Groceries", 450)
	if err := s.AddReceipt(context.Background(), r); !errors.Is(err, core.ErrEmptyDescription) {
		t.Errorf("expected ErrEmptyDescription, got %v", err)
	}
}

func TestDeleteReceipt(t *testing.T) {
	ctx := context.Background()
	s := New()
	r := testReceipt(2025, 3, 14, "Coffee", "Groceries", 450)
	if err := s.AddReceipt(ctx, r); err != nil {
		t.Fatalf("AddReceipt: %v", err)
	}

	if err := s.DeleteReceipt(ctx, r.ID); err != nil {
		t.Fatalf("DeleteReceipt: %v", err)
	}
	all, _ := s.ListAll(ctx)
	if len(all) != 0 {
		t.Errorf("expected empty store after delete, got %d receipts", len(all))
	}

	if err := s.DeleteReceipt(ctx, uuid.New()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestTaxonomy(t *testing.T) {
	ctx := context.Background()
	s := New()

	cats, err := s.Categories(ctx)
	if err != nil {
		t.Fatalf("Categories: %v", err)
	}
	if len(cats) != len(core.DefaultCategories) {
		t.Fatalf("expected %d default categories, got %d", len(core.DefaultCategories), len(cats))
	}

	if err := s.AddCategory(ctx, "Healthcare"); err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	if err := s.AddCategory(ctx, "  "); !errors.Is(err, core.ErrEmptyCategory) {
		t.Errorf("expected ErrEmptyCategory, got %v", err)
	}

	if err := s.RemoveCategory(ctx, "Healthcare"); err != nil {
		t.Fatalf("RemoveCategory: %v", err)
	}
	if err := s.RemoveCategory(ctx, "Healthcare"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second removal, got %v", err)
	}
}

func TestBudgets(t *testing.T) {
	ctx := context.Background()
	s := New()

	budgets, err := s.Budgets(ctx)
	if err != nil {
		t.Fatalf("Budgets: %v", err)
	}
	for _, b := range budgets {
		if b.Amount != core.DefaultBudget {
			t.Errorf("category %q: expected default budget, got %d cents", b.Category, b.Amount.Cents)
		}
	}

	if err := s.SetBudget(ctx, core.Budget{Category: "Groceries", Amount: core.Money{Cents: 30000}}); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}
	if err := s.SetBudget(ctx, core.Budget{Category: "Nope", Amount: core.Money{Cents: 100}}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown category, got %v", err)
	}

	budgets, _ = s.Budgets(ctx)
	for _, b := range budgets {
		if b.Category == "Groceries" && b.Amount.Cents != 30000 {
			t.Errorf("expected updated budget of 30000 cents, got %d", b.Amount.Cents)
		}
	}
}

func TestMonthOverview(t *testing.T) {
	ctx := context.Background()
	s := New()

	for i, r := range []core.Receipt{
		testReceipt(2025, 3, 14, "Coffee", "Groceries", 450),
		testReceipt(2025, 3, 20, "Cinema", "Entertainment", 1500),
		testReceipt(2025, 2, 28, "Groceries", "Groceries", 8000),
	} {
		if err := s.AddReceipt(ctx, r); err != nil {
			t.Fatalf("AddReceipt %d: %v", i, err)
		}
	}

	overview, err := s.MonthOverview(ctx, 2025, 3)
	if err != nil {
		t.Fatalf("MonthOverview: %v", err)
	}
	if overview.Total.Cents != 1950 {
		t.Errorf("expected total of 1950 cents, got %d", overview.Total.Cents)
	}
	if overview.PreviousTotal.Cents != 8000 {
		t.Errorf("expected previous total of 8000 cents, got %d", overview.PreviousTotal.Cents)
	}
	if len(overview.ByCategory) != 2 {
		t.Errorf("expected 2 categories, got %d", len(overview.ByCategory))
	}
}

func TestSuggestCategory(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, ok, _ := s.SuggestCategory(ctx, "Coffee"); ok {
		t.Fatal("expected no suggestion for unseen description")
	}
	if err := s.AddReceipt(ctx, testReceipt(2025, 3, 14, "Coffee", "Groceries", 450)); err != nil {
		t.Fatalf("AddReceipt: %v", err)
	}
	cat, ok, err := s.SuggestCategory(ctx, "coffee")
	if err != nil {
		t.Fatalf("SuggestCategory: %v", err)
	}
	if !ok || cat != "Groceries" {
		t.Errorf("expected Groceries suggestion, got %q (ok=%v)", cat, ok)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	base := filepath.Join(t.TempDir(), "data")

	s, err := NewFromFiles(base)
	if err != nil {
		t.Fatalf("NewFromFiles: %v", err)
	}
	r := testReceipt(2025, 3, 14, "Coffee", "Groceries", 450)
	if err := s.AddReceipt(ctx, r); err != nil {
		t.Fatalf("AddReceipt: %v", err)
	}
	if err := s.AddCategory(ctx, "Healthcare"); err != nil {
		t.Fatalf("AddCategory: %v", err)
	}
	if err := s.SetBudget(ctx, core.Budget{Category: "Healthcare", Amount: core.Money{Cents: 2500}}); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}

	reloaded, err := NewFromFiles(base)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	all, _ := reloaded.ListAll(ctx)
	if len(all) != 1 || all[0].ID != r.ID {
		t.Fatalf("expected the stored receipt back, got %+v", all)
	}
	cat, ok, _ := reloaded.SuggestCategory(ctx, "coffee")
	if !ok || cat != "Groceries" {
		t.Errorf("expected suggestion rebuilt from receipts, got %q (ok=%v)", cat, ok)
	}
	budgets, _ := reloaded.Budgets(ctx)
	found := false
	for _, b := range budgets {
		if b.Category == "Healthcare" {
			found = true
			if b.Amount.Cents != 2500 {
				t.Errorf("expected 2500 cent budget, got %d", b.Amount.Cents)
			}
		}
	}
	if !found {
		t.Error("Healthcare budget not persisted")
	}
}
