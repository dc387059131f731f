package core

import (
	"testing"

	"github.com/google/uuid"
)

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: 1}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); err == nil {
		t.Fatalf("expected error for zero")
	}
	if err := (Money{Cents: -100}).Validate(); err == nil {
		t.Fatalf("expected error for negative")
	}
}

func TestReceiptValidate(t *testing.T) {
	good := Receipt{
		ID:          uuid.New(),
		Date:        NewCalendarDate(2025, 1, 1),
		Description: "coffee",
		Amount:      Money{Cents: 450},
		Category:    "Groceries",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Receipt{
		{Date: NewCalendarDate(2025, 2, 30), Description: "a", Amount: Money{Cents: 1}, Category: "c"},
		{Date: NewCalendarDate(2025, 1, 1), Description: "", Amount: Money{Cents: 1}, Category: "c"},
		{Date: NewCalendarDate(2025, 1, 1), Description: "a", Amount: Money{Cents: 0}, Category: "c"},
		{Date: NewCalendarDate(2025, 1, 1), Description: "a", Amount: Money{Cents: 1}, Category: ""},
	}
	for i, r := range bads {
		if err := r.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestEnrichmentResultReceipt(t *testing.T) {
	res := EnrichmentResult{
		Date:        NewCalendarDate(2025, 9, 13),
		Description: "Trader Joes",
		Note:        "weekly run",
		Category:    "Groceries",
		Amount:      Money{Cents: 4231},
	}
	r := res.Receipt()
	if r.ID == uuid.Nil {
		t.Fatalf("expected an assigned ID")
	}
	if r.Date != res.Date || r.Description != res.Description ||
		r.Note != res.Note || r.Category != res.Category || r.Amount != res.Amount {
		t.Fatalf("receipt fields differ from result: %+v vs %+v", r, res)
	}
	if other := res.Receipt(); other.ID == r.ID {
		t.Fatalf("expected distinct IDs per conversion")
	}
}

func TestBudgetValidate(t *testing.T) {
	if err := (Budget{Category: "Rent", Amount: Money{Cents: 120000}}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Budget{Category: " ", Amount: Money{Cents: 1}}).Validate(); err == nil {
		t.Fatalf("expected error for blank category")
	}
	if err := (Budget{Category: "Rent", Amount: Money{}}).Validate(); err == nil {
		t.Fatalf("expected error for zero amount")
	}
}
