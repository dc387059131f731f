package export

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"parsimonious/internal/core"
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

func TestCSV(t *testing.T) {
	receipts := []core.Receipt{
		testReceipt(2025, 3, 2, "Bus pass", "Transportation", 6000),
		testReceipt(2025, 3, 14, "Coffee, large", "Groceries", 450),
	}

	out, err := CSV(receipts)
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "Date,Description,Category,Amount" {
		t.Errorf("unexpected header: %q", lines[0])
	}
	if lines[1] != "2025-03-02,Bus pass,Transportation,60.00" {
		t.Errorf("unexpected first row: %q", lines[1])
	}
	// Commas in the description must be quoted.
	if lines[2] != `2025-03-14,"Coffee, large",Groceries,4.50` {
		t.Errorf("unexpected second row: %q", lines[2])
	}
}

func TestCSVEmpty(t *testing.T) {
	out, err := CSV(nil)
	if err != nil {
		t.Fatalf("CSV: %v", err)
	}
	if strings.TrimSpace(string(out)) != "Date,Description,Category,Amount" {
		t.Errorf("expected only the header, got %q", out)
	}
}

func TestReportSubject(t *testing.T) {
	got := ReportSubject(2025, 3)
	if got != "Parsimonious report for March 2025" {
		t.Errorf("unexpected subject: %q", got)
	}
}

func TestReportBody(t *testing.T) {
	receipts := []core.Receipt{
		testReceipt(2025, 3, 14, "Coffee", "Groceries", 450),
		testReceipt(2025, 3, 20, "Cinema", "Entertainment", 1500),
	}

	body := ReportBody(2025, 3, receipts)
	for _, want := range []string{
		"March 2025",
		"Receipts: 2",
		"Total: $19.50",
		"Entertainment: $15.00",
		"Groceries: $4.50",
		"The Parsimonious Team",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
}

func TestBuildMessage(t *testing.T) {
	msg, err := buildMessage("noreply@example.com", []string{"a@example.com"},
		"March report", "hello", "receipts-2025-03.csv", []byte("Date,Description\n"))
	if err != nil {
		t.Fatalf("buildMessage: %v", err)
	}

	s := string(msg)
	for _, want := range []string{
		"From: noreply@example.com",
		"To: a@example.com",
		"Subject: March report",
		"multipart/mixed",
		`attachment; filename="receipts-2025-03.csv"`,
		"Content-Transfer-Encoding: base64",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("message missing %q", want)
		}
	}
}

func TestAttachmentName(t *testing.T) {
	if got := AttachmentName(2025, 3); got != "receipts-2025-03.csv" {
		t.Errorf("unexpected attachment name: %q", got)
	}
}
