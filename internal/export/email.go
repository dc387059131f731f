package export

import (
	"fmt"
	"strings"

	"parsimonious/internal/core"
)

// ReportSubject builds the subject line for a monthly report email.
func ReportSubject(year, month int) string {
	return fmt.Sprintf("Parsimonious report for %s %d", core.NewCalendarDate(year, month, 1).MonthName(), year)
}

// ReportBody builds the plain-text body of a monthly report email from the
// month's receipts. The CSV travels as an attachment.
func ReportBody(year, month int, receipts []core.Receipt) string {
	var b strings.Builder
	monthName := core.NewCalendarDate(year, month, 1).MonthName()

	fmt.Fprintf(&b, "Hello,\n\n")
	fmt.Fprintf(&b, "Here is your spending summary for %s %d.\n\n", monthName, year)
	fmt.Fprintf(&b, "Receipts: %d\n", len(receipts))
	fmt.Fprintf(&b, "Total: $%s\n\n", core.Total(receipts).Decimal())

	byCategory := core.TotalsByCategory(receipts)
	if len(byCategory) > 0 {
		b.WriteString("By category:\n")
		for _, ca := range byCategory {
			fmt.Fprintf(&b, "  %s: $%s\n", ca.Name, ca.Amount.Decimal())
		}
		b.WriteString("\n")
	}

	b.WriteString("The full list of receipts is attached as CSV.\n\n")
	b.WriteString("The Parsimonious Team\n")
	return b.String()
}

// AttachmentName is the file name used for the CSV attached to a report.
func AttachmentName(year, month int) string {
	return fmt.Sprintf("receipts-%04d-%02d.csv", year, month)
}
