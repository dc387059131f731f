// Package export renders receipts for sharing: a CSV of a month's receipts
// and the monthly report email that carries it.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"parsimonious/internal/core"
)

var csvHeader = []string{"Date", "Description", "Category", "Amount"}

// WriteCSV writes receipts as CSV with a fixed header row. Dates use the
// ISO form and amounts two decimal places.
func WriteCSV(w io.Writer, receipts []core.Receipt) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range receipts {
		record := []string{
			r.Date.ISO(),
			r.Description,
			r.Category,
			r.Amount.Decimal(),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// CSV renders receipts to CSV bytes.
func CSV(receipts []core.Receipt) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, receipts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
