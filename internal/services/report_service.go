package services

import (
	"context"
	"fmt"
	"time"

	"parsimonious/internal/core"
	"parsimonious/internal/export"
	"parsimonious/internal/log"
	"parsimonious/internal/store"
)

// monthlyReportDue reports whether a new monthly report should go out.
// A report is due once per calendar month; a zero lastSent means none has
// ever been sent.
func monthlyReportDue(lastSent, now time.Time) bool {
	if lastSent.IsZero() {
		return true
	}
	return lastSent.Year() != now.Year() || lastSent.Month() != now.Month()
}

// ReportService mails a CSV summary of the previous month's receipts, at
// most once per calendar month.
type ReportService struct {
	store    store.ReceiptLister
	mailer   export.Mailer
	logger   *log.Logger
	lastSent time.Time
}

func NewReportService(st store.ReceiptLister, mailer export.Mailer, logger *log.Logger) *ReportService {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentExport)
	}
	return &ReportService{store: st, mailer: mailer, logger: logger}
}

// RunOnce sends the previous month's report if one is due. Months without
// receipts are skipped but still count as processed.
func (s *ReportService) RunOnce(ctx context.Context, now time.Time) error {
	if !monthlyReportDue(s.lastSent, now) {
		return nil
	}

	prev := core.NewCalendarDate(now.Year(), int(now.Month()), 1).DayBefore()
	receipts, err := s.store.ListMonth(ctx, prev.Year, prev.Month)
	if err != nil {
		return fmt.Errorf("list report month: %w", err)
	}

	if len(receipts) == 0 {
		s.logger.InfoContext(ctx, "No receipts for report month, skipping",
			log.FieldYear, prev.Year, log.FieldMonth, prev.Month)
		s.lastSent = now
		return nil
	}

	csv, err := export.CSV(receipts)
	if err != nil {
		return fmt.Errorf("render report csv: %w", err)
	}

	subject := export.ReportSubject(prev.Year, prev.Month)
	body := export.ReportBody(prev.Year, prev.Month, receipts)
	if err := s.mailer.SendReport(ctx, subject, body, export.AttachmentName(prev.Year, prev.Month), csv); err != nil {
		return fmt.Errorf("send report: %w", err)
	}

	s.lastSent = now
	s.logger.InfoContext(ctx, "Monthly report sent",
		log.FieldYear, prev.Year,
		log.FieldMonth, prev.Month,
		"receipts", len(receipts))

	return nil
}

// Run checks for due reports on the given interval until the context ends.
func (s *ReportService) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx, time.Now()); err != nil {
			s.logger.ErrorContext(ctx, "Report run failed", log.FieldError, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
