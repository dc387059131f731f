// Package services orchestrates receipt, enrichment and reporting flows on
// top of the store and the external clients.
package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"parsimonious/internal/core"
	"parsimonious/internal/log"
	"parsimonious/internal/store"
)

// ReceiptService handles manual receipt entry and taxonomy maintenance.
type ReceiptService struct {
	store  store.Store
	logger *log.Logger
}

func NewReceiptService(st store.Store, logger *log.Logger) *ReceiptService {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentReceipt)
	}
	return &ReceiptService{store: st, logger: logger}
}

// CreateReceipt validates and stores a manually entered receipt. When no
// category is given, the last category used for the same description is
// applied before validation.
func (s *ReceiptService) CreateReceipt(ctx context.Context, date core.CalendarDate, description, note, category string, amount core.Money) (core.Receipt, error) {
	if category == "" {
		suggested, ok, err := s.store.SuggestCategory(ctx, description)
		if err != nil {
			return core.Receipt{}, fmt.Errorf("suggest category: %w", err)
		}
		if ok {
			category = suggested
		}
	}

	receipt := core.Receipt{
		ID:          uuid.New(),
		Date:        date,
		Description: description,
		Note:        note,
		Category:    category,
		Amount:      amount,
	}
	if err := receipt.Validate(); err != nil {
		return core.Receipt{}, err
	}

	if err := s.store.AddReceipt(ctx, receipt); err != nil {
		return core.Receipt{}, fmt.Errorf("save receipt: %w", err)
	}

	s.logger.InfoContext(ctx, "Receipt created",
		log.FieldReceiptID, receipt.ID,
		log.FieldReceiptDesc, receipt.Description,
		log.FieldCategory, receipt.Category,
		log.FieldAmountCents, receipt.Amount.Cents)

	return receipt, nil
}

// DeleteReceipt removes a receipt by ID.
func (s *ReceiptService) DeleteReceipt(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteReceipt(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Receipt deleted", log.FieldReceiptID, id)
	return nil
}

// SuggestCategory returns the last category used for a description.
func (s *ReceiptService) SuggestCategory(ctx context.Context, description string) (string, bool, error) {
	return s.store.SuggestCategory(ctx, description)
}
