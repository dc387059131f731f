package services

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"parsimonious/internal/amqp"
	"parsimonious/internal/core"
	"parsimonious/internal/enrich"
	"parsimonious/internal/log"
	"parsimonious/internal/store"
)

// Enricher turns a receipt photo into a structured result. A nil result
// with a nil error means the image contained no usable text.
type Enricher interface {
	Enrich(ctx context.Context, image []byte, categories []string) (*core.EnrichmentResult, error)
}

// JobPublisher hands an enrichment job to the queue for a worker to pick up.
type JobPublisher interface {
	PublishEnrichmentJob(ctx context.Context, id uuid.UUID, imagePath string) error
}

// inProcessTimeout bounds enrichment when no broker is configured and the
// job runs detached from the request.
const inProcessTimeout = 2 * time.Minute

// EnrichmentService accepts receipt photos, spools them to disk and runs
// them through the enrichment pipeline, either via the job queue or in
// process when no broker is configured.
type EnrichmentService struct {
	store    store.Store
	enricher Enricher
	queue    JobPublisher // nil means enrich in this process
	spoolDir string
	logger   *log.Logger
}

func NewEnrichmentService(st store.Store, enricher Enricher, queue JobPublisher, spoolDir string, logger *log.Logger) *EnrichmentService {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentEnrich)
	}
	return &EnrichmentService{
		store:    st,
		enricher: enricher,
		queue:    queue,
		spoolDir: spoolDir,
		logger:   logger,
	}
}

// Submit spools the image and schedules its enrichment. The returned job ID
// lets clients correlate log lines; the receipt itself appears in the store
// once the pipeline finishes.
func (s *EnrichmentService) Submit(ctx context.Context, image []byte) (uuid.UUID, error) {
	if len(image) == 0 {
		return uuid.Nil, fmt.Errorf("empty image")
	}

	id := uuid.New()
	if err := os.MkdirAll(s.spoolDir, 0755); err != nil {
		return uuid.Nil, fmt.Errorf("create spool directory: %w", err)
	}
	path := filepath.Join(s.spoolDir, id.String()+".img")
	if err := os.WriteFile(path, image, 0644); err != nil {
		return uuid.Nil, fmt.Errorf("spool image: %w", err)
	}

	if s.queue != nil {
		if err := s.queue.PublishEnrichmentJob(ctx, id, path); err == nil {
			s.logger.InfoContext(ctx, "Enrichment job queued", log.FieldJobID, id)
			return id, nil
		} else {
			s.logger.ErrorContext(ctx, "Queue publish failed, enriching in process",
				log.FieldJobID, id, log.FieldError, err)
		}
	}

	go s.runDetached(id, path)
	return id, nil
}

// runDetached enriches a spooled image outside the request lifecycle.
func (s *EnrichmentService) runDetached(id uuid.UUID, path string) {
	ctx, cancel := context.WithTimeout(context.Background(), inProcessTimeout)
	defer cancel()

	msg := &amqp.EnrichmentJobMessage{ID: id, ImagePath: path, Timestamp: time.Now()}
	if err := s.ProcessJob(ctx, msg); err != nil {
		s.logger.ErrorContext(ctx, "In-process enrichment failed",
			log.FieldJobID, id, log.FieldError, err)
	}
}

// ProcessJob runs the pipeline for one spooled image and stores the
// resulting receipt. A missing spool file is treated as already processed.
// Terminal pipeline failures discard the image and surface as
// amqp.PermanentError; only infrastructure errors (spool I/O, store) leave
// the file in place for a requeued attempt.
func (s *EnrichmentService) ProcessJob(ctx context.Context, msg *amqp.EnrichmentJobMessage) error {
	image, err := os.ReadFile(msg.ImagePath)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.WarnContext(ctx, "Spool file missing, skipping job",
			log.FieldJobID, msg.ID, "image_path", msg.ImagePath)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read spooled image: %w", err)
	}

	categories, err := s.store.Categories(ctx)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}

	result, err := s.enricher.Enrich(ctx, image, categories)
	var stageErr *enrich.StageError
	if errors.As(err, &stageErr) {
		// Pipeline stage failures are terminal and never retried: drop
		// the image and poison the message so the broker stops
		// redelivering it.
		s.removeSpooled(ctx, msg.ImagePath)
		return &amqp.PermanentError{Err: fmt.Errorf("enrich receipt: %w", err)}
	}
	if err != nil {
		return fmt.Errorf("enrich receipt: %w", err)
	}
	if result == nil {
		s.logger.InfoContext(ctx, "No text found in image, discarding job", log.FieldJobID, msg.ID)
		s.removeSpooled(ctx, msg.ImagePath)
		return nil
	}

	receipt := result.Receipt()
	if err := s.store.AddReceipt(ctx, receipt); err != nil {
		return fmt.Errorf("save enriched receipt: %w", err)
	}
	s.removeSpooled(ctx, msg.ImagePath)

	s.logger.InfoContext(ctx, "Receipt enriched",
		log.FieldJobID, msg.ID,
		log.FieldReceiptID, receipt.ID,
		log.FieldReceiptDesc, receipt.Description,
		log.FieldCategory, receipt.Category,
		log.FieldAmountCents, receipt.Amount.Cents)

	return nil
}

func (s *EnrichmentService) removeSpooled(ctx context.Context, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.WarnContext(ctx, "Failed to remove spool file",
			"image_path", path, log.FieldError, err)
	}
}
