package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"parsimonious/internal/amqp"
	"parsimonious/internal/core"
	"parsimonious/internal/enrich"
	"parsimonious/internal/store/memory"
)

type fakeEnricher struct {
	result     *core.EnrichmentResult
	err        error
	categories []string
	image      []byte
}

func (f *fakeEnricher) Enrich(_ context.Context, image []byte, categories []string) (*core.EnrichmentResult, error) {
	f.image = image
	f.categories = categories
	return f.result, f.err
}

type fakePublisher struct {
	published []uuid.UUID
	err       error
}

func (f *fakePublisher) PublishEnrichmentJob(_ context.Context, id uuid.UUID, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, id)
	return nil
}

func spoolImage(t *testing.T, dir string, id uuid.UUID, content []byte) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("mkdir spool: %v", err)
	}
	path := filepath.Join(dir, id.String()+".img")
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("write spool file: %v", err)
	}
	return path
}

func TestSubmitQueuesJob(t *testing.T) {
	ctx := context.Background()
	spool := t.TempDir()
	pub := &fakePublisher{}
	svc := NewEnrichmentService(memory.New(), &fakeEnricher{}, pub, spool, nil)

	id, err := svc.Submit(ctx, []byte("jpeg bytes"))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if len(pub.published) != 1 || pub.published[0] != id {
		t.Errorf("expected job %s published, got %v", id, pub.published)
	}
	if _, err := os.Stat(filepath.Join(spool, id.String()+".img")); err != nil {
		t.Errorf("expected spooled image on disk: %v", err)
	}
}

func TestSubmitEmptyImage(t *testing.T) {
	svc := NewEnrichmentService(memory.New(), &fakeEnricher{}, &fakePublisher{}, t.TempDir(), nil)
	if _, err := svc.Submit(context.Background(), nil); err == nil {
		t.Error("expected error for empty image")
	}
}

func TestProcessJobStoresReceipt(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	spool := t.TempDir()

	enricher := &fakeEnricher{result: &core.EnrichmentResult{
		Date:        core.NewCalendarDate(2025, 3, 14),
		Description: "Espresso Bar",
		Category:    "Groceries",
		Amount:      core.Money{Cents: 450},
	}}
	svc := NewEnrichmentService(st, enricher, nil, spool, nil)

	id := uuid.New()
	path := spoolImage(t, spool, id, []byte("jpeg bytes"))

	msg := &amqp.EnrichmentJobMessage{ID: id, ImagePath: path, Timestamp: time.Now()}
	if err := svc.ProcessJob(ctx, msg); err != nil {
		t.Fatalf("ProcessJob: %v", err)
	}

	if string(enricher.image) != "jpeg bytes" {
		t.Error("pipeline did not receive the spooled image")
	}
	if len(enricher.categories) != len(core.DefaultCategories) {
		t.Errorf("expected %d categories passed to pipeline, got %d", len(core.DefaultCategories), len(enricher.categories))
	}

	receipts, _ := st.ListMonth(ctx, 2025, 3)
	if len(receipts) != 1 || receipts[0].Description != "Espresso Bar" {
		t.Fatalf("expected enriched receipt stored, got %+v", receipts)
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Error("expected spool file removed after processing")
	}
}

func TestProcessJobNoText(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	spool := t.TempDir()
	svc := NewEnrichmentService(st, &fakeEnricher{result: nil}, nil, spool, nil)

	id := uuid.New()
	path := spoolImage(t, spool, id, []byte("blank page"))

	msg := &amqp.EnrichmentJobMessage{ID: id, ImagePath: path, Timestamp: time.Now()}
	if err := svc.ProcessJob(ctx, msg); err != nil {
		t.Fatalf("ProcessJob: %v", err)
	}
	receipts, _ := st.ListAll(ctx)
	if len(receipts) != 0 {
		t.Errorf("expected no receipt stored, got %d", len(receipts))
	}
	if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
		t.Error("expected spool file removed for blank image")
	}
}

func TestProcessJobMissingSpoolFile(t *testing.T) {
	svc := NewEnrichmentService(memory.New(), &fakeEnricher{}, nil, t.TempDir(), nil)
	msg := &amqp.EnrichmentJobMessage{ID: uuid.New(), ImagePath: "/nonexistent/file.img", Timestamp: time.Now()}
	if err := svc.ProcessJob(context.Background(), msg); err != nil {
		t.Errorf("missing spool file should not fail the job, got %v", err)
	}
}

func TestProcessJobTransientFailureKeepsSpoolFile(t *testing.T) {
	ctx := context.Background()
	spool := t.TempDir()
	svc := NewEnrichmentService(memory.New(), &fakeEnricher{err: errors.New("temporary failure")}, nil, spool, nil)

	id := uuid.New()
	path := spoolImage(t, spool, id, []byte("jpeg bytes"))

	msg := &amqp.EnrichmentJobMessage{ID: id, ImagePath: path, Timestamp: time.Now()}
	err := svc.ProcessJob(ctx, msg)
	if err == nil {
		t.Fatal("expected error from failing pipeline")
	}
	var perm *amqp.PermanentError
	if errors.As(err, &perm) {
		t.Fatalf("transient failure must stay requeueable, got %v", err)
	}
	// The file stays so a requeued job can retry.
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected spool file kept for retry: %v", err)
	}
}

// Stage failures are terminal: the job must not loop through the broker
// rerunning the same two service calls forever.
func TestProcessJobTerminalFailureDropsJob(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	spool := t.TempDir()
	stageErr := &enrich.StageError{
		Stage: enrich.StageExtract,
		Err:   fmt.Errorf("%w: status 403", enrich.ErrServiceRequest),
	}
	svc := NewEnrichmentService(st, &fakeEnricher{err: stageErr}, nil, spool, nil)

	id := uuid.New()
	path := spoolImage(t, spool, id, []byte("jpeg bytes"))

	msg := &amqp.EnrichmentJobMessage{ID: id, ImagePath: path, Timestamp: time.Now()}
	err := svc.ProcessJob(ctx, msg)
	if err == nil {
		t.Fatal("expected error from failing pipeline")
	}
	var perm *amqp.PermanentError
	if !errors.As(err, &perm) {
		t.Fatalf("expected PermanentError so the message is not requeued, got %v", err)
	}
	var se *enrich.StageError
	if !errors.As(err, &se) {
		t.Fatalf("expected the stage error preserved in the chain, got %v", err)
	}
	if _, statErr := os.Stat(path); !errors.Is(statErr, os.ErrNotExist) {
		t.Error("expected spool file removed for a terminal failure")
	}
	receipts, _ := st.ListAll(ctx)
	if len(receipts) != 0 {
		t.Errorf("expected no receipt stored, got %d", len(receipts))
	}
}
