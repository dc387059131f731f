// Package enrich turns a receipt photograph into a structured, categorized
// receipt through three sequential stages: OCR text recognition, structured
// extraction by a text-generation model, and category refinement against the
// user's own taxonomy.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"parsimonious/internal/core"
	"parsimonious/internal/gemini"
	"parsimonious/internal/log"
	"parsimonious/internal/ocr"
)

const extractPromptFmt = `Extract a structured receipt from the OCR text.
Return ONLY valid JSON in this format:
{
  "date": { "year": 2025, "month": 9, "day": 13 },
  "description": "string",
  "note": "string or null",
  "category": "string",
  "amount": 12.34
}
Using context from the OCR create a concise <3 word title in the description field.
OCR text:
%s`

const refinePromptFmt = `You are a categorizer.
Given this receipt JSON:

%s

Choose the **closest match** for "category" from this list:
%s

Return the same JSON with only the "category" field updated.`

// receiptPayload is the JSON shape exchanged with the model in both
// generation stages.
type receiptPayload struct {
	Date        core.CalendarDate `json:"date"`
	Description string            `json:"description"`
	Note        *string           `json:"note"`
	Category    string            `json:"category"`
	Amount      float64           `json:"amount"`
}

func (p receiptPayload) result() core.EnrichmentResult {
	note := ""
	if p.Note != nil {
		note = *p.Note
	}
	return core.EnrichmentResult{
		Date:        p.Date,
		Description: p.Description,
		Note:        note,
		Category:    p.Category,
		Amount:      core.FromDollars(p.Amount),
	}
}

// Pipeline runs the three enrichment stages in order. Each run is a strict
// sequential chain; independent runs may execute concurrently. The pipeline
// mutates no state of its own; persistence belongs to the caller.
type Pipeline struct {
	recognizer ocr.TextRecognizer
	extractor  *gemini.Client
	refiner    *gemini.Client
	logger     *log.Logger
}

// NewPipeline assembles a pipeline. The extractor parses OCR text into a
// receipt; the refiner, usually a lighter model, only picks a category.
func NewPipeline(recognizer ocr.TextRecognizer, extractor, refiner *gemini.Client, logger *log.Logger) *Pipeline {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentEnrich)
	}
	return &Pipeline{
		recognizer: recognizer,
		extractor:  extractor,
		refiner:    refiner,
		logger:     logger,
	}
}

// Enrich processes one image. A nil result with nil error means the image
// had no recognizable text, which is a normal outcome rather than a failure.
// Any error is a *StageError; when the refine stage fails the extracted
// intermediate is discarded rather than returned with its unrefined
// category.
func (p *Pipeline) Enrich(ctx context.Context, image []byte, categories []string) (*core.EnrichmentResult, error) {
	lines, err := p.recognizer.RecognizeText(ctx, image)
	if err != nil {
		return nil, stageError(StageRecognize, ErrServiceRequest, err)
	}

	text := strings.TrimSpace(strings.Join(lines, "\n"))
	if text == "" {
		p.logger.InfoContext(ctx, "No text found in image", log.FieldStage, string(StageRecognize))
		return nil, nil
	}

	extracted, err := p.extract(ctx, text)
	if err != nil {
		return nil, err
	}

	refined, err := p.refine(ctx, extracted, categories)
	if err != nil {
		return nil, err
	}

	res := refined.result()
	p.logger.InfoContext(ctx, "Receipt enriched",
		log.FieldReceiptDesc, res.Description,
		log.FieldCategory, res.Category,
		log.FieldAmountCents, res.Amount.Cents)
	return &res, nil
}

func (p *Pipeline) extract(ctx context.Context, text string) (receiptPayload, error) {
	raw, err := p.extractor.GenerateJSON(ctx, fmt.Sprintf(extractPromptFmt, text))
	if err != nil {
		return receiptPayload{}, stageError(StageExtract, classify(err), err)
	}

	var payload receiptPayload
	if err := json.Unmarshal([]byte(gemini.ExtractJSONObject(raw)), &payload); err != nil {
		return receiptPayload{}, stageError(StageExtract, ErrResponseDecode, err)
	}
	return payload, nil
}

func (p *Pipeline) refine(ctx context.Context, payload receiptPayload, categories []string) (receiptPayload, error) {
	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return receiptPayload{}, stageError(StageRefine, ErrEncoding, err)
	}

	prompt := fmt.Sprintf(refinePromptFmt, body, strings.Join(categories, ", "))
	raw, err := p.refiner.GenerateJSON(ctx, prompt)
	if err != nil {
		return receiptPayload{}, stageError(StageRefine, classify(err), err)
	}

	var refined receiptPayload
	if err := json.Unmarshal([]byte(gemini.ExtractJSONObject(raw)), &refined); err != nil {
		return receiptPayload{}, stageError(StageRefine, ErrResponseDecode, err)
	}
	return refined, nil
}

// classify maps a gemini client error onto the pipeline taxonomy.
func classify(err error) error {
	if errors.Is(err, gemini.ErrMalformedResponse) {
		return ErrResponseDecode
	}
	return ErrServiceRequest
}

// EnrichBatch runs independent pipeline runs for several images
// concurrently. Result slots line up with the input slice; images with no
// recognizable text leave a nil slot. The first failing run cancels the
// rest.
func (p *Pipeline) EnrichBatch(ctx context.Context, images [][]byte, categories []string) ([]*core.EnrichmentResult, error) {
	results := make([]*core.EnrichmentResult, len(images))
	g, ctx := errgroup.WithContext(ctx)
	for i, image := range images {
		g.Go(func() error {
			res, err := p.Enrich(ctx, image, categories)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
