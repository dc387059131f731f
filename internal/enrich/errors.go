package enrich

import (
	"errors"
	"fmt"
)

// Stage names one sequential step of the enrichment pipeline.
type Stage string

const (
	// StageRecognize is the OCR text extraction step.
	StageRecognize Stage = "recognize"
	// StageExtract turns OCR text into a structured receipt.
	StageExtract Stage = "extract"
	// StageRefine maps the extracted category onto the user's taxonomy.
	StageRefine Stage = "refine"
)

var (
	// ErrServiceRequest marks a network-level failure or non-success
	// status from an external service call.
	ErrServiceRequest = errors.New("service request failed")
	// ErrResponseDecode marks a service response that could not be parsed
	// into the expected shape.
	ErrResponseDecode = errors.New("response could not be decoded")
	// ErrEncoding marks a failure to serialize the pipeline's own
	// intermediate result.
	ErrEncoding = errors.New("intermediate result could not be encoded")
)

// StageError is the pipeline's single terminal failure outcome: which stage
// failed and why. Nothing is retried internally.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("enrich %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageError(stage Stage, kind error, cause error) *StageError {
	return &StageError{Stage: stage, Err: fmt.Errorf("%w: %w", kind, cause)}
}
