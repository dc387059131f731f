// Package ocr extracts text lines from receipt images.
package ocr

import "context"

// TextRecognizer turns an image into zero or more recognized text lines, in
// reading order. An image with no recognizable text yields an empty slice
// and no error; errors are reserved for the recognizer itself failing.
type TextRecognizer interface {
	RecognizeText(ctx context.Context, image []byte) ([]string, error)
}
