package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	goption "google.golang.org/api/option"
	gvision "google.golang.org/api/vision/v1"
)

// VisionClient implements TextRecognizer with the Cloud Vision API.
// DOCUMENT_TEXT_DETECTION is the dense-text mode with built-in language
// handling, the closest server-side match to an accuracy-first,
// language-corrected on-device recognizer.
type VisionClient struct {
	svc *gvision.Service
}

var _ TextRecognizer = (*VisionClient)(nil)

// NewVisionClient creates a Vision client authenticated with an API key
// supplied by the caller.
func NewVisionClient(ctx context.Context, apiKey string) (*VisionClient, error) {
	if apiKey == "" {
		return nil, errors.New("missing Vision API key")
	}
	svc, err := gvision.NewService(ctx, goption.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("vision service: %w", err)
	}
	return &VisionClient{svc: svc}, nil
}

// RecognizeText runs document text detection against image and returns the
// recognized lines. An image in which Vision finds no text yields nil, nil.
func (c *VisionClient) RecognizeText(ctx context.Context, image []byte) ([]string, error) {
	if len(image) == 0 {
		return nil, nil
	}

	batch := &gvision.BatchAnnotateImagesRequest{
		Requests: []*gvision.AnnotateImageRequest{
			{
				Image: &gvision.Image{
					Content: base64.StdEncoding.EncodeToString(image),
				},
				Features: []*gvision.Feature{
					{Type: "DOCUMENT_TEXT_DETECTION"},
				},
			},
		},
	}

	resp, err := c.svc.Images.Annotate(batch).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("annotate image: %w", err)
	}
	if len(resp.Responses) == 0 {
		return nil, errors.New("annotate image: empty batch response")
	}

	r := resp.Responses[0]
	if r.Error != nil {
		return nil, fmt.Errorf("annotate image: %s", r.Error.Message)
	}
	if r.FullTextAnnotation == nil {
		return nil, nil
	}

	return splitLines(r.FullTextAnnotation.Text), nil
}

func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
