// Package gemini is a minimal client for the generativelanguage
// generateContent endpoint, constrained to JSON output.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

var (
	// ErrRequestFailed covers transport errors and non-2xx responses.
	ErrRequestFailed = errors.New("gemini request failed")
	// ErrMalformedResponse covers responses whose envelope cannot be
	// decoded or that carry no candidate text.
	ErrMalformedResponse = errors.New("gemini response malformed")
)

type (
	requestPart struct {
		Text string `json:"text"`
	}

	requestContent struct {
		Parts []requestPart `json:"parts"`
		Role  string        `json:"role,omitempty"`
	}

	generationConfig struct {
		ResponseMIMEType string `json:"responseMimeType,omitempty"`
	}

	generateRequest struct {
		Contents         []requestContent  `json:"contents"`
		GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
	}

	responsePart struct {
		Text string `json:"text"`
	}

	responseContent struct {
		Parts []responsePart `json:"parts"`
		Role  string         `json:"role"`
	}

	candidate struct {
		Content      responseContent `json:"content"`
		FinishReason string          `json:"finishReason"`
		Index        int             `json:"index"`
	}

	generateResponse struct {
		Candidates     []candidate    `json:"candidates"`
		PromptFeedback map[string]any `json:"promptFeedback,omitempty"`
	}
)

// Config configures a Client. APIKey and Model are required; the key is
// supplied by the caller at construction time, never read from process
// state.
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client
}

type Client struct {
	apiKey  string
	model   string
	baseURL string
	httpc   *http.Client
}

func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpc:   httpc,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// GenerateJSON sends prompt to the model with output constrained to the
// application/json MIME type and returns the first candidate's text. The
// text is the model's to produce; callers should still run it through
// ExtractJSONObject before decoding.
func (c *Client) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	payload := generateRequest{
		Contents: []requestContent{
			{Parts: []requestPart{{Text: prompt}}},
		},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.baseURL, c.model, url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: status %s: %s", ErrRequestFailed, resp.Status, strings.TrimSpace(string(detail)))
	}

	var envelope generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("%w: decode envelope: %v", ErrMalformedResponse, err)
	}

	if len(envelope.Candidates) == 0 || len(envelope.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrMalformedResponse)
	}

	return envelope.Candidates[0].Content.Parts[0].Text, nil
}

// ExtractJSONObject returns the span from the first '{' through the last '}'
// in text. Models sometimes wrap JSON in prose or markdown fences even when
// asked for bare JSON; this strips that wrapping. Text without braces is
// returned unchanged so the caller's decode reports the real problem.
func ExtractJSONObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end < start {
		return text
	}
	return text[start : end+1]
}
