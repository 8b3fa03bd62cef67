/*
genai.go - Generative-language API client for performance summaries

PURPOSE:
  Implements Generator against the Google Generative Language REST API.
  One prompt in, one block of prose out; every failure mode collapses
  to ErrReportGenerationFailed so callers never branch on transport
  details.

CONFIGURATION:
  API key and model name are injected at construction. The default
  model keeps summaries cheap; deployments can pick a larger one.
*/
package reports

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	genaiBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
	genaiGeneratePath = "/models/%s:generateContent"
	genaiDefaultModel = "gemini-1.5-flash"
)

// GenAIClient implements Generator for the Generative Language API.
type GenAIClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewGenAIClient creates a generator using the given API key. An empty
// model selects the default.
func NewGenAIClient(apiKey, model string) *GenAIClient {
	if model == "" {
		model = genaiDefaultModel
	}
	return &GenAIClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: genaiBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type genaiRequest struct {
	Contents []genaiContent `json:"contents"`
}

type genaiContent struct {
	Parts []genaiPart `json:"parts"`
}

type genaiPart struct {
	Text string `json:"text"`
}

type genaiResponse struct {
	Candidates []struct {
		Content genaiContent `json:"content"`
	} `json:"candidates"`
}

// Generate sends the prompt and returns the first candidate's text.
func (c *GenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(genaiRequest{
		Contents: []genaiContent{{Parts: []genaiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrReportGenerationFailed, err)
	}

	url := c.baseURL + fmt.Sprintf(genaiGeneratePath, c.model) + "?key=" + c.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrReportGenerationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReportGenerationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrReportGenerationFailed, resp.StatusCode)
	}

	var parsed genaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrReportGenerationFailed, err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrReportGenerationFailed)
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}

var _ Generator = (*GenAIClient)(nil)
