package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// HTTPClient is a Client backed by an Ollama-compatible /api/generate
// endpoint. Temperature and seed map onto Ollama's "options" object; a
// non-streaming call ("stream": false) returns its full completion as a
// single JSON object.
type HTTPClient struct {
	BaseURL    string
	Model      string
	HTTPClient *http.Client
}

// NewHTTPClient builds an HTTPClient against baseURL (e.g.
// "http://localhost:11434") for the given model, using http.DefaultClient
// when none is supplied.
func NewHTTPClient(baseURL, model string) *HTTPClient {
	return &HTTPClient{BaseURL: baseURL, Model: model, HTTPClient: http.DefaultClient}
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	System  string          `json:"system,omitempty"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	Seed        int64   `json:"seed"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// StreamingBody encodes an Ollama-style streaming ("stream": true) request
// body for model. It exists for pkg/timeoutctl's Controller, which speaks
// NDJSON directly against a URL rather than through the Client interface,
// so it needs the wire body without going through an HTTPClient value.
func StreamingBody(model string, req Request) ([]byte, error) {
	body, err := json.Marshal(generateRequest{
		Model:   model,
		Prompt:  req.Prompt,
		System:  req.SystemPrompt,
		Stream:  true,
		Options: generateOptions{Temperature: req.Temperature, Seed: req.Seed},
	})
	if err != nil {
		return nil, fmt.Errorf("llmclient: encode streaming request: %w", err)
	}
	return body, nil
}

// Complete issues one non-streaming generation call and returns the
// model's full response text.
func (c *HTTPClient) Complete(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:   c.Model,
		Prompt:  req.Prompt,
		System:  req.SystemPrompt,
		Stream:  false,
		Options: generateOptions{Temperature: req.Temperature, Seed: req.Seed},
	})
	if err != nil {
		return "", fmt.Errorf("llmclient: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llmclient: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llmclient: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llmclient: backend returned status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("llmclient: decode response: %w", err)
	}
	return out.Response, nil
}
