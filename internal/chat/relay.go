// Package chat forwards sidebar questions to a local text-generation
// server (an Ollama-style /api/generate endpoint).
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultEndpoint = "http://localhost:11434/api/generate"
	DefaultModel    = "llama3.2:1b"
)

// StatusError is a non-200 answer from the generation server.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("generation server returned status %d", e.Code)
}

// Relay makes one blocking call per question. It keeps no history and
// never retries.
type Relay struct {
	endpoint string
	model    string
	client   *http.Client
}

// New returns a Relay. A zero timeout waits as long as the server takes.
func New(endpoint, model string, timeout time.Duration) *Relay {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if model == "" {
		model = DefaultModel
	}

	return &Relay{
		endpoint: endpoint,
		model:    model,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (r *Relay) Model() string { return r.model }

// Ask returns the model's reply, or a bracketed error line fit for showing
// in place of one.
func (r *Relay) Ask(ctx context.Context, prompt string) string {
	reply, err := r.Generate(ctx, prompt)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return fmt.Sprintf("[Error %d] Could not reach local model.", statusErr.Code)
		}
		return "[Exception] " + err.Error()
	}
	return reply
}

// Generate sends prompt and returns the trimmed response text.
func (r *Relay) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  r.model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode}
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	return strings.TrimSpace(result.Response), nil
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}
