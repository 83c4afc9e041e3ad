package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/HandsomeHarry/companion-cube/internal/logging"
)

var log = logging.For("llm")

const systemPrompt = "You are a supportive ADHD companion. Be encouraging, never judgmental. Keep responses very concise."

// Client talks to an Ollama-compatible generation API. The engine works
// without it: every caller falls back to canned text when Generate fails.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewClient creates a client for the backend at baseURL using the given model.
func NewClient(baseURL, model string) *Client {
	return &Client{
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// Result is the language backend's reply.
type Result struct {
	Text    string
	Success bool
	Err     error
}

// CheckConnection verifies the backend is reachable and reports available
// models. If the configured model is missing, the first available one is
// adopted.
func (c *Client) CheckConnection(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend returned status %d", resp.StatusCode)
	}

	var body struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode models: %w", err)
	}

	names := make([]string, 0, len(body.Models))
	found := false
	for _, m := range body.Models {
		names = append(names, m.Name)
		if m.Name == c.model {
			found = true
		}
	}
	if !found && len(names) > 0 {
		log.Infof("model %q not found, using %q", c.model, names[0])
		c.model = names[0]
	}
	return names, nil
}

// Generate asks the backend for text. maxTokens bounds the reply length and
// temperature its variability. A failed or non-2xx call yields Success=false;
// callers must degrade to fallback text, never retry in a loop.
func (c *Client) Generate(ctx context.Context, prompt string, maxTokens int, temperature float64) Result {
	reqBody := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"system": systemPrompt,
		"stream": false,
		"options": map[string]any{
			"temperature": temperature,
			"num_predict": maxTokens,
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Result{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return Result{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{Err: fmt.Errorf("generate request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{Err: fmt.Errorf("backend returned status %d", resp.StatusCode)}
	}

	var body struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Result{Err: fmt.Errorf("decode response: %w", err)}
	}

	text := strings.TrimSpace(body.Response)
	if text == "" {
		return Result{Err: fmt.Errorf("backend returned empty response")}
	}
	return Result{Text: text, Success: true}
}
