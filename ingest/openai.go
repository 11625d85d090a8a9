package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultCompletionURL   = "https://api.openai.com/v1/chat/completions"
	defaultCompletionModel = "gpt-4o"
	defaultMaxTokens       = 4000
	defaultTemperature     = 0.7
	defaultAITimeout       = 120 * time.Second
)

// AIConfig captures the settings for the chat completion API.
type AIConfig struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	MaxTokens      int     `toml:"max_tokens"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Completer answers a prompt about a set of images.
type Completer interface {
	Complete(ctx context.Context, prompt string, imageURLs []string) (string, error)
}

// AIClient talks to an OpenAI-compatible chat completion endpoint. Each call
// is a single attempt; failures are returned to the caller as-is.
type AIClient struct {
	cfg        AIConfig
	httpClient *http.Client
}

// NewAIClient fills in defaults and returns a client.
func NewAIClient(cfg AIConfig) *AIClient {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Model = strings.TrimSpace(cfg.Model)
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultCompletionURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultCompletionModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	timeout := defaultAITimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &AIClient{cfg: cfg, httpClient: &http.Client{Timeout: timeout}}
}

// WithHTTPClient overrides the HTTP client.
func (c *AIClient) WithHTTPClient(hc *http.Client) *AIClient {
	if hc != nil {
		c.httpClient = hc
	}
	return c
}

type completionRequest struct {
	Model       string              `json:"model"`
	Messages    []completionMessage `json:"messages"`
	MaxTokens   int                 `json:"max_tokens"`
	Temperature float64             `json:"temperature"`
}

type completionMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageRef `json:"image_url,omitempty"`
}

type imageRef struct {
	URL string `json:"url"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends one user message holding the prompt and every image URL and
// returns the text of the first choice.
func (c *AIClient) Complete(ctx context.Context, prompt string, imageURLs []string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrMissingCredentials
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("completion: prompt required")
	}
	parts := []contentPart{{Type: "text", Text: prompt}}
	for _, u := range imageURLs {
		parts = append(parts, contentPart{Type: "image_url", ImageURL: &imageRef{URL: u}})
	}
	payload := completionRequest{
		Model:       c.cfg.Model,
		Messages:    []completionMessage{{Role: "user", Content: parts}},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("completion: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("completion: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion: http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("completion: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &UpstreamError{Service: "completion", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var completion completionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("completion: decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("completion: api error: %s", strings.TrimSpace(completion.Error.Message))
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("completion: empty choices")
	}
	choice := completion.Choices[0]
	content := strings.TrimSpace(choice.Message.Content)
	if content == "" {
		return "", fmt.Errorf("completion: empty content (finish_reason=%q, refusal=%q)", choice.FinishReason, choice.Message.Refusal)
	}
	return content, nil
}
