package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/reviewpress/reviewpress/store"
)

// Trigger starts generation for one request and reports the stored post id.
type Trigger interface {
	Trigger(ctx context.Context, req Request) (int64, error)
}

// LocalTrigger runs the generator in-process.
type LocalTrigger struct {
	Generator *Generator
	// OnGenerated, when set, is called after each successful insert.
	OnGenerated func(store.Post)
}

// Trigger implements Trigger.
func (t LocalTrigger) Trigger(ctx context.Context, req Request) (int64, error) {
	post, err := t.Generator.Generate(ctx, req)
	if err != nil {
		return 0, err
	}
	if t.OnGenerated != nil {
		t.OnGenerated(post)
	}
	return post.ID, nil
}

// GenerateResponse is the JSON answer of the generator endpoint.
type GenerateResponse struct {
	Success  bool        `json:"success"`
	BlogPost *store.Post `json:"blogPost,omitempty"`
	Message  string      `json:"message,omitempty"`
	Error    string      `json:"error,omitempty"`
}

// HTTPTrigger calls a generator endpoint deployed elsewhere.
type HTTPTrigger struct {
	URL    string
	Token  string
	Client *http.Client
}

// NewHTTPTrigger returns a trigger for the generator at url.
func NewHTTPTrigger(url, token string) *HTTPTrigger {
	return &HTTPTrigger{
		URL:    strings.TrimSpace(url),
		Token:  strings.TrimSpace(token),
		Client: &http.Client{Timeout: 3 * time.Minute},
	}
}

// Trigger implements Trigger.
func (t *HTTPTrigger) Trigger(ctx context.Context, req Request) (int64, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("trigger: encode: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("trigger: new request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if t.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.Token)
	}
	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("trigger: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("trigger: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, &UpstreamError{Service: "generator", StatusCode: resp.StatusCode, Body: string(raw)}
	}
	var out GenerateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, fmt.Errorf("trigger: decode response: %w", err)
	}
	if out.BlogPost == nil {
		return 0, nil
	}
	return out.BlogPost.ID, nil
}
