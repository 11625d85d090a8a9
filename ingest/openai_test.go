package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAIClientComplete(t *testing.T) {
	var got completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  <h2>리뷰</h2>  "},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	c := NewAIClient(AIConfig{APIKey: "test-key", BaseURL: srv.URL})
	out, err := c.Complete(context.Background(), "write a review", []string{"https://cdn.example.com/1.webp", "https://cdn.example.com/2.webp"})
	require.NoError(t, err)
	assert.Equal(t, "<h2>리뷰</h2>", out)

	assert.Equal(t, defaultCompletionModel, got.Model)
	assert.Equal(t, defaultMaxTokens, got.MaxTokens)
	assert.InDelta(t, defaultTemperature, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 1)
	parts := got.Messages[0].Content
	require.Len(t, parts, 3)
	assert.Equal(t, "text", parts[0].Type)
	assert.Equal(t, "write a review", parts[0].Text)
	assert.Equal(t, "image_url", parts[1].Type)
	assert.Equal(t, "https://cdn.example.com/2.webp", parts[2].ImageURL.URL)
}

func TestAIClientMissingKey(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	_, err := NewAIClient(AIConfig{BaseURL: srv.URL}).Complete(context.Background(), "p", nil)
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.False(t, called)
}

func TestAIClientUpstreamError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewAIClient(AIConfig{APIKey: "k", BaseURL: srv.URL}).Complete(context.Background(), "p", nil)
	var upstream *UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusTooManyRequests, upstream.StatusCode)
	assert.Equal(t, "completion", upstream.Service)
	assert.Equal(t, 1, calls, "no retry")
}

func TestAIClientEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewAIClient(AIConfig{APIKey: "k", BaseURL: srv.URL}).Complete(context.Background(), "p", nil)
	assert.Error(t, err)
}
