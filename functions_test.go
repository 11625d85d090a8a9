package reviewpress

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewpress/reviewpress/ingest"
)

const pushBody = `{
  "commits": [
    {"id": "c1", "message": "add balls", "added": ["images/prov1.webp", "README.md"], "removed": []},
    {"id": "c2", "message": "cleanup", "added": [], "removed": ["images/old.jpg"]}
  ]
}`

func jsonHeaders(extra map[string]string) map[string]string {
	h := map[string]string{echo.HeaderContentType: echo.MIMEApplicationJSON}
	for k, v := range extra {
		h[k] = v
	}
	return h
}

func TestWebhookGeneratesPostForAddedImage(t *testing.T) {
	ai := &stubCompleter{}
	app, s := newTestApp(t, testConfig(t), ai)

	rec := do(t, app, http.MethodPost, "/functions/github-webhook", strings.NewReader(pushBody), jsonHeaders(nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true,"Added":["images/prov1.webp"],"Removed":["images/old.jpg"]}`, rec.Body.String())

	post, err := s.GetPublished(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Pro V1 리뷰", post.Title)
	assert.Equal(t, "https://cdn.example.com/images/prov1.webp", post.ImageURL)
	assert.Equal(t, 2, ai.count(), "extraction then review")

	runs, err := app.Runs.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, ingest.SourceWebhook, runs[0].Source)
	assert.Equal(t, "c1", runs[0].CommitID)
	assert.Equal(t, int64(1), runs[0].PostID)
}

func TestWebhookWithoutImagesDoesNothing(t *testing.T) {
	ai := &stubCompleter{}
	app, _ := newTestApp(t, testConfig(t), ai)

	body := `{"commits":[{"id":"c1","added":["docs/a.md"],"removed":[]}]}`
	rec := do(t, app, http.MethodPost, "/functions/github-webhook", strings.NewReader(body), jsonHeaders(nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"received":true}`, rec.Body.String())
	assert.Zero(t, ai.count())
}

func TestWebhookSignature(t *testing.T) {
	cfg := testConfig(t)
	cfg.Functions.WebhookSecret = "s3cret"
	ai := &stubCompleter{}
	app, _ := newTestApp(t, cfg, ai)

	rec := do(t, app, http.MethodPost, "/functions/github-webhook", strings.NewReader(pushBody),
		jsonHeaders(map[string]string{ingest.SignatureHeader: "sha256=deadbeef"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, ai.count())

	rec = do(t, app, http.MethodPost, "/functions/github-webhook", strings.NewReader(pushBody), jsonHeaders(nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, app, http.MethodPost, "/functions/github-webhook", strings.NewReader(pushBody),
		jsonHeaders(map[string]string{ingest.SignatureHeader: ingest.Sign("s3cret", []byte(pushBody))}))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, ai.count())
}

func TestWebhookRejectsBadJSON(t *testing.T) {
	app, _ := newTestApp(t, testConfig(t), nil)

	rec := do(t, app, http.MethodPost, "/functions/github-webhook", strings.NewReader("{"), jsonHeaders(nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookFailureStillAcknowledges(t *testing.T) {
	ai := &stubCompleter{err: errors.New("upstream down")}
	app, _ := newTestApp(t, testConfig(t), ai)

	rec := do(t, app, http.MethodPost, "/functions/github-webhook", strings.NewReader(pushBody), jsonHeaders(nil))
	require.Equal(t, http.StatusOK, rec.Code)

	runs, err := app.Runs.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, ingest.RunError, runs[0].Status)
	assert.Contains(t, runs[0].Error, "upstream down")
}

func TestFunctionsRejectGet(t *testing.T) {
	app, _ := newTestApp(t, testConfig(t), nil)

	rec := get(t, app, "/functions/github-webhook")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestGenerateEndpoint(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.TTLSeconds = 60
	ai := &stubCompleter{}
	app, _ := newTestApp(t, cfg, ai)

	// Prime the cache so the new post must invalidate it.
	rec := get(t, app, "/posts")
	require.Equal(t, http.StatusOK, rec.Code)

	body := `{"imagePath":"images/prov1.webp","productName":"Pro V1","category":"golf"}`
	rec = do(t, app, http.MethodPost, "/functions/ai-blog-generator", strings.NewReader(body), jsonHeaders(nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var res ingest.GenerateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Success)
	require.NotNil(t, res.BlogPost)
	assert.Equal(t, int64(1), res.BlogPost.ID)
	assert.Equal(t, 1, ai.count(), "known product skips extraction")

	rec = get(t, app, "/posts")
	assert.Contains(t, rec.Body.String(), "Pro V1 리뷰")

	runs, err := app.Runs.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, ingest.SourceAPI, runs[0].Source)
}

func TestGenerateEndpointErrors(t *testing.T) {
	t.Run("no images", func(t *testing.T) {
		app, _ := newTestApp(t, testConfig(t), nil)
		rec := do(t, app, http.MethodPost, "/functions/ai-blog-generator", strings.NewReader(`{}`), jsonHeaders(nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
	t.Run("upstream failure", func(t *testing.T) {
		app, _ := newTestApp(t, testConfig(t), &stubCompleter{err: &ingest.UpstreamError{Service: "openai", StatusCode: 502}})
		rec := do(t, app, http.MethodPost, "/functions/ai-blog-generator",
			strings.NewReader(`{"imagePath":"images/a.webp"}`), jsonHeaders(nil))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		var res ingest.GenerateResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.False(t, res.Success)
		assert.NotEmpty(t, res.Error)
	})
	t.Run("missing credentials", func(t *testing.T) {
		app, _ := newTestApp(t, testConfig(t), &stubCompleter{err: ingest.ErrMissingCredentials})
		rec := do(t, app, http.MethodPost, "/functions/ai-blog-generator",
			strings.NewReader(`{"imagePath":"images/a.webp"}`), jsonHeaders(nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestGenerateEndpointRequiresToken(t *testing.T) {
	cfg := testConfig(t)
	cfg.Functions.JWTSecret = "jwt-secret"
	app, _ := newTestApp(t, cfg, nil)
	body := `{"imagePath":"images/prov1.webp","productName":"Pro V1","category":"golf"}`

	rec := do(t, app, http.MethodPost, "/functions/ai-blog-generator", strings.NewReader(body), jsonHeaders(nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	bad, err := IssueToken("other-secret", "ci", time.Hour)
	require.NoError(t, err)
	rec = do(t, app, http.MethodPost, "/functions/ai-blog-generator", strings.NewReader(body),
		jsonHeaders(map[string]string{echo.HeaderAuthorization: "Bearer " + bad}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	good, err := IssueToken("jwt-secret", "ci", time.Hour)
	require.NoError(t, err)
	rec = do(t, app, http.MethodPost, "/functions/ai-blog-generator", strings.NewReader(body),
		jsonHeaders(map[string]string{echo.HeaderAuthorization: "Bearer " + good}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestFunctionsRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Functions.RateLimit = 2
	app, _ := newTestApp(t, cfg, nil)

	for i := 0; i < 2; i++ {
		rec := do(t, app, http.MethodPost, "/functions/github-webhook", strings.NewReader(`{"commits":[]}`), jsonHeaders(nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := do(t, app, http.MethodPost, "/functions/github-webhook", strings.NewReader(`{"commits":[]}`), jsonHeaders(nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestFunctionsCORSPreflight(t *testing.T) {
	app, _ := newTestApp(t, testConfig(t), nil)

	rec := do(t, app, http.MethodOptions, "/functions/ai-blog-generator", nil, map[string]string{
		echo.HeaderOrigin:                      "https://studio.example.com",
		echo.HeaderAccessControlRequestMethod: http.MethodPost,
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestGenerateEndpointWithoutImageBaseURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.Ingest.ImageBaseURL = ""
	ai := &stubCompleter{}
	app, _ := newTestApp(t, cfg, ai)

	rec := do(t, app, http.MethodPost, "/functions/ai-blog-generator",
		strings.NewReader(`{"imagePath":"images/a.webp","productName":"A","category":"golf"}`), jsonHeaders(nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Zero(t, ai.count())
}
