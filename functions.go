package reviewpress

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/reviewpress/reviewpress/ingest"
)

// handleGitHubWebhook accepts a repository push and triggers generation for
// every image it added under the configured prefix.
func (a *App) handleGitHubWebhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "could not read body"})
	}
	if secret := a.Config.Functions.WebhookSecret; secret != "" {
		if !ingest.VerifySignature(secret, body, c.Request().Header.Get(ingest.SignatureHeader)) {
			c.Logger().Warnf("webhook: rejected push with bad signature from %s", c.RealIP())
			return c.JSON(http.StatusUnauthorized, errorBody{Error: "invalid signature"})
		}
	}
	ev, err := ingest.ParsePush(body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, a.Webhook.Handle(c.Request().Context(), ev))
}

// handleGenerate writes one post about the requested images.
func (a *App) handleGenerate(c echo.Context) error {
	var req ingest.Request
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ingest.GenerateResponse{Error: "invalid request body"})
	}
	if len(req.Paths()) == 0 {
		return c.JSON(http.StatusBadRequest, ingest.GenerateResponse{Error: ingest.ErrNoImages.Error()})
	}

	ctx := c.Request().Context()
	started := time.Now()
	post, err := a.Generator.Generate(ctx, req)

	run := ingest.Run{
		Source:     ingest.SourceAPI,
		ImagePaths: req.Paths(),
		PostID:     post.ID,
		Status:     ingest.RunOK,
		StartedAt:  started,
		Duration:   time.Since(started),
	}
	if err != nil {
		run.Status = ingest.RunError
		run.Error = err.Error()
	}
	if _, rerr := a.Runs.Record(ctx, run); rerr != nil {
		c.Logger().Warnf("generate: %v", rerr)
	}

	if err != nil {
		c.Logger().Errorf("generate %v: %v", req.Paths(), err)
		code := http.StatusInternalServerError
		if errors.Is(err, ingest.ErrMissingCredentials) || errors.Is(err, ingest.ErrRelativeImageURL) {
			code = http.StatusServiceUnavailable
		}
		return c.JSON(code, ingest.GenerateResponse{Error: err.Error()})
	}

	a.postCreated(post)
	return c.JSON(http.StatusOK, ingest.GenerateResponse{
		Success:  true,
		BlogPost: &post,
		Message:  "블로그 글이 생성되었습니다.",
	})
}
