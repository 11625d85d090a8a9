package ingest

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingCredentials is returned before any network call when the
// completion API key is not configured.
var ErrMissingCredentials = errors.New("ingest: completion api key not configured")

// ErrRelativeImageURL is returned before any network call when an image
// path could not be turned into an absolute URL, usually because no image
// base URL is configured.
var ErrRelativeImageURL = errors.New("ingest: image url is not absolute (set the image base url)")

// UpstreamError is a non-2xx answer from an external service.
type UpstreamError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("%s: http %d: %s", e.Service, e.StatusCode, body)
}
