package reviewpress

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/reviewpress/reviewpress/store"
)

const reviewAnswer = `<h2>Pro V1 후기</h2>
<p>부드러운 공입니다.</p>

<strong>title</strong>: Pro V1 리뷰
<strong>summary</strong>: 부드러운 타구감의 투어 볼
<strong>tags</strong>: 골프공, Pro V1
<strong>category</strong>: feel`

// stubCompleter answers extraction prompts with a fixed identification and
// everything else with reviewAnswer.
type stubCompleter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *stubCompleter) Complete(_ context.Context, prompt string, _ []string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	if strings.Contains(prompt, `"productName"`) {
		return `{"productName":"Pro V1","category":"golf"}`, nil
	}
	return reviewAnswer, nil
}

func (s *stubCompleter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func testConfig(t *testing.T) SiteConfig {
	t.Helper()
	dir := t.TempDir()
	return SiteConfig{
		Name:      "Test Reviews",
		URL:       "https://reviews.example.com",
		StaticDir: dir,
		Store:     store.Config{Driver: "sqlite", Path: filepath.Join(dir, "blog.db")},
		Ingest: IngestConfig{
			ImageBaseURL: "https://cdn.example.com/",
			RunLogPath:   filepath.Join(dir, "ingest.db"),
		},
	}
}

func newTestApp(t *testing.T, cfg SiteConfig, ai *stubCompleter, posts ...store.Post) (*App, *store.SQLiteStore) {
	t.Helper()
	s, err := store.NewSQLiteStore(cfg.Store.Path)
	require.NoError(t, err)
	ctx := context.Background()
	for _, p := range posts {
		_, err := s.Insert(ctx, p)
		require.NoError(t, err)
	}
	if ai == nil {
		ai = &stubCompleter{}
	}
	app := New(cfg, WithStore(s), WithCompleter(ai))
	require.NoError(t, app.Setup(ctx))
	t.Cleanup(func() { app.Close() })
	return app, s
}

func samplePosts() []store.Post {
	day := time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
	return []store.Post{
		{ID: 1, Title: "Chrome Soft Review", Summary: "soft", Content: "<p>one</p>", Author: "a", Category: store.CategoryFeel, Tags: "golf", CreatedAt: day, DisplayYN: store.DisplayYes},
		{ID: 2, Title: "Pro V1x Distance", Summary: "long", Content: "<p>two</p>", Author: "a", Category: store.CategoryDistance, Tags: "golf", CreatedAt: day.AddDate(0, 0, 1), DisplayYN: store.DisplayYes},
		{ID: 3, Title: "Hidden Draft", Summary: "draft", Content: "<p>three</p>", Author: "a", Category: store.CategoryDesign, CreatedAt: day.AddDate(0, 0, 2), DisplayYN: store.DisplayNo},
		{ID: 4, Title: "TP5 Design Notes", Summary: "pretty", Content: "<p>four</p>", Author: "a", Category: store.CategoryDesign, CreatedAt: day.AddDate(0, 0, 3), DisplayYN: store.DisplayYes},
	}
}

func do(t *testing.T, app *App, method, target string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)
	return rec
}

func get(t *testing.T, app *App, target string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, app, http.MethodGet, target, nil, nil)
}
