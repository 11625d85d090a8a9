package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reviewpress/reviewpress/store"
)

// fakeCompleter answers extraction prompts with identify and review
// prompts with review, recording every prompt it saw.
type fakeCompleter struct {
	mu       sync.Mutex
	identify string
	review   string
	err      error
	prompts  []string
	images   [][]string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, imageURLs []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.images = append(f.images, imageURLs)
	if f.err != nil {
		return "", f.err
	}
	if strings.Contains(prompt, `"productName"`) {
		return f.identify, nil
	}
	return f.review, nil
}

func (f *fakeCompleter) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "blog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestGenerator(ai Completer, w store.Writer) *Generator {
	g := NewGenerator(ai, w, "https://raw.githubusercontent.com/owner/assets/main/")
	g.now = func() time.Time { return time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC) }
	return g
}

func TestGenerateStoresParsedPost(t *testing.T) {
	s := newTestStore(t)
	ai := &fakeCompleter{review: fullAnswer}
	g := newTestGenerator(ai, s)

	post, err := g.Generate(context.Background(), Request{
		ImagePath:   "images/prov1.webp",
		ProductName: "Pro V1",
		Category:    "golf",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1), post.ID)
	assert.Equal(t, 1, ai.calls(), "known product and category must skip extraction")
	assert.Equal(t, []string{"https://raw.githubusercontent.com/owner/assets/main/images/prov1.webp"}, ai.images[0])

	stored, err := s.GetPublished(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, "타이틀리스트 Pro V1 리뷰", stored.Title)
	assert.Equal(t, "부드러운 타구감과 안정적인 스핀의 투어 볼", stored.Summary)
	assert.Equal(t, "골프공, 타이틀리스트, Pro V1", stored.Tags)
	assert.Equal(t, "feel", stored.Category)
	assert.Equal(t, DefaultAuthor, stored.Author)
	assert.Equal(t, store.DisplayYes, stored.DisplayYN)
	assert.Equal(t, "https://raw.githubusercontent.com/owner/assets/main/images/prov1.webp", stored.ImageURL)
	assert.NotContains(t, stored.Content, "<strong>summary</strong>")
	assert.True(t, stored.CreatedAt.Equal(time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)))
}

func TestGenerateUsesNextID(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Insert(context.Background(), store.Post{ID: 41, Title: "old", DisplayYN: store.DisplayNo})
	require.NoError(t, err)

	g := newTestGenerator(&fakeCompleter{review: fullAnswer}, s)
	post, err := g.Generate(context.Background(), Request{ImagePath: "images/a.webp", ProductName: "A", Category: "golf"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), post.ID)
}

func TestGenerateIdentifiesProduct(t *testing.T) {
	s := newTestStore(t)
	ai := &fakeCompleter{
		identify: "```json\n{\"productName\":\"Chrome Soft\",\"category\":\"golf\"}\n```",
		review:   "<h2>크롬 소프트</h2><p>본문</p>",
	}
	g := newTestGenerator(ai, s)

	post, err := g.Generate(context.Background(), Request{ImagePaths: []string{"images/a.webp", "images/b.webp"}})
	require.NoError(t, err)

	require.Equal(t, 2, ai.calls())
	assert.Contains(t, ai.prompts[1], "Chrome Soft")
	assert.Len(t, ai.images[1], 2)
	assert.Equal(t, "크롬 소프트", post.Title)
	assert.Equal(t, "golf", post.Category)
}

func TestGenerateFallsBackToPathHeuristics(t *testing.T) {
	s := newTestStore(t)
	ai := &fakeCompleter{identify: "죄송하지만 확인할 수 없습니다", review: "<p>본문</p>"}
	g := newTestGenerator(ai, s)

	post, err := g.Generate(context.Background(), Request{ImagePath: "images/golf/chrome-soft.webp"})
	require.NoError(t, err)

	assert.Contains(t, ai.prompts[1], "chrome soft")
	assert.Equal(t, "chrome soft 리뷰", post.Title)
	assert.Equal(t, CategoryGolf, post.Category)
}

func TestGenerateKeepsRequestedFields(t *testing.T) {
	s := newTestStore(t)
	ai := &fakeCompleter{identify: `{"productName":"Wrong","category":"tech"}`, review: "<p>본문</p>"}
	g := newTestGenerator(ai, s)

	post, err := g.Generate(context.Background(), Request{ImagePath: "images/x.webp", ProductName: "Pro V1"})
	require.NoError(t, err)
	assert.Contains(t, ai.prompts[1], "Pro V1")
	assert.NotContains(t, ai.prompts[1], "Wrong")
	assert.Equal(t, "tech", post.Category)
}

func TestGenerateRequiresImage(t *testing.T) {
	ai := &fakeCompleter{}
	g := newTestGenerator(ai, newTestStore(t))
	_, err := g.Generate(context.Background(), Request{ImagePaths: []string{" ", ""}})
	assert.ErrorIs(t, err, ErrNoImages)
	assert.Zero(t, ai.calls())
}

func TestGenerateSurfacesCompletionErrors(t *testing.T) {
	s := newTestStore(t)
	ai := &fakeCompleter{err: ErrMissingCredentials}
	g := newTestGenerator(ai, s)

	_, err := g.Generate(context.Background(), Request{ImagePath: "images/a.webp"})
	assert.ErrorIs(t, err, ErrMissingCredentials)

	posts, err := s.ListPublished(context.Background())
	require.NoError(t, err)
	assert.Empty(t, posts)
}

// racyWriter pretends another writer takes the first id it hands out.
type racyWriter struct {
	maxID   int64
	stolen  int
	inserts []int64
}

func (w *racyWriter) MaxID(context.Context) (int64, error) { return w.maxID, nil }

func (w *racyWriter) Insert(_ context.Context, p store.Post) (store.Post, error) {
	w.inserts = append(w.inserts, p.ID)
	if w.stolen > 0 {
		w.stolen--
		w.maxID = p.ID
		return store.Post{}, store.ErrDuplicateID
	}
	w.maxID = p.ID
	return p, nil
}

func TestGenerateRenumbersOnDuplicateID(t *testing.T) {
	w := &racyWriter{maxID: 5, stolen: 1}
	g := newTestGenerator(&fakeCompleter{review: fullAnswer}, w)

	post, err := g.Generate(context.Background(), Request{ImagePath: "images/a.webp", ProductName: "A", Category: "golf"})
	require.NoError(t, err)
	assert.Equal(t, []int64{6, 7}, w.inserts)
	assert.Equal(t, int64(7), post.ID)
}

func TestGenerateGivesUpAfterRepeatedConflicts(t *testing.T) {
	w := &racyWriter{maxID: 1, stolen: 10}
	g := newTestGenerator(&fakeCompleter{review: fullAnswer}, w)

	_, err := g.Generate(context.Background(), Request{ImagePath: "images/a.webp", ProductName: "A", Category: "golf"})
	assert.True(t, errors.Is(err, store.ErrDuplicateID))
	assert.Len(t, w.inserts, insertAttempts)
}

func TestRequestPaths(t *testing.T) {
	r := Request{ImagePath: "images/a.png", ImagePaths: []string{"images/b.png", "images/a.png", " "}}
	assert.Equal(t, []string{"images/a.png", "images/b.png"}, r.Paths())
}

func TestGenerateRejectsRelativeImageURL(t *testing.T) {
	ai := &fakeCompleter{review: fullAnswer}
	g := newTestGenerator(ai, newTestStore(t))
	g.ImageBaseURL = ""

	_, err := g.Generate(context.Background(), Request{ImagePath: "images/prov1.webp", ProductName: "Pro V1", Category: "golf"})
	require.ErrorIs(t, err, ErrRelativeImageURL)
	assert.Zero(t, ai.calls(), "no completion call with a relative image url")

	// Absolute references still work without a base URL.
	_, err = g.Generate(context.Background(), Request{ImagePath: "https://cdn.example.com/prov1.webp", ProductName: "Pro V1", Category: "golf"})
	require.NoError(t, err)
}
