package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const restTimeout = 15 * time.Second

// APIError is a non-2xx answer from the REST content store.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rest store: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// RESTStore reads and writes tb_blog_posts through a PostgREST-style API
// (/rest/v1/<table>) authenticated with an api key.
type RESTStore struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewRESTStore returns a store for the API rooted at baseURL.
func NewRESTStore(baseURL, apiKey string) *RESTStore {
	return &RESTStore{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: restTimeout},
	}
}

// WithHTTPClient swaps the HTTP client, mainly for tests.
func (s *RESTStore) WithHTTPClient(c *http.Client) *RESTStore {
	if c != nil {
		s.httpClient = c
	}
	return s
}

// Close is a no-op; the store holds no connections of its own.
func (s *RESTStore) Close() error { return nil }

// restPost mirrors the JSON row shape. created_at is decoded by hand because
// timestamp columns without a zone come back without an offset.
type restPost struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	Content   string `json:"content"`
	Author    string `json:"author"`
	Category  string `json:"category"`
	Tags      string `json:"tags"`
	ImageURL  string `json:"image_url"`
	CreatedAt string `json:"created_at"`
	DisplayYN string `json:"display_yn"`
}

func (r restPost) post() (Post, error) {
	p := Post{
		ID:        r.ID,
		Title:     r.Title,
		Summary:   r.Summary,
		Content:   r.Content,
		Author:    r.Author,
		Category:  r.Category,
		Tags:      r.Tags,
		ImageURL:  r.ImageURL,
		DisplayYN: r.DisplayYN,
	}
	if r.CreatedAt != "" {
		t, err := parseStoredTime(r.CreatedAt)
		if err != nil {
			return Post{}, fmt.Errorf("post %d: created_at: %w", r.ID, err)
		}
		p.CreatedAt = t
	}
	return p, nil
}

// ListPublished selects published rows ordered by created_at descending.
func (s *RESTStore) ListPublished(ctx context.Context) ([]Post, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("display_yn", "eq."+DisplayYes)
	q.Set("order", "created_at.desc")
	return s.selectPosts(ctx, q)
}

// GetPublished selects one published row by id.
func (s *RESTStore) GetPublished(ctx context.Context, id int64) (Post, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("display_yn", "eq."+DisplayYes)
	q.Set("id", "eq."+strconv.FormatInt(id, 10))
	q.Set("limit", "1")
	posts, err := s.selectPosts(ctx, q)
	if err != nil {
		return Post{}, err
	}
	if len(posts) == 0 {
		return Post{}, ErrNotFound
	}
	return posts[0], nil
}

// MaxID reads the highest id by ordering on id and taking one row.
func (s *RESTStore) MaxID(ctx context.Context) (int64, error) {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("order", "id.desc")
	q.Set("limit", "1")
	posts, err := s.selectPosts(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("fetch max id: %w", err)
	}
	if len(posts) == 0 {
		return 0, nil
	}
	return posts[0].ID, nil
}

// Insert posts one row and returns the representation the API sends back.
func (s *RESTStore) Insert(ctx context.Context, p Post) (Post, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.DisplayYN == "" {
		p.DisplayYN = DisplayYes
	}
	row := restPost{
		ID:        p.ID,
		Title:     p.Title,
		Summary:   p.Summary,
		Content:   p.Content,
		Author:    p.Author,
		Category:  p.Category,
		Tags:      p.Tags,
		ImageURL:  p.ImageURL,
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339Nano),
		DisplayYN: p.DisplayYN,
	}
	body, err := json.Marshal(row)
	if err != nil {
		return Post{}, fmt.Errorf("insert post %d: encode: %w", p.ID, err)
	}
	req, err := s.newRequest(ctx, http.MethodPost, nil, bytes.NewReader(body))
	if err != nil {
		return Post{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	var rows []restPost
	if err := s.do(req, &rows); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
			return Post{}, fmt.Errorf("insert post %d: %w", p.ID, ErrDuplicateID)
		}
		return Post{}, fmt.Errorf("insert post %d: %w", p.ID, err)
	}
	if len(rows) == 0 {
		p.CreatedAt = p.CreatedAt.UTC()
		return p, nil
	}
	return rows[0].post()
}

func (s *RESTStore) selectPosts(ctx context.Context, q url.Values) ([]Post, error) {
	req, err := s.newRequest(ctx, http.MethodGet, q, nil)
	if err != nil {
		return nil, err
	}
	var rows []restPost
	if err := s.do(req, &rows); err != nil {
		return nil, err
	}
	posts := make([]Post, 0, len(rows))
	for _, r := range rows {
		p, err := r.post()
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, nil
}

func (s *RESTStore) newRequest(ctx context.Context, method string, q url.Values, body io.Reader) (*http.Request, error) {
	endpoint, err := url.JoinPath(s.baseURL, "rest", "v1", Table)
	if err != nil {
		return nil, fmt.Errorf("rest store: build url: %w", err)
	}
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("rest store: new request: %w", err)
	}
	req.Header.Set("apikey", s.apiKey)
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (s *RESTStore) do(req *http.Request, out any) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("rest store: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("rest store: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("rest store: decode response: %w", err)
	}
	return nil
}
