package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/reviewpress/reviewpress/store"
)

// DefaultAuthor is the byline put on every generated post.
const DefaultAuthor = "팍술"

// insertAttempts bounds how often a generated post is re-numbered after
// losing the max(id)+1 race to another writer.
const insertAttempts = 3

// Request asks for one post about one or more images. ImagePath is the
// single-image form; both forms may be combined.
type Request struct {
	ImagePath   string   `json:"imagePath,omitempty"`
	ImagePaths  []string `json:"imagePaths,omitempty"`
	ProductName string   `json:"productName,omitempty"`
	Category    string   `json:"category,omitempty"`
}

// Paths returns every image path in the request, de-duplicated.
func (r Request) Paths() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range append([]string{r.ImagePath}, r.ImagePaths...) {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// ErrNoImages is returned when a request names no image.
var ErrNoImages = errors.New("ingest: at least one image path is required")

// Generator writes a post about a set of images and stores it.
type Generator struct {
	AI           Completer
	Store        store.Writer
	Author       string
	ImageBaseURL string
	Logger       echo.Logger

	now func() time.Time
}

// NewGenerator wires a generator with the default author and logger.
func NewGenerator(ai Completer, w store.Writer, imageBaseURL string) *Generator {
	return &Generator{
		AI:           ai,
		Store:        w,
		Author:       DefaultAuthor,
		ImageBaseURL: imageBaseURL,
		Logger:       ingestLog,
	}
}

func (g *Generator) clock() time.Time {
	if g.now != nil {
		return g.now()
	}
	return time.Now()
}

var ingestLog = log.New("ingest")

func (g *Generator) logger() echo.Logger {
	if g.Logger == nil {
		return ingestLog
	}
	return g.Logger
}

// Generate runs the pipeline once: identify the product if needed, render the
// category prompt, call the completion API, parse the trailer and insert.
func (g *Generator) Generate(ctx context.Context, req Request) (store.Post, error) {
	paths := req.Paths()
	if len(paths) == 0 {
		return store.Post{}, ErrNoImages
	}
	imageURLs := make([]string, len(paths))
	for i, p := range paths {
		u := ResolveImageURL(g.ImageBaseURL, p)
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return store.Post{}, fmt.Errorf("%w: %q", ErrRelativeImageURL, u)
		}
		imageURLs[i] = u
	}

	productName := strings.TrimSpace(req.ProductName)
	category := strings.ToLower(strings.TrimSpace(req.Category))
	if productName == "" || category == "" {
		id, err := g.identify(ctx, paths[0], imageURLs)
		if err != nil {
			return store.Post{}, err
		}
		if productName == "" {
			productName = id.ProductName
		}
		if category == "" {
			category = id.Category
		}
	}

	prompt, err := BuildPrompt(category, productName, imageURLs)
	if err != nil {
		return store.Post{}, err
	}
	answer, err := g.AI.Complete(ctx, prompt, imageURLs)
	if err != nil {
		return store.Post{}, fmt.Errorf("generate %s: %w", paths[0], err)
	}
	article := ParseArticle(answer, productName, category)

	post := store.Post{
		Title:     article.Title,
		Summary:   article.Summary,
		Content:   article.Content,
		Author:    g.Author,
		Category:  article.Category,
		Tags:      article.Tags,
		ImageURL:  imageURLs[0],
		CreatedAt: g.clock().UTC(),
		DisplayYN: store.DisplayYes,
	}
	if post.Author == "" {
		post.Author = DefaultAuthor
	}
	saved, err := g.insert(ctx, post)
	if err != nil {
		return store.Post{}, err
	}
	g.logger().Infof("generated post %d %q from %d image(s)", saved.ID, saved.Title, len(paths))
	return saved, nil
}

// identify asks the model for product name and category. Only a missing
// key or an upstream failure is returned; an unusable answer falls back to
// guessing from the file path.
func (g *Generator) identify(ctx context.Context, firstPath string, imageURLs []string) (Identification, error) {
	fallback := Identification{
		ProductName: ProductNameFromPath(firstPath),
		Category:    CategoryFromPath(firstPath),
	}
	prompt, err := BuildExtractionPrompt(imageURLs)
	if err != nil {
		return Identification{}, err
	}
	answer, err := g.AI.Complete(ctx, prompt, imageURLs)
	if err != nil {
		return Identification{}, fmt.Errorf("identify %s: %w", firstPath, err)
	}
	id, err := ParseIdentification(answer)
	if err != nil {
		g.logger().Warnf("identify %s: %v; using path heuristics", firstPath, err)
		return fallback, nil
	}
	if id.Category == "" {
		id.Category = fallback.Category
	}
	return id, nil
}

func (g *Generator) insert(ctx context.Context, post store.Post) (store.Post, error) {
	var lastErr error
	for attempt := 1; attempt <= insertAttempts; attempt++ {
		id, err := store.NextID(ctx, g.Store)
		if err != nil {
			return store.Post{}, err
		}
		post.ID = id
		saved, err := g.Store.Insert(ctx, post)
		if err == nil {
			return saved, nil
		}
		if !errors.Is(err, store.ErrDuplicateID) {
			return store.Post{}, err
		}
		g.logger().Warnf("post id %d taken, renumbering (attempt %d/%d)", id, attempt, insertAttempts)
		lastErr = err
	}
	return store.Post{}, fmt.Errorf("insert post after %d attempts: %w", insertAttempts, lastErr)
}
