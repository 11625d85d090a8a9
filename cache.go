package reviewpress

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/reviewpress/reviewpress/store"
)

// publishedKey is the Redis key holding the published post list.
const publishedKey = "reviewpress:posts:published"

// PostCache is a read-through cache of published posts with TTL. A zero TTL
// passes every read straight to the store. With a Redis client the list is
// shared between instances, otherwise it lives in memory.
type PostCache struct {
	mu      sync.RWMutex
	posts   []store.Post
	fetched time.Time
	ttl     time.Duration
	store   store.Reader
	redis   *redis.Client
}

var _ store.Reader = (*PostCache)(nil)

// NewPostCache creates a PostCache backed by the given reader.
func NewPostCache(r store.Reader, ttl time.Duration) *PostCache {
	return &PostCache{store: r, ttl: ttl}
}

// WithRedis shares the cache through client.
func (c *PostCache) WithRedis(client *redis.Client) *PostCache {
	c.redis = client
	return c
}

func (c *PostCache) enabled() bool {
	return c.ttl > 0
}

func (c *PostCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate(ctx context.Context) error {
	c.mu.Lock()
	c.posts = nil
	c.mu.Unlock()
	if c.redis != nil {
		return c.redis.Del(ctx, publishedKey).Err()
	}
	return nil
}

func (c *PostCache) load(ctx context.Context) error {
	if c.valid() {
		return nil
	}
	posts, err := c.store.ListPublished(ctx)
	if err != nil {
		return err
	}
	if posts == nil {
		posts = []store.Post{}
	}
	c.posts = posts
	c.fetched = time.Now()
	return nil
}

// ensureLoaded returns cached posts after ensuring the cache is fresh.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *PostCache) ensureLoaded(ctx context.Context) ([]store.Post, error) {
	c.mu.RLock()
	if c.valid() {
		posts := c.posts
		c.mu.RUnlock()
		return posts, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(ctx); err != nil {
		return nil, err
	}
	return c.posts, nil
}

// cacheAside reads the list from Redis and, on a miss, loads it from the
// store and writes it back. Redis failures fall through to the store.
func (c *PostCache) cacheAside(ctx context.Context) ([]store.Post, error) {
	raw, err := c.redis.Get(ctx, publishedKey).Bytes()
	if err == nil {
		var posts []store.Post
		if err := json.Unmarshal(raw, &posts); err == nil {
			return posts, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		return c.store.ListPublished(ctx)
	}

	posts, err := c.store.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(posts); err == nil {
		_ = c.redis.Set(ctx, publishedKey, b, c.ttl).Err()
	}
	return posts, nil
}

// ListPublished returns published posts, newest first.
func (c *PostCache) ListPublished(ctx context.Context) ([]store.Post, error) {
	switch {
	case !c.enabled():
		return c.store.ListPublished(ctx)
	case c.redis != nil:
		return c.cacheAside(ctx)
	default:
		return c.ensureLoaded(ctx)
	}
}

// GetPublished returns a single published post by id.
func (c *PostCache) GetPublished(ctx context.Context, id int64) (store.Post, error) {
	if !c.enabled() {
		return c.store.GetPublished(ctx, id)
	}
	posts, err := c.ListPublished(ctx)
	if err != nil {
		return store.Post{}, err
	}
	for _, p := range posts {
		if p.ID == id {
			return p, nil
		}
	}
	return store.Post{}, store.ErrNotFound
}
