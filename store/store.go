package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a requested post does not exist or is not published.
	ErrNotFound = errors.New("store: post not found")
	// ErrDuplicateID is returned by Insert when the id is already taken.
	ErrDuplicateID = errors.New("store: duplicate post id")
)

// Writer is the write side used by the ingestion pipeline.
type Writer interface {
	// MaxID returns the largest id in the table, or 0 when it is empty.
	MaxID(ctx context.Context) (int64, error)
	// Insert writes a new row and returns it as stored.
	Insert(ctx context.Context, p Post) (Post, error)
}

// Reader is the read side used by the site. Reads only ever see published posts.
type Reader interface {
	// ListPublished returns published posts, newest first.
	ListPublished(ctx context.Context) ([]Post, error)
	// GetPublished returns one published post by id.
	GetPublished(ctx context.Context, id int64) (Post, error)
}

// Store is the content store.
type Store interface {
	Reader
	Writer
	Close() error
}

// NextID returns the id the next insert should use: 1 for an empty
// table, otherwise max(id)+1. The read and the later insert are not atomic.
func NextID(ctx context.Context, s Writer) (int64, error) {
	maxID, err := s.MaxID(ctx)
	if err != nil {
		return 0, fmt.Errorf("next id: %w", err)
	}
	if maxID < 0 {
		maxID = 0
	}
	return maxID + 1, nil
}

// Config selects and configures a backend.
type Config struct {
	Driver string `toml:"driver"` // sqlite, postgres or rest
	Path   string `toml:"path"`   // sqlite database file
	DSN    string `toml:"dsn"`    // postgres connection string
	URL    string `toml:"url"`    // rest API base URL
	APIKey string `toml:"api_key"`
}

// Drivers lists the accepted values of Config.Driver.
var Drivers = []string{"sqlite", "postgres", "rest"}

// Validate checks that the selected driver has what it needs.
func (c Config) Validate() error {
	switch strings.ToLower(c.Driver) {
	case "sqlite":
		if c.Path == "" {
			return errors.New("store: sqlite driver requires path")
		}
	case "postgres":
		if c.DSN == "" {
			return errors.New("store: postgres driver requires dsn")
		}
	case "rest":
		if c.URL == "" || c.APIKey == "" {
			return errors.New("store: rest driver requires url and api_key")
		}
	default:
		return fmt.Errorf("store: unknown driver %q (want one of %s)", c.Driver, strings.Join(Drivers, ", "))
	}
	return nil
}

// Open opens the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch strings.ToLower(cfg.Driver) {
	case "postgres":
		return NewPostgresStore(ctx, cfg.DSN)
	case "rest":
		return NewRESTStore(cfg.URL, cfg.APIKey), nil
	default:
		return NewSQLiteStore(cfg.Path)
	}
}
