package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteTime keeps created_at fixed-width so text ordering matches time ordering.
const sqliteTime = "2006-01-02T15:04:05.000000Z"

// SQLiteStore keeps posts in a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at path, ensures the
// data directory exists, and creates the posts table.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// WAL lets page reads continue while the generator writes; the busy
	// timeout makes concurrent writers wait instead of failing.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
	`); err != nil {
		db.Close()
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &SQLiteStore{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS tb_blog_posts (
    id INTEGER PRIMARY KEY,
    title TEXT NOT NULL,
    summary TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    author TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '',
    image_url TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    display_yn TEXT NOT NULL DEFAULT 'Y'
);
CREATE INDEX IF NOT EXISTS idx_tb_blog_posts_created ON tb_blog_posts(display_yn, created_at);
`)
	return err
}

const sqliteColumns = `id, title, summary, content, author, category, tags, image_url, created_at, display_yn`

// ListPublished returns all published posts ordered by created_at descending.
func (s *SQLiteStore) ListPublished(ctx context.Context) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqliteColumns+` FROM tb_blog_posts WHERE display_yn = 'Y' ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		p, err := scanSQLitePost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// GetPublished returns a single published post by id.
func (s *SQLiteStore) GetPublished(ctx context.Context, id int64) (Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM tb_blog_posts WHERE id = ? AND display_yn = 'Y'`, id)
	p, err := scanSQLitePost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	return p, err
}

// MaxID returns the current maximum id, 0 for an empty table.
func (s *SQLiteStore) MaxID(ctx context.Context) (int64, error) {
	var maxID sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(id) FROM tb_blog_posts`).Scan(&maxID); err != nil {
		return 0, err
	}
	return maxID.Int64, nil
}

// Insert writes p. A taken id yields ErrDuplicateID.
func (s *SQLiteStore) Insert(ctx context.Context, p Post) (Post, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	p.CreatedAt = p.CreatedAt.UTC().Truncate(time.Microsecond)
	if p.DisplayYN == "" {
		p.DisplayYN = DisplayYes
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO tb_blog_posts (`+sqliteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Summary, p.Content, p.Author, p.Category, p.Tags, p.ImageURL,
		p.CreatedAt.Format(sqliteTime), p.DisplayYN)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") || strings.Contains(err.Error(), "PRIMARY KEY") {
			return Post{}, fmt.Errorf("insert post %d: %w", p.ID, ErrDuplicateID)
		}
		return Post{}, fmt.Errorf("insert post %d: %w", p.ID, err)
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLitePost(row rowScanner) (Post, error) {
	var p Post
	var created string
	if err := row.Scan(&p.ID, &p.Title, &p.Summary, &p.Content, &p.Author, &p.Category, &p.Tags, &p.ImageURL, &created, &p.DisplayYN); err != nil {
		return Post{}, err
	}
	t, err := parseStoredTime(created)
	if err != nil {
		return Post{}, fmt.Errorf("post %d: created_at: %w", p.ID, err)
	}
	p.CreatedAt = t
	return p, nil
}

func parseStoredTime(v string) (time.Time, error) {
	for _, layout := range []string{sqliteTime, time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", v)
}
