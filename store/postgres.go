package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore talks to the hosted Postgres database directly.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and verifies the connection.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema creates tb_blog_posts when it does not exist. Hosted
// databases usually already have it, so Open does not call this.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tb_blog_posts (
    id BIGINT PRIMARY KEY,
    title TEXT NOT NULL,
    summary TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT '',
    author TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT '',
    image_url TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    display_yn CHAR(1) NOT NULL DEFAULT 'Y'
)`)
	return err
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

const pgColumns = `id, title, coalesce(summary, ''), coalesce(content, ''), coalesce(author, ''),
	coalesce(category, ''), coalesce(tags, ''), coalesce(image_url, ''), created_at, display_yn`

// ListPublished returns published posts, newest first.
func (s *PostgresStore) ListPublished(ctx context.Context) ([]Post, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+pgColumns+` FROM tb_blog_posts WHERE display_yn = 'Y' ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		p, err := scanPGPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// GetPublished returns one published post by id.
func (s *PostgresStore) GetPublished(ctx context.Context, id int64) (Post, error) {
	p, err := scanPGPost(s.pool.QueryRow(ctx, `SELECT `+pgColumns+` FROM tb_blog_posts WHERE id = $1 AND display_yn = 'Y'`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Post{}, ErrNotFound
	}
	return p, err
}

// MaxID returns the largest id, 0 when the table is empty.
func (s *PostgresStore) MaxID(ctx context.Context) (int64, error) {
	var maxID int64
	err := s.pool.QueryRow(ctx, `SELECT coalesce(max(id), 0) FROM tb_blog_posts`).Scan(&maxID)
	return maxID, err
}

// Insert writes p. A primary key violation yields ErrDuplicateID.
func (s *PostgresStore) Insert(ctx context.Context, p Post) (Post, error) {
	if p.DisplayYN == "" {
		p.DisplayYN = DisplayYes
	}
	row := s.pool.QueryRow(ctx, `
INSERT INTO tb_blog_posts (id, title, summary, content, author, category, tags, image_url, created_at, display_yn)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, coalesce($9, NOW()), $10)
RETURNING `+pgColumns,
		p.ID, p.Title, p.Summary, p.Content, p.Author, p.Category, p.Tags, p.ImageURL, nullTime(p), p.DisplayYN)
	stored, err := scanPGPost(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Post{}, fmt.Errorf("insert post %d: %w", p.ID, ErrDuplicateID)
		}
		return Post{}, fmt.Errorf("insert post %d: %w", p.ID, err)
	}
	return stored, nil
}

func nullTime(p Post) any {
	if p.CreatedAt.IsZero() {
		return nil
	}
	return p.CreatedAt.UTC()
}

func scanPGPost(row pgx.Row) (Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.Title, &p.Summary, &p.Content, &p.Author, &p.Category, &p.Tags, &p.ImageURL, &p.CreatedAt, &p.DisplayYN)
	if err != nil {
		return Post{}, err
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}
