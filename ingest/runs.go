package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	_ "modernc.org/sqlite"
)

// Run statuses.
const (
	RunOK    = "ok"
	RunError = "error"
)

// Run sources.
const (
	SourceWebhook = "webhook"
	SourceAPI     = "api"
	SourceCLI     = "cli"
)

// Run is one generation attempt as recorded in the run log.
type Run struct {
	ID         string
	Source     string
	CommitID   string
	ImagePaths []string
	PostID     int64
	Status     string
	Error      string
	StartedAt  time.Time
	Duration   time.Duration
}

// RunLog is a small SQLite journal of generation attempts. It is separate
// from the content table and never read by the site.
type RunLog struct {
	db *sql.DB
}

const runTimeLayout = "2006-01-02T15:04:05.000000Z"

// NewRunLog opens (or creates) the run log at dbPath.
func NewRunLog(dbPath string) (*RunLog, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create run log dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	l := &RunLog{db: db}
	if err := l.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return l, nil
}

// Close closes the database connection.
func (l *RunLog) Close() error {
	return l.db.Close()
}

func (l *RunLog) ensureSchema() error {
	_, err := l.db.Exec(`
		CREATE TABLE IF NOT EXISTS generation_runs (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			commit_id TEXT NOT NULL DEFAULT '',
			image_paths TEXT NOT NULL,
			post_id INTEGER NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			started_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_generation_runs_started ON generation_runs(started_at);
	`)
	return err
}

// Record stores r, assigning an id when it has none.
func (l *RunLog) Record(ctx context.Context, r Run) (Run, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	r.StartedAt = r.StartedAt.UTC()
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO generation_runs (id, source, commit_id, image_paths, post_id, status, error, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Source, r.CommitID, strings.Join(r.ImagePaths, "\n"), r.PostID,
		r.Status, r.Error, r.StartedAt.Format(runTimeLayout), r.Duration.Milliseconds(),
	)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	return r, nil
}

// Recent returns up to limit runs, newest first.
func (l *RunLog) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, source, commit_id, image_paths, post_id, status, error, started_at, duration_ms
		FROM generation_runs
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r          Run
			paths      string
			startedAt  string
			durationMS int64
		)
		if err := rows.Scan(&r.ID, &r.Source, &r.CommitID, &paths, &r.PostID, &r.Status, &r.Error, &startedAt, &durationMS); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if paths != "" {
			r.ImagePaths = strings.Split(paths, "\n")
		}
		r.StartedAt, _ = time.Parse(runTimeLayout, startedAt)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Cleanup removes runs older than retentionDays.
func (l *RunLog) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	res, err := l.db.ExecContext(ctx, `DELETE FROM generation_runs WHERE started_at < ?`, cutoff.Format(runTimeLayout))
	if err != nil {
		return 0, fmt.Errorf("cleanup runs: %w", err)
	}
	return res.RowsAffected()
}

// StartCleanupScheduler runs Cleanup every interval. The returned stop
// function may be called more than once.
func (l *RunLog) StartCleanupScheduler(retentionDays int, interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				if _, err := l.Cleanup(context.Background(), retentionDays); err != nil {
					log.Errorf("run log cleanup: %v", err)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}
