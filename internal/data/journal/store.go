// Package journal records metadata about executions in SQLite. It never
// stores scope contents or output values.
package journal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Execution statuses.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Entry is one recorded execution.
type Entry struct {
	ID         string
	SessionID  string
	StartedAt  time.Time
	NodeType   string
	Language   string
	Duration   time.Duration
	Outputs    int
	Errors     int
	ErrorTypes []string
	Status     string
}

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// Open creates the database file and its directory when missing and applies
// pending migrations.
func Open(path string, busyTimeout time.Duration) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("journal path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("journal path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory %q: %w", dir, err)
		}
	}

	if busyTimeout <= 0 {
		busyTimeout = 2 * time.Second
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		cleanPath, busyTimeout.Milliseconds())
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite journal %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite journal %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Record stores entry, filling in its ID, start time and status when unset,
// and returns the stored entry.
func (s *Store) Record(entry Entry) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.StartedAt.IsZero() {
		entry.StartedAt = time.Now()
	}
	entry.StartedAt = entry.StartedAt.UTC()
	if entry.Status == "" {
		entry.Status = StatusOK
		if entry.Errors > 0 {
			entry.Status = StatusFailed
		}
	}

	query := `
INSERT INTO executions (
  id, session_id, started_at_utc, node_type, language, duration_seconds,
  output_count, error_count, error_types, status
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`
	err := s.withRetry("record execution", func() error {
		_, err := s.db.Exec(
			query,
			entry.ID,
			entry.SessionID,
			entry.StartedAt.Format(time.RFC3339Nano),
			entry.NodeType,
			entry.Language,
			entry.Duration.Seconds(),
			entry.Outputs,
			entry.Errors,
			strings.Join(entry.ErrorTypes, ","),
			entry.Status,
		)
		return err
	})
	return entry, err
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 20
	}

	query := `
SELECT
  id, session_id, started_at_utc, node_type, language, duration_seconds,
  output_count, error_count, error_types, status
FROM executions
ORDER BY started_at_utc DESC, id ASC
LIMIT ?
`
	var rows *sql.Rows
	err := s.withRetry("load executions", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, limit)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var (
			startedRaw string
			seconds    float64
			errorTypes string
			entry      Entry
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.SessionID,
			&startedRaw,
			&entry.NodeType,
			&entry.Language,
			&seconds,
			&entry.Outputs,
			&entry.Errors,
			&errorTypes,
			&entry.Status,
		); err != nil {
			return nil, fmt.Errorf("scan execution row: %w", err)
		}

		started, err := time.Parse(time.RFC3339Nano, startedRaw)
		if err != nil {
			return nil, fmt.Errorf("parse execution timestamp %q: %w", startedRaw, err)
		}
		entry.StartedAt = started.UTC()
		entry.Duration = time.Duration(seconds * float64(time.Second))
		if errorTypes != "" {
			entry.ErrorTypes = strings.Split(errorTypes, ",")
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate execution rows: %w", err)
	}

	return entries, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
