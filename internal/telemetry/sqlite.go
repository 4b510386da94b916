// internal/telemetry/sqlite.go
package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	// RetentionPeriod bounds how long raw attempt rows are kept.
	RetentionPeriod = 90 * 24 * time.Hour

	maxStoredURLLen = 100

	attemptSchema = `
CREATE TABLE IF NOT EXISTS extraction_attempts (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	domain        TEXT NOT NULL,
	url           TEXT NOT NULL,
	success       INTEGER NOT NULL,
	method        TEXT NOT NULL,
	failure_type  TEXT NOT NULL DEFAULT '',
	response_ms   INTEGER NOT NULL DEFAULT 0,
	attempted_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_attempts_domain_time
	ON extraction_attempts (domain, attempted_at);
CREATE INDEX IF NOT EXISTS idx_attempts_time
	ON extraction_attempts (attempted_at);
`
)

// AttemptLog persists extraction attempts to SQLite for offline analysis
// and for rebuilding the rolling health window after a restart.
type AttemptLog struct {
	db *sql.DB
}

// NewAttemptLog opens (creating if needed) the attempt database at path.
func NewAttemptLog(path string) (*AttemptLog, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open attempt database: %w", err)
	}
	if _, err := db.Exec(attemptSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize attempt schema: %w", err)
	}
	return &AttemptLog{db: db}, nil
}

// Record inserts one attempt. The URL is truncated before storage.
func (l *AttemptLog) Record(ctx context.Context, a ExtractionAttempt) error {
	url := a.URL
	if len(url) > maxStoredURLLen {
		url = url[:maxStoredURLLen]
	}
	when := a.Timestamp
	if when.IsZero() {
		when = time.Now()
	}

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO extraction_attempts
			(domain, url, success, method, failure_type, response_ms, attempted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.Domain, url, boolToInt(a.Success), a.Method, a.FailureType,
		a.ResponseTime.Milliseconds(), when.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// DomainStats returns per-domain success/total counts for attempts made at
// or after since.
func (l *AttemptLog) DomainStats(ctx context.Context, since time.Time) (map[string]DomainHealth, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT domain, SUM(success), COUNT(*)
		FROM extraction_attempts
		WHERE attempted_at >= ?
		GROUP BY domain`,
		since.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query domain stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]DomainHealth)
	for rows.Next() {
		var h DomainHealth
		if err := rows.Scan(&h.Domain, &h.Successes, &h.Total); err != nil {
			return nil, fmt.Errorf("failed to scan domain stats: %w", err)
		}
		if h.Total > 0 {
			h.SuccessRate = float64(h.Successes) / float64(h.Total)
		}
		stats[h.Domain] = h
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate domain stats: %w", err)
	}
	return stats, nil
}

// RecentAttempts returns the newest attempts for a domain, most recent
// first, capped at limit.
func (l *AttemptLog) RecentAttempts(ctx context.Context, domain string, limit int) ([]ExtractionAttempt, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx, `
		SELECT domain, url, success, method, failure_type, response_ms, attempted_at
		FROM extraction_attempts
		WHERE domain = ?
		ORDER BY attempted_at DESC
		LIMIT ?`,
		domain, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent attempts: %w", err)
	}
	defer rows.Close()

	var attempts []ExtractionAttempt
	for rows.Next() {
		var (
			a          ExtractionAttempt
			success    int
			responseMS int64
		)
		if err := rows.Scan(&a.Domain, &a.URL, &success, &a.Method, &a.FailureType, &responseMS, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		a.Success = success != 0
		a.ResponseTime = time.Duration(responseMS) * time.Millisecond
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// Sweep deletes attempts older than the retention period and returns how
// many rows were removed.
func (l *AttemptLog) Sweep(ctx context.Context) (int64, error) {
	result, err := l.db.ExecContext(ctx, `
		DELETE FROM extraction_attempts WHERE attempted_at < ?`,
		time.Now().Add(-RetentionPeriod).UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep old attempts: %w", err)
	}
	return result.RowsAffected()
}

// Close releases the underlying database handle.
func (l *AttemptLog) Close() error {
	return l.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
