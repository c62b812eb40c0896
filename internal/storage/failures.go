package storage

import (
	"fmt"
	"time"
)

// Failure is a notification that could not be decoded.
type Failure struct {
	FailureID  int64
	SessionID  string
	Seq        int64
	Reason     string
	ReceivedAt time.Time
}

// FailureRepository provides CRUD operations for decode failures.
type FailureRepository struct {
	db *DB
}

// NewFailureRepository creates a new failure repository.
func NewFailureRepository(db *DB) *FailureRepository {
	return &FailureRepository{db: db}
}

// Create stores a failure at position seq of the session's stream.
func (r *FailureRepository) Create(sessionID string, seq int64, reason string, receivedAt time.Time) (int64, error) {
	result, err := r.db.Exec(`
		INSERT INTO failures (session_id, seq, reason, received_at)
		VALUES (?, ?, ?, ?)
	`, sessionID, seq, reason, formatTime(receivedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to create failure: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get failure ID: %w", err)
	}
	return id, nil
}

// GetBySession retrieves all failures for a session in stream order.
func (r *FailureRepository) GetBySession(sessionID string) ([]Failure, error) {
	rows, err := r.db.Query(`
		SELECT failure_id, session_id, seq, reason, received_at
		FROM failures
		WHERE session_id = ?
		ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get failures: %w", err)
	}
	defer rows.Close()

	var failures []Failure
	for rows.Next() {
		var (
			f          Failure
			receivedAt string
		)
		if err := rows.Scan(&f.FailureID, &f.SessionID, &f.Seq, &f.Reason, &receivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		if f.ReceivedAt, err = parseTime(receivedAt); err != nil {
			return nil, err
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// CountByReason returns the number of failures per reason for a session.
func (r *FailureRepository) CountByReason(sessionID string) (map[string]int, error) {
	rows, err := r.db.Query(`
		SELECT reason, COUNT(*) FROM failures
		WHERE session_id = ?
		GROUP BY reason
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to count failures: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			reason string
			n      int
		)
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, fmt.Errorf("failed to scan failure count: %w", err)
		}
		counts[reason] = n
	}
	return counts, rows.Err()
}
