package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	gancube "github.com/SeamusWaldron/gancube_ble_library"
)

// Session represents one recorded connection to a cube.
type Session struct {
	SessionID     string
	StartedAt     time.Time
	EndedAt       *time.Time
	DeviceName    string
	DeviceAddress string
	CryptKey      string
	Notes         string

	// Filled by List and Get.
	MoveCount    int
	FailureCount int
}

// Duration returns how long the session lasted, or zero if it is still open.
func (s *Session) Duration() time.Duration {
	if s.EndedAt == nil {
		return 0
	}
	return s.EndedAt.Sub(s.StartedAt)
}

// SessionRepository provides CRUD operations for sessions.
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create starts a new session and returns its ID.
func (r *SessionRepository) Create(deviceName string, addr gancube.HardwareAddr, key gancube.CryptKey, notes string) (string, error) {
	id := uuid.New().String()

	var address string
	if !addr.IsZero() {
		address = addr.String()
	}

	_, err := r.db.Exec(`
		INSERT INTO sessions (session_id, started_at, device_name, device_address, crypt_key, notes)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, formatTime(time.Now()), nullString(deviceName), nullString(address), key.String(), nullString(notes))
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}

	return id, nil
}

// End marks a session as finished.
func (r *SessionRepository) End(sessionID string) error {
	result, err := r.db.Exec(`
		UPDATE sessions SET ended_at = ? WHERE session_id = ? AND ended_at IS NULL
	`, formatTime(time.Now()), sessionID)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	if n == 0 {
		if _, err := r.Get(sessionID); err != nil {
			return err
		}
		return ErrSessionEnded
	}
	return nil
}

const sessionColumns = `
	s.session_id, s.started_at, s.ended_at, s.device_name, s.device_address, s.crypt_key, s.notes,
	(SELECT COUNT(*) FROM moves m WHERE m.session_id = s.session_id),
	(SELECT COUNT(*) FROM failures f WHERE f.session_id = s.session_id)
`

// Get retrieves a session by ID.
func (r *SessionRepository) Get(sessionID string) (*Session, error) {
	row := r.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions s WHERE s.session_id = ?`, sessionID)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// List returns the most recent sessions first. A limit of zero or less
// returns all sessions.
func (r *SessionRepository) List(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.Query(`
		SELECT `+sessionColumns+`
		FROM sessions s
		ORDER BY s.started_at DESC, s.rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// Delete removes a session and everything recorded in it.
func (r *SessionRepository) Delete(sessionID string) error {
	result, err := r.db.Exec("DELETE FROM sessions WHERE session_id = ?", sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var s Session
	var startedAt string
	var endedAt, name, address, notes *string
	err := row.Scan(&s.SessionID, &startedAt, &endedAt, &name, &address, &s.CryptKey, &notes,
		&s.MoveCount, &s.FailureCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	if s.StartedAt, err = parseTime(startedAt); err != nil {
		return nil, err
	}
	if endedAt != nil {
		t, err := parseTime(*endedAt)
		if err != nil {
			return nil, err
		}
		s.EndedAt = &t
	}
	s.DeviceName = derefString(name)
	s.DeviceAddress = derefString(address)
	s.Notes = derefString(notes)
	return &s, nil
}
