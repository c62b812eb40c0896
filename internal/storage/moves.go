package storage

import (
	"fmt"
	"time"

	gancube "github.com/SeamusWaldron/gancube_ble_library"
)

// Move represents a decoded move in the database.
type Move struct {
	MoveID     int64
	SessionID  string
	Seq        int64
	Serial     uint8
	Face       gancube.Face
	Prime      bool
	Notation   string
	Elapsed    time.Duration
	ReceivedAt time.Time
}

// Event returns the stored move as a protocol move.
func (m Move) Event() *gancube.Move {
	return &gancube.Move{
		Serial:  m.Serial,
		Face:    m.Face,
		Prime:   m.Prime,
		Elapsed: m.Elapsed,
	}
}

// MoveRepository provides CRUD operations for moves.
type MoveRepository struct {
	db *DB
}

// NewMoveRepository creates a new move repository.
func NewMoveRepository(db *DB) *MoveRepository {
	return &MoveRepository{db: db}
}

// Create stores a move at position seq of the session's stream.
func (r *MoveRepository) Create(sessionID string, seq int64, m *gancube.Move, receivedAt time.Time) (int64, error) {
	result, err := r.db.Exec(`
		INSERT INTO moves (session_id, seq, serial, face, prime, notation, elapsed_ms, received_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, sessionID, seq, int(m.Serial), string(m.Face), m.Prime, m.Notation(),
		m.Elapsed.Milliseconds(), formatTime(receivedAt))
	if err != nil {
		return 0, fmt.Errorf("failed to create move: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get move ID: %w", err)
	}
	return id, nil
}

// GetBySession retrieves all moves for a session in stream order.
func (r *MoveRepository) GetBySession(sessionID string) ([]Move, error) {
	rows, err := r.db.Query(`
		SELECT move_id, session_id, seq, serial, face, prime, notation, elapsed_ms, received_at
		FROM moves
		WHERE session_id = ?
		ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get moves: %w", err)
	}
	defer rows.Close()

	var moves []Move
	for rows.Next() {
		var (
			m          Move
			serial     int
			face       string
			elapsedMs  int64
			receivedAt string
		)
		err := rows.Scan(&m.MoveID, &m.SessionID, &m.Seq, &serial, &face, &m.Prime, &m.Notation, &elapsedMs, &receivedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan move: %w", err)
		}
		m.Serial = uint8(serial)
		m.Face = gancube.Face(face)
		m.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		if m.ReceivedAt, err = parseTime(receivedAt); err != nil {
			return nil, err
		}
		moves = append(moves, m)
	}
	return moves, rows.Err()
}

// Count returns the number of moves for a session.
func (r *MoveRepository) Count(sessionID string) (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM moves WHERE session_id = ?", sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count moves: %w", err)
	}
	return count, nil
}
