// Package recorder consumes a decoded cube stream, keeping statistics and
// optionally persisting every item to storage.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	gancube "github.com/SeamusWaldron/gancube_ble_library"
	"github.com/SeamusWaldron/gancube_ble_library/internal/cube"
	"github.com/SeamusWaldron/gancube_ble_library/internal/storage"
)

// Errors
var (
	ErrAlreadyRecording = errors.New("recorder: session already in progress")
	ErrNotRecording     = errors.New("recorder: no session in progress")
)

// SessionState represents the current state of a recording session.
type SessionState int

const (
	StateIdle SessionState = iota
	StateRecording
	StateEnded
)

// String returns the string representation of the session state.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Observer receives every stream item and every detected serial gap.
// internal/metrics implements it.
type Observer interface {
	Observe(r gancube.Result)
	ObserveMissed(n int)
}

// Stats summarises a session.
type Stats struct {
	Items      int64
	Moves      int64
	Failures   map[string]int64
	Missed     int64
	Duplicates int64
	LastSerial uint8
	LastMove   *gancube.Move
}

// Session records one connection's decoded stream.
type Session struct {
	store    *storage.DB
	tracker  *cube.Tracker
	observer Observer
	log      logrus.FieldLogger
	now      func() time.Time

	mu        sync.RWMutex
	state     SessionState
	sessionID string
	startTime time.Time
	stats     Stats
	hasSerial bool

	sessionRepo *storage.SessionRepository
	moveRepo    *storage.MoveRepository
	failureRepo *storage.FailureRepository

	onMove    func(*gancube.Move)
	onFailure func(seq int64, err error)
	onGap     func(missed int)
}

// NewSession creates a session manager.
func NewSession(opts ...Option) *Session {
	s := &Session{
		log: logrus.StandardLogger(),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store != nil {
		s.sessionRepo = storage.NewSessionRepository(s.store)
		s.moveRepo = storage.NewMoveRepository(s.store)
		s.failureRepo = storage.NewFailureRepository(s.store)
	}
	return s
}

// SetMoveCallback sets the callback for decoded moves.
func (s *Session) SetMoveCallback(cb func(*gancube.Move)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onMove = cb
}

// SetFailureCallback sets the callback for notifications that failed to
// decode.
func (s *Session) SetFailureCallback(cb func(seq int64, err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onFailure = cb
}

// SetGapCallback sets the callback fired when the move serial skips ahead.
func (s *Session) SetGapCallback(cb func(missed int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onGap = cb
}

// State returns the current session state.
func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// SessionID returns the stored session ID, or "" when not persisting.
func (s *Session) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// Elapsed returns the time since the session started.
func (s *Session) Elapsed() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateRecording {
		return 0
	}
	return s.now().Sub(s.startTime)
}

// Stats returns a snapshot of the session statistics.
func (s *Session) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.stats
	st.Failures = make(map[string]int64, len(s.stats.Failures))
	for k, v := range s.stats.Failures {
		st.Failures[k] = v
	}
	if s.stats.LastMove != nil {
		m := *s.stats.LastMove
		st.LastMove = &m
	}
	return st
}

// Start begins a session for the given device.
func (s *Session) Start(deviceName string, addr gancube.HardwareAddr, key gancube.CryptKey, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateRecording {
		return ErrAlreadyRecording
	}

	var id string
	if s.sessionRepo != nil {
		var err error
		id, err = s.sessionRepo.Create(deviceName, addr, key, notes)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
	}

	s.sessionID = id
	s.startTime = s.now()
	s.stats = Stats{Failures: make(map[string]int64)}
	s.hasSerial = false
	s.state = StateRecording
	if s.tracker != nil {
		s.tracker.Reset()
	}

	s.log.WithFields(logrus.Fields{
		"session": id,
		"device":  deviceName,
		"address": addr.String(),
		"key":     key.String(),
	}).Info("session started")
	return nil
}

// End finishes the session.
func (s *Session) End() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRecording {
		return ErrNotRecording
	}

	if s.sessionRepo != nil {
		if err := s.sessionRepo.End(s.sessionID); err != nil {
			return fmt.Errorf("failed to end session: %w", err)
		}
	}
	s.state = StateEnded

	s.log.WithFields(logrus.Fields{
		"session":  s.sessionID,
		"moves":    s.stats.Moves,
		"failures": s.stats.Items - s.stats.Moves,
		"missed":   s.stats.Missed,
	}).Info("session ended")
	return nil
}

// Handle records one item of the decoded stream. Decode failures are
// recorded and do not stop the session; only storage errors are returned.
func (s *Session) Handle(r gancube.Result) error {
	s.mu.Lock()

	if s.state != StateRecording {
		s.mu.Unlock()
		return ErrNotRecording
	}

	seq := s.stats.Items
	s.stats.Items++
	received := s.now()

	if s.observer != nil {
		s.observer.Observe(r)
	}

	if r.Err != nil {
		err := s.handleFailure(seq, r.Err, received)
		cb := s.onFailure
		s.mu.Unlock()
		if cb != nil {
			cb(seq, r.Err)
		}
		return err
	}

	m := r.Move()
	if m == nil {
		s.mu.Unlock()
		return nil
	}

	missed := s.checkSerial(m)
	s.stats.Moves++
	mv := *m
	s.stats.LastMove = &mv
	if s.tracker != nil {
		s.tracker.ApplyMove(m)
	}

	var err error
	if s.moveRepo != nil {
		if _, e := s.moveRepo.Create(s.sessionID, seq, m, received); e != nil {
			err = fmt.Errorf("failed to store move: %w", e)
		}
	}

	s.log.WithFields(logrus.Fields{
		"serial":  m.Serial,
		"move":    m.Notation(),
		"elapsed": m.Elapsed,
	}).Debug("move")

	onMove, onGap := s.onMove, s.onGap
	s.mu.Unlock()

	if missed > 0 && onGap != nil {
		onGap(missed)
	}
	if onMove != nil {
		onMove(m)
	}
	return err
}

// handleFailure must be called with s.mu held.
func (s *Session) handleFailure(seq int64, decodeErr error, received time.Time) error {
	reason := gancube.FailureReason(decodeErr)
	s.stats.Failures[reason]++

	s.log.WithFields(logrus.Fields{"seq": seq, "reason": reason}).Debug("decode failed")

	if s.failureRepo == nil {
		return nil
	}
	if _, err := s.failureRepo.Create(s.sessionID, seq, reason, received); err != nil {
		return fmt.Errorf("failed to store failure: %w", err)
	}
	return nil
}

// checkSerial compares the move's serial with the previous one and returns
// how many moves were skipped. Must be called with s.mu held.
func (s *Session) checkSerial(m *gancube.Move) int {
	prev, had := s.stats.LastSerial, s.hasSerial
	s.stats.LastSerial = m.Serial
	s.hasSerial = true
	if !had {
		return 0
	}

	// The serial is 8 bits and wraps.
	gap := int(m.Serial - prev - 1)
	switch {
	case m.Serial == prev:
		s.stats.Duplicates++
		s.log.WithField("serial", m.Serial).Warn("duplicate move serial")
		return 0
	case gap == 0:
		return 0
	}

	s.stats.Missed += int64(gap)
	if s.observer != nil {
		s.observer.ObserveMissed(gap)
	}
	s.log.WithFields(logrus.Fields{
		"serial":   m.Serial,
		"previous": prev,
		"missed":   gap,
	}).Warn("move serial gap")
	return gap
}

// Run drains src into the session until it is Done or ctx ends. A storage
// error stops the run.
func (s *Session) Run(ctx context.Context, src gancube.Source[gancube.Result]) error {
	return gancube.ForEach(ctx, src, s.Handle)
}
