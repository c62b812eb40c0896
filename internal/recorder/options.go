package recorder

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/SeamusWaldron/gancube_ble_library/internal/cube"
	"github.com/SeamusWaldron/gancube_ble_library/internal/storage"
)

// Option configures a Session.
type Option func(*Session)

// WithStore persists sessions, moves and failures to db.
func WithStore(db *storage.DB) Option {
	return func(s *Session) {
		s.store = db
	}
}

// WithTracker feeds every move into a cube tracker. The tracker is reset
// when a session starts.
func WithTracker(t *cube.Tracker) Option {
	return func(s *Session) {
		s.tracker = t
	}
}

// WithObserver reports every item and serial gap to o.
func WithObserver(o Observer) Option {
	return func(s *Session) {
		s.observer = o
	}
}

// WithLogger sets the session logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}
