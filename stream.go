package gancube

import "context"

// Status reports the outcome of a single Next call on a Source.
type Status int

const (
	// Ready means Next returned an item.
	Ready Status = iota
	// Pending means no item is available yet. Call Wait, then Next again.
	Pending
	// Done means the source is exhausted and will never yield again.
	Done
)

// String returns a short name for the status.
func (s Status) String() string {
	switch s {
	case Ready:
		return "ready"
	case Pending:
		return "pending"
	case Done:
		return "done"
	default:
		return "unknown"
	}
}

// Source is a pull-based, single-pass sequence of items.
//
// Next never blocks. When it returns Pending the consumer calls Wait, which
// blocks until the source may have made progress (or ctx ends), and then
// polls again. Sources that wrap other sources delegate Wait upstream, so
// all blocking happens in the innermost producer.
//
// A Source is driven by one consumer at a time.
type Source[T any] interface {
	Next() (T, Status)
	Wait(ctx context.Context) error
}

// ChanSource adapts a receive channel into a Source. A closed channel is
// reported as Done.
type ChanSource[T any] struct {
	ch     <-chan T
	held   T
	has    bool
	closed bool
}

// NewChanSource creates a Source reading from ch.
func NewChanSource[T any](ch <-chan T) *ChanSource[T] {
	return &ChanSource[T]{ch: ch}
}

// Next returns the next item if one has already arrived on the channel.
func (s *ChanSource[T]) Next() (T, Status) {
	var zero T
	if s.has {
		item := s.held
		s.held, s.has = zero, false
		return item, Ready
	}
	if s.closed {
		return zero, Done
	}
	select {
	case item, ok := <-s.ch:
		if !ok {
			s.closed = true
			return zero, Done
		}
		return item, Ready
	default:
		return zero, Pending
	}
}

// Wait blocks until an item arrives, the channel closes, or ctx is done.
// A received item is held for the following Next call.
func (s *ChanSource[T]) Wait(ctx context.Context) error {
	if s.has || s.closed {
		return nil
	}
	select {
	case item, ok := <-s.ch:
		if !ok {
			s.closed = true
			return nil
		}
		s.held, s.has = item, true
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SliceSource yields the items of a slice in order and then reports Done.
// It is never Pending.
type SliceSource[T any] struct {
	items []T
}

// NewSliceSource creates a Source over items.
func NewSliceSource[T any](items ...T) *SliceSource[T] {
	return &SliceSource[T]{items: items}
}

// Next returns the next item of the slice.
func (s *SliceSource[T]) Next() (T, Status) {
	var zero T
	if len(s.items) == 0 {
		return zero, Done
	}
	item := s.items[0]
	s.items[0] = zero
	s.items = s.items[1:]
	return item, Ready
}

// Wait returns immediately.
func (s *SliceSource[T]) Wait(ctx context.Context) error {
	return ctx.Err()
}

// ForEach drains src, calling fn for every item in order. It returns nil
// when src is Done, the first error from fn, or the context error if ctx
// ends while waiting.
func ForEach[T any](ctx context.Context, src Source[T], fn func(T) error) error {
	for {
		item, status := src.Next()
		switch status {
		case Ready:
			if err := fn(item); err != nil {
				return err
			}
		case Pending:
			if err := src.Wait(ctx); err != nil {
				return err
			}
		case Done:
			return nil
		}
	}
}

// Collect drains src into a slice.
func Collect[T any](ctx context.Context, src Source[T]) ([]T, error) {
	var items []T
	err := ForEach(ctx, src, func(item T) error {
		items = append(items, item)
		return nil
	})
	return items, err
}
