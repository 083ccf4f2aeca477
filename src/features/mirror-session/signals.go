package mirrorsession

import (
	"sort"
	"sync"
)

// TrackSignals is a reusable ended/error subscription registry for Track
// implementations. A track terminates once: after End or Fail, later calls
// are ignored. The zero value is ready to use.
type TrackSignals struct {
	mu      sync.Mutex
	nextID  int
	ended   map[int]func()
	errored map[int]func(error)
	done    bool
}

// OnEnded registers fn to run when the track ends
func (s *TrackSignals) OnEnded(fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended == nil {
		s.ended = make(map[int]func())
	}
	id := s.nextID
	s.nextID++
	s.ended[id] = fn

	return func() {
		s.mu.Lock()
		delete(s.ended, id)
		s.mu.Unlock()
	}
}

// OnError registers fn to run when the track fails
func (s *TrackSignals) OnError(fn func(error)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.errored == nil {
		s.errored = make(map[int]func(error))
	}
	id := s.nextID
	s.nextID++
	s.errored[id] = fn

	return func() {
		s.mu.Lock()
		delete(s.errored, id)
		s.mu.Unlock()
	}
}

// End marks the track ended and notifies ended handlers. It reports whether
// this call performed the transition.
func (s *TrackSignals) End() bool {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return false
	}
	s.done = true
	handlers := orderedHandlers(s.ended)
	s.mu.Unlock()

	for _, fn := range handlers {
		fn()
	}
	return true
}

// Fail marks the track ended and notifies error handlers with err
func (s *TrackSignals) Fail(err error) bool {
	s.mu.Lock()
	if s.done {
		s.mu.Unlock()
		return false
	}
	s.done = true
	ids := make([]int, 0, len(s.errored))
	for id := range s.errored {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	handlers := make([]func(error), 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, s.errored[id])
	}
	s.mu.Unlock()

	for _, fn := range handlers {
		fn(err)
	}
	return true
}

// Close marks the track terminated without notifying anyone, as a local
// stop does, and drops every handler
func (s *TrackSignals) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
	s.ended = nil
	s.errored = nil
}

// Done reports whether the track has terminated
func (s *TrackSignals) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Subscribers returns the number of registered handlers
func (s *TrackSignals) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ended) + len(s.errored)
}

func orderedHandlers(m map[int]func()) []func() {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(), 0, len(ids))
	for _, id := range ids {
		out = append(out, m[id])
	}
	return out
}
