package shelf

import (
	"io"
	"sync"
)

// Session holds what the root command opened so that a signal handler and
// the normal exit path can both release it. Close runs at most once.
type Session struct {
	mu     sync.Mutex
	app    *Shelf
	store  io.Closer
	closed bool
}

// Set records the shelf and its store. After Close, Set releases them
// straight away.
func (s *Session) Set(app *Shelf, store io.Closer) error {
	s.mu.Lock()
	if !s.closed {
		s.app, s.store = app, store
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if app != nil {
		app.Close()
	}
	if store != nil {
		return store.Close()
	}
	return nil
}

// App returns the running shelf, or nil before Set.
func (s *Session) App() *Shelf {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.app
}

// Close stops the shelf and closes its store.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.app != nil {
		s.app.Close()
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
