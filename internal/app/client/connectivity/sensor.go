package connectivity

import (
	"sync"

	"golang.org/x/exp/slog"
)

// Sensor reports best-effort connectivity. A real remote call is the only
// ground truth.
type Sensor interface {
	IsOnline() bool
	// OnBecameOnline registers handler for offline->online transitions and
	// returns a func that removes it. Handlers run on the goroutine that
	// observed the transition and must not block.
	OnBecameOnline(handler func()) (unsubscribe func())
}

// state holds the online flag and subscribers and does edge detection for
// every Sensor implementation.
type state struct {
	mu     sync.Mutex
	online bool
	nextID int
	subs   map[int]func()
	log    *slog.Logger
}

func newState(online bool, log *slog.Logger) *state {
	return &state{
		online: online,
		subs:   make(map[int]func()),
		log:    log,
	}
}

func (s *state) IsOnline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

func (s *state) OnBecameOnline(handler func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++
	s.subs[id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
		})
	}
}

// set records the new state and, on an offline->online edge, calls every
// subscriber once. It reports whether the state changed.
func (s *state) set(online bool) bool {
	s.mu.Lock()
	was := s.online
	s.online = online
	var handlers []func()
	if !was && online {
		handlers = make([]func(), 0, len(s.subs))
		for _, h := range s.subs {
			handlers = append(handlers, h)
		}
	}
	s.mu.Unlock()

	if was == online {
		return false
	}

	if online {
		s.log.Info("connectivity restored", "subscribers", len(handlers))
	} else {
		s.log.Warn("connectivity lost")
	}

	for _, h := range handlers {
		h()
	}
	return true
}
