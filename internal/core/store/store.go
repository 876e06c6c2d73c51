// Package store owns the application state and applies the closed set of
// actions to it.
package store

import (
	"sync"

	"github.com/rl1809/bizdesk/internal/core/domain"
)

// Listener observes every applied batch of actions. A batch holds the single
// action of a Dispatch or every action of one Transact. Listeners run while
// the store lock is held, in apply order, so they must be quick and must not
// call back into the store.
type Listener func(batch []Action)

type Store struct {
	mu        sync.RWMutex
	state     State
	listeners map[int]Listener
	nextID    int
}

func New(initial State) *Store {
	st := initial.Clone()
	if st.UserTier == "" {
		st.UserTier = domain.TierFree
	}
	return &Store{
		state:     st,
		listeners: make(map[int]Listener),
	}
}

// Dispatch applies a single action. It never fails: actions that name an
// unknown id leave the state untouched.
func (s *Store) Dispatch(a Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applyLocked(a)
}

// Transact runs fn against the current state and applies the actions it
// returns as one unit. No other dispatch can interleave between the read
// in fn and the writes, which is what makes check-then-act safe. When fn
// returns an error nothing is applied.
func (s *Store) Transact(fn func(current State) ([]Action, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	actions, err := fn(s.state.Clone())
	if err != nil {
		return err
	}

	next := s.state
	for _, a := range actions {
		next = a.apply(next)
	}
	s.state = next
	if len(actions) > 0 {
		s.notifyLocked(actions)
	}
	return nil
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Tier reads the current tier without copying the rest of the state.
func (s *Store) Tier() domain.Tier {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.UserTier
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Store) applyLocked(a Action) {
	s.state = a.apply(s.state)
	s.notifyLocked([]Action{a})
}

func (s *Store) notifyLocked(batch []Action) {
	for _, l := range s.listeners {
		l(batch)
	}
}
