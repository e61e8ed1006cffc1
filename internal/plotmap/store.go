package plotmap

import "sync"

// Store holds the current State. Network calls happen outside the store;
// only the dispatch of their results is serialized here.
type Store struct {
	mu       sync.Mutex
	state    State
	onSelect func(blockID string)
}

func NewStore(initial State) *Store {
	return &Store{state: initial}
}

// OnSelect registers fn to run after an action selects a block, outside the
// lock. It is the hook for the scroll-into-view side effect of selection.
func (s *Store) OnSelect(fn func(blockID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSelect = fn
}

// Dispatch reduces a into the current state and returns the new state.
func (s *Store) Dispatch(a Action) State {
	s.mu.Lock()
	prev := s.state
	s.state = Reduce(prev, a)
	next := s.state
	hook := s.onSelect
	s.mu.Unlock()

	if sel, ok := a.(BlockSelected); ok && sel.ID != "" && hook != nil {
		hook(sel.ID)
	}
	return next
}

// State returns a snapshot. Callers must not modify the returned slices.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
