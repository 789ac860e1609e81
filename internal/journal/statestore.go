package journal

import "sync"

// stateStore serialises State mutations and fans each resulting snapshot out
// to a single change callback. The callback runs under the store's lock so
// snapshots arrive in mutation order; it receives the snapshot by value and
// must not call back into the store.
type stateStore struct {
	mu       sync.Mutex
	state    State
	onChange func(State)
}

func newStateStore(initial State, onChange func(State)) *stateStore {
	return &stateStore{state: initial, onChange: onChange}
}

// Update applies fn to the state and notifies the change callback.
func (s *stateStore) Update(fn func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	if s.onChange != nil {
		s.onChange(s.state)
	}
}

// Snapshot returns a copy of the current state.
func (s *stateStore) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
