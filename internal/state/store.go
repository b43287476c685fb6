package state

import (
	"sync"

	"streamflix-catalog-service/internal/models"
)

// Store owns a single AppState value and serializes every transition.
// Intents dispatched in sequence are applied in that sequence: the result
// equals a fold of the reducer over the intents in order. Consumers hold
// read-only snapshots plus this dispatch capability, never the state
// itself.
type Store struct {
	mu      sync.Mutex
	reducer *Reducer
	state   models.AppState
	version uint64
}

// NewStore creates a store around the initial state.
func NewStore(initial models.AppState, reducer *Reducer) *Store {
	if reducer == nil {
		reducer = NewReducer()
	}
	return &Store{reducer: reducer, state: initial}
}

// Dispatch applies the intents in order under a single critical section
// and returns the resulting snapshot. No two intents interleave
// mid-application.
func (st *Store) Dispatch(intents ...Intent) models.AppState {
	st.mu.Lock()
	defer st.mu.Unlock()
	for _, in := range intents {
		st.state = st.reducer.Apply(st.state, in)
		st.version++
	}
	return st.state
}

// State returns the current snapshot.
func (st *Store) State() models.AppState {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.state
}

// Version returns the number of intents applied so far.
func (st *Store) Version() uint64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.version
}
