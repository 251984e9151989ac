// Package session tracks the pending step of two-step commands
package session

import "sync"

type State int

const (
	Idle State = iota
	AwaitingStatsToken
	AwaitingDeleteTokens
	AwaitingUserDeleteToken
)

// Store maps a user id to their pending conversation step. A step is
// armed by Begin and consumed by exactly one Take: whatever the next
// message contains, the user drops back to Idle and has to re-issue the
// trigger command to retry. Users never share state.
type Store struct {
	mu      sync.Mutex
	pending map[int64]State
}

func NewStore() *Store {
	return &Store{pending: map[int64]State{}}
}

func (s *Store) Begin(userID int64, st State) {
	s.mu.Lock()
	s.pending[userID] = st
	s.mu.Unlock()
}

// Take returns the user's pending state and resets it to Idle.
func (s *Store) Take(userID int64) State {
	s.mu.Lock()
	st := s.pending[userID]
	delete(s.pending, userID)
	s.mu.Unlock()

	return st
}
