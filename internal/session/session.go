// Package session caches the client's copy of the authoritative game state.
package session

import (
	"sync"

	"github.com/mhweir/arcanum-client/pkg/protocol"
)

// Store holds at most one game snapshot. gameFound and gameStateUpdate both
// replace it wholesale; gameEnded clears it. Join/leave events never touch
// the store — the next snapshot is the source of truth, so the cached state
// may be stale between a join/leave push and the following update.
type Store struct {
	mu   sync.RWMutex
	game *protocol.GameState
}

func NewStore() *Store {
	return &Store{}
}

// Replace swaps in a new snapshot unconditionally.
func (s *Store) Replace(g *protocol.GameState) {
	s.mu.Lock()
	s.game = g
	s.mu.Unlock()
}

// Clear drops the cached snapshot.
func (s *Store) Clear() {
	s.Replace(nil)
}

// Current returns the cached snapshot, or nil when no match is active.
func (s *Store) Current() *protocol.GameState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.game
}

// Active reports whether a match snapshot is cached.
func (s *Store) Active() bool {
	return s.Current() != nil
}
