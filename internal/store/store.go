// Package store owns the single canonical game snapshot.
package store

import (
	"github.com/DoyleJ11/ludo-sync/internal/events"
	"github.com/DoyleJ11/ludo-sync/pkg/types"
)

// Store holds the canonical snapshot and emits diff events on every update.
// It is not safe for concurrent use; the session loop is its only caller.
type Store struct {
	current *types.Snapshot
	version int
	emit    events.Sink
}

func New(emit events.Sink) *Store {
	if emit == nil {
		panic("store: nil sink")
	}
	return &Store{emit: emit}
}

// Update replaces the canonical snapshot (last write wins) and emits
// dice, piece, turn and game-over diffs followed by StateUpdated.
func (s *Store) Update(next types.Snapshot) {
	old := s.current
	s.current = next.Clone()
	s.version++

	for _, ev := range Diff(old, s.current) {
		s.emit(ev)
	}
	s.emit(events.StateUpdated{Old: old.Clone(), New: s.current.Clone()})
}

// Current returns a copy of the canonical snapshot.
func (s *Store) Current() (*types.Snapshot, bool) {
	if s.current == nil {
		return nil, false
	}
	return s.current.Clone(), true
}

// Version counts updates since the last Reset.
func (s *Store) Version() int { return s.version }

// Reset discards the snapshot; the next Update is treated as the first.
func (s *Store) Reset() {
	s.current = nil
	s.version = 0
}
