// Package markers holds the marker set currently on display.
package markers

import (
	"errors"
	"sync"
	"time"

	"github.com/potamap/potamap/pkg/core"
)

// ErrStale is returned by Apply when a newer set is already on display.
var ErrStale = errors.New("stale marker set")

// Subscriber is notified with every applied set. It runs under the store
// lock and must not block or call back into the store.
type Subscriber func(core.MarkerSet)

// Store keeps the latest applied marker set. Cycles reserve a sequence
// number with Next before fetching. A result replaces the set when its
// sequence is newer than the one on display, so a slow cycle never
// overwrites a faster later one.
type Store struct {
	mu      sync.RWMutex
	latest  uint64
	current core.MarkerSet
	subs    []Subscriber
}

// NewStore returns a store holding an empty set with sequence 0.
func NewStore() *Store {
	return &Store{
		current: core.MarkerSet{Markers: []core.Marker{}},
	}
}

// Next reserves the sequence number for a new cycle.
func (s *Store) Next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest++
	return s.latest
}

// Latest returns the most recently reserved sequence number.
func (s *Store) Latest() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest
}

// Apply replaces the current set with markers when seq is newer than the set
// on display. Otherwise the markers are discarded and ErrStale is returned.
func (s *Store) Apply(seq uint64, markers []core.Marker) (core.MarkerSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if seq <= s.current.Seq || seq > s.latest {
		return core.MarkerSet{}, ErrStale
	}
	if markers == nil {
		markers = []core.Marker{}
	}

	s.current = core.MarkerSet{
		Seq:         seq,
		GeneratedAt: time.Now().UTC(),
		Markers:     markers,
	}
	for _, sub := range s.subs {
		sub(s.current)
	}
	return s.current, nil
}

// Current returns the set on display. Callers must not modify the slice.
func (s *Store) Current() core.MarkerSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe registers fn for future applied sets.
func (s *Store) Subscribe(fn Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}
