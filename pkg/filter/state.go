package filter

import (
	"sync"
)

// State is the committed filter set of one catalog page view.
// It is mutated only through its methods; readers get copies.
// State is safe for concurrent use.
type State struct {
	mu  sync.Mutex
	set Set

	subs   map[int]func(Set)
	nextID int
}

// NewState returns an empty state.
func NewState() *State {
	return &State{
		set:  Set{}.Clone(),
		subs: make(map[int]func(Set)),
	}
}

// Toggle removes value from dimension d if selected, otherwise adds it.
// Empty values and unknown dimensions are ignored.
func (s *State) Toggle(d Dimension, value string) {
	if value == "" || !validDimension(d) {
		return
	}
	s.mutate(func(set *Set) {
		*set = set.with(d, toggled(set.Values(d), value))
	})
}

// SetPriceRange replaces the price range. NoPrice unsets it.
func (s *State) SetPriceRange(p PriceRange) {
	s.mutate(func(set *Set) {
		set.Price = p
	})
}

// ClearAll empties every dimension and unsets the price. Gender is kept.
func (s *State) ClearAll() {
	s.mutate(func(set *Set) {
		set.Categories = []string{}
		set.Colors = []string{}
		set.Sizes = []string{}
		set.Price = NoPrice
	})
}

// Replace commits set wholesale in one mutation. Subscribers are notified
// once, with the canonical form of set.
func (s *State) Replace(set Set) {
	c := set.Canonical()
	s.mutate(func(cur *Set) {
		*cur = c
	})
}

// OnGenderChange records the new gender segment and clears all filters.
// Wire it through a GenderWatcher so it fires once per transition.
func (s *State) OnGenderChange(gender string) {
	s.mutate(func(set *Set) {
		set.Gender = gender
		set.Categories = []string{}
		set.Colors = []string{}
		set.Sizes = []string{}
		set.Price = NoPrice
	})
}

// Snapshot returns a deep copy of the committed set.
func (s *State) Snapshot() Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.Clone()
}

// Selected returns a copy of one dimension's selections in the order they
// were chosen.
func (s *State) Selected(d Dimension) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneValues(s.set.Values(d))
}

// HasActiveFilters reports whether anything besides gender is selected.
func (s *State) HasActiveFilters() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.set.IsEmpty()
}

// Subscribe registers fn to be called with a snapshot after every
// mutation. The returned function removes the subscription.
func (s *State) Subscribe(fn func(Set)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// mutate applies fn under the lock, then notifies subscribers outside it.
func (s *State) mutate(fn func(*Set)) {
	s.mu.Lock()
	fn(&s.set)
	snapshot := s.set.Clone()
	subs := make([]func(Set), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		sub(snapshot.Clone())
	}
}

func validDimension(d Dimension) bool {
	switch d {
	case Categories, Colors, Sizes:
		return true
	default:
		return false
	}
}
