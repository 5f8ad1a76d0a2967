package collect

import "sync"

// Seen is the set of record ids already admitted during one collection run.
// It only grows. Admit is an atomic check-then-insert so concurrent
// admission keeps ids unique.
type Seen struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// NewSeen creates an empty set.
func NewSeen() *Seen {
	return &Seen{ids: make(map[string]struct{})}
}

// Admit inserts id and reports whether it was new.
func (s *Seen) Admit(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Len returns the number of admitted ids.
func (s *Seen) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.ids)
}
