package dedup

import (
	"sync"

	"github.com/kursadbilgin/message-dispatcher/internal/domain"
)

// Set remembers every accepted message id for its own lifetime. Entries are
// never evicted and a failed delivery does not release its id.
type Set struct {
	mu   sync.Mutex
	seen map[domain.MessageID]struct{}
}

func NewSet() *Set {
	return &Set{seen: make(map[domain.MessageID]struct{})}
}

// CheckAndRecord records id and reports true on its first occurrence. Later
// calls with the same id report false and leave the set untouched.
func (s *Set) CheckAndRecord(id domain.MessageID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seen == nil {
		s.seen = make(map[domain.MessageID]struct{})
	}
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	return true
}

func (s *Set) Contains(id domain.MessageID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.seen[id]
	return ok
}

func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.seen)
}
