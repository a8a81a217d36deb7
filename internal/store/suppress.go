package store

import (
	"sync"
	"time"
)

// suppressionSet tracks file paths the engine itself is about to mutate.
// A token is marked immediately before the filesystem mutation and
// consumed at most once by the first matching watch event, which is then
// dropped instead of being reconciled as an external change.
//
// Tokens expire after a TTL: some platforms coalesce or swallow events,
// and an unconsumed token would otherwise cause the next genuinely
// external change to that path to be ignored.
type suppressionSet struct {
	mu      sync.Mutex
	ttl     time.Duration
	pending map[string]time.Time
}

func newSuppressionSet(ttl time.Duration) *suppressionSet {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &suppressionSet{ttl: ttl, pending: make(map[string]time.Time)}
}

// mark registers a self-mutation for path. Re-marking refreshes the
// deadline.
func (s *suppressionSet) mark(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[path] = time.Now().Add(s.ttl)
}

// consume removes the token for path and reports whether one was present.
func (s *suppressionSet) consume(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[path]; !ok {
		return false
	}
	delete(s.pending, path)
	return true
}

// sweep drops expired tokens and returns how many were removed.
func (s *suppressionSet) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for path, deadline := range s.pending {
		if now.After(deadline) {
			delete(s.pending, path)
			n++
		}
	}
	return n
}

func (s *suppressionSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
