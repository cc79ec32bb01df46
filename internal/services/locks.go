package services

import (
	"sort"
	"sync"
)

// lockSet hands out per-key mutexes. Keys are acquired in sorted order, so two
// callers asking for overlapping key sets cannot deadlock. Callers that need a
// transaction key and account keys take the transaction key first, in a
// separate acquire call; nothing takes them the other way round.
type lockSet struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newLockSet() *lockSet {
	return &lockSet{locks: map[string]*keyLock{}}
}

func accountKey(id string) string     { return "account:" + id }
func transactionKey(id string) string { return "transaction:" + id }

// acquire blocks until every key is held and returns the release function.
func (s *lockSet) acquire(keys ...string) (release func()) {
	keys = sortedUnique(keys)

	held := make([]*keyLock, 0, len(keys))
	for _, k := range keys {
		s.mu.Lock()
		l, ok := s.locks[k]
		if !ok {
			l = &keyLock{}
			s.locks[k] = l
		}
		l.refs++
		s.mu.Unlock()

		l.mu.Lock()
		held = append(held, l)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(held) - 1; i >= 0; i-- {
				held[i].mu.Unlock()
			}
			s.mu.Lock()
			for i, k := range keys {
				held[i].refs--
				if held[i].refs == 0 {
					delete(s.locks, k)
				}
			}
			s.mu.Unlock()
		})
	}
}

// size reports how many keys currently have holders or waiters.
func (s *lockSet) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}

func sortedUnique(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
