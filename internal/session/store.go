package session

import "sync"

// Store holds one mutable Session per operator id. It performs no
// validation; the orchestrator owns all state-machine invariants.
//
// Besides the map itself, the store hands out a per-operator mutex so
// that handling of one operator's inputs is serialized: extraction and
// dispatch run for minutes, and a second input from the same operator
// must not race the in-flight mutation. Different operators proceed
// concurrently.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	locks    map[int64]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]*Session),
		locks:    make(map[int64]*sync.Mutex),
	}
}

// Get returns the operator's session, or nil if none exists.
func (s *Store) Get(operatorID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[operatorID]
}

func (s *Store) Put(operatorID int64, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[operatorID] = sess
}

func (s *Store) Remove(operatorID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, operatorID)
}

// Lock acquires the operator's exclusive handling lock and returns the
// release func. Per-operator mutexes are created lazily and never
// removed; the operator population is the admin allow-list, so the map
// stays tiny.
func (s *Store) Lock(operatorID int64) func() {
	s.mu.Lock()
	m := s.locks[operatorID]
	if m == nil {
		m = &sync.Mutex{}
		s.locks[operatorID] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}
