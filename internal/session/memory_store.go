package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/XavierBriggs/fortuna/services/prophet-dashboard/internal/navigation"
)

type memoryEntry struct {
	state     []byte
	seq       int64
	expiresAt time.Time
}

// MemoryStore is an in-process Store used when Redis is not configured.
// States are stored encoded so callers never share a mutable copy.
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]*memoryEntry
	ttl       time.Duration
	now       func() time.Time
	lastSweep time.Time
}

// Expired entries are swept on Save at most this often
const sweepInterval = time.Minute

// NewMemoryStore creates a new in-memory session store
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		entries: make(map[string]*memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// entry returns the live entry of a session, dropping it if expired.
// Caller must hold mu.
func (s *MemoryStore) entry(id string) *memoryEntry {
	e, ok := s.entries[id]
	if !ok {
		return nil
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, id)
		return nil
	}
	return e
}

// sweep drops every expired entry. Caller must hold mu.
func (s *MemoryStore) sweep() {
	now := s.now()
	if now.Sub(s.lastSweep) < sweepInterval {
		return
	}
	s.lastSweep = now

	for id, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, id)
		}
	}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*navigation.ViewState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entry(id)
	if e == nil || e.state == nil {
		return nil, nil
	}
	return decode(e.state)
}

func (s *MemoryStore) Save(ctx context.Context, state *navigation.ViewState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()

	e := s.entry(state.SessionID)
	if e == nil {
		e = &memoryEntry{}
		s.entries[state.SessionID] = e
	}
	e.state = data
	e.expiresAt = s.now().Add(s.ttl)
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, fn func(*navigation.ViewState) error) (*navigation.ViewState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entry(id)
	if e == nil || e.state == nil {
		return nil, ErrNotFound
	}

	state, err := decode(e.state)
	if err != nil {
		return nil, err
	}
	if err := fn(state); err != nil {
		return nil, err
	}

	data, err := json.Marshal(state)
	if err != nil {
		return nil, err
	}
	e.state = data
	e.expiresAt = s.now().Add(s.ttl)
	return state, nil
}

func (s *MemoryStore) NextSeq(ctx context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entry(id)
	if e == nil || e.state == nil {
		return 0, ErrNotFound
	}
	e.seq++
	return e.seq, nil
}

func (s *MemoryStore) LatestSeq(ctx context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e := s.entry(id); e != nil {
		return e.seq, nil
	}
	return 0, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, id)
	return nil
}
