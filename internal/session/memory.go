package session

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 32

type shard struct {
	mu      sync.Mutex
	records map[string]Record
}

// MemoryStore holds records in process memory, partitioned into shards so
// unrelated users do not contend on one lock. State is lost on restart.
type MemoryStore struct {
	shards [shardCount]*shard
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{now: time.Now}
	for i := range m.shards {
		m.shards[i] = &shard{records: make(map[string]Record)}
	}
	return m
}

func (m *MemoryStore) shardFor(userID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return m.shards[h.Sum32()%shardCount]
}

func (m *MemoryStore) Get(_ context.Context, userID string) (Record, bool, error) {
	s := m.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[userID]
	if !ok {
		return Record{}, false, nil
	}
	return r.clone(), true, nil
}

func (m *MemoryStore) Upsert(_ context.Context, userID string, fn Mutator) (Record, error) {
	s := m.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[userID]
	if ok {
		r = r.clone()
	} else {
		r = newRecord(userID, m.now())
	}
	if err := fn(&r); err != nil {
		return Record{}, err
	}
	r.UserID = userID
	s.records[userID] = r
	return r.clone(), nil
}

func (m *MemoryStore) Reset(_ context.Context, userID string) error {
	s := m.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, userID)
	return nil
}

// Len returns the number of stored records.
func (m *MemoryStore) Len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.Lock()
		n += len(s.records)
		s.mu.Unlock()
	}
	return n
}

func (m *MemoryStore) Close() error { return nil }
