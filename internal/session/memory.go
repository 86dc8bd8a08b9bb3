package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type memEntry struct {
	data      []byte
	expiresAt time.Time
}

func (e memEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// sweepEvery bounds how often writes scan for expired entries.
const sweepEvery = time.Minute

// MemoryStore keeps sessions in process. Used when REDIS_URL is empty.
type MemoryStore struct {
	mu        sync.Mutex
	records   map[string]memEntry
	revoked   map[string]memEntry
	now       func() time.Time
	lastSweep time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]memEntry),
		revoked: make(map[string]memEntry),
		now:     time.Now,
	}
}

func memKey(sid, key string) string { return sid + "\x00" + key }

// sweep drops expired records and revocations. Callers hold mu.
func (m *MemoryStore) sweep() {
	now := m.now()
	if now.Sub(m.lastSweep) < sweepEvery {
		return
	}
	m.lastSweep = now
	for k, e := range m.records {
		if e.expired(now) {
			delete(m.records, k)
		}
	}
	for k, e := range m.revoked {
		if e.expired(now) {
			delete(m.revoked, k)
		}
	}
}

func (m *MemoryStore) deadline(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return m.now().Add(ttl)
}

func (m *MemoryStore) Put(_ context.Context, sid, key string, v any, ttl time.Duration) error {
	if sid == "" {
		return ErrNoSession
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()
	m.records[memKey(sid, key)] = memEntry{data: data, expiresAt: m.deadline(ttl)}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, sid, key string, dst any) (bool, error) {
	m.mu.Lock()
	e, ok := m.records[memKey(sid, key)]
	if ok && e.expired(m.now()) {
		delete(m.records, memKey(sid, key))
		ok = false
	}
	m.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(e.data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (m *MemoryStore) Delete(_ context.Context, sid, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, memKey(sid, key))
	return nil
}

func (m *MemoryStore) Revoke(_ context.Context, sid string, ttl time.Duration) error {
	if sid == "" {
		return ErrNoSession
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweep()
	m.revoked[sid] = memEntry{expiresAt: m.deadline(ttl)}
	return nil
}

func (m *MemoryStore) Revoked(_ context.Context, sid string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.revoked[sid]
	if ok && e.expired(m.now()) {
		delete(m.revoked, sid)
		return false, nil
	}
	return ok, nil
}
