package cache

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Memory is an unbounded map backend.
type Memory struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemory creates an empty map backend.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

func (m *Memory) Load(key string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	return e, ok, nil
}

func (m *Memory) Store(key string, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = e
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// LRU is a size-bounded backend evicting the least recently used entry.
type LRU struct {
	entries *lru.Cache[string, Entry]
}

// NewLRU creates an LRU backend holding at most size entries.
func NewLRU(size int) (*LRU, error) {
	c, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create lru cache: %w", err)
	}
	return &LRU{entries: c}, nil
}

func (l *LRU) Load(key string) (Entry, bool, error) {
	e, ok := l.entries.Get(key)
	return e, ok, nil
}

func (l *LRU) Store(key string, e Entry) error {
	l.entries.Add(key, e)
	return nil
}

func (l *LRU) Delete(key string) error {
	l.entries.Remove(key)
	return nil
}

// Len returns the number of stored entries.
func (l *LRU) Len() int { return l.entries.Len() }
