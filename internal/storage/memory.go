package storage

import (
	"bytes"
	"slices"
	"strings"
	"sync"
)

// Memory is a Store held in a map. Scan sorts keys on every call, which is
// fine for the handful of records a wallet keeps.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if v, ok := m.data[string(key)]; ok {
		return bytes.Clone(v), nil
	}
	return nil, ErrNotFound
}

func (m *Memory) Put(key, value []byte) error {
	var b Batch
	b.Put(key, value)
	return m.Commit(&b)
}

func (m *Memory) Delete(key []byte) error {
	var b Batch
	b.Delete(key)
	return m.Commit(&b)
}

func (m *Memory) Commit(b *Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, op := range b.ops {
		if op.del {
			delete(m.data, string(op.key))
		} else {
			m.data[string(op.key)] = op.value
		}
	}
	return nil
}

// Scan runs fn on a snapshot taken under the read lock.
func (m *Memory) Scan(prefix []byte, fn func(key, value []byte) error) error {
	m.mu.RLock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, string(prefix)) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	values := make([][]byte, len(keys))
	for i, k := range keys {
		values[i] = bytes.Clone(m.data[k])
	}
	m.mu.RUnlock()

	for i, k := range keys {
		if err := fn([]byte(k), values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (m *Memory) DropPrefix(prefix []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k := range m.data {
		if strings.HasPrefix(k, string(prefix)) {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *Memory) Close() error {
	return nil
}
