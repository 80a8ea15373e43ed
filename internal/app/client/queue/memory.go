package queue

import (
	"context"
	"sort"
	"strings"
	"sync"

	"reportsync/internal/domain/report"
)

// MemoryStore keeps everything in process memory. Update works on a copy
// that replaces the live map only when fn succeeds.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) View(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return report.Storage("begin", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&memoryTx{data: s.data, readOnly: true})
}

func (s *MemoryStore) Update(ctx context.Context, fn func(Tx) error) error {
	if err := ctx.Err(); err != nil {
		return report.Storage("begin", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := make(map[string][]byte, len(s.data))
	for k, v := range s.data {
		staged[k] = v
	}
	if err := fn(&memoryTx{data: staged}); err != nil {
		return err
	}
	s.data = staged
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

type memoryTx struct {
	data     map[string][]byte
	readOnly bool
}

func (t *memoryTx) Get(key string) ([]byte, error) {
	v, ok := t.data[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (t *memoryTx) Put(key string, value []byte) error {
	if t.readOnly {
		return errReadOnly
	}
	v := make([]byte, len(value))
	copy(v, value)
	t.data[key] = v
	return nil
}

func (t *memoryTx) Delete(key string) error {
	if t.readOnly {
		return errReadOnly
	}
	delete(t.data, key)
	return nil
}

func (t *memoryTx) Keys(prefix string) ([]string, error) {
	var keys []string
	for k := range t.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
