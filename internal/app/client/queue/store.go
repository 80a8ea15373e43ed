package queue

import (
	"context"
	"errors"
)

var (
	ErrKeyNotFound = errors.New("key not found")
	errReadOnly    = errors.New("write in read-only transaction")
)

// Store is a namespaced key/value store with transactions. All writes made
// inside one Update either commit together or not at all.
type Store interface {
	View(ctx context.Context, fn func(Tx) error) error
	Update(ctx context.Context, fn func(Tx) error) error
	Close() error
}

type Tx interface {
	// Get returns ErrKeyNotFound when the key is absent.
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	Keys(prefix string) ([]string, error)
}
