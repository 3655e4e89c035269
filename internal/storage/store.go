// Package storage keeps local wallet state in an ordered key-value store.
// Badger backs the on-disk store; Memory serves tests and clients that do
// not persist pending transfers.
package storage

import "errors"

var (
	// ErrNotFound is returned by Get for a missing key.
	ErrNotFound = errors.New("storage: key not found")

	// ErrLocked is returned by OpenBadger when another process holds the
	// store's directory lock.
	ErrLocked = errors.New("storage: store is in use by another process")
)

// Store is an ordered key-value store. Implementations are safe for
// concurrent use.
type Store interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error

	// Scan calls fn for every key starting with prefix in ascending key
	// order. fn receives copies and must not write to the store. An error
	// from fn stops the scan and is returned.
	Scan(prefix []byte, fn func(key, value []byte) error) error

	// Commit applies every operation in b, or none of them.
	Commit(b *Batch) error

	// DropPrefix removes every key starting with prefix.
	DropPrefix(prefix []byte) error

	Close() error
}

// Open returns a Badger store in dir, or a Memory store when dir is empty.
func Open(dir string) (Store, error) {
	if dir == "" {
		return NewMemory(), nil
	}
	return OpenBadger(dir)
}
