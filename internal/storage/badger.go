package storage

import (
	"errors"
	"fmt"
	"strings"

	klog "github.com/DebuggerAu/kin-sdk-core/internal/log"
	"github.com/dgraph-io/badger/v4"
)

// Badger is a Store on a Badger database directory.
type Badger struct {
	db *badger.DB
}

// OpenBadger opens or creates the store in dir. It fails with ErrLocked when
// another kin-cli holds the directory.
func OpenBadger(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir).
		WithLogger(nil).
		WithValueLogFileSize(16 << 20).
		WithNumVersionsToKeep(1)

	db, err := badger.Open(opts)
	if err != nil {
		if strings.Contains(err.Error(), "directory lock") {
			return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
		}
		return nil, fmt.Errorf("open store %s: %w", dir, err)
	}
	klog.Storage.Debug().Str("dir", dir).Msg("Store opened")
	return &Badger{db: db}, nil
}

func (s *Badger) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("get %x: %w", key, err)
	}
	return value, nil
}

func (s *Badger) Put(key, value []byte) error {
	var b Batch
	b.Put(key, value)
	return s.Commit(&b)
}

func (s *Badger) Delete(key []byte) error {
	var b Batch
	b.Delete(key)
	return s.Commit(&b)
}

// Commit applies b in a single read-write transaction.
func (s *Badger) Commit(b *Batch) error {
	if b.Len() == 0 {
		return nil
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		for _, op := range b.ops {
			var err error
			if op.del {
				err = txn.Delete(op.key)
			} else {
				err = txn.Set(op.key, op.value)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit %d ops: %w", b.Len(), err)
	}
	return nil
}

func (s *Badger) Scan(prefix []byte, fn func(key, value []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			PrefetchValues: true,
			PrefetchSize:   64,
			Prefix:         prefix,
		})
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(item.KeyCopy(nil), value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Badger) DropPrefix(prefix []byte) error {
	var err error
	if len(prefix) == 0 {
		err = s.db.DropAll()
	} else {
		err = s.db.DropPrefix(prefix)
	}
	if err != nil {
		return fmt.Errorf("drop prefix %x: %w", prefix, err)
	}
	return nil
}

func (s *Badger) Close() error {
	return s.db.Close()
}
