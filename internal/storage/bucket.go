package storage

// Bucket is the part of a Store under one key prefix. Keys passed to and
// returned from a Bucket are relative to that prefix.
type Bucket struct {
	store  Store
	prefix []byte
}

// NewBucket returns the bucket of s named name. Its keys live under
// name + "/".
func NewBucket(s Store, name string) *Bucket {
	return &Bucket{store: s, prefix: []byte(name + "/")}
}

func (b *Bucket) abs(key []byte) []byte {
	return append(append(make([]byte, 0, len(b.prefix)+len(key)), b.prefix...), key...)
}

func (b *Bucket) Get(key []byte) ([]byte, error) {
	return b.store.Get(b.abs(key))
}

func (b *Bucket) Put(key, value []byte) error {
	return b.store.Put(b.abs(key), value)
}

func (b *Bucket) Delete(key []byte) error {
	return b.store.Delete(b.abs(key))
}

// Scan is Store.Scan within the bucket.
func (b *Bucket) Scan(prefix []byte, fn func(key, value []byte) error) error {
	return b.store.Scan(b.abs(prefix), func(key, value []byte) error {
		return fn(key[len(b.prefix):], value)
	})
}

// Commit applies batch, whose keys are relative to the bucket.
func (b *Bucket) Commit(batch *Batch) error {
	abs := &Batch{ops: make([]batchOp, len(batch.ops))}
	for i, op := range batch.ops {
		op.key = b.abs(op.key)
		abs.ops[i] = op
	}
	return b.store.Commit(abs)
}

// Clear removes every key in the bucket.
func (b *Bucket) Clear() error {
	return b.store.DropPrefix(b.prefix)
}
