package storage

import "bytes"

type batchOp struct {
	key   []byte
	value []byte
	del   bool
}

// Batch collects writes for Store.Commit. The zero value is empty and ready
// to use. Keys and values are copied when added.
type Batch struct {
	ops []batchOp
}

// Put queues a write of value under key.
func (b *Batch) Put(key, value []byte) {
	b.ops = append(b.ops, batchOp{key: bytes.Clone(key), value: bytes.Clone(value)})
}

// Delete queues removal of key.
func (b *Batch) Delete(key []byte) {
	b.ops = append(b.ops, batchOp{key: bytes.Clone(key), del: true})
}

// Len returns the number of queued operations.
func (b *Batch) Len() int {
	return len(b.ops)
}
