package badger

import (
	"github.com/dep2p/go-blekeys/internal/core/storage/engine"
	"github.com/dgraph-io/badger/v4"
)

type batchOp struct {
	key    []byte
	value  []byte
	delete bool
}

// WriteBatch BadgerDB 批量写入
//
// 操作先缓存在内存，Write() 时一次性提交。
type WriteBatch struct {
	eng   *Engine
	batch *badger.WriteBatch
	ops   []batchOp
}

// Put 添加写入操作
func (b *WriteBatch) Put(key, value []byte) {
	b.ops = append(b.ops, batchOp{
		key:   append([]byte(nil), key...),
		value: append([]byte(nil), value...),
	})
}

// Delete 添加删除操作
func (b *WriteBatch) Delete(key []byte) {
	b.ops = append(b.ops, batchOp{
		key:    append([]byte(nil), key...),
		delete: true,
	})
}

// Write 提交全部操作
func (b *WriteBatch) Write() error {
	if b.eng.closed.Load() {
		return engine.ErrClosed
	}
	if b.eng.config.ReadOnly {
		return engine.ErrReadOnly
	}

	var writes, deletes int64
	for _, op := range b.ops {
		if len(op.key) == 0 {
			b.reset()
			return engine.ErrEmptyKey
		}
		var err error
		if op.delete {
			err = b.batch.Delete(op.key)
			deletes++
		} else {
			err = b.batch.Set(op.key, op.value)
			writes++
		}
		if err != nil {
			b.reset()
			return convertError(err)
		}
	}

	err := b.batch.Flush()
	b.ops = b.ops[:0]
	b.batch = b.eng.db.NewWriteBatch()
	if err != nil {
		return convertError(err)
	}

	b.eng.stats.numWrites.Add(writes)
	b.eng.stats.numDeletes.Add(deletes)
	return nil
}

// Size 返回待写入操作数量
func (b *WriteBatch) Size() int {
	return len(b.ops)
}

// Cancel 放弃未写入的操作
func (b *WriteBatch) Cancel() {
	b.ops = nil
	b.batch.Cancel()
}

func (b *WriteBatch) reset() {
	b.ops = b.ops[:0]
	b.batch.Cancel()
	b.batch = b.eng.db.NewWriteBatch()
}
