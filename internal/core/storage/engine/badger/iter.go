package badger

import (
	"github.com/dgraph-io/badger/v4"
)

// Iterator BadgerDB 前缀迭代器
//
// 持有只读事务，Close() 时释放。
type Iterator struct {
	txn     *badger.Txn
	iter    *badger.Iterator
	prefix  []byte
	started bool
	closed  bool
	err     error
}

// First 移动到第一个条目
func (it *Iterator) First() bool {
	if it.closed {
		return false
	}
	it.started = true
	it.iter.Rewind()
	return it.iter.ValidForPrefix(it.prefix)
}

// Next 移动到下一个条目
func (it *Iterator) Next() bool {
	if it.closed {
		return false
	}
	if !it.started {
		return it.First()
	}
	it.iter.Next()
	return it.iter.ValidForPrefix(it.prefix)
}

// Valid 当前位置是否有效
func (it *Iterator) Valid() bool {
	if it.closed || !it.started {
		return false
	}
	return it.iter.ValidForPrefix(it.prefix)
}

// Key 返回当前键的副本
func (it *Iterator) Key() []byte {
	if !it.Valid() {
		return nil
	}
	return it.iter.Item().KeyCopy(nil)
}

// Value 返回当前值的副本
func (it *Iterator) Value() []byte {
	if !it.Valid() {
		return nil
	}
	v, err := it.iter.Item().ValueCopy(nil)
	if err != nil {
		it.err = convertError(err)
		return nil
	}
	return v
}

// Close 释放迭代器和底层事务
func (it *Iterator) Close() {
	if it.closed {
		return
	}
	it.closed = true
	it.iter.Close()
	it.txn.Discard()
}

// Error 返回迭代过程中的错误
func (it *Iterator) Error() error {
	return it.err
}
