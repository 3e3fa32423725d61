package engine

// Engine 存储引擎接口
type Engine interface {
	// Get 获取键对应的值，键不存在时返回 ErrNotFound
	Get(key []byte) ([]byte, error)

	// Put 写入键值对
	Put(key, value []byte) error

	// Delete 删除键，键不存在不视为错误
	Delete(key []byte) error

	// Has 检查键是否存在
	Has(key []byte) (bool, error)

	// NewPrefixIterator 创建前缀迭代器，调用者负责 Close()
	NewPrefixIterator(prefix []byte) Iterator

	// NewBatch 创建批量写入对象
	NewBatch() Batch

	// Start 启动后台任务（值日志 GC）
	Start() error

	// Sync 将已写入数据同步到磁盘
	Sync() error

	// Stats 返回统计快照
	Stats() *Stats

	// Close 关闭引擎，多次调用安全
	Close() error
}

// Batch 批量写入接口
//
// 非并发安全，不应跨 goroutine 使用。
type Batch interface {
	Put(key, value []byte)
	Delete(key []byte)

	// Write 原子写入全部操作，完成后批量对象被重置
	Write() error

	// Size 返回待写入操作数量
	Size() int

	// Cancel 放弃未写入的操作
	Cancel()
}

// Iterator 迭代器接口
//
// 迭代器持有创建时的快照视图：
//
//	iter := eng.NewPrefixIterator(prefix)
//	defer iter.Close()
//
//	for iter.First(); iter.Valid(); iter.Next() {
//	    key, value := iter.Key(), iter.Value()
//	}
//	if err := iter.Error(); err != nil {
//	    return err
//	}
type Iterator interface {
	First() bool
	Next() bool
	Valid() bool

	// Key 返回当前键的副本
	Key() []byte

	// Value 返回当前值的副本
	Value() []byte

	Close()
	Error() error
}

// Stats 引擎统计信息
type Stats struct {
	LSMSize    int64 `json:"lsm_size"`
	VlogSize   int64 `json:"vlog_size"`
	NumReads   int64 `json:"num_reads"`
	NumWrites  int64 `json:"num_writes"`
	NumDeletes int64 `json:"num_deletes"`
}

// DiskSize 返回磁盘占用总量
func (s *Stats) DiskSize() int64 {
	return s.LSMSize + s.VlogSize
}
