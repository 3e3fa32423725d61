package pipeline

import (
	"github.com/dep2p/go-blekeys/internal/core/keys"
	"github.com/google/uuid"
)

// Op 持久化操作
type Op uint8

const (
	// OpSave 写入记录
	OpSave Op = iota + 1
	// OpDelete 删除记录
	OpDelete
)

// String 返回操作名称
func (o Op) String() string {
	switch o {
	case OpSave:
		return "save"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Entry 队列条目，持有记录的完整副本
type Entry struct {
	ID     uuid.UUID
	Op     Op
	Record keys.Record

	// barrier 非空时为 Flush 插入的屏障，不携带记录
	barrier chan struct{}
}

func newEntry(op Op, rec keys.Record) *Entry {
	return &Entry{
		ID:     uuid.New(),
		Op:     op,
		Record: rec,
	}
}

// wipe 清零条目中的密钥材料
func (e *Entry) wipe() {
	e.Record.Wipe()
}
