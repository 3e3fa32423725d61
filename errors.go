package blekeys

import (
	"errors"

	"github.com/dep2p/go-blekeys/internal/core/keys"
	"github.com/dep2p/go-blekeys/internal/core/keys/pipeline"
)

// 公共错误定义
var (
	// ErrNotStarted 存储未启动
	ErrNotStarted = errors.New("blekeys: store not started")

	// ErrAlreadyStarted 存储已启动
	ErrAlreadyStarted = errors.New("blekeys: store already started")

	// ErrClosed 存储已关闭
	ErrClosed = errors.New("blekeys: store closed")

	// ErrPoolExhausted 密钥池已满且未开启覆盖最旧记录
	ErrPoolExhausted = keys.ErrPoolExhausted

	// ErrQueueFull 持久化队列已满
	ErrQueueFull = pipeline.ErrQueueFull
)
