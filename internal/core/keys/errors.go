package keys

import "errors"

var (
	// ErrPoolExhausted 没有空闲槽位且无法淘汰
	ErrPoolExhausted = errors.New("keys: pool exhausted")

	// ErrInvalidEncoding 持久化记录长度既非当前格式也非旧格式
	ErrInvalidEncoding = errors.New("keys: invalid record encoding")

	// ErrInvalidAddr 地址为全零，或不是 public/random 类型
	ErrInvalidAddr = errors.New("keys: invalid peer address")

	// ErrInvalidName 持久化名称无法解析
	ErrInvalidName = errors.New("keys: invalid record name")
)

// IsPoolExhausted 检查是否为池满错误
func IsPoolExhausted(err error) bool {
	return errors.Is(err, ErrPoolExhausted)
}
