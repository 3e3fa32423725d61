package types

import "errors"

// 地址相关错误
var (
	// ErrInvalidAddr 地址字符串格式无效
	ErrInvalidAddr = errors.New("invalid device address")

	// ErrInvalidAddrType 地址类型无效
	ErrInvalidAddrType = errors.New("invalid address type")
)
