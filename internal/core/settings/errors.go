package settings

import "errors"

var (
	// ErrInvalidName 名称格式无效
	ErrInvalidName = errors.New("settings: invalid name")

	// ErrDuplicateHandler 子树已注册处理器
	ErrDuplicateHandler = errors.New("settings: handler already registered")

	// ErrNoHandler 名称不属于任何已注册子树
	ErrNoHandler = errors.New("settings: no handler for name")
)
