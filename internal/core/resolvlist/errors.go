package resolvlist

import "errors"

var (
	// ErrListFull 解析列表已满
	ErrListFull = errors.New("resolvlist: list full")

	// ErrNotFound 列表中没有该身份
	ErrNotFound = errors.New("resolvlist: entry not found")

	// ErrNilRecord 记录为空
	ErrNilRecord = errors.New("resolvlist: nil record")
)
