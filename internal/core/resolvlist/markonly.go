package resolvlist

import "github.com/dep2p/go-blekeys/internal/core/keys"

// MarkOnly 只维护记录标记的注册器，用于关闭解析列表的场景
type MarkOnly struct{}

var _ keys.IdentityRegistrar = MarkOnly{}

// Register 设置 StateIDAdded
func (MarkOnly) Register(r *keys.Record) error {
	if r == nil {
		return ErrNilRecord
	}
	r.State |= keys.StateIDAdded
	r.State &^= keys.StateIDPendingAdd
	return nil
}

// Unregister 清除 StateIDAdded
func (MarkOnly) Unregister(r *keys.Record) error {
	if r == nil {
		return ErrNilRecord
	}
	r.State &^= keys.StateIDAdded | keys.StateIDPendingDel
	return nil
}
