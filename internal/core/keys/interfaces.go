package keys

import "github.com/dep2p/go-blekeys/pkg/types"

// Persister 接收记录副本并异步持久化
//
// 实现不得阻塞调用方，也不得保留 rec 以外的引用。
type Persister interface {
	Save(rec Record) error
	Delete(rec Record) error
}

// IdentityRegistrar 链路层身份注册
//
// Register 成功后应在 rec.State 上设置 StateIDAdded，
// Unregister 后清除该标志。失败只记录日志，不影响密钥池状态。
type IdentityRegistrar interface {
	Register(rec *Record) error
	Unregister(rec *Record) error
}

// UnpairHook 在记录被清除前调用，用于断开连接或清理 GATT 状态等外部工作
type UnpairHook func(id uint8, addr types.AddrLE) error

// IRKMatcher 判断地址是否由 IRK 生成
type IRKMatcher func(irk [16]byte, addr types.Addr) bool
