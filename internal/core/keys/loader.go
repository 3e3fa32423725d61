package keys

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dep2p/go-blekeys/config"
	"github.com/dep2p/go-blekeys/internal/core/settings"
)

// Loader 从设置存储恢复密钥池
//
// 实现 settings.Handler，注册在 Subtree 下。
type Loader struct {
	pool *Pool
}

var _ settings.Handler = (*Loader)(nil)

// NewLoader 创建加载器
func NewLoader(p *Pool) *Loader {
	return &Loader{pool: p}
}

// Set 恢复一条记录
//
// name 形如 "c0ffee1234561" 或 "c0ffee1234561/2"。空值表示该记录已删除，
// 只清零内存中的对应记录。长度无效时清除记录并返回 ErrInvalidEncoding。
func (l *Loader) Set(name string, value []byte) error {
	if name == "" {
		return ErrInvalidName
	}

	addr, err := settings.DecodeKey(name)
	if err != nil {
		logger.Error("无法解析地址", "name", name)
		return fmt.Errorf("%w: %v", ErrInvalidName, err)
	}

	id := DefaultID
	if _, next, ok := settings.NameNext(name); ok {
		v, err := strconv.ParseUint(next, 10, 8)
		if err != nil {
			logger.Error("无法解析身份", "name", name)
			return fmt.Errorf("%w: identity %q", ErrInvalidName, next)
		}
		id = uint8(v)
	}

	if len(value) == 0 {
		if r := l.pool.Find(TypeAll, id, addr); r != nil {
			l.pool.release(r)
			logger.Debug("已清除删除的记录", "addr", addr.String())
		} else {
			logger.Warn("找不到已删除的记录", "addr", addr.String())
		}
		return nil
	}

	r, err := l.pool.GetAddr(id, addr)
	if err != nil {
		logger.Error("无法为记录分配槽位", "addr", addr.String(), "error", err)
		return err
	}

	legacy, err := r.UnmarshalStorage(value)
	if err != nil {
		logger.Error("记录长度无效", "addr", addr.String(), "len", len(value), "want", StorageLen)
		l.pool.Clear(r)
		return err
	}
	if legacy {
		logger.Warn("记录缺少老化计数", "addr", addr.String())
	}

	l.pool.restored(r)
	logger.Debug("已恢复密钥记录", "id", id, "addr", addr.String(), "keys", r.Keys.String())
	return nil
}

// Commit 为已加载的记录注册身份
//
// 同时启用 central 与隐私时注册所有记录，否则只注册带 IRK 的记录。
// 放在 Commit 而非 Set 中，同一地址的多次 Set 只注册一次。
func (l *Loader) Commit() error {
	reg := l.pool.registrar
	if reg == nil {
		return nil
	}

	typ := TypeIRK
	if registerAll(l.pool.cfg) {
		typ = TypeAll
	}

	var failed int
	l.pool.ForEach(typ, func(r *Record) {
		if err := reg.Register(r); err != nil {
			failed++
			logger.Warn("注册身份失败", "addr", r.Addr.String(), "error", err)
		}
	})
	if failed > 0 {
		logger.Warn("部分身份未注册", "failed", failed)
	}
	return nil
}

func registerAll(cfg config.KeysConfig) bool {
	return cfg.Central && cfg.Privacy
}

// IsInvalidEncoding 检查是否为编码错误
func IsInvalidEncoding(err error) bool {
	return errors.Is(err, ErrInvalidEncoding)
}
