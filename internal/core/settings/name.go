package settings

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/dep2p/go-blekeys/pkg/types"
)

const (
	// Root 蓝牙设置根
	Root = "bt"

	// Separator 名称分隔符
	Separator = "/"

	// addrKeyLen 地址段长度：12 位十六进制地址 + 1 位类型
	addrKeyLen = 2*types.AddrLen + 1
)

// EncodeKey 生成 "bt/<subsys>/<地址><类型>[/<key>]" 形式的名称
//
// 地址以高字节在前的小写十六进制表示，key 为空时省略后缀。
func EncodeKey(subsys string, addr types.AddrLE, key string) string {
	var sb strings.Builder
	sb.Grow(len(Root) + len(subsys) + addrKeyLen + len(key) + 3)

	sb.WriteString(Root)
	sb.WriteString(Separator)
	sb.WriteString(subsys)
	sb.WriteString(Separator)
	for i := types.AddrLen - 1; i >= 0; i-- {
		sb.WriteString(hex.EncodeToString(addr.A[i : i+1]))
	}
	fmt.Fprintf(&sb, "%d", addr.Type)
	if key != "" {
		sb.WriteString(Separator)
		sb.WriteString(key)
	}
	return sb.String()
}

// DecodeKey 从子树内的相对名称中解析地址
//
// name 的首段必须恰好为 12 位十六进制地址加 1 位类型（0 或 1）。
func DecodeKey(name string) (types.AddrLE, error) {
	var addr types.AddrLE

	head, _, _ := NameNext(name)
	if len(head) != addrKeyLen {
		return addr, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	switch head[addrKeyLen-1] {
	case '0':
		addr.Type = types.AddrPublic
	case '1':
		addr.Type = types.AddrRandom
	default:
		return addr, fmt.Errorf("%w: address type in %q", ErrInvalidName, name)
	}

	raw, err := hex.DecodeString(head[:addrKeyLen-1])
	if err != nil {
		return addr, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for i := 0; i < types.AddrLen; i++ {
		addr.A[types.AddrLen-1-i] = raw[i]
	}
	return addr, nil
}

// NameNext 拆分名称的首段
//
// 返回首段 head 与其后的剩余部分 next；没有分隔符时 hasNext 为 false。
func NameNext(name string) (head, next string, hasNext bool) {
	i := strings.Index(name, Separator)
	if i < 0 {
		return name, "", false
	}
	return name[:i], name[i+1:], true
}

// Join 用分隔符拼接名称各段，跳过空段
func Join(parts ...string) string {
	nonEmpty := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, Separator)
}
