// Package types 定义 blekeys 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
//   - address.go - Addr（48 位设备地址）与 AddrLE（带类型的 LE 地址）
//   - errors.go  - 公共错误定义
//
// # 字节序
//
// Addr 按控制器线格式存储，A[0] 为最低字节；
// String() 按人类习惯从最高字节开始输出。
package types
