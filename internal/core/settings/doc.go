// Package settings 实现按名称组织的持久化设置存储
//
// 名称是以 "/" 分隔的路径，蓝牙子系统的名称统一以 "bt/" 开头：
//
//	bt/keys/c0ffee1234561         身份 0（无后缀）
//	bt/keys/c0ffee1234561/2       身份 2
//	       └──地址──┘└类型
//
// 各子系统通过 Register 注册子树处理器。Load 按注册顺序遍历每个
// 子树下的全部记录，逐条调用 Handler.Set，全部完成后再调用一次
// Handler.Commit。
//
// 值长度为 0 的记录是删除标记：Set 会收到空值，Load 结束后清除这些标记。
package settings
