// Package resolvlist 模拟控制器的解析列表
//
// 列表保存 (身份, 身份地址, IRK) 三元组，容量固定。
// 密钥池在加载完成或配对结束时通过 keys.IdentityRegistrar 注册身份，
// 注册成功后记录带上 StateIDAdded 标记，清除记录时再注销。
//
// 与密钥池不同，列表会被控制器侧的地址解析并发访问，内部加锁。
package resolvlist
