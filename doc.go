// Package blekeys 提供 BLE 配对凭据存储
//
// blekeys 在内存中维护固定容量的配对密钥池（LTK、IRK、CSRK），
// 支持按地址查找、按老化计数淘汰和可解析私有地址（RPA）解析，
// 并通过异步流水线把记录写入 BadgerDB，不阻塞安全协议所在的 goroutine。
//
// # 快速开始
//
//	store, err := blekeys.Open(ctx,
//	    blekeys.WithDataDir("/var/lib/bt"),
//	    blekeys.WithMaxPaired(16),
//	    blekeys.WithOverwriteOldest(true),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	// 配对完成后
//	rec, err := store.Pool().GetType(keys.TypeLTK, 0, peer)
//	rec.LTK = ltk
//	store.Pool().Store(rec)
//
// # 组件
//
//	┌──────────────────────────────────────────────────────────────┐
//	│  blekeys.Store                                                │
//	├──────────────────────────────────────────────────────────────┤
//	│  keys.Pool ──► pipeline.Pipeline ──► settings.Store ──► kv    │
//	│      │                                        ▲               │
//	│      └──► resolvlist.List        keys.Loader ─┘ (启动时加载)  │
//	├──────────────────────────────────────────────────────────────┤
//	│  storage.Engine (BadgerDB)             metrics (Prometheus)   │
//	└──────────────────────────────────────────────────────────────┘
//
// # 并发模型
//
// 密钥池不加锁，只能在单个 goroutine（通常是 SMP 所在的 goroutine）中使用。
// Store 自身的便捷方法（Import、Unpair、Resolve、Records）内部串行化，
// 不应与直接通过 Pool() 的调用交错。持久化 I/O 只在流水线 worker 中发生。
package blekeys
