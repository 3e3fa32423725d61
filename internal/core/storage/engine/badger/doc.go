// Package badger 提供基于 BadgerDB 的存储引擎实现
//
//	cfg := engine.DefaultConfig(dir)
//	eng, err := badger.New(cfg)
//	if err != nil {
//	    return err
//	}
//	defer eng.Close()
//
//	if err := eng.Put([]byte("bt/keys/c0ffee0000011"), record); err != nil {
//	    return err
//	}
//
// 配对记录是小而低频的写入，引擎默认同步写入，
// 后台值日志 GC 由 Start() 启动、Close() 停止。
package badger
