package main

import (
	"encoding/hex"
	"fmt"

	"github.com/dep2p/go-blekeys/internal/core/keys"
	"github.com/dep2p/go-blekeys/pkg/types"
)

// recordJSON 导入导出格式
//
// data 为持久化编码的十六进制，兼容旧版 112 字节格式。
type recordJSON struct {
	ID   uint8  `json:"id"`
	Addr string `json:"addr"`
	Type string `json:"type"`
	Data string `json:"data"`
}

func fromRecord(r keys.Record) recordJSON {
	return recordJSON{
		ID:   r.ID,
		Addr: r.Addr.A.String(),
		Type: r.Addr.Type.String(),
		Data: hex.EncodeToString(r.MarshalStorage()),
	}
}

func (d recordJSON) toRecord() (keys.Record, error) {
	typ := d.Type
	if typ == "" {
		typ = "public"
	}
	addr, err := types.ParseAddrLE(d.Addr, typ)
	if err != nil {
		return keys.Record{}, err
	}
	if addr.IsZero() {
		return keys.Record{}, fmt.Errorf("zero address")
	}

	raw, err := hex.DecodeString(d.Data)
	if err != nil {
		return keys.Record{}, fmt.Errorf("decode data: %w", err)
	}

	rec := keys.Record{ID: d.ID, Addr: addr}
	if _, err := rec.UnmarshalStorage(raw); err != nil {
		return keys.Record{}, err
	}
	return rec, nil
}
