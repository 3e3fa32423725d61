package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dep2p/go-blekeys"
	"github.com/dep2p/go-blekeys/internal/core/keys"
	"github.com/dep2p/go-blekeys/pkg/types"
)

// 存储只接受这两种地址类型
var addrTypes = []string{"public", "random"}

func newFlagSet(name string, out io.Writer) (*flag.FlagSet, *uint) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	id := fs.Uint("id", 0, "本地身份")
	return fs, id
}

// parseAddrArgs 解析 "<addr> [type]"
func parseAddrArgs(args []string) (types.AddrLE, error) {
	switch len(args) {
	case 1:
		return types.ParseAddrLE(args[0], "public")
	case 2:
		return types.ParseAddrLE(args[0], args[1])
	default:
		return types.AddrLE{}, errors.New("expected <addr> [type]")
	}
}

func parseID(id uint) (uint8, error) {
	if id > 255 {
		return 0, fmt.Errorf("identity %d out of range", id)
	}
	return uint8(id), nil
}

// ============================================================================
//                              list / show
// ============================================================================

func cmdList(_ context.Context, s *blekeys.Store, args []string, out io.Writer) error {
	fs, id := newFlagSet("list", out)
	if err := fs.Parse(args); err != nil {
		return err
	}
	onlyID, err := parseID(*id)
	if err != nil {
		return err
	}
	// 未指定 -id 时列出所有身份
	filter := isFlagSet(fs, "id")

	records, err := s.Records()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tADDRESS\tKEYS\tFLAGS\tAGING")
	n := 0
	for _, r := range records {
		if filter && r.ID != onlyID {
			continue
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\n", r.ID, r.Addr, r.Keys, flagsString(r.Flags), r.AgingCounter)
		n++
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d/%d 条记录\n", n, s.Pool().Cap())
	return nil
}

func cmdShow(_ context.Context, s *blekeys.Store, args []string, out io.Writer) error {
	fs, id := newFlagSet("show", out)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ident, err := parseID(*id)
	if err != nil {
		return err
	}
	addr, err := parseAddrArgs(fs.Args())
	if err != nil {
		return err
	}

	r, ok, err := s.Resolve(ident, addr)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no record for %s (id %d)", addr, ident)
	}
	printRecord(out, r)
	return nil
}

func printRecord(out io.Writer, r keys.Record) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "identity:\t%d\n", r.ID)
	fmt.Fprintf(tw, "address:\t%s\n", r.Addr)
	fmt.Fprintf(tw, "name:\t%s\n", r.StorageName())
	fmt.Fprintf(tw, "keys:\t%s\n", r.Keys)
	fmt.Fprintf(tw, "flags:\t%s\n", flagsString(r.Flags))
	fmt.Fprintf(tw, "enc size:\t%d\n", r.EncSize)
	fmt.Fprintf(tw, "aging:\t%d\n", r.AgingCounter)
	fmt.Fprintf(tw, "registered:\t%t\n", r.State&keys.StateIDAdded != 0)
	if r.Has(keys.TypeIRK) && !r.IRK.RPA.IsZero() {
		fmt.Fprintf(tw, "last rpa:\t%s\n", r.IRK.RPA)
	}
	_ = tw.Flush()
}

func flagsString(f keys.SecFlags) string {
	s := ""
	add := func(set bool, name string) {
		if !set {
			return
		}
		if s != "" {
			s += ","
		}
		s += name
	}
	add(f&keys.FlagAuthenticated != 0, "auth")
	add(f&keys.FlagSC != 0, "sc")
	add(f&keys.FlagOOB != 0, "oob")
	add(f&keys.FlagDebug != 0, "debug")
	if s == "" {
		return "-"
	}
	return s
}

// ============================================================================
//                              unpair / resolve
// ============================================================================

func cmdUnpair(ctx context.Context, s *blekeys.Store, args []string, out io.Writer) error {
	fs, id := newFlagSet("unpair", out)
	all := fs.Bool("all", false, "解除该身份下的所有配对")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ident, err := parseID(*id)
	if err != nil {
		return err
	}

	var addr types.AddrLE
	if !*all {
		if addr, err = parseAddrArgs(fs.Args()); err != nil {
			return err
		}
		if _, ok, err := s.Resolve(ident, addr); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("no record for %s (id %d)", addr, ident)
		}
	}

	before := s.Pool().Len()
	if err := s.Unpair(ident, addr); err != nil {
		return err
	}
	if err := s.Flush(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "已解除 %d 条配对\n", before-s.Pool().Len())
	return nil
}

func cmdResolve(_ context.Context, s *blekeys.Store, args []string, out io.Writer) error {
	fs, id := newFlagSet("resolve", out)
	if err := fs.Parse(args); err != nil {
		return err
	}
	ident, err := parseID(*id)
	if err != nil {
		return err
	}

	rest := fs.Args()
	if len(rest) == 1 {
		// 未指定类型时按随机地址解析
		rest = append(rest, "random")
	}
	addr, err := parseAddrArgs(rest)
	if err != nil {
		return err
	}

	r, ok, err := s.Resolve(ident, addr)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(out, "%s: 未知对端\n", addr)
		return nil
	}
	fmt.Fprintf(out, "%s -> %s\n", addr, r.Addr)
	return nil
}

// ============================================================================
//                              import / export
// ============================================================================

func cmdImport(ctx context.Context, s *blekeys.Store, args []string, out io.Writer) error {
	if len(args) != 1 {
		return errors.New("expected <file|->")
	}

	var data []byte
	var err error
	if args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return err
	}

	var docs []recordJSON
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("parse records: %w", err)
	}

	for i, d := range docs {
		rec, err := d.toRecord()
		if err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		if err := s.Import(rec); err != nil {
			return fmt.Errorf("record %d (%s): %w", i, rec.Addr, err)
		}
	}
	if err := s.Flush(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "已导入 %d 条记录\n", len(docs))
	return nil
}

func cmdExport(_ context.Context, s *blekeys.Store, args []string, out io.Writer) error {
	if len(args) != 0 {
		return errors.New("export takes no arguments")
	}

	records, err := s.Records()
	if err != nil {
		return err
	}

	docs := make([]recordJSON, 0, len(records))
	for _, r := range records {
		docs = append(docs, fromRecord(r))
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(docs)
}
