// Package main 提供 blekeys 命令行工具
//
// 对数据目录中的配对凭据进行查看、导入导出和解除配对：
//
//	blekeys -data-dir /var/lib/bt list
//	blekeys -config blekeys.yaml show AA:BB:CC:DD:EE:FF public
//	blekeys unpair -id 0 AA:BB:CC:DD:EE:FF public
//	blekeys resolve 4A:11:22:33:44:55
//	blekeys export > bonds.json
//	blekeys import bonds.json
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dep2p/go-blekeys"
	"github.com/dep2p/go-blekeys/config"
)

// command 子命令
type command struct {
	usage string
	run   func(ctx context.Context, s *blekeys.Store, args []string, out io.Writer) error
}

var commands = map[string]command{
	"list":    {usage: "list [-id N]                         列出已配对设备", run: cmdList},
	"show":    {usage: "show [-id N] <addr> [type]           显示一条记录", run: cmdShow},
	"unpair":  {usage: "unpair [-id N] [-all] [<addr> [type]] 解除配对", run: cmdUnpair},
	"resolve": {usage: "resolve [-id N] <addr> [type]        解析对端地址", run: cmdResolve},
	"import":  {usage: "import <file|->                      从 JSON 导入记录", run: cmdImport},
	"export":  {usage: "export                               以 JSON 导出全部记录", run: cmdExport},
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("blekeys", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configFile := fs.String("config", "", "配置文件路径（.json / .yaml）")
	dataDir := fs.String("data-dir", "", "数据目录，覆盖配置文件")
	logLevel := fs.String("log-level", "warn", "日志级别 (debug/info/warn/error)")
	showVersion := fs.Bool("version", false, "显示版本信息")
	fs.Usage = func() { printUsage(fs, stderr) }

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *showVersion {
		fmt.Fprintln(stdout, "blekeys", blekeys.Version)
		return nil
	}

	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(fs, stderr)
		return flag.ErrHelp
	}
	cmd, ok := commands[rest[0]]
	if !ok {
		printUsage(fs, stderr)
		return fmt.Errorf("unknown command %q", rest[0])
	}

	cfg, err := loadConfig(*configFile)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}
	if isFlagSet(fs, "log-level") || *configFile == "" {
		cfg.Log.Level = *logLevel
	}
	if *dataDir != "" {
		cfg.Storage = cfg.Storage.WithDataDir(*dataDir)
	}

	store, err := blekeys.Open(ctx,
		blekeys.WithConfig(cfg),
		blekeys.WithLogOutput(stderr),
	)
	if err != nil {
		return err
	}

	runErr := cmd.run(ctx, store, rest[1:], stdout)
	if err := store.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.NewConfig(), nil
	}
	return config.Load(path)
}

// isFlagSet 检查命令行参数是否被显式设置
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "用法: blekeys [全局参数] <命令> [参数]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "命令:")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintln(w, "  "+commands[name].usage)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "全局参数:")
	fs.PrintDefaults()
	fmt.Fprintln(w)
	fmt.Fprintln(w, "地址格式: AA:BB:CC:DD:EE:FF，类型为 "+strings.Join(addrTypes, " / ")+"，默认 public")
}
