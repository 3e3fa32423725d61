// Package log 提供 blekeys 统一日志接口
//
// 基于标准库 log/slog 封装。各组件通过 Logger("core/keys") 获取
// 带组件名的懒加载 logger，输出目标和级别可在运行时切换。
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// 日志级别常量
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Format 日志输出格式
type Format int

const (
	// FormatText 文本格式（默认）
	FormatText Format = iota
	// FormatJSON JSON 格式
	FormatJSON
)

// 环境变量
const (
	envLevel  = "BLEKEYS_LOG_LEVEL"
	envFormat = "BLEKEYS_LOG_FORMAT"
)

// Setup 重建默认 logger
//
// w 为 nil 时输出到 os.Stderr。
func Setup(w io.Writer, level slog.Level, format Format) {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if format == FormatJSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}

// SetOutput 设置日志输出目标，保持 Info 级别
func SetOutput(w io.Writer) {
	Setup(w, LevelInfo, FormatText)
}

// SetLevel 设置日志级别，输出到 os.Stderr
func SetLevel(level slog.Level) {
	Setup(os.Stderr, level, FormatText)
}

// ParseLevel 解析日志级别名称
//
// 未识别的名称返回 LevelInfo 和 false。
func ParseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

// ParseFormat 解析日志格式名称
func ParseFormat(name string) Format {
	if strings.EqualFold(strings.TrimSpace(name), "json") {
		return FormatJSON
	}
	return FormatText
}

// Discard 返回丢弃所有输出的 logger，主要用于测试
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: LevelError + 1}))
}

// ============================================================================
//                              LazyLogger
// ============================================================================

// LazyLogger 懒加载 logger
//
// 每次调用都从 slog.Default() 取 handler，支持运行时切换输出。
//
//	var logger = log.Logger("core/keys")
//	logger.Info("key pool ready", "slots", 8)
type LazyLogger struct {
	component string
}

func (l *LazyLogger) base() *slog.Logger {
	return slog.Default().With("component", l.component)
}

// Debug 输出 Debug 级别日志
func (l *LazyLogger) Debug(msg string, args ...any) { l.base().Debug(msg, args...) }

// Info 输出 Info 级别日志
func (l *LazyLogger) Info(msg string, args ...any) { l.base().Info(msg, args...) }

// Warn 输出 Warn 级别日志
func (l *LazyLogger) Warn(msg string, args ...any) { l.base().Warn(msg, args...) }

// Error 输出 Error 级别日志
func (l *LazyLogger) Error(msg string, args ...any) { l.base().Error(msg, args...) }

// DebugContext 带 context 的 Debug 日志
func (l *LazyLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.base().DebugContext(ctx, msg, args...)
}

// WarnContext 带 context 的 Warn 日志
func (l *LazyLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.base().WarnContext(ctx, msg, args...)
}

// Enabled 判断级别是否启用，用于跳过代价较高的日志参数构造
func (l *LazyLogger) Enabled(level slog.Level) bool {
	return slog.Default().Enabled(context.Background(), level)
}

// With 添加额外的属性
func (l *LazyLogger) With(args ...any) *slog.Logger {
	return l.base().With(args...)
}

// Logger 返回带组件名的 LazyLogger
func Logger(component string) *LazyLogger {
	return &LazyLogger{component: component}
}

// ============================================================================
//                              初始化
// ============================================================================

func init() {
	level := LevelInfo
	if v := os.Getenv(envLevel); v != "" {
		if l, ok := ParseLevel(v); ok {
			level = l
		}
	}
	Setup(os.Stderr, level, ParseFormat(os.Getenv(envFormat)))
}
