package logger

import (
	"context"
	"log/slog"
)

// Logger 日志接口，args 为交替出现的键值对
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	DebugContext(ctx context.Context, msg string, args ...any)
	InfoContext(ctx context.Context, msg string, args ...any)
	WarnContext(ctx context.Context, msg string, args ...any)
	ErrorContext(ctx context.Context, msg string, args ...any)

	// Enabled 判断该级别的日志是否会输出，用于跳过代价较高的字段构造
	Enabled(ctx context.Context, level slog.Level) bool

	With(args ...any) Logger
	WithGroup(name string) Logger
}
