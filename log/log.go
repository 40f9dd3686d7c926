package log

import (
	"io"

	"github.com/hatlonely/entorm/log/logger"
)

// Options 日志配置
type Options = logger.SLogOptions

var defaultLogger logger.Logger

func init() {
	slog, err := logger.NewSLogWithOptions(&logger.SLogOptions{
		Level:  "info",
		Format: "text",
	})
	if err != nil {
		panic("failed to initialize default logger: " + err.Error())
	}
	defaultLogger = slog
}

// Default 返回默认日志器，输出 text 格式到 stdout
func Default() logger.Logger {
	return defaultLogger
}

// Nop 返回丢弃所有日志的日志器
func Nop() logger.Logger {
	return logger.NewNop()
}

// NewLoggerWithOptions 根据配置创建日志器，options 为 nil 时返回默认日志器
func NewLoggerWithOptions(options *Options) (logger.Logger, error) {
	if options == nil {
		return Default(), nil
	}
	return logger.NewSLogWithOptions(options)
}

// Close 关闭日志器持有的输出器，默认日志器不会被关闭
func Close(l logger.Logger) error {
	if l == nil || l == defaultLogger {
		return nil
	}
	if c, ok := l.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
