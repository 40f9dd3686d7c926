package writer

import (
	"io"

	"github.com/pkg/errors"
)

// Writer 日志输出器接口
type Writer interface {
	io.Writer
	io.Closer
}

// Options 输出器配置，Type 选择 console、file 或 multi
type Options struct {
	Type    string               `cfg:"type" def:"console" validate:"omitempty,oneof=console file multi"`
	Console ConsoleWriterOptions `cfg:"console"`
	File    FileWriterOptions    `cfg:"file"`
	// Writers 仅在 multi 类型下生效
	Writers []Options `cfg:"writers"`
}

// NewWriterWithOptions 根据类型创建输出器，nil 或空类型默认输出到 stdout
func NewWriterWithOptions(options *Options) (Writer, error) {
	if options == nil {
		return NewConsoleWriterWithOptions(nil)
	}
	switch options.Type {
	case "console", "":
		return NewConsoleWriterWithOptions(&options.Console)
	case "file":
		return NewFileWriterWithOptions(&options.File)
	case "multi":
		return NewMultiWriterWithOptions(&MultiWriterOptions{Writers: options.Writers})
	default:
		return nil, errors.Errorf("unsupported writer type %q", options.Type)
	}
}
