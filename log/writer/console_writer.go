package writer

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// ConsoleWriterOptions 控制台输出配置
type ConsoleWriterOptions struct {
	// 输出目标：stdout, stderr
	Target string `cfg:"target" def:"stdout" validate:"omitempty,oneof=stdout stderr"`
}

// ConsoleWriter 控制台输出器
type ConsoleWriter struct {
	writer io.Writer
}

func NewConsoleWriterWithOptions(options *ConsoleWriterOptions) (*ConsoleWriter, error) {
	if options == nil {
		options = &ConsoleWriterOptions{Target: "stdout"}
	}

	switch options.Target {
	case "stdout", "":
		return &ConsoleWriter{writer: os.Stdout}, nil
	case "stderr":
		return &ConsoleWriter{writer: os.Stderr}, nil
	default:
		return nil, errors.Errorf("unsupported console target %q", options.Target)
	}
}

func (c *ConsoleWriter) Write(p []byte) (int, error) {
	return c.writer.Write(p)
}

// Close 控制台不需要关闭
func (c *ConsoleWriter) Close() error {
	return nil
}
