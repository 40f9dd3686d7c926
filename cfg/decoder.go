package cfg

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Format 配置文件格式
type Format string

const (
	FormatINI  Format = "ini"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// Extensions 返回支持的文件扩展名，按查找优先级排列
func Extensions() []string {
	return []string{".ini", ".yaml", ".yml", ".toml", ".json"}
}

// FormatOf 根据文件扩展名推断格式
func FormatOf(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".ini", ".conf":
		return FormatINI, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", errors.Errorf("unsupported config file extension %q", filepath.Ext(filename))
	}
}

// Decoder 将原始数据解码为有序文档
type Decoder interface {
	Decode(data []byte) (*Node, error)
}

type decodeOptions struct {
	untyped bool
}

type DecodeOption func(*decodeOptions)

// WithUntyped INI 的值保持原始字符串，不尝试转换为 bool/整数/浮点数
// 其他格式自带类型，不受影响
func WithUntyped() DecodeOption {
	return func(o *decodeOptions) {
		o.untyped = true
	}
}

// NewDecoder 根据格式创建解码器
func NewDecoder(format Format, opts ...DecodeOption) (Decoder, error) {
	var options decodeOptions
	for _, opt := range opts {
		opt(&options)
	}

	switch format {
	case FormatINI:
		decoder := NewIniDecoder()
		decoder.Typed = !options.untyped
		return decoder, nil
	case FormatYAML:
		return &YamlDecoder{}, nil
	case FormatTOML:
		return &TomlDecoder{}, nil
	case FormatJSON:
		return &JsonDecoder{}, nil
	default:
		return nil, errors.Errorf("unsupported format %q", format)
	}
}

// Decode 按指定格式解码
func Decode(data []byte, format Format, opts ...DecodeOption) (*Node, error) {
	decoder, err := NewDecoder(format, opts...)
	if err != nil {
		return nil, err
	}
	node, err := decoder.Decode(data)
	if err != nil {
		return nil, errors.WithMessagef(err, "decode %s failed", format)
	}
	return node, nil
}

// parseScalar 将字符串尝试转换为 bool、整数或者浮点数
func parseScalar(value string) any {
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}
