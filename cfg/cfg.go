package cfg

import (
	"os"

	"github.com/pkg/errors"
)

// ReadFile 读取文件并按扩展名解码为有序文档
func ReadFile(filename string, opts ...DecodeOption) (*Node, error) {
	format, err := FormatOf(filename)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "read file %s failed", filename)
	}
	node, err := Decode(data, format, opts...)
	if err != nil {
		return nil, errors.WithMessagef(err, "file %s", filename)
	}
	return node, nil
}

// Load 读取配置文件并绑定到 object
// 流程: 解码 -> 绑定 -> 填充默认值 -> 校验
func Load(filename string, object any) error {
	node, err := ReadFile(filename)
	if err != nil {
		return err
	}
	return Bind(node, object)
}

// Bind 将文档绑定到 object，并填充默认值与校验
func Bind(node *Node, object any) error {
	if err := node.ConvertTo(object); err != nil {
		return errors.WithMessage(err, "convert config failed")
	}
	if err := SetDefaults(object); err != nil {
		return errors.WithMessage(err, "set defaults failed")
	}
	if err := Validate(object); err != nil {
		return errors.WithMessage(err, "validate config failed")
	}
	return nil
}
