package cfg

import (
	"gopkg.in/ini.v1"
)

// IniDecoder INI 格式解码器
// section 名和键名中的点号表示嵌套，例如 [table.foreignKey.fk_user]
type IniDecoder struct {
	// AllowBoolKeys 允许没有值的键，值视为 true
	AllowBoolKeys bool
	// Typed 是否将值转换为 bool/整数/浮点数
	Typed bool
}

// NewIniDecoder 创建新的 INI 解码器
func NewIniDecoder() *IniDecoder {
	return &IniDecoder{
		AllowBoolKeys: true,
		Typed:         true,
	}
}

// Decode 将 INI 数据解码为有序文档
func (d *IniDecoder) Decode(data []byte) (*Node, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:         d.AllowBoolKeys,
		SpaceBeforeInlineComment: true,
	}, data)
	if err != nil {
		return nil, err
	}

	root := NewNode()
	for _, section := range file.Sections() {
		target := root
		if section.Name() != ini.DefaultSection {
			target = NewNode()
		}

		for _, key := range section.Keys() {
			target.SetPath(key.Name(), d.value(key))
		}

		if section.Name() != ini.DefaultSection {
			root.SetPath(section.Name(), target)
		}
	}

	return root, nil
}

func (d *IniDecoder) value(key *ini.Key) any {
	value := key.String()
	if !d.Typed || value == "" {
		return value
	}
	return parseScalar(value)
}
