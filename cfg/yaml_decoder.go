package cfg

import (
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// YamlDecoder YAML 格式解码器，基于 yaml.Node 保留映射的键顺序
type YamlDecoder struct{}

// Decode 将 YAML 数据解码为有序文档
func (d *YamlDecoder) Decode(data []byte) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	// 空文档
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return NewNode(), nil
	}

	value, err := d.convert(doc.Content[0])
	if err != nil {
		return nil, err
	}
	root, ok := value.(*Node)
	if !ok {
		return nil, errors.Errorf("yaml document root must be a mapping, got %T", value)
	}
	return root, nil
}

func (d *YamlDecoder) convert(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.AliasNode:
		return d.convert(node.Alias)
	case yaml.MappingNode:
		result := NewNode()
		for i := 0; i+1 < len(node.Content); i += 2 {
			value, err := d.convert(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			result.Set(node.Content[i].Value, value)
		}
		return result, nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(node.Content))
		for _, item := range node.Content {
			value, err := d.convert(item)
			if err != nil {
				return nil, err
			}
			items = append(items, value)
		}
		return items, nil
	case yaml.ScalarNode:
		var value any
		if err := node.Decode(&value); err != nil {
			return nil, errors.Wrapf(err, "line %d", node.Line)
		}
		return value, nil
	default:
		return nil, errors.Errorf("unsupported yaml node kind %v at line %d", node.Kind, node.Line)
	}
}
