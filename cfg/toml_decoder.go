package cfg

import (
	"sort"

	"github.com/BurntSushi/toml"
)

// TomlDecoder TOML 格式解码器，借助 MetaData.Keys 恢复键在文档中的顺序
type TomlDecoder struct{}

// Decode 将 TOML 数据解码为有序文档
func (d *TomlDecoder) Decode(data []byte) (*Node, error) {
	var raw map[string]any
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, err
	}

	root := NewNode()
	for _, key := range md.Keys() {
		value, ok := lookupTOML(raw, key)
		if !ok {
			continue
		}

		parent := root
		for _, part := range key[:len(key)-1] {
			parent = parent.Child(part)
		}
		last := key[len(key)-1]

		if _, isTable := value.(map[string]any); isTable {
			parent.Child(last)
			continue
		}
		parent.Set(last, convertTOML(value))
	}

	// MetaData.Keys 不一定覆盖内联表的键，缺失的键按字典序补齐
	fillTOML(root, raw)
	return root, nil
}

func fillTOML(node *Node, raw map[string]any) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		existing, ok := node.Get(k)
		if !ok {
			node.Set(k, convertTOML(raw[k]))
			continue
		}
		child, isNode := existing.(*Node)
		table, isTable := raw[k].(map[string]any)
		if isNode && isTable {
			fillTOML(child, table)
		}
	}
}

// lookupTOML 按 key 路径查找值，路径经过表数组时返回 false，表数组整体在上层处理
func lookupTOML(raw map[string]any, key toml.Key) (any, bool) {
	var current any = raw
	for _, part := range key {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func convertTOML(value any) any {
	switch v := value.(type) {
	case map[string]any:
		node := NewNode()
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			node.Set(k, convertTOML(v[k]))
		}
		return node
	case []map[string]any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = convertTOML(item)
		}
		return items
	case []any:
		items := make([]any, len(v))
		for i, item := range v {
			items[i] = convertTOML(item)
		}
		return items
	default:
		return v
	}
}
