package cfg

import (
	"strings"
)

// Node 有序的配置文档节点
// 映射保持键在文档中出现的顺序，值可以是标量、[]any 或者 *Node
type Node struct {
	keys   []string
	values map[string]any
}

// NewNode 创建一个空节点
func NewNode() *Node {
	return &Node{values: make(map[string]any)}
}

// Keys 按文档顺序返回所有键
func (n *Node) Keys() []string {
	if n == nil {
		return nil
	}
	keys := make([]string, len(n.keys))
	copy(keys, n.keys)
	return keys
}

// Len 返回键的数量
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	return len(n.keys)
}

// Has 判断键是否存在
func (n *Node) Has(key string) bool {
	if n == nil {
		return false
	}
	_, ok := n.values[key]
	return ok
}

// Get 获取直接子键的值
func (n *Node) Get(key string) (any, bool) {
	if n == nil {
		return nil, false
	}
	v, ok := n.values[key]
	return v, ok
}

// Set 设置直接子键的值，新键追加到末尾，已有键保持原位置
func (n *Node) Set(key string, value any) {
	if _, ok := n.values[key]; !ok {
		n.keys = append(n.keys, key)
	}
	n.values[key] = value
}

// Lookup 按点号分隔的路径获取值，例如 "table.foreignKey.fk_user"
func (n *Node) Lookup(path string) (any, bool) {
	if path == "" {
		return n, n != nil
	}
	current := n
	parts := strings.Split(path, ".")
	for i, part := range parts {
		v, ok := current.Get(part)
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		child, ok := v.(*Node)
		if !ok {
			return nil, false
		}
		current = child
	}
	return nil, false
}

// Sub 获取路径对应的子节点，路径不存在或者不是映射时返回 nil
func (n *Node) Sub(path string) *Node {
	v, ok := n.Lookup(path)
	if !ok {
		return nil
	}
	child, _ := v.(*Node)
	return child
}

// Child 获取或创建直接子节点，已有的标量值会被替换
func (n *Node) Child(key string) *Node {
	if v, ok := n.values[key]; ok {
		if child, ok := v.(*Node); ok {
			return child
		}
	}
	child := NewNode()
	n.Set(key, child)
	return child
}

// SetPath 按点号分隔的路径设置值，中间节点不存在时自动创建
func (n *Node) SetPath(path string, value any) {
	parts := strings.Split(path, ".")
	current := n
	for _, part := range parts[:len(parts)-1] {
		current = current.Child(part)
	}
	last := parts[len(parts)-1]
	if child, ok := value.(*Node); ok {
		if existing, ok := current.values[last].(*Node); ok {
			existing.Merge(child)
			return
		}
	}
	current.Set(last, value)
}

// Merge 将 other 的键按顺序合并进当前节点
func (n *Node) Merge(other *Node) {
	if other == nil {
		return
	}
	for _, key := range other.keys {
		n.SetPath(key, other.values[key])
	}
}

// Map 转换成普通的 map，丢失键顺序
func (n *Node) Map() map[string]any {
	if n == nil {
		return nil
	}
	result := make(map[string]any, len(n.keys))
	for _, key := range n.keys {
		result[key] = plain(n.values[key])
	}
	return result
}

func plain(v any) any {
	switch t := v.(type) {
	case *Node:
		return t.Map()
	case []any:
		items := make([]any, len(t))
		for i, item := range t {
			items[i] = plain(item)
		}
		return items
	default:
		return v
	}
}
