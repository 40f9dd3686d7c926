package entity

import (
	"fmt"
	"iter"
	"strings"

	"github.com/pkg/errors"

	"github.com/hatlonely/entorm/rdb"
)

// ruleWidth 集合描述中实体之间分隔线的宽度
const ruleWidth = 116

// Collection 按插入顺序保存实体，并按主键去重
// 实体加入后修改其主键值不会更新索引
type Collection struct {
	entities []*Entity
	index    map[string]int
	position int
}

func NewCollection() *Collection {
	return &Collection{index: make(map[string]int)}
}

// Add 追加实体，主键已存在时返回 ErrDuplicateKey 且集合不变
func (c *Collection) Add(e *Entity) error {
	if e == nil {
		return errors.New("entity is nil")
	}
	if len(e.IDKey()) == 0 {
		return errors.Wrapf(rdb.ErrSchema, "entity %s has no primary key", e.Name())
	}
	if len(c.entities) > 0 && c.entities[0].Name() != e.Name() {
		return errors.Wrapf(rdb.ErrSchema, "collection of %s cannot hold entity %s", c.entities[0].Name(), e.Name())
	}

	key := EncodeKey(e.IDValue())
	if _, ok := c.index[key]; ok {
		return errors.Wrapf(rdb.ErrDuplicateKey, "entity %s id %v", e.Name(), formatID(e.IDValue()))
	}
	c.index[key] = len(c.entities)
	c.entities = append(c.entities, e)
	return nil
}

// GetByID 按主键查找，多列主键按 IDKey 的顺序传入
// 也可以直接传入 IDValue() 的结果
func (c *Collection) GetByID(id ...any) (*Entity, error) {
	if len(id) == 1 {
		if values, ok := id[0].([]any); ok {
			id = values
		}
	}
	i, ok := c.index[EncodeKey(id)]
	if !ok {
		return nil, errors.Wrapf(rdb.ErrNotFound, "id %v", formatID(id))
	}
	return c.entities[i], nil
}

// GetByIndex 按位置查找
func (c *Collection) GetByIndex(i int) (*Entity, error) {
	if i < 0 || i >= len(c.entities) {
		return nil, errors.Wrapf(rdb.ErrIndex, "index %d, count %d", i, len(c.entities))
	}
	return c.entities[i], nil
}

// Remove 删除指定位置的实体，后面的实体依次前移
func (c *Collection) Remove(i int) error {
	if i < 0 || i >= len(c.entities) {
		return errors.Wrapf(rdb.ErrIndex, "index %d, count %d", i, len(c.entities))
	}
	c.entities = append(c.entities[:i], c.entities[i+1:]...)
	c.index = make(map[string]int, len(c.entities))
	for pos, e := range c.entities {
		c.index[EncodeKey(e.IDValue())] = pos
	}
	if i < c.position {
		c.position--
	}
	return nil
}

func (c *Collection) Count() int {
	return len(c.entities)
}

// Rewind 将游标移到起始位置
func (c *Collection) Rewind() {
	c.position = 0
}

// Valid 游标是否指向一个实体
func (c *Collection) Valid() bool {
	return c.position >= 0 && c.position < len(c.entities)
}

// Current 返回游标处的实体，游标无效时返回 nil
func (c *Collection) Current() *Entity {
	if !c.Valid() {
		return nil
	}
	return c.entities[c.position]
}

// Key 返回游标位置
func (c *Collection) Key() int {
	return c.position
}

func (c *Collection) Next() {
	c.position++
}

// Seek 将游标移到指定位置，位置无效时返回 ErrIndex 且游标不变
func (c *Collection) Seek(pos int) error {
	if pos < 0 || pos >= len(c.entities) {
		return errors.Wrapf(rdb.ErrIndex, "seek %d, count %d", pos, len(c.entities))
	}
	c.position = pos
	return nil
}

// All 按插入顺序遍历，不影响游标
func (c *Collection) All() iter.Seq2[int, *Entity] {
	return func(yield func(int, *Entity) bool) {
		for i, e := range c.entities {
			if !yield(i, e) {
				return
			}
		}
	}
}

// Entities 返回实体列表的拷贝
func (c *Collection) Entities() []*Entity {
	entities := make([]*Entity, len(c.entities))
	copy(entities, c.entities)
	return entities
}

// Describe 返回集合的多行描述，空集合无法确定实体名，返回 ErrIndex
func (c *Collection) Describe() (string, error) {
	if len(c.entities) == 0 {
		return "", errors.Wrap(rdb.ErrIndex, "describe empty collection")
	}

	rule := strings.Repeat("-", ruleWidth) + "\n"
	var b strings.Builder
	fmt.Fprintf(&b, "Collection of (%d) %s entity\n", len(c.entities), c.entities[0].Name())
	for _, e := range c.entities {
		b.WriteString(rule)
		b.WriteString(e.Describe())
	}
	b.WriteString(rule)
	return b.String(), nil
}

func (c *Collection) String() string {
	s, err := c.Describe()
	if err != nil {
		return "Collection of (0) entity\n"
	}
	return s
}

func formatID(id []any) string {
	parts := make([]string, len(id))
	for i, v := range id {
		parts[i] = FormatValue(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
