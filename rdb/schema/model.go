package schema

import (
	"strings"
)

// ColumnType 列的 SQL 类型，统一为大写，例如 INT、VARCHAR、DECIMAL
type ColumnType string

// DefaultKind 列默认值的种类
type DefaultKind int

const (
	// DefaultNone 没有默认值
	DefaultNone DefaultKind = iota
	// DefaultNull 默认值为 NULL
	DefaultNull
	// DefaultValue 字面量默认值，DDL 中按类型输出
	DefaultValue
	// DefaultExpression 表达式默认值，例如 CURRENT_TIMESTAMP，DDL 中原样输出
	DefaultExpression
)

// Default 列默认值
type Default struct {
	Kind  DefaultKind
	Value any
}

// Column 列定义，解析后不可修改
type Column struct {
	Name          string
	Type          ColumnType
	Size          string // 显示宽度或者精度，例如 "11"、"10,2"，为空表示没有
	Nullable      bool
	Default       Default
	Unsigned      bool
	AutoIncrement bool
	Storage       string
	Comment       string
}

// TypeWithSize 返回 type(size)，没有 size 时只返回 type
func (c Column) TypeWithSize() string {
	if c.Size == "" {
		return string(c.Type)
	}
	return string(c.Type) + "(" + c.Size + ")"
}

// Key 命名的列组合，用于主键与唯一键
type Key struct {
	Name    string
	Columns []string
}

// ForeignKey 外键约束，Match/OnDelete/OnUpdate 为空时 DDL 中不输出
type ForeignKey struct {
	Name       string
	Columns    []string
	RefTable   string
	RefColumns []string
	Match      string
	OnDelete   string
	OnUpdate   string
}

// Constraints 表约束集合
type Constraints struct {
	Primary     *Key
	Unique      *Key
	UniqueKeys  []Key
	ForeignKeys []ForeignKey // 按在定义中首次出现的顺序
}

// ForeignKey 按约束名查找外键
func (c Constraints) ForeignKey(name string) (ForeignKey, bool) {
	for _, fk := range c.ForeignKeys {
		if fk.Name == name {
			return fk, true
		}
	}
	return ForeignKey{}, false
}

// Table 表定义
type Table struct {
	Entity      string
	Name        string
	Engine      string
	Charset     string
	Collation   string
	Comment     string
	Columns     []Column
	Constraints Constraints

	index map[string]int
}

// Column 按列名查找列定义
func (t *Table) Column(name string) (Column, bool) {
	if t.index == nil {
		t.buildIndex()
	}
	i, ok := t.index[name]
	if !ok {
		return Column{}, false
	}
	return t.Columns[i], true
}

// HasColumn 判断列是否声明
func (t *Table) HasColumn(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// ColumnNames 按声明顺序返回列名
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// PrimaryKey 返回主键列，没有主键时返回空
func (t *Table) PrimaryKey() []string {
	if t.Constraints.Primary == nil {
		return nil
	}
	columns := make([]string, len(t.Constraints.Primary.Columns))
	copy(columns, t.Constraints.Primary.Columns)
	return columns
}

// IsPrimary 判断列是否属于主键
func (t *Table) IsPrimary(name string) bool {
	if t.Constraints.Primary == nil {
		return false
	}
	for _, c := range t.Constraints.Primary.Columns {
		if c == name {
			return true
		}
	}
	return false
}

func (t *Table) buildIndex() {
	t.index = make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		t.index[c.Name] = i
	}
}

// String 返回表的简要描述，例如 users(id INT(11), name VARCHAR(50))
func (t *Table) String() string {
	var b strings.Builder
	b.WriteString(t.Name)
	b.WriteString("(")
	for i, c := range t.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(c.Name)
		b.WriteString(" ")
		b.WriteString(c.TypeWithSize())
	}
	b.WriteString(")")
	return b.String()
}
