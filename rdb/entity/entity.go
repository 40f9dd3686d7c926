package entity

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/hatlonely/entorm/rdb"
	"github.com/hatlonely/entorm/rdb/schema"
)

// ColumnValue 有序的列名与列值
type ColumnValue struct {
	Column string
	Value  any
}

// Entity 绑定到一张表的行数据
// 列集合在创建后不会变化，只有列值可以修改，所有列初始为 nil
type Entity struct {
	table  *schema.Table
	values map[string]any
}

// New 根据表定义创建空实体
func New(table *schema.Table) *Entity {
	values := make(map[string]any, len(table.Columns))
	for _, c := range table.Columns {
		values[c.Name] = nil
	}
	return &Entity{table: table, values: values}
}

// Load 从 schema 来源加载表定义并创建空实体
func Load(source schema.Source, name string) (*Entity, error) {
	table, err := source.Load(name)
	if err != nil {
		return nil, err
	}
	return New(table), nil
}

// Name 实体名
func (e *Entity) Name() string {
	return e.table.Entity
}

func (e *Entity) TableName() string {
	return e.table.Name
}

func (e *Entity) Table() *schema.Table {
	return e.table
}

func (e *Entity) Constraints() schema.Constraints {
	return e.table.Constraints
}

// Get 读取列值，列未声明时返回 ErrAttribute
func (e *Entity) Get(column string) (any, error) {
	v, ok := e.values[column]
	if !ok {
		return nil, errors.Wrapf(rdb.ErrAttribute, "entity %s has no column %q", e.Name(), column)
	}
	return v, nil
}

// MustGet 与 Get 相同，列未声明时 panic
func (e *Entity) MustGet(column string) any {
	v, err := e.Get(column)
	if err != nil {
		panic(err)
	}
	return v
}

// Set 写入列值，不做类型转换
func (e *Entity) Set(column string, value any) error {
	if _, ok := e.values[column]; !ok {
		return errors.Wrapf(rdb.ErrAttribute, "entity %s has no column %q", e.Name(), column)
	}
	e.values[column] = value
	return nil
}

// SetValues 按列名批量写入，遇到未声明的列时不写入任何值
func (e *Entity) SetValues(values map[string]any) error {
	for column := range values {
		if _, ok := e.values[column]; !ok {
			return errors.Wrapf(rdb.ErrAttribute, "entity %s has no column %q", e.Name(), column)
		}
	}
	for column, value := range values {
		e.values[column] = value
	}
	return nil
}

// SetID 设置主键值
// 单列主键直接传值；多列主键传 map[string]any，键必须都是主键列
func (e *Entity) SetID(value any) error {
	key := e.table.PrimaryKey()
	if len(key) == 0 {
		return errors.Wrapf(rdb.ErrSchema, "entity %s has no primary key", e.Name())
	}
	if len(key) == 1 {
		if _, isMap := value.(map[string]any); !isMap {
			e.values[key[0]] = value
			return nil
		}
	}

	values, ok := value.(map[string]any)
	if !ok {
		return errors.Wrapf(rdb.ErrTypeMismatch, "entity %s: primary key (%s) requires map[string]any, got %T",
			e.Name(), strings.Join(key, ", "), value)
	}
	for column := range values {
		if !e.table.IsPrimary(column) {
			return errors.Wrapf(rdb.ErrTypeMismatch, "entity %s: %q is not one of the primary key columns (%s)",
				e.Name(), column, strings.Join(key, ", "))
		}
	}
	for column, v := range values {
		e.values[column] = v
	}
	return nil
}

// IDKey 主键列，没有主键时为空
func (e *Entity) IDKey() []string {
	return e.table.PrimaryKey()
}

// IDValue 与 IDKey 顺序一致的主键值
func (e *Entity) IDValue() []any {
	key := e.table.PrimaryKey()
	values := make([]any, len(key))
	for i, column := range key {
		values[i] = e.values[column]
	}
	return values
}

// IDKeyValue 主键列与值，用于构造 WHERE 条件
func (e *Entity) IDKeyValue() []ColumnValue {
	key := e.table.PrimaryKey()
	pairs := make([]ColumnValue, len(key))
	for i, column := range key {
		pairs[i] = ColumnValue{Column: column, Value: e.values[column]}
	}
	return pairs
}

// ColumnsExceptPrimary 非主键列与值，按声明顺序
func (e *Entity) ColumnsExceptPrimary() []ColumnValue {
	pairs := make([]ColumnValue, 0, len(e.table.Columns))
	for _, c := range e.table.Columns {
		if e.table.IsPrimary(c.Name) {
			continue
		}
		pairs = append(pairs, ColumnValue{Column: c.Name, Value: e.values[c.Name]})
	}
	return pairs
}

// Values 按声明顺序返回所有列值
func (e *Entity) Values() []any {
	values := make([]any, len(e.table.Columns))
	for i, c := range e.table.Columns {
		values[i] = e.values[c.Name]
	}
	return values
}

// Columns 按声明顺序返回列名
func (e *Entity) Columns() []string {
	return e.table.ColumnNames()
}

// ColumnsAttributes 列名到列定义的映射
func (e *Entity) ColumnsAttributes() map[string]schema.Column {
	attributes := make(map[string]schema.Column, len(e.table.Columns))
	for _, c := range e.table.Columns {
		attributes[c.Name] = c
	}
	return attributes
}

// ColumnsValue 列名到列值的映射，修改返回值不影响实体
func (e *Entity) ColumnsValue() map[string]any {
	values := make(map[string]any, len(e.values))
	for k, v := range e.values {
		values[k] = v
	}
	return values
}

// Clone 复制实体，列值浅拷贝
func (e *Entity) Clone() *Entity {
	return &Entity{table: e.table, values: e.ColumnsValue()}
}

// Equal 判断两个实体属于同一张表并且列值相同
func (e *Entity) Equal(other *Entity) bool {
	if other == nil || e.table != other.table {
		return false
	}
	return reflect.DeepEqual(e.values, other.values)
}

// Describe 返回多行描述，列名与类型按最大宽度对齐
//
//	[user]
//	  id    INT(11)      = 1
//	  name  VARCHAR(50)  = "Alice"
func (e *Entity) Describe() string {
	nameWidth, typeWidth := 0, 0
	for _, c := range e.table.Columns {
		nameWidth = max(nameWidth, len(c.Name))
		typeWidth = max(typeWidth, len(c.TypeWithSize()))
	}

	var b strings.Builder
	b.WriteString("[" + e.Name() + "]\n")
	for _, c := range e.table.Columns {
		fmt.Fprintf(&b, "  %-*s  %-*s  = %s\n", nameWidth, c.Name, typeWidth, c.TypeWithSize(), FormatValue(e.values[c.Name]))
	}
	return b.String()
}

func (e *Entity) String() string {
	return e.Describe()
}

// GoString 便于调试时查看列值
func (e *Entity) GoString() string {
	columns := make([]string, 0, len(e.values))
	for column := range e.values {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	parts := make([]string, len(columns))
	for i, column := range columns {
		parts[i] = column + ":" + FormatValue(e.values[column])
	}
	return e.Name() + "{" + strings.Join(parts, " ") + "}"
}
