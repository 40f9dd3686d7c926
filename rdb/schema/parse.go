package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/hatlonely/entorm/cfg"
	"github.com/hatlonely/entorm/rdb"
)

// TableKey 定义中保留给表元数据的顶层键，其余顶层键都是列
const TableKey = "table"

// DefaultEngine 未指定 engine 时使用的存储引擎
const DefaultEngine = "InnoDB"

var (
	identifierRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)
	typeRegex       = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_ ]*$`)
	sizeRegex       = regexp.MustCompile(`^\s*(\d+)\s*(?:,\s*(\d+)\s*)?$`)
)

var defaultExpressions = map[string]bool{
	"CURRENT_TIMESTAMP": true,
	"CURRENT_DATE":      true,
	"CURRENT_TIME":      true,
	"LOCALTIME":         true,
	"LOCALTIMESTAMP":    true,
	"NOW()":             true,
}

var tableAttributes = map[string]bool{
	"name": true, "engine": true, "charset": true, "collation": true, "comment": true,
	"primaryKey": true, "primaryKeyName": true, "unique": true, "uniqueName": true,
	"uniqueKeys": true, "foreignKey": true,
}

var columnAttributes = map[string]bool{
	"type": true, "size": true, "nullable": true, "default": true, "unsigned": true,
	"autoIncrement": true, "storage": true, "comment": true,
}

var referentialActions = map[string]bool{
	"RESTRICT": true, "CASCADE": true, "SET NULL": true, "NO ACTION": true, "SET DEFAULT": true,
}

var matchTypes = map[string]bool{
	"FULL": true, "PARTIAL": true, "SIMPLE": true,
}

// ValidIdentifier 判断名字能否作为表名、列名或者约束名
func ValidIdentifier(name string) bool {
	return identifierRegex.MatchString(name)
}

// Parse 将实体的定义文档解析为表定义
// 除 table 外的顶层键按文档顺序解析为列，table 下的属性解析为表元数据与约束
func Parse(entity string, doc *cfg.Node) (*Table, error) {
	if doc == nil {
		return nil, errors.Wrapf(rdb.ErrSchema, "entity %s: empty definition", entity)
	}

	tableNode := doc.Sub(TableKey)
	if tableNode == nil {
		return nil, errors.Wrapf(rdb.ErrSchema, "entity %s: missing [%s] section", entity, TableKey)
	}

	table := &Table{Entity: entity}
	if err := parseTableMeta(table, tableNode); err != nil {
		return nil, errors.WithMessagef(err, "entity %s", entity)
	}

	for _, key := range doc.Keys() {
		if key == TableKey {
			continue
		}
		value, _ := doc.Get(key)
		node, ok := value.(*cfg.Node)
		if !ok {
			return nil, errors.Wrapf(rdb.ErrSchema, "entity %s: column %s must be a section, got %T", entity, key, value)
		}
		column, err := parseColumn(key, node)
		if err != nil {
			return nil, errors.WithMessagef(err, "entity %s", entity)
		}
		table.Columns = append(table.Columns, column)
	}
	if len(table.Columns) == 0 {
		return nil, errors.Wrapf(rdb.ErrSchema, "entity %s: no column declared", entity)
	}
	table.buildIndex()

	if err := parseConstraints(table, tableNode); err != nil {
		return nil, errors.WithMessagef(err, "entity %s", entity)
	}
	if err := requirePrimaryNotNull(table, doc); err != nil {
		return nil, errors.WithMessagef(err, "entity %s", entity)
	}

	return table, nil
}

// ParseData 解码定义文档后解析
func ParseData(entity string, data []byte, format cfg.Format) (*Table, error) {
	doc, err := Decode(data, format)
	if err != nil {
		return nil, errors.Wrapf(rdb.ErrSchema, "entity %s: %v", entity, err)
	}
	return Parse(entity, doc)
}

// Decode 解码定义文档，INI 的值保持原始字符串，由各属性自行转换
// 例如 default = 007 保留前导零
func Decode(data []byte, format cfg.Format) (*cfg.Node, error) {
	return cfg.Decode(data, format, cfg.WithUntyped())
}

// requirePrimaryNotNull 主键列总是 NOT NULL，显式声明 nullable = true 视为错误
func requirePrimaryNotNull(table *Table, doc *cfg.Node) error {
	for _, name := range table.PrimaryKey() {
		nullable, ok, err := boolAttr(doc.Sub(name), "nullable")
		if err != nil {
			return errors.WithMessagef(err, "column %s", name)
		}
		if ok && nullable {
			return errors.Wrapf(rdb.ErrSchema, "primary key column %s cannot be nullable", name)
		}
		table.Columns[table.index[name]].Nullable = false
	}
	return nil
}

func parseTableMeta(table *Table, node *cfg.Node) error {
	for _, key := range node.Keys() {
		if !tableAttributes[key] {
			return errors.Wrapf(rdb.ErrSchema, "unknown table attribute %q", key)
		}
	}

	name, ok, err := stringAttr(node, "name")
	if err != nil {
		return err
	}
	if !ok || name == "" {
		return errors.Wrap(rdb.ErrSchema, "missing table name")
	}
	if !ValidIdentifier(name) {
		return errors.Wrapf(rdb.ErrSchema, "invalid table name %q", name)
	}
	table.Name = name

	if table.Engine, _, err = stringAttr(node, "engine"); err != nil {
		return err
	}
	if table.Engine == "" {
		table.Engine = DefaultEngine
	}
	if table.Charset, _, err = stringAttr(node, "charset"); err != nil {
		return err
	}
	if table.Collation, _, err = stringAttr(node, "collation"); err != nil {
		return err
	}
	if table.Comment, _, err = stringAttr(node, "comment"); err != nil {
		return err
	}
	for _, v := range []string{table.Engine, table.Charset, table.Collation} {
		if v != "" && !ValidIdentifier(v) {
			return errors.Wrapf(rdb.ErrSchema, "invalid table option %q", v)
		}
	}
	return nil
}

func parseColumn(name string, node *cfg.Node) (Column, error) {
	if !ValidIdentifier(name) {
		return Column{}, errors.Wrapf(rdb.ErrSchema, "invalid column name %q", name)
	}
	for _, key := range node.Keys() {
		if !columnAttributes[key] {
			return Column{}, errors.Wrapf(rdb.ErrSchema, "column %s: unknown attribute %q", name, key)
		}
	}

	column := Column{Name: name, Nullable: true}

	typ, ok, err := stringAttr(node, "type")
	if err != nil {
		return Column{}, errors.WithMessagef(err, "column %s", name)
	}
	if !ok || !typeRegex.MatchString(typ) {
		return Column{}, errors.Wrapf(rdb.ErrSchema, "column %s: invalid type %q", name, typ)
	}
	column.Type = ColumnType(strings.ToUpper(strings.Join(strings.Fields(typ), " ")))

	if column.Size, err = sizeAttr(node); err != nil {
		return Column{}, errors.WithMessagef(err, "column %s", name)
	}
	if v, ok, err := boolAttr(node, "nullable"); err != nil {
		return Column{}, errors.WithMessagef(err, "column %s", name)
	} else if ok {
		column.Nullable = v
	}
	if column.Unsigned, _, err = boolAttr(node, "unsigned"); err != nil {
		return Column{}, errors.WithMessagef(err, "column %s", name)
	}
	if column.AutoIncrement, _, err = boolAttr(node, "autoIncrement"); err != nil {
		return Column{}, errors.WithMessagef(err, "column %s", name)
	}
	if column.Storage, _, err = stringAttr(node, "storage"); err != nil {
		return Column{}, errors.WithMessagef(err, "column %s", name)
	}
	column.Storage = strings.ToUpper(column.Storage)
	if column.Storage != "" && column.Storage != "DISK" && column.Storage != "MEMORY" {
		return Column{}, errors.Wrapf(rdb.ErrSchema, "column %s: invalid storage %q", name, column.Storage)
	}
	if column.Comment, _, err = stringAttr(node, "comment"); err != nil {
		return Column{}, errors.WithMessagef(err, "column %s", name)
	}
	if value, ok := node.Get("default"); ok {
		column.Default = parseDefault(value)
	}

	return column, nil
}

func parseDefault(value any) Default {
	if value == nil {
		return Default{Kind: DefaultNull}
	}
	s, ok := value.(string)
	if !ok {
		return Default{Kind: DefaultValue, Value: value}
	}
	upper := strings.ToUpper(strings.TrimSpace(s))
	if upper == "NULL" {
		return Default{Kind: DefaultNull}
	}
	if defaultExpressions[upper] {
		return Default{Kind: DefaultExpression, Value: upper}
	}
	return Default{Kind: DefaultValue, Value: s}
}

func parseConstraints(table *Table, node *cfg.Node) error {
	tableName := table.Name

	columns, ok, err := listAttr(node, "primaryKey")
	if err != nil {
		return err
	}
	if ok {
		name, err := constraintName(node, "primaryKeyName", "pk_"+tableName)
		if err != nil {
			return err
		}
		if err := checkColumns(table, "primary key", columns); err != nil {
			return err
		}
		table.Constraints.Primary = &Key{Name: name, Columns: columns}
	}

	columns, ok, err = listAttr(node, "unique")
	if err != nil {
		return err
	}
	if ok {
		name, err := constraintName(node, "uniqueName", "uq_"+tableName)
		if err != nil {
			return err
		}
		if err := checkColumns(table, "unique key", columns); err != nil {
			return err
		}
		table.Constraints.Unique = &Key{Name: name, Columns: columns}
	}

	if v, ok := node.Get("uniqueKeys"); ok {
		keys, isNode := v.(*cfg.Node)
		if !isNode {
			return errors.Wrapf(rdb.ErrSchema, "uniqueKeys must be a section, got %T", v)
		}
		for _, name := range keys.Keys() {
			if !ValidIdentifier(name) {
				return errors.Wrapf(rdb.ErrSchema, "invalid unique key name %q", name)
			}
			columns, _, err := listAttr(keys, name)
			if err != nil {
				return err
			}
			if err := checkColumns(table, "unique key "+name, columns); err != nil {
				return err
			}
			table.Constraints.UniqueKeys = append(table.Constraints.UniqueKeys, Key{Name: name, Columns: columns})
		}
	}

	if v, ok := node.Get("foreignKey"); ok {
		fks, isNode := v.(*cfg.Node)
		if !isNode {
			return errors.Wrapf(rdb.ErrSchema, "foreignKey must be a section, got %T", v)
		}
		for _, name := range fks.Keys() {
			fk, err := parseForeignKey(table, name, fks.Sub(name))
			if err != nil {
				return err
			}
			table.Constraints.ForeignKeys = append(table.Constraints.ForeignKeys, fk)
		}
	}

	return nil
}

func parseForeignKey(table *Table, name string, node *cfg.Node) (ForeignKey, error) {
	if !ValidIdentifier(name) {
		return ForeignKey{}, errors.Wrapf(rdb.ErrSchema, "invalid foreign key name %q", name)
	}
	if node == nil {
		return ForeignKey{}, errors.Wrapf(rdb.ErrSchema, "foreign key %s must be a section", name)
	}

	fk := ForeignKey{Name: name}
	var ok bool
	var err error

	if fk.Columns, ok, err = listAttr(node, "columns"); err != nil {
		return ForeignKey{}, errors.WithMessagef(err, "foreign key %s", name)
	} else if !ok {
		return ForeignKey{}, errors.Wrapf(rdb.ErrSchema, "foreign key %s: missing columns", name)
	}
	if err := checkColumns(table, "foreign key "+name, fk.Columns); err != nil {
		return ForeignKey{}, err
	}

	if fk.RefTable, ok, err = stringAttr(node, "refTable"); err != nil {
		return ForeignKey{}, errors.WithMessagef(err, "foreign key %s", name)
	} else if !ok || !ValidIdentifier(fk.RefTable) {
		return ForeignKey{}, errors.Wrapf(rdb.ErrSchema, "foreign key %s: invalid refTable %q", name, fk.RefTable)
	}

	if fk.RefColumns, ok, err = listAttr(node, "refColumns"); err != nil {
		return ForeignKey{}, errors.WithMessagef(err, "foreign key %s", name)
	} else if !ok {
		return ForeignKey{}, errors.Wrapf(rdb.ErrSchema, "foreign key %s: missing refColumns", name)
	}
	for _, c := range fk.RefColumns {
		if !ValidIdentifier(c) {
			return ForeignKey{}, errors.Wrapf(rdb.ErrSchema, "foreign key %s: invalid ref column %q", name, c)
		}
	}
	if len(fk.RefColumns) != len(fk.Columns) {
		return ForeignKey{}, errors.Wrapf(rdb.ErrSchema, "foreign key %s: %d columns reference %d columns",
			name, len(fk.Columns), len(fk.RefColumns))
	}

	if fk.Match, err = keywordAttr(node, "match", matchTypes); err != nil {
		return ForeignKey{}, errors.WithMessagef(err, "foreign key %s", name)
	}
	if fk.OnDelete, err = keywordAttr(node, "onDelete", referentialActions); err != nil {
		return ForeignKey{}, errors.WithMessagef(err, "foreign key %s", name)
	}
	if fk.OnUpdate, err = keywordAttr(node, "onUpdate", referentialActions); err != nil {
		return ForeignKey{}, errors.WithMessagef(err, "foreign key %s", name)
	}

	return fk, nil
}

func checkColumns(table *Table, what string, columns []string) error {
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		if !table.HasColumn(c) {
			return errors.Wrapf(rdb.ErrSchema, "%s references undeclared column %q", what, c)
		}
		if seen[c] {
			return errors.Wrapf(rdb.ErrSchema, "%s lists column %q twice", what, c)
		}
		seen[c] = true
	}
	return nil
}

func constraintName(node *cfg.Node, key string, fallback string) (string, error) {
	name, ok, err := stringAttr(node, key)
	if err != nil {
		return "", err
	}
	if !ok || name == "" {
		return fallback, nil
	}
	if !ValidIdentifier(name) {
		return "", errors.Wrapf(rdb.ErrSchema, "invalid constraint name %q", name)
	}
	return name, nil
}

func stringAttr(node *cfg.Node, key string) (string, bool, error) {
	v, ok := node.Get(key)
	if !ok || v == nil {
		return "", false, nil
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true, nil
	case int64, int, uint64, float64, bool:
		return fmt.Sprint(t), true, nil
	default:
		return "", false, errors.Wrapf(rdb.ErrSchema, "attribute %s must be a string, got %T", key, v)
	}
}

func boolAttr(node *cfg.Node, key string) (bool, bool, error) {
	v, ok := node.Get(key)
	if !ok || v == nil {
		return false, false, nil
	}
	switch t := v.(type) {
	case bool:
		return t, true, nil
	case int64:
		if t == 0 || t == 1 {
			return t == 1, true, nil
		}
	case int:
		if t == 0 || t == 1 {
			return t == 1, true, nil
		}
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return b, true, nil
		}
	}
	return false, false, errors.Wrapf(rdb.ErrSchema, "attribute %s must be a bool, got %v", key, v)
}

// listAttr 读取列名列表，支持逗号分隔的字符串或者数组
func listAttr(node *cfg.Node, key string) ([]string, bool, error) {
	v, ok := node.Get(key)
	if !ok || v == nil {
		return nil, false, nil
	}

	var items []string
	switch t := v.(type) {
	case string:
		items = strings.Split(t, ",")
	case []any:
		for _, item := range t {
			s, isString := item.(string)
			if !isString {
				return nil, false, errors.Wrapf(rdb.ErrSchema, "attribute %s: column name must be a string, got %T", key, item)
			}
			items = append(items, s)
		}
	default:
		return nil, false, errors.Wrapf(rdb.ErrSchema, "attribute %s must be a column list, got %T", key, v)
	}

	columns := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if !ValidIdentifier(item) {
			return nil, false, errors.Wrapf(rdb.ErrSchema, "attribute %s: invalid column name %q", key, item)
		}
		columns = append(columns, item)
	}
	if len(columns) == 0 {
		return nil, false, errors.Wrapf(rdb.ErrSchema, "attribute %s: empty column list", key)
	}
	return columns, true, nil
}

func sizeAttr(node *cfg.Node) (string, error) {
	v, ok := node.Get("size")
	if !ok || v == nil {
		return "", nil
	}
	switch t := v.(type) {
	case int64:
		if t > 0 {
			return strconv.FormatInt(t, 10), nil
		}
	case int:
		if t > 0 {
			return strconv.Itoa(t), nil
		}
	case string:
		if m := sizeRegex.FindStringSubmatch(t); m != nil {
			if m[2] == "" {
				return m[1], nil
			}
			return m[1] + "," + m[2], nil
		}
	case []any:
		if len(t) == 2 {
			p, pok := t[0].(int64)
			s, sok := t[1].(int64)
			if pok && sok && p > 0 && s >= 0 {
				return fmt.Sprintf("%d,%d", p, s), nil
			}
		}
	}
	return "", errors.Wrapf(rdb.ErrSchema, "invalid size %v", v)
}

func keywordAttr(node *cfg.Node, key string, allowed map[string]bool) (string, error) {
	v, ok, err := stringAttr(node, key)
	if err != nil || !ok {
		return "", err
	}
	v = strings.ToUpper(strings.Join(strings.Fields(v), " "))
	if !allowed[v] {
		return "", errors.Wrapf(rdb.ErrSchema, "invalid %s %q", key, v)
	}
	return v, nil
}
