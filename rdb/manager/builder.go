package manager

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hatlonely/entorm/rdb"
	"github.com/hatlonely/entorm/rdb/database"
	"github.com/hatlonely/entorm/rdb/entity"
	"github.com/hatlonely/entorm/rdb/schema"
)

// Quoter 将值转换为 SQL 字面量，database.Executor 与 database.Dialect 都实现了该接口
type Quoter interface {
	Quote(v any) string
}

// WhereClause 生成主键等值条件，多列之间用 " AND " 连接
// 没有主键列时返回 ErrSchema，不会生成没有条件的语句
func WhereClause(q Quoter, pairs []entity.ColumnValue) (string, error) {
	if len(pairs) == 0 {
		return "", errors.Wrap(rdb.ErrSchema, "primary key is required to build a where clause")
	}
	conditions := make([]string, len(pairs))
	for i, pair := range pairs {
		if pair.Value == nil {
			conditions[i] = pair.Column + " IS NULL"
			continue
		}
		conditions[i] = pair.Column + " = " + q.Quote(pair.Value)
	}
	return strings.Join(conditions, " AND "), nil
}

func whereOf(q Quoter, e *entity.Entity) (string, error) {
	where, err := WhereClause(q, e.IDKeyValue())
	if err != nil {
		return "", errors.WithMessagef(err, "entity %s", e.Name())
	}
	return where, nil
}

// BuildExists SELECT COUNT(*) FROM t WHERE pk
func BuildExists(q Quoter, e *entity.Entity) (string, error) {
	where, err := whereOf(q, e)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", e.TableName(), where), nil
}

// BuildInsert 每个声明的列一个占位符，参数按列的声明顺序排列
func BuildInsert(e *entity.Entity) (string, []any) {
	values := e.Values()
	placeholders := make([]string, len(values))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s VALUES (%s)", e.TableName(), strings.Join(placeholders, ", ")), values
}

// BuildUpdate 非主键列写入 SET，主键列写入 WHERE，值由 Quoter 转换
func BuildUpdate(q Quoter, e *entity.Entity) (string, error) {
	where, err := whereOf(q, e)
	if err != nil {
		return "", err
	}
	columns := e.ColumnsExceptPrimary()
	if len(columns) == 0 {
		return "", errors.Wrapf(rdb.ErrSchema, "entity %s has no column outside the primary key", e.Name())
	}
	assignments := make([]string, len(columns))
	for i, c := range columns {
		assignments[i] = c.Column + " = " + q.Quote(c.Value)
	}
	return fmt.Sprintf("UPDATE %s SET %s WHERE %s", e.TableName(), strings.Join(assignments, ", "), where), nil
}

// BuildDelete DELETE FROM t WHERE pk
func BuildDelete(q Quoter, e *entity.Entity) (string, error) {
	where, err := whereOf(q, e)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("DELETE FROM %s WHERE %s", e.TableName(), where), nil
}

func BuildDropTable(table *schema.Table) string {
	return "DROP TABLE " + table.Name
}

// BuildCreateTable 生成建表语句
// 列修饰 UNSIGNED/AUTO_INCREMENT/COMMENT/STORAGE 与表选项只在支持它们的方言下输出
// 表注释固定以 "Generated <时间>" 开头
func BuildCreateTable(d database.Dialect, table *schema.Table, now time.Time) string {
	clauses := make([]string, 0, len(table.Columns)+4)
	for _, c := range table.Columns {
		clauses = append(clauses, columnClause(d, c))
	}
	clauses = append(clauses, constraintClauses(table.Constraints)...)

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	b.WriteString(table.Name)
	b.WriteString(" (\n  ")
	b.WriteString(strings.Join(clauses, ",\n  "))
	b.WriteString("\n)")

	if d.SupportsTableOptions() {
		engine := table.Engine
		if engine == "" {
			engine = schema.DefaultEngine
		}
		b.WriteString(" ENGINE=" + engine)
		if table.Charset != "" {
			b.WriteString(" CHARACTER SET=" + table.Charset)
		}
		if table.Collation != "" {
			b.WriteString(" COLLATE=" + table.Collation)
		}
		b.WriteString(" COMMENT=" + d.Quote(tableComment(table.Comment, now)))
	}
	return b.String()
}

func tableComment(comment string, now time.Time) string {
	generated := "Generated " + now.Format(time.DateTime)
	if comment == "" {
		return generated
	}
	return generated + " " + comment
}

// columnClause 顺序：类型、UNSIGNED、NULL/NOT NULL、DEFAULT、AUTO_INCREMENT、COMMENT、STORAGE
func columnClause(d database.Dialect, c schema.Column) string {
	parts := []string{c.Name, c.TypeWithSize()}
	modifiers := d.SupportsColumnModifiers()

	if modifiers && c.Unsigned {
		parts = append(parts, "UNSIGNED")
	}
	if c.Nullable {
		parts = append(parts, "NULL")
	} else {
		parts = append(parts, "NOT NULL")
	}
	switch c.Default.Kind {
	case schema.DefaultNull:
		parts = append(parts, "DEFAULT NULL")
	case schema.DefaultValue:
		parts = append(parts, "DEFAULT "+d.Quote(c.Default.Value))
	case schema.DefaultExpression:
		parts = append(parts, fmt.Sprintf("DEFAULT %v", c.Default.Value))
	}
	if modifiers {
		if c.AutoIncrement {
			parts = append(parts, "AUTO_INCREMENT")
		}
		if c.Comment != "" {
			parts = append(parts, "COMMENT "+d.Quote(c.Comment))
		}
		if c.Storage != "" {
			parts = append(parts, "STORAGE "+c.Storage)
		}
	}
	return strings.Join(parts, " ")
}

func constraintClauses(constraints schema.Constraints) []string {
	var clauses []string
	if pk := constraints.Primary; pk != nil {
		clauses = append(clauses, fmt.Sprintf("CONSTRAINT %s PRIMARY KEY (%s)", pk.Name, strings.Join(pk.Columns, ", ")))
	}
	uniqueKeys := constraints.UniqueKeys
	if constraints.Unique != nil {
		uniqueKeys = append([]schema.Key{*constraints.Unique}, uniqueKeys...)
	}
	for _, uq := range uniqueKeys {
		clauses = append(clauses, fmt.Sprintf("CONSTRAINT %s UNIQUE (%s)", uq.Name, strings.Join(uq.Columns, ", ")))
	}
	for _, fk := range constraints.ForeignKeys {
		clause := fmt.Sprintf("CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s)",
			fk.Name, strings.Join(fk.Columns, ", "), fk.RefTable, strings.Join(fk.RefColumns, ", "))
		if fk.Match != "" {
			clause += " MATCH " + fk.Match
		}
		if fk.OnDelete != "" {
			clause += " ON DELETE " + fk.OnDelete
		}
		if fk.OnUpdate != "" {
			clause += " ON UPDATE " + fk.OnUpdate
		}
		clauses = append(clauses, clause)
	}
	return clauses
}
