package database

import (
	"encoding/hex"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Dialect SQL 方言，决定值的字面量写法、占位符以及 DDL 支持的子句
type Dialect string

const (
	MySQL    Dialect = "mysql"
	SQLite   Dialect = "sqlite3"
	Postgres Dialect = "postgres"
)

// DialectOf 根据驱动名返回方言
func DialectOf(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "mysql":
		return MySQL, nil
	case "sqlite3", "sqlite":
		return SQLite, nil
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	default:
		return "", errors.Errorf("unsupported driver %q", driver)
	}
}

// SupportsTableOptions 是否支持 ENGINE/CHARACTER SET/COLLATE/COMMENT 表选项
func (d Dialect) SupportsTableOptions() bool {
	return d == MySQL
}

// SupportsColumnModifiers 是否支持 UNSIGNED/AUTO_INCREMENT/COMMENT/STORAGE 列修饰
func (d Dialect) SupportsColumnModifiers() bool {
	return d == MySQL
}

// Rebind 将 ? 占位符转换为方言的写法，引号内的 ? 保持不变
func (d Dialect) Rebind(query string) string {
	if d != Postgres || !strings.Contains(query, "?") {
		return query
	}

	var b strings.Builder
	var quote byte
	n := 0
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '?':
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Quote 将值转换为 SQL 字面量
func (d Dialect) Quote(v any) string {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return "NULL"
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return "NULL"
	}

	if t, ok := rv.Interface().(time.Time); ok {
		return d.quoteString(t.Format("2006-01-02 15:04:05.999999"))
	}

	switch rv.Kind() {
	case reflect.Bool:
		if d == Postgres {
			return strings.ToUpper(strconv.FormatBool(rv.Bool()))
		}
		if rv.Bool() {
			return "1"
		}
		return "0"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return d.quoteString(strconv.FormatFloat(f, 'g', -1, 64))
		}
		return strconv.FormatFloat(f, 'g', -1, rv.Type().Bits())
	case reflect.String:
		return d.quoteString(rv.String())
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			if d == Postgres {
				return `'\x` + hex.EncodeToString(rv.Bytes()) + `'`
			}
			return "X'" + hex.EncodeToString(rv.Bytes()) + "'"
		}
	}
	return d.quoteString(fmt.Sprint(rv.Interface()))
}

func (d Dialect) quoteString(s string) string {
	if d == MySQL {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func (d Dialect) listTablesSQL() string {
	switch d {
	case SQLite:
		return "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name"
	case Postgres:
		return "SELECT tablename FROM pg_catalog.pg_tables WHERE schemaname = current_schema() ORDER BY tablename"
	default:
		return "SHOW TABLES"
	}
}

func (d Dialect) describeTableSQL(table string) string {
	switch d {
	case SQLite:
		return "PRAGMA table_info(" + table + ")"
	case Postgres:
		return "SELECT column_name, data_type, is_nullable, column_default FROM information_schema.columns " +
			"WHERE table_schema = current_schema() AND table_name = " + d.Quote(table) + " ORDER BY ordinal_position"
	default:
		return "DESCRIBE " + table
	}
}

func (d Dialect) cleanTableSQL(table string) string {
	if d == SQLite {
		return "DELETE FROM " + table
	}
	return "TRUNCATE TABLE " + table
}
