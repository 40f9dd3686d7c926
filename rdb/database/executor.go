package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrTxInProgress 已经在事务中时再次 Begin
	ErrTxInProgress = errors.New("transaction already in progress")
	// ErrNoTx 没有进行中的事务时 Commit 或 Rollback
	ErrNoTx = errors.New("no transaction in progress")
)

// Executor SQL 执行与事务能力
// 事务进行中时所有语句都在该事务上执行，事务不支持嵌套
type Executor interface {
	// Exec 执行语句，返回影响的行数
	Exec(ctx context.Context, query string) (int64, error)
	// Query 执行查询并读取全部结果
	Query(ctx context.Context, query string, args ...any) (*ResultSet, error)
	// PrepareAndRun 预编译语句并按顺序绑定参数执行，返回影响的行数
	PrepareAndRun(ctx context.Context, query string, params []any) (int64, error)
	// Quote 将值转换为驱动对应的 SQL 字面量
	Quote(v any) string

	Begin(ctx context.Context) error
	Commit() error
	Rollback() error
	InTransaction() bool

	Dialect() Dialect
	Close() error
}

// ResultSet 查询结果，[]byte 类型的列值会转换为 string
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// Int64 读取第一行第一列的整数值，用于 COUNT(*) 之类的标量查询
func (r *ResultSet) Int64() (int64, error) {
	if r == nil || len(r.Rows) == 0 || len(r.Rows[0]) == 0 {
		return 0, errors.New("empty result set")
	}
	switch v := r.Rows[0][0].(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, errors.Wrapf(err, "parse %q as int64 failed", v)
		}
		return i, nil
	default:
		return 0, errors.Errorf("unexpected scalar type %T", v)
	}
}

// Strings 读取第一列的所有值，NULL 转换为空字符串
func (r *ResultSet) Strings() []string {
	values := make([]string, 0, len(r.Rows))
	for _, row := range r.Rows {
		if len(row) == 0 || row[0] == nil {
			values = append(values, "")
			continue
		}
		values = append(values, fmt.Sprint(row[0]))
	}
	return values
}

type rowsQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type statementPreparer interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// readRows 读取全部结果并关闭 rows
func readRows(rows *sql.Rows) (*ResultSet, error) {
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "rows.Columns failed")
	}

	result := &ResultSet{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, errors.Wrap(err, "rows.Scan failed")
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows.Err")
	}
	return result, nil
}

func query(ctx context.Context, q rowsQuerier, statement string, args ...any) (*ResultSet, error) {
	rows, err := q.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "query [%s] failed", statement)
	}
	return readRows(rows)
}

func exec(ctx context.Context, e execer, statement string) (int64, error) {
	result, err := e.ExecContext(ctx, statement)
	if err != nil {
		return 0, errors.Wrapf(err, "exec [%s] failed", statement)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "RowsAffected failed")
	}
	return affected, nil
}

func prepareAndRun(ctx context.Context, p statementPreparer, statement string, params []any) (int64, error) {
	stmt, err := p.PrepareContext(ctx, statement)
	if err != nil {
		return 0, errors.Wrapf(err, "prepare [%s] failed", statement)
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx, params...)
	if err != nil {
		return 0, errors.Wrapf(err, "run [%s] failed", statement)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "RowsAffected failed")
	}
	return affected, nil
}
