package database

import (
	"context"
	"fmt"
	"regexp"

	"github.com/pkg/errors"
)

var tableNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*$`)

// Admin 数据库管理操作，按执行器的方言生成语句
type Admin struct {
	executor Executor
}

func NewAdmin(executor Executor) *Admin {
	return &Admin{executor: executor}
}

// ListTables 列出当前库中的所有表
func (a *Admin) ListTables(ctx context.Context) ([]string, error) {
	result, err := a.executor.Query(ctx, a.executor.Dialect().listTablesSQL())
	if err != nil {
		return nil, err
	}
	return result.Strings(), nil
}

// CleanTable 清空表，返回删除的行数，TRUNCATE 时驱动通常返回 0
func (a *Admin) CleanTable(ctx context.Context, table string) (int64, error) {
	if err := checkTableName(table); err != nil {
		return 0, err
	}
	return a.executor.Exec(ctx, a.executor.Dialect().cleanTableSQL(table))
}

// ShowTable 分页读取表中的行
func (a *Admin) ShowTable(ctx context.Context, table string, offset, limit int) (*ResultSet, error) {
	if err := checkTableName(table); err != nil {
		return nil, err
	}
	if offset < 0 || limit <= 0 {
		return nil, errors.Errorf("invalid offset %d or limit %d", offset, limit)
	}
	return a.executor.Query(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d OFFSET %d", table, limit, offset))
}

// DescribeTable 返回表的列信息，列的含义取决于数据库
func (a *Admin) DescribeTable(ctx context.Context, table string) (*ResultSet, error) {
	if err := checkTableName(table); err != nil {
		return nil, err
	}
	return a.executor.Query(ctx, a.executor.Dialect().describeTableSQL(table))
}

func checkTableName(table string) error {
	if !tableNameRegex.MatchString(table) {
		return errors.Errorf("invalid table name %q", table)
	}
	return nil
}
