// Package rdb 提供基于配置描述的表结构映射：schema 解析表定义，entity 持有行数据，
// manager 将实体转换成 DDL/DML 并交给 database 中的执行器执行
package rdb

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrSchemaNotFound schema 来源找不到实体对应的定义
	ErrSchemaNotFound = errors.New("schema not found")
	// ErrSchema 表定义格式错误或约束引用了不存在的列
	ErrSchema = errors.New("invalid schema")
	// ErrAttribute 访问未声明的列
	ErrAttribute = errors.New("undeclared column")
	// ErrDuplicateKey 集合中已存在相同主键的实体
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrNotFound 按主键查找不到实体
	ErrNotFound = errors.New("entity not found")
	// ErrIndex 位置越界
	ErrIndex = errors.New("index out of range")
	// ErrTypeMismatch 主键值的形状与主键列不匹配
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrStore 数据库执行失败
	ErrStore = errors.New("store error")
)

// StoreFailure 携带驱动错误的存储错误，errors.Is 同时匹配 ErrStore 与驱动错误
type StoreFailure struct {
	Message string
	Cause   error
}

func (e *StoreFailure) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", ErrStore.Error(), e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", ErrStore.Error(), e.Message, e.Cause.Error())
}

func (e *StoreFailure) Is(target error) bool {
	return target == ErrStore
}

func (e *StoreFailure) Unwrap() error {
	return e.Cause
}

// StoreError 构造存储错误，cause 可以为 nil
func StoreError(cause error, format string, args ...any) error {
	return errors.WithStack(&StoreFailure{
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	})
}
