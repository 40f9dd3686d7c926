// Package database 提供 SQL 执行与事务能力：database/sql 与 gorm 两种执行器，
// 可观测装饰器，以及按方言生成语句的管理操作
package database

import (
	"github.com/pkg/errors"
)

type Options struct {
	// 执行器类型：sql, gorm
	Type       string             `cfg:"type" def:"sql" validate:"oneof=sql gorm"`
	SQL        SQLOptions         `cfg:"sql"`
	Gorm       GormOptions        `cfg:"gorm"`
	Observable *ObservableOptions `cfg:"observable"`
}

// NewExecutorWithOptions 创建执行器，配置了 Observable 时包装为 ObservableExecutor
func NewExecutorWithOptions(options *Options) (Executor, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	var executor Executor
	switch options.Type {
	case "sql", "":
		e, err := NewSQLWithOptions(&options.SQL)
		if err != nil {
			return nil, errors.WithMessage(err, "create sql executor failed")
		}
		executor = e
	case "gorm":
		e, err := NewGormWithOptions(&options.Gorm)
		if err != nil {
			return nil, errors.WithMessage(err, "create gorm executor failed")
		}
		executor = e
	default:
		return nil, errors.Errorf("unsupported executor type %q", options.Type)
	}

	if options.Observable == nil {
		return executor, nil
	}
	obs, err := NewObservableExecutorWithOptions(executor, options.Observable)
	if err != nil {
		_ = executor.Close()
		return nil, errors.WithMessage(err, "create observable executor failed")
	}
	return obs, nil
}
