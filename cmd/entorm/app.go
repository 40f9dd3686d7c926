package main

import (
	"github.com/pkg/errors"

	"github.com/hatlonely/entorm/cfg"
	"github.com/hatlonely/entorm/log"
	"github.com/hatlonely/entorm/log/logger"
	"github.com/hatlonely/entorm/rdb/database"
	"github.com/hatlonely/entorm/rdb/entity"
	"github.com/hatlonely/entorm/rdb/manager"
	"github.com/hatlonely/entorm/rdb/schema"
)

// Options 命令行工具的配置文件
type Options struct {
	Database database.Options         `cfg:"database"`
	Schema   schema.FileSourceOptions `cfg:"schema"`
	Log      log.Options              `cfg:"log"`
}

// App 命令共享的执行器、schema 来源与日志
type App struct {
	executor database.Executor
	source   *schema.FileSource
	logger   logger.Logger
}

// LoadApp 读取配置文件并初始化
func LoadApp(filename string) (*App, error) {
	var options Options
	if err := cfg.Load(filename, &options); err != nil {
		return nil, errors.WithMessagef(err, "load config %s failed", filename)
	}
	return NewAppWithOptions(&options)
}

func NewAppWithOptions(options *Options) (*App, error) {
	l, err := log.NewLoggerWithOptions(&options.Log)
	if err != nil {
		return nil, errors.WithMessage(err, "create logger failed")
	}
	source, err := schema.NewFileSourceWithOptions(&options.Schema)
	if err != nil {
		_ = log.Close(l)
		return nil, errors.WithMessage(err, "create schema source failed")
	}
	executor, err := database.NewExecutorWithOptions(&options.Database)
	if err != nil {
		_ = source.Close()
		_ = log.Close(l)
		return nil, err
	}
	return &App{executor: executor, source: source, logger: l}, nil
}

// Manager 加载实体并创建绑定到它的 EntityManager
func (a *App) Manager(name string) (*manager.EntityManager, error) {
	e, err := entity.Load(a.source, name)
	if err != nil {
		return nil, err
	}
	return manager.New(a.executor, manager.WithEntity(e), manager.WithLogger(a.logger)), nil
}

func (a *App) Admin() *database.Admin {
	return database.NewAdmin(a.executor)
}

// Close 依次关闭 schema 来源、执行器与日志输出
func (a *App) Close() error {
	var errs []error
	if err := a.source.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.executor.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := log.Close(a.logger); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return errors.Errorf("close app failed: %v", errs)
	}
	return nil
}
