// Package manager 将实体与集合转换为 DDL/DML，并通过 database.Executor 执行
package manager

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/hatlonely/entorm/log"
	"github.com/hatlonely/entorm/log/logger"
	"github.com/hatlonely/entorm/rdb"
	"github.com/hatlonely/entorm/rdb/database"
	"github.com/hatlonely/entorm/rdb/entity"
)

var (
	// ErrNoEntity 没有设置当前实体
	ErrNoEntity = errors.New("no current entity")
	// ErrNoCollection 没有设置集合
	ErrNoCollection = errors.New("no collection")
)

type Option func(*EntityManager)

func WithLogger(l logger.Logger) Option {
	return func(m *EntityManager) {
		m.logger = l
	}
}

// WithClock 指定建表注释使用的时间来源
func WithClock(clock func() time.Time) Option {
	return func(m *EntityManager) {
		m.clock = clock
	}
}

func WithEntity(e *entity.Entity) Option {
	return func(m *EntityManager) {
		m.entity = e
	}
}

func WithCollection(c *entity.Collection) Option {
	return func(m *EntityManager) {
		m.collection = c
	}
}

// EntityManager 持有当前实体与集合，所有语句都由它们生成
// 不能在多个 goroutine 中同时使用同一个 EntityManager
type EntityManager struct {
	executor   database.Executor
	entity     *entity.Entity
	collection *entity.Collection

	logger logger.Logger
	clock  func() time.Time
}

func New(executor database.Executor, opts ...Option) *EntityManager {
	m := &EntityManager{
		executor: executor,
		logger:   log.Default(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *EntityManager) Entity() *entity.Entity {
	return m.entity
}

func (m *EntityManager) SetEntity(e *entity.Entity) {
	m.entity = e
}

func (m *EntityManager) Collection() *entity.Collection {
	return m.collection
}

func (m *EntityManager) SetCollection(c *entity.Collection) {
	m.collection = c
}

func (m *EntityManager) Executor() database.Executor {
	return m.executor
}

func (m *EntityManager) current() (*entity.Entity, error) {
	if m.entity == nil {
		return nil, ErrNoEntity
	}
	return m.entity, nil
}

// ExistsInStore 按主键统计行数，大于 0 时返回 true
func (m *EntityManager) ExistsInStore(ctx context.Context) (bool, error) {
	e, err := m.current()
	if err != nil {
		return false, err
	}
	statement, err := BuildExists(m.executor, e)
	if err != nil {
		return false, err
	}

	m.logger.DebugContext(ctx, "exists", "entity", e.Name(), "sql", statement)
	result, err := m.executor.Query(ctx, statement)
	if err != nil {
		return false, m.fail(ctx, err, "check existence of %s %v", e.Name(), e.IDValue())
	}
	count, err := result.Int64()
	if err != nil {
		return false, m.fail(ctx, err, "read count of %s %v", e.Name(), e.IDValue())
	}
	return count >= 1, nil
}

// Save 主键已存在时更新，否则插入
// 只有主键列的实体已存在时不需要更新
func (m *EntityManager) Save(ctx context.Context) error {
	e, err := m.current()
	if err != nil {
		return err
	}
	exists, err := m.ExistsInStore(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return m.Insert(ctx)
	}
	if len(e.ColumnsExceptPrimary()) == 0 {
		return nil
	}
	return m.Update(ctx)
}

// Insert 参数按列的声明顺序绑定，值不会拼接到语句中
func (m *EntityManager) Insert(ctx context.Context) error {
	e, err := m.current()
	if err != nil {
		return err
	}
	statement, params := BuildInsert(e)

	if m.logger.Enabled(ctx, slog.LevelDebug) {
		m.logger.DebugContext(ctx, "insert", "entity", e.Name(), "sql", statement, "params", entity.FormatValues(params))
	}
	affected, err := m.executor.PrepareAndRun(ctx, statement, params)
	if err != nil {
		return m.fail(ctx, err, "insert %s %v", e.Name(), e.IDValue())
	}
	if affected == 0 {
		return m.fail(ctx, nil, "insert %s %v affected no rows", e.Name(), e.IDValue())
	}
	return nil
}

// Update 没有匹配的行时返回 ErrStore
func (m *EntityManager) Update(ctx context.Context) error {
	e, err := m.current()
	if err != nil {
		return err
	}
	statement, err := BuildUpdate(m.executor, e)
	if err != nil {
		return err
	}

	m.logger.DebugContext(ctx, "update", "entity", e.Name(), "sql", statement)
	affected, err := m.executor.Exec(ctx, statement)
	if err != nil {
		return m.fail(ctx, err, "update %s %v", e.Name(), e.IDValue())
	}
	if affected == 0 {
		return m.fail(ctx, nil, "update %s %v matched no rows", e.Name(), e.IDValue())
	}
	return nil
}

// Delete 恰好删除一行时成功
func (m *EntityManager) Delete(ctx context.Context) error {
	e, err := m.current()
	if err != nil {
		return err
	}
	statement, err := BuildDelete(m.executor, e)
	if err != nil {
		return err
	}

	m.logger.DebugContext(ctx, "delete", "entity", e.Name(), "sql", statement)
	affected, err := m.executor.Exec(ctx, statement)
	if err != nil {
		return m.fail(ctx, err, "delete %s %v", e.Name(), e.IDValue())
	}
	if affected != 1 {
		return m.fail(ctx, nil, "delete %s %v affected %d rows, expected 1", e.Name(), e.IDValue(), affected)
	}
	return nil
}

// SaveCollection 在一个事务中依次保存集合中的实体
// 第一个失败的实体触发回滚，剩余实体不再处理；无论成功与否当前实体都会恢复
func (m *EntityManager) SaveCollection(ctx context.Context) error {
	if m.collection == nil {
		return ErrNoCollection
	}
	if m.executor.InTransaction() {
		return m.fail(ctx, database.ErrTxInProgress, "save collection")
	}

	previous := m.entity
	defer func() {
		m.entity = previous
	}()

	if err := m.executor.Begin(ctx); err != nil {
		return m.fail(ctx, err, "begin transaction")
	}
	m.logger.InfoContext(ctx, "begin transaction", "count", m.collection.Count())

	for i, e := range m.collection.All() {
		m.entity = e
		if err := m.Save(ctx); err != nil {
			if rbErr := m.executor.Rollback(); rbErr != nil {
				m.logger.WarnContext(ctx, "rollback failed", "error", rbErr)
			} else {
				m.logger.InfoContext(ctx, "rollback transaction", "failedAt", i)
			}
			return errors.WithMessagef(err, "save collection of %s at %d", e.Name(), i)
		}
	}

	if err := m.executor.Commit(); err != nil {
		return m.fail(ctx, err, "commit transaction")
	}
	m.logger.InfoContext(ctx, "commit transaction", "count", m.collection.Count())
	return nil
}

// CreateTable 失败时返回携带驱动错误的 ErrStore
func (m *EntityManager) CreateTable(ctx context.Context) error {
	e, err := m.current()
	if err != nil {
		return err
	}
	statement := BuildCreateTable(m.executor.Dialect(), e.Table(), m.clock())

	m.logger.DebugContext(ctx, "create table", "table", e.TableName(), "sql", statement)
	if _, err := m.executor.Exec(ctx, statement); err != nil {
		return m.fail(ctx, err, "create table %s", e.TableName())
	}
	return nil
}

func (m *EntityManager) DropTable(ctx context.Context) error {
	e, err := m.current()
	if err != nil {
		return err
	}
	statement := BuildDropTable(e.Table())

	m.logger.DebugContext(ctx, "drop table", "table", e.TableName(), "sql", statement)
	if _, err := m.executor.Exec(ctx, statement); err != nil {
		return m.fail(ctx, err, "drop table %s", e.TableName())
	}
	return nil
}

// fail 记录并构造存储错误
func (m *EntityManager) fail(ctx context.Context, cause error, format string, args ...any) error {
	err := rdb.StoreError(cause, format, args...)
	m.logger.WarnContext(ctx, "store operation failed", "error", err)
	return err
}
