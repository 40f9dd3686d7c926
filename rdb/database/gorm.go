package database

import (
	"context"
	"database/sql"
	stdlog "log"
	"os"
	"time"

	"github.com/pkg/errors"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type GormOptions struct {
	// 驱动：mysql, sqlite3
	Driver string `cfg:"driver" def:"sqlite3" validate:"oneof=mysql sqlite3"`
	// mysql 为 DSN，sqlite3 为文件路径，为空时使用 SQL 连接参数生成
	DSN      string `cfg:"dsn"`
	Host     string `cfg:"host" def:"localhost"`
	Port     string `cfg:"port"`
	Database string `cfg:"database"`
	Username string `cfg:"username"`
	Password string `cfg:"password"`
	Charset  string `cfg:"charset" def:"utf8mb4"`

	MaxConns        int           `cfg:"maxConns" def:"10"`
	ConnMaxLifetime time.Duration `cfg:"connMaxLifetime" def:"1h"`
	// 记录慢语句的阈值，0 表示关闭 gorm 自身的日志
	SlowThreshold time.Duration `cfg:"slowThreshold"`
}

// Gorm 基于 gorm 原生 SQL 接口的执行器
type Gorm struct {
	db      *gorm.DB
	tx      *gorm.DB
	dialect Dialect
}

func NewGormWithOptions(options *GormOptions) (*Gorm, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	dialect, err := DialectOf(options.Driver)
	if err != nil {
		return nil, err
	}

	var dialector gorm.Dialector
	switch dialect {
	case MySQL:
		dsn, err := mysqlDSN(&SQLOptions{
			DSN:      options.DSN,
			Host:     options.Host,
			Port:     options.Port,
			Database: options.Database,
			Username: options.Username,
			Password: options.Password,
			Charset:  options.Charset,
		})
		if err != nil {
			return nil, err
		}
		dialector = gormmysql.Open(dsn)
	case SQLite:
		dsn := options.DSN
		if dsn == "" {
			dsn = options.Database
		}
		if dsn == "" {
			dsn = ":memory:"
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, errors.Errorf("gorm executor does not support driver %q", options.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newGormLogger(stdlog.New(os.Stdout, "\r\n", stdlog.LstdFlags), options.SlowThreshold),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "gorm.Open failed")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "db.DB failed")
	}
	if dialect == SQLite {
		sqlDB.SetMaxOpenConns(1)
	} else if options.MaxConns > 0 {
		sqlDB.SetMaxOpenConns(options.MaxConns)
	}
	if options.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(options.ConnMaxLifetime)
	}

	return &Gorm{db: db, dialect: dialect}, nil
}

// newGormLogger 只记录超过 threshold 的慢语句，threshold 为 0 时不输出
func newGormLogger(w gormlogger.Writer, threshold time.Duration) gormlogger.Interface {
	if threshold <= 0 {
		return gormlogger.Default.LogMode(gormlogger.Silent)
	}
	return gormlogger.New(w, gormlogger.Config{
		SlowThreshold:             threshold,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// NewGormWithDB 包装已有的 gorm 连接
func NewGormWithDB(db *gorm.DB, dialect Dialect) *Gorm {
	return &Gorm{db: db, dialect: dialect}
}

func (g *Gorm) session(ctx context.Context) *gorm.DB {
	if g.tx != nil {
		return g.tx.WithContext(ctx)
	}
	return g.db.WithContext(ctx)
}

func (g *Gorm) Exec(ctx context.Context, statement string) (int64, error) {
	result := g.session(ctx).Exec(statement)
	if result.Error != nil {
		return 0, errors.Wrapf(result.Error, "exec [%s] failed", statement)
	}
	return result.RowsAffected, nil
}

func (g *Gorm) Query(ctx context.Context, statement string, args ...any) (*ResultSet, error) {
	rows, err := g.session(ctx).Raw(statement, args...).Rows()
	if err != nil {
		return nil, errors.Wrapf(err, "query [%s] failed", statement)
	}
	return readRows(rows)
}

// PrepareAndRun 参数由驱动绑定
// 事务外使用 PrepareStmt 会话缓存预编译语句；事务内预编译需要额外的连接，直接在事务上执行
func (g *Gorm) PrepareAndRun(ctx context.Context, statement string, params []any) (int64, error) {
	session := g.session(ctx)
	if g.tx == nil {
		session = session.Session(&gorm.Session{PrepareStmt: true})
	}
	result := session.Exec(statement, params...)
	if result.Error != nil {
		return 0, errors.Wrapf(result.Error, "run [%s] failed", statement)
	}
	return result.RowsAffected, nil
}

func (g *Gorm) Quote(v any) string {
	return g.dialect.Quote(v)
}

func (g *Gorm) Begin(ctx context.Context) error {
	if g.tx != nil {
		return ErrTxInProgress
	}
	tx := g.db.WithContext(ctx).Begin(&sql.TxOptions{})
	if tx.Error != nil {
		return errors.Wrap(tx.Error, "begin failed")
	}
	g.tx = tx
	return nil
}

func (g *Gorm) Commit() error {
	if g.tx == nil {
		return ErrNoTx
	}
	tx := g.tx
	g.tx = nil
	return errors.Wrap(tx.Commit().Error, "commit failed")
}

func (g *Gorm) Rollback() error {
	if g.tx == nil {
		return ErrNoTx
	}
	tx := g.tx
	g.tx = nil
	return errors.Wrap(tx.Rollback().Error, "rollback failed")
}

func (g *Gorm) InTransaction() bool {
	return g.tx != nil
}

func (g *Gorm) Dialect() Dialect {
	return g.dialect
}

func (g *Gorm) Close() error {
	if g.tx != nil {
		g.tx.Rollback()
		g.tx = nil
	}
	sqlDB, err := g.db.DB()
	if err != nil {
		return errors.Wrap(err, "db.DB failed")
	}
	return sqlDB.Close()
}
