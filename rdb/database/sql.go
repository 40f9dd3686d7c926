package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

type SQLOptions struct {
	// 驱动：mysql, sqlite3, pgx
	Driver string `cfg:"driver" def:"mysql" validate:"oneof=mysql sqlite3 pgx"`
	// 指定 DSN 时忽略下面的连接参数
	DSN      string `cfg:"dsn"`
	Host     string `cfg:"host" def:"localhost"`
	Port     string `cfg:"port"`
	Database string `cfg:"database"`
	Username string `cfg:"username"`
	Password string `cfg:"password"`
	Charset  string `cfg:"charset" def:"utf8mb4"`

	MaxConns        int           `cfg:"maxConns" def:"10"`
	MaxIdle         int           `cfg:"maxIdle" def:"5"`
	ConnMaxLifetime time.Duration `cfg:"connMaxLifetime" def:"1h"`
	ConnectTimeout  time.Duration `cfg:"connectTimeout" def:"5s"`
}

// SQL 基于 database/sql 的执行器
type SQL struct {
	db      *sql.DB
	tx      *sql.Tx
	dialect Dialect
}

func NewSQLWithOptions(options *SQLOptions) (*SQL, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	dialect, err := DialectOf(options.Driver)
	if err != nil {
		return nil, err
	}

	db, err := openDB(dialect, options)
	if err != nil {
		return nil, err
	}

	// sqlite 的内存库每个连接独立，事务期间也只允许一个写连接
	if dialect == SQLite {
		db.SetMaxOpenConns(1)
	} else {
		if options.MaxConns > 0 {
			db.SetMaxOpenConns(options.MaxConns)
		}
		if options.MaxIdle > 0 {
			db.SetMaxIdleConns(options.MaxIdle)
		}
	}
	if options.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(options.ConnMaxLifetime)
	}

	timeout := options.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "ping %s failed", options.Driver)
	}

	return &SQL{db: db, dialect: dialect}, nil
}

// NewSQLWithDB 包装已有的连接
func NewSQLWithDB(db *sql.DB, dialect Dialect) *SQL {
	return &SQL{db: db, dialect: dialect}
}

func openDB(dialect Dialect, options *SQLOptions) (*sql.DB, error) {
	switch dialect {
	case MySQL:
		dsn, err := mysqlDSN(options)
		if err != nil {
			return nil, err
		}
		db, err := sql.Open("mysql", dsn)
		return db, errors.Wrap(err, "sql.Open failed")
	case SQLite:
		dsn := options.DSN
		if dsn == "" {
			dsn = options.Database
		}
		if dsn == "" {
			dsn = ":memory:"
		}
		db, err := sql.Open("sqlite3", dsn)
		return db, errors.Wrap(err, "sql.Open failed")
	case Postgres:
		config, err := pgx.ParseConfig(postgresDSN(options))
		if err != nil {
			return nil, errors.Wrap(err, "pgx.ParseConfig failed")
		}
		return stdlib.OpenDB(*config), nil
	default:
		return nil, errors.Errorf("unsupported dialect %q", dialect)
	}
}

// mysqlDSN 生成 mysql DSN，总是开启 clientFoundRows，
// 使 UPDATE 返回匹配的行数而不是实际修改的行数
func mysqlDSN(options *SQLOptions) (string, error) {
	var config *mysql.Config
	if options.DSN != "" {
		parsed, err := mysql.ParseDSN(options.DSN)
		if err != nil {
			return "", errors.Wrap(err, "mysql.ParseDSN failed")
		}
		config = parsed
	} else {
		port := options.Port
		if port == "" {
			port = "3306"
		}
		config = mysql.NewConfig()
		config.User = options.Username
		config.Passwd = options.Password
		config.Net = "tcp"
		config.Addr = net.JoinHostPort(options.Host, port)
		config.DBName = options.Database
		config.ParseTime = true
		config.Loc = time.Local
		if options.Charset != "" {
			config.Params = map[string]string{"charset": options.Charset}
		}
	}
	config.ClientFoundRows = true
	return config.FormatDSN(), nil
}

func postgresDSN(options *SQLOptions) string {
	if options.DSN != "" {
		return options.DSN
	}
	port := options.Port
	if port == "" {
		port = "5432"
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(options.Host, port),
		Path:   "/" + options.Database,
	}
	if options.Username != "" {
		u.User = url.UserPassword(options.Username, options.Password)
	}
	u.RawQuery = "sslmode=disable"
	return u.String()
}

type runner interface {
	rowsQuerier
	statementPreparer
	execer
}

func (s *SQL) runner() runner {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

func (s *SQL) Exec(ctx context.Context, query string) (int64, error) {
	return exec(ctx, s.runner(), query)
}

func (s *SQL) Query(ctx context.Context, statement string, args ...any) (*ResultSet, error) {
	return query(ctx, s.runner(), s.dialect.Rebind(statement), args...)
}

func (s *SQL) PrepareAndRun(ctx context.Context, statement string, params []any) (int64, error) {
	return prepareAndRun(ctx, s.runner(), s.dialect.Rebind(statement), params)
}

func (s *SQL) Quote(v any) string {
	return s.dialect.Quote(v)
}

func (s *SQL) Begin(ctx context.Context) error {
	if s.tx != nil {
		return ErrTxInProgress
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "BeginTx failed")
	}
	s.tx = tx
	return nil
}

func (s *SQL) Commit() error {
	if s.tx == nil {
		return ErrNoTx
	}
	tx := s.tx
	s.tx = nil
	return errors.Wrap(tx.Commit(), "commit failed")
}

func (s *SQL) Rollback() error {
	if s.tx == nil {
		return ErrNoTx
	}
	tx := s.tx
	s.tx = nil
	return errors.Wrap(tx.Rollback(), "rollback failed")
}

func (s *SQL) InTransaction() bool {
	return s.tx != nil
}

func (s *SQL) Dialect() Dialect {
	return s.dialect
}

// DB 返回底层连接
func (s *SQL) DB() *sql.DB {
	return s.db
}

// Close 关闭连接，未结束的事务会被回滚
func (s *SQL) Close() error {
	if s.tx != nil {
		_ = s.tx.Rollback()
		s.tx = nil
	}
	return s.db.Close()
}

func (s *SQL) String() string {
	return fmt.Sprintf("SQL(%s)", s.dialect)
}
