package manager

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/hatlonely/entorm/rdb/database"
)

// recordExecutor 记录所有语句，按语句前缀返回预设的结果
type recordExecutor struct {
	dialect database.Dialect

	statements []string
	params     [][]any

	count    int64           // SELECT COUNT(*) 的结果
	affected int64           // Exec/PrepareAndRun 影响的行数
	failOn   map[string]bool // 语句完全匹配时返回错误

	tx        bool
	begins    int
	commits   int
	rollbacks int
}

func newRecordExecutor() *recordExecutor {
	return &recordExecutor{dialect: database.MySQL, affected: 1, failOn: map[string]bool{}}
}

func (r *recordExecutor) record(statement string, params []any) error {
	r.statements = append(r.statements, statement)
	r.params = append(r.params, params)
	if r.failOn[statement] {
		return errors.Errorf("driver error: %s", statement)
	}
	return nil
}

func (r *recordExecutor) Exec(ctx context.Context, statement string) (int64, error) {
	if err := r.record(statement, nil); err != nil {
		return 0, err
	}
	return r.affected, nil
}

func (r *recordExecutor) Query(ctx context.Context, statement string, args ...any) (*database.ResultSet, error) {
	if err := r.record(statement, args); err != nil {
		return nil, err
	}
	if strings.HasPrefix(statement, "SELECT COUNT(*)") {
		return &database.ResultSet{Columns: []string{"COUNT(*)"}, Rows: [][]any{{r.count}}}, nil
	}
	return &database.ResultSet{}, nil
}

func (r *recordExecutor) PrepareAndRun(ctx context.Context, statement string, params []any) (int64, error) {
	if err := r.record(statement, params); err != nil {
		return 0, err
	}
	return r.affected, nil
}

func (r *recordExecutor) Quote(v any) string {
	return r.dialect.Quote(v)
}

func (r *recordExecutor) Begin(ctx context.Context) error {
	if r.tx {
		return database.ErrTxInProgress
	}
	r.tx = true
	r.begins++
	return nil
}

func (r *recordExecutor) Commit() error {
	if !r.tx {
		return database.ErrNoTx
	}
	r.tx = false
	r.commits++
	return nil
}

func (r *recordExecutor) Rollback() error {
	if !r.tx {
		return database.ErrNoTx
	}
	r.tx = false
	r.rollbacks++
	return nil
}

func (r *recordExecutor) InTransaction() bool {
	return r.tx
}

func (r *recordExecutor) Dialect() database.Dialect {
	return r.dialect
}

func (r *recordExecutor) Close() error {
	return nil
}

func (r *recordExecutor) last() string {
	if len(r.statements) == 0 {
		return ""
	}
	return r.statements[len(r.statements)-1]
}
