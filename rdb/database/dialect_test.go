package database

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDialectOf(t *testing.T) {
	for driver, want := range map[string]Dialect{
		"mysql":    MySQL,
		"sqlite3":  SQLite,
		"sqlite":   SQLite,
		"pgx":      Postgres,
		"postgres": Postgres,
	} {
		d, err := DialectOf(driver)
		assert.NoError(t, err)
		assert.Equal(t, want, d)
	}
	_, err := DialectOf("oracle")
	assert.Error(t, err)
}

func TestDialectQuote(t *testing.T) {
	n := 5
	var nilPtr *int
	ts := time.Date(2024, 5, 6, 7, 8, 9, 500000000, time.UTC)

	cases := []struct {
		dialect Dialect
		value   any
		want    string
	}{
		{MySQL, nil, "NULL"},
		{MySQL, nilPtr, "NULL"},
		{MySQL, &n, "5"},
		{MySQL, 1, "1"},
		{MySQL, int64(-2), "-2"},
		{MySQL, uint32(3), "3"},
		{MySQL, 1.25, "1.25"},
		{MySQL, true, "1"},
		{SQLite, false, "0"},
		{Postgres, true, "TRUE"},
		{MySQL, "Bob", "'Bob'"},
		{MySQL, "O'Neil", "'O''Neil'"},
		{MySQL, `a\b`, `'a\\b'`},
		{SQLite, `a\b`, `'a\b'`},
		{MySQL, []byte{0xde, 0xad}, "X'dead'"},
		{Postgres, []byte{0xde, 0xad}, `'\xdead'`},
		{MySQL, ts, "'2024-05-06 07:08:09.5'"},
		{MySQL, math.Inf(1), "'+Inf'"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.dialect.Quote(c.value), "%s %#v", c.dialect, c.value)
	}
}

func TestDialectRebind(t *testing.T) {
	assert.Equal(t, "INSERT INTO t VALUES (?, ?)", MySQL.Rebind("INSERT INTO t VALUES (?, ?)"))
	assert.Equal(t, "INSERT INTO t VALUES ($1, $2)", Postgres.Rebind("INSERT INTO t VALUES (?, ?)"))
	assert.Equal(t, "SELECT '?', $1 FROM t", Postgres.Rebind("SELECT '?', ? FROM t"))
}

func TestDialectCapabilities(t *testing.T) {
	assert.True(t, MySQL.SupportsTableOptions())
	assert.True(t, MySQL.SupportsColumnModifiers())
	assert.False(t, SQLite.SupportsTableOptions())
	assert.False(t, Postgres.SupportsColumnModifiers())
	assert.Equal(t, "DELETE FROM users", SQLite.cleanTableSQL("users"))
	assert.Equal(t, "TRUNCATE TABLE users", MySQL.cleanTableSQL("users"))
	assert.Equal(t, "DESCRIBE users", MySQL.describeTableSQL("users"))
	assert.Contains(t, Postgres.describeTableSQL("users"), "table_name = 'users'")
}

func TestResultSet(t *testing.T) {
	for _, v := range []any{int64(3), 3, int32(3), uint64(3), 3.0, "3", " 3 "} {
		n, err := (&ResultSet{Rows: [][]any{{v}}}).Int64()
		assert.NoError(t, err)
		assert.Equal(t, int64(3), n)
	}

	_, err := (&ResultSet{}).Int64()
	assert.Error(t, err)
	_, err = (&ResultSet{Rows: [][]any{{"x"}}}).Int64()
	assert.Error(t, err)
	_, err = (&ResultSet{Rows: [][]any{{true}}}).Int64()
	assert.Error(t, err)

	rs := &ResultSet{Rows: [][]any{{"a"}, {nil}, {int64(1)}}}
	assert.Equal(t, []string{"a", "", "1"}, rs.Strings())
}

func TestMysqlDSN(t *testing.T) {
	dsn, err := mysqlDSN(&SQLOptions{Host: "db", Database: "app", Username: "root", Password: "pw", Charset: "utf8mb4"})
	assert.NoError(t, err)
	assert.Contains(t, dsn, "root:pw@tcp(db:3306)/app")
	assert.Contains(t, dsn, "clientFoundRows=true")
	assert.Contains(t, dsn, "charset=utf8mb4")

	dsn, err = mysqlDSN(&SQLOptions{DSN: "u:p@tcp(127.0.0.1:3307)/test"})
	assert.NoError(t, err)
	assert.Contains(t, dsn, "tcp(127.0.0.1:3307)/test")
	assert.Contains(t, dsn, "clientFoundRows=true")

	_, err = mysqlDSN(&SQLOptions{DSN: "not a dsn"})
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	assert.Equal(t, "postgres://u:p@db:5432/app?sslmode=disable",
		postgresDSN(&SQLOptions{Host: "db", Database: "app", Username: "u", Password: "p"}))
	assert.Equal(t, "postgres://x", postgresDSN(&SQLOptions{DSN: "postgres://x"}))
}
