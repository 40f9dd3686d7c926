package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDatabaseOptions struct {
	Driver   string        `cfg:"driver" def:"sqlite3" validate:"oneof=mysql sqlite3 pgx"`
	DSN      string        `cfg:"dsn" validate:"required"`
	MaxConns int           `cfg:"maxConns" def:"10"`
	Timeout  time.Duration `cfg:"timeout" def:"5s"`
}

type testLogOptions struct {
	Level string `cfg:"level" def:"info"`
}

type testAppOptions struct {
	Database testDatabaseOptions `cfg:"database"`
	Log      *testLogOptions     `cfg:"log"`
	Tags     []string            `cfg:"tags"`
	Labels   map[string]string   `cfg:"labels"`
	Ignored  string              `cfg:"-"`
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFile(t, "app.yaml", `
database:
  dsn: ":memory:"
  timeout: 2s
log:
  level: debug
tags: [a, b]
labels:
  env: test
Ignored: x
`)

	var options testAppOptions
	require.NoError(t, Load(path, &options))

	assert.Equal(t, "sqlite3", options.Database.Driver)
	assert.Equal(t, ":memory:", options.Database.DSN)
	assert.Equal(t, 10, options.Database.MaxConns)
	assert.Equal(t, 2*time.Second, options.Database.Timeout)
	require.NotNil(t, options.Log)
	assert.Equal(t, "debug", options.Log.Level)
	assert.Equal(t, []string{"a", "b"}, options.Tags)
	assert.Equal(t, map[string]string{"env": "test"}, options.Labels)
	assert.Empty(t, options.Ignored)
}

func TestLoadIni(t *testing.T) {
	path := writeFile(t, "app.ini", `
tags = a, b

[database]
driver = mysql
dsn = root@tcp(127.0.0.1:3306)/test
maxConns = 20
`)

	var options testAppOptions
	require.NoError(t, Load(path, &options))
	assert.Equal(t, "mysql", options.Database.Driver)
	assert.Equal(t, 20, options.Database.MaxConns)
	assert.Equal(t, []string{"a", "b"}, options.Tags)
	assert.Nil(t, options.Log)
}

func TestLoadValidateFailed(t *testing.T) {
	path := writeFile(t, "app.json", `{"database": {"driver": "oracle", "dsn": "x"}}`)

	var options testAppOptions
	err := Load(path, &options)
	assert.Error(t, err)
}

func TestLoadConvertFailed(t *testing.T) {
	path := writeFile(t, "app.toml", `
[database]
dsn = "x"
maxConns = "many"
`)

	var options testAppOptions
	err := Load(path, &options)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	var options testAppOptions
	assert.Error(t, Load(filepath.Join(t.TempDir(), "none.yaml"), &options))
	assert.Error(t, Load("none.xml", &options))
}

func TestConvertToRequiresPointer(t *testing.T) {
	var options testAppOptions
	assert.Error(t, NewNode().ConvertTo(options))
	assert.Error(t, NewNode().ConvertTo(nil))
}

func TestSetDefaults(t *testing.T) {
	type nested struct {
		Port int `def:"3306"`
	}
	type options struct {
		Name    string        `def:"entorm"`
		Debug   bool          `def:"true"`
		Ratio   float64       `def:"0.5"`
		Size    uint          `def:"8"`
		Exts    []string      `def:".ini,.yaml"`
		Wait    time.Duration `def:"1m"`
		Since   time.Time     `def:"2024-01-01T00:00:00Z"`
		Comment *string       `def:"hello"`
		Nested  nested
		Ptr     *nested
	}

	o := options{Name: "keep"}
	require.NoError(t, SetDefaults(&o))
	assert.Equal(t, "keep", o.Name)
	assert.True(t, o.Debug)
	assert.Equal(t, 0.5, o.Ratio)
	assert.Equal(t, uint(8), o.Size)
	assert.Equal(t, []string{".ini", ".yaml"}, o.Exts)
	assert.Equal(t, time.Minute, o.Wait)
	assert.Equal(t, 2024, o.Since.Year())
	require.NotNil(t, o.Comment)
	assert.Equal(t, "hello", *o.Comment)
	assert.Equal(t, 3306, o.Nested.Port)
	assert.Nil(t, o.Ptr)

	assert.Error(t, SetDefaults(nil))
	assert.Error(t, SetDefaults(o))

	type bad struct {
		N int `def:"abc"`
	}
	assert.Error(t, SetDefaults(&bad{}))
}

func TestValidate(t *testing.T) {
	type options struct {
		Name string `validate:"required"`
	}
	assert.Error(t, Validate(&options{}))
	assert.NoError(t, Validate(&options{Name: "x"}))
	assert.NoError(t, Validate(nil))
	assert.NoError(t, Validate("not a struct"))
	var p *options
	assert.NoError(t, Validate(p))
}
