package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/hatlonely/entorm/log"
	"github.com/hatlonely/entorm/log/writer"
)

func TestObservableExecutor(t *testing.T) {
	Convey("TestObservableExecutor", t, func() {
		ctx := context.Background()
		logPath := filepath.Join(t.TempDir(), "executor.log")
		registry := prometheus.NewRegistry()

		inner, err := newTestSQL()
		So(err, ShouldBeNil)

		executor, err := NewObservableExecutorWithOptions(inner, &ObservableOptions{
			Name:          "test_executor",
			EnableMetrics: true,
			EnableLogging: true,
			EnableTracing: true,
			Logger: &log.Options{
				Level:  "debug",
				Format: "json",
				Output: writer.Options{Type: "file", File: writer.FileWriterOptions{Path: logPath}},
			},
			Registerer: registry,
		})
		So(err, ShouldBeNil)
		defer executor.Close()

		So(executor.Unwrap(), ShouldEqual, inner)
		So(executor.Dialect(), ShouldEqual, SQLite)
		So(executor.Quote("a"), ShouldEqual, "'a'")

		_, err = executor.Exec(ctx, "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)")
		So(err, ShouldBeNil)

		Convey("成功与失败分别计数", func() {
			_, err := executor.PrepareAndRun(ctx, "INSERT INTO users VALUES (?, ?)", []any{1, "Alice"})
			So(err, ShouldBeNil)
			_, err = executor.PrepareAndRun(ctx, "INSERT INTO users VALUES (?, ?)", []any{1, "Alice"})
			So(err, ShouldNotBeNil)
			_, err = executor.Query(ctx, "SELECT * FROM users")
			So(err, ShouldBeNil)

			counter := executor.metrics.statementCounter
			So(testutil.ToFloat64(counter.WithLabelValues("prepareAndRun", "success")), ShouldEqual, 1)
			So(testutil.ToFloat64(counter.WithLabelValues("prepareAndRun", "error")), ShouldEqual, 1)
			So(testutil.ToFloat64(counter.WithLabelValues("query", "success")), ShouldEqual, 1)
			So(testutil.ToFloat64(counter.WithLabelValues("exec", "success")), ShouldEqual, 1)
			So(testutil.ToFloat64(executor.metrics.activeOperations.WithLabelValues("query")), ShouldEqual, 0)

			content, err := os.ReadFile(logPath)
			So(err, ShouldBeNil)
			So(string(content), ShouldContainSubstring, `"msg":"executor operation failed"`)
			So(string(content), ShouldContainSubstring, `"statement":"INSERT INTO users VALUES (?, ?)"`)
			So(string(content), ShouldContainSubstring, `"component":"test_executor"`)
		})

		Convey("事务计数", func() {
			So(executor.Begin(ctx), ShouldBeNil)
			So(executor.InTransaction(), ShouldBeTrue)
			So(testutil.ToFloat64(executor.metrics.openTransactions), ShouldEqual, 1)

			So(errors.Is(executor.Begin(ctx), ErrTxInProgress), ShouldBeTrue)
			So(testutil.ToFloat64(executor.metrics.openTransactions), ShouldEqual, 1)

			So(executor.Commit(), ShouldBeNil)
			So(testutil.ToFloat64(executor.metrics.openTransactions), ShouldEqual, 0)

			So(errors.Is(executor.Rollback(), ErrNoTx), ShouldBeTrue)
			So(testutil.ToFloat64(executor.metrics.openTransactions), ShouldEqual, 0)
			So(testutil.ToFloat64(executor.metrics.statementCounter.WithLabelValues("rollback", "error")), ShouldEqual, 1)
		})

		Convey("同名指标复用已注册的指标", func() {
			other, err := NewObservableExecutorWithOptions(inner, &ObservableOptions{
				Name:          "test_executor",
				EnableMetrics: true,
				Registerer:    registry,
			})
			So(err, ShouldBeNil)
			So(other.metrics.statementCounter, ShouldEqual, executor.metrics.statementCounter)
		})
	})
}

func TestNewObservableExecutorWithOptions(t *testing.T) {
	Convey("TestNewObservableExecutorWithOptions", t, func() {
		_, err := NewObservableExecutorWithOptions(nil, &ObservableOptions{})
		So(err, ShouldNotBeNil)

		inner, err := newTestSQL()
		So(err, ShouldBeNil)
		defer inner.Close()

		_, err = NewObservableExecutorWithOptions(inner, nil)
		So(err, ShouldNotBeNil)

		executor, err := NewObservableExecutorWithOptions(inner, &ObservableOptions{})
		So(err, ShouldBeNil)
		So(executor.metrics, ShouldBeNil)
		So(executor.logger, ShouldBeNil)
		So(executor.tracer, ShouldBeNil)

		_, err = executor.Exec(context.Background(), "SELECT 1")
		So(err, ShouldBeNil)
	})
}
