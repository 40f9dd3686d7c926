package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hatlonely/entorm/log"
	"github.com/hatlonely/entorm/log/logger"
)

type ObservableOptions struct {
	// Name 组件名称，作为指标名前缀、日志 component 字段以及 span 的 component 属性
	Name string `cfg:"name" def:"entorm_executor" validate:"required"`

	EnableMetrics bool `cfg:"enableMetrics"`
	EnableLogging bool `cfg:"enableLogging"`
	EnableTracing bool `cfg:"enableTracing"`

	Logger *log.Options `cfg:"logger"`
	// Registerer 为空时注册到 prometheus 默认 registry
	Registerer prometheus.Registerer `cfg:"-"`
}

// ObservableMetrics 执行器的 prometheus 指标
type ObservableMetrics struct {
	statementCounter  *prometheus.CounterVec
	statementDuration *prometheus.HistogramVec
	activeOperations  *prometheus.GaugeVec
	openTransactions  prometheus.Gauge
}

// NewObservableMetrics 创建并注册指标，同名指标已注册时复用已有的指标
func NewObservableMetrics(name string, registerer prometheus.Registerer) (*ObservableMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	var err error
	metrics := &ObservableMetrics{}
	if metrics.statementCounter, err = register(registerer, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: name + "_operations_total",
			Help: "Total number of executor operations",
		},
		[]string{"operation", "status"},
	)); err != nil {
		return nil, err
	}
	if metrics.statementDuration, err = register(registerer, prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    name + "_operation_duration_seconds",
			Help:    "Duration of executor operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"operation"},
	)); err != nil {
		return nil, err
	}
	if metrics.activeOperations, err = register(registerer, prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name + "_active_operations",
			Help: "Number of active executor operations",
		},
		[]string{"operation"},
	)); err != nil {
		return nil, err
	}
	if metrics.openTransactions, err = register(registerer, prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: name + "_open_transactions",
			Help: "Number of open transactions",
		},
	)); err != nil {
		return nil, err
	}
	return metrics, nil
}

func register[T prometheus.Collector](registerer prometheus.Registerer, collector T) (T, error) {
	if err := registerer.Register(collector); err != nil {
		var registered prometheus.AlreadyRegisteredError
		if errors.As(err, &registered) {
			if existing, ok := registered.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return collector, errors.Wrap(err, "register metric failed")
	}
	return collector, nil
}

// ObservableExecutor 装饰器，为任意 Executor 添加指标、日志与追踪
type ObservableExecutor struct {
	executor Executor

	name    string
	logger  logger.Logger
	metrics *ObservableMetrics
	tracer  trace.Tracer

	txCtx context.Context
}

func NewObservableExecutorWithOptions(executor Executor, options *ObservableOptions) (*ObservableExecutor, error) {
	if executor == nil {
		return nil, errors.New("executor is nil")
	}
	if options == nil {
		return nil, errors.New("options is nil")
	}
	name := options.Name
	if name == "" {
		name = "entorm_executor"
	}

	obs := &ObservableExecutor{executor: executor, name: name}

	if options.EnableLogging {
		l, err := log.NewLoggerWithOptions(options.Logger)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to create logger")
		}
		obs.logger = l.WithGroup("observableExecutor").With("component", name, "dialect", string(executor.Dialect()))
	}

	if options.EnableMetrics {
		metrics, err := NewObservableMetrics(name, options.Registerer)
		if err != nil {
			return nil, err
		}
		obs.metrics = metrics
	}

	if options.EnableTracing {
		obs.tracer = otel.Tracer("executor." + name)
	}

	return obs, nil
}

// observe 统一的操作观测逻辑
func (obs *ObservableExecutor) observe(ctx context.Context, operation string, statement string, fn func(context.Context) error) error {
	start := time.Now()

	var span trace.Span
	if obs.tracer != nil {
		ctx, span = obs.tracer.Start(ctx, "executor."+operation,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("component", obs.name),
				attribute.String("db.system", string(obs.executor.Dialect())),
				attribute.String("db.operation", operation),
			),
		)
		if statement != "" {
			span.SetAttributes(attribute.String("db.statement", statement))
		}
		defer span.End()
	}

	if obs.metrics != nil {
		obs.metrics.activeOperations.WithLabelValues(operation).Inc()
		defer obs.metrics.activeOperations.WithLabelValues(operation).Dec()
	}

	err := fn(ctx)
	duration := time.Since(start)

	if span != nil {
		span.SetAttributes(attribute.Int64("duration_ms", duration.Milliseconds()))
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	if obs.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		obs.metrics.statementCounter.WithLabelValues(operation, status).Inc()
		obs.metrics.statementDuration.WithLabelValues(operation).Observe(duration.Seconds())
	}

	if obs.logger != nil {
		args := []any{"operation", operation, "duration", duration}
		if statement != "" {
			args = append(args, "statement", statement)
		}
		if err != nil {
			obs.logger.WarnContext(ctx, "executor operation failed", append(args, "error", err)...)
		} else {
			obs.logger.DebugContext(ctx, "executor operation", args...)
		}
	}

	return err
}

func (obs *ObservableExecutor) Exec(ctx context.Context, statement string) (int64, error) {
	var affected int64
	err := obs.observe(ctx, "exec", statement, func(ctx context.Context) error {
		var err error
		affected, err = obs.executor.Exec(ctx, statement)
		return err
	})
	return affected, err
}

func (obs *ObservableExecutor) Query(ctx context.Context, statement string, args ...any) (*ResultSet, error) {
	var result *ResultSet
	err := obs.observe(ctx, "query", statement, func(ctx context.Context) error {
		var err error
		result, err = obs.executor.Query(ctx, statement, args...)
		return err
	})
	return result, err
}

func (obs *ObservableExecutor) PrepareAndRun(ctx context.Context, statement string, params []any) (int64, error) {
	var affected int64
	err := obs.observe(ctx, "prepareAndRun", statement, func(ctx context.Context) error {
		var err error
		affected, err = obs.executor.PrepareAndRun(ctx, statement, params)
		return err
	})
	return affected, err
}

func (obs *ObservableExecutor) Quote(v any) string {
	return obs.executor.Quote(v)
}

func (obs *ObservableExecutor) Begin(ctx context.Context) error {
	err := obs.observe(ctx, "begin", "", obs.executor.Begin)
	if err == nil {
		obs.txCtx = ctx
		if obs.metrics != nil {
			obs.metrics.openTransactions.Inc()
		}
	}
	return err
}

func (obs *ObservableExecutor) Commit() error {
	return obs.finish("commit", obs.executor.Commit)
}

func (obs *ObservableExecutor) Rollback() error {
	return obs.finish("rollback", obs.executor.Rollback)
}

// finish 结束事务，span 挂在 Begin 的上下文下
func (obs *ObservableExecutor) finish(operation string, fn func() error) error {
	ctx := obs.txCtx
	if ctx == nil {
		ctx = context.Background()
	}
	inTx := obs.executor.InTransaction()
	err := obs.observe(ctx, operation, "", func(context.Context) error {
		return fn()
	})
	if inTx && !obs.executor.InTransaction() {
		obs.txCtx = nil
		if obs.metrics != nil {
			obs.metrics.openTransactions.Dec()
		}
	}
	return err
}

func (obs *ObservableExecutor) InTransaction() bool {
	return obs.executor.InTransaction()
}

func (obs *ObservableExecutor) Dialect() Dialect {
	return obs.executor.Dialect()
}

func (obs *ObservableExecutor) Close() error {
	return obs.executor.Close()
}

// Unwrap 返回被包装的执行器
func (obs *ObservableExecutor) Unwrap() Executor {
	return obs.executor
}
