package layout

import (
	"context"
	"fmt"
	"time"

	"github.com/hatlonely/formlayout/form"
	"github.com/hatlonely/formlayout/log/logger"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ObserverOptions struct {
	// Name 组件名称标识，用于所有观测维度
	// - Metrics: 作为指标名前缀
	// - Logging: 作为 component 字段值
	// - Tracing: 作为 span 的 component 属性
	Name string `cfg:"name" def:"formlayout" validate:"required"`

	DisableMetrics bool `cfg:"disableMetrics"`
	DisableLogging bool `cfg:"disableLogging"`
	EnableTracing  bool `cfg:"enableTracing"`
}

// Metrics 重排操作的 prometheus 指标
type Metrics struct {
	operationCounter  *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	activeOperations  *prometheus.GaugeVec
	changedRows       *prometheus.HistogramVec
}

// NewMetrics 创建指标并注册到 registerer，registerer 为 nil 时使用独立的 registry
func NewMetrics(name string, registerer prometheus.Registerer) (*Metrics, error) {
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}

	metrics := &Metrics{
		operationCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: name + "_layout_operations_total",
				Help: "Total number of layout operations",
			},
			[]string{"operation", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_layout_operation_duration_seconds",
				Help:    "Duration of layout operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"operation"},
		),
		activeOperations: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: name + "_layout_active_operations",
				Help: "Number of active layout operations",
			},
			[]string{"operation"},
		),
		changedRows: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    name + "_layout_changed_rows",
				Help:    "Number of field rows written by one layout operation",
				Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
			},
			[]string{"operation"},
		),
	}

	var err error
	if metrics.operationCounter, err = register(registerer, metrics.operationCounter); err != nil {
		return nil, err
	}
	if metrics.operationDuration, err = register(registerer, metrics.operationDuration); err != nil {
		return nil, err
	}
	if metrics.activeOperations, err = register(registerer, metrics.activeOperations); err != nil {
		return nil, err
	}
	if metrics.changedRows, err = register(registerer, metrics.changedRows); err != nil {
		return nil, err
	}
	return metrics, nil
}

// register 已注册过同名指标时复用已有的
func register[C prometheus.Collector](registerer prometheus.Registerer, c C) (C, error) {
	if err := registerer.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, errors.Wrap(err, "register metric failed")
	}
	return c, nil
}

// Observer 为重排操作添加指标、追踪和日志
type Observer struct {
	name    string
	logger  logger.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

func NewObserverWithOptions(options *ObserverOptions, registerer prometheus.Registerer, l logger.Logger) (*Observer, error) {
	if options == nil {
		return nil, errors.New("options is nil")
	}

	obs := &Observer{name: options.Name}
	if !options.DisableLogging && l != nil {
		obs.logger = l.WithGroup("layout")
	}
	if !options.DisableMetrics {
		metrics, err := NewMetrics(options.Name, registerer)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to create metrics")
		}
		obs.metrics = metrics
	}
	if options.EnableTracing {
		obs.tracer = otel.Tracer(fmt.Sprintf("layout.%s", options.Name))
	}
	return obs, nil
}

// Observe 执行 fn 并记录观测数据，fn 返回写入的行数
func (obs *Observer) Observe(ctx context.Context, operation string, ref form.SectionRef, fn func(context.Context) (int, error)) error {
	if obs == nil {
		_, err := fn(ctx)
		return err
	}

	start := time.Now()

	var span trace.Span
	if obs.tracer != nil {
		ctx, span = obs.tracer.Start(ctx, fmt.Sprintf("layout.%s", operation),
			trace.WithAttributes(
				attribute.String("component", obs.name),
				attribute.String("operation", operation),
				attribute.String("namespace", string(ref.Namespace)),
				attribute.String("section", ref.Section),
			),
		)
		defer span.End()
	}

	if obs.metrics != nil {
		obs.metrics.activeOperations.WithLabelValues(operation).Inc()
		defer obs.metrics.activeOperations.WithLabelValues(operation).Dec()
	}

	rows, err := fn(ctx)
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
		if form.IsDomain(err) {
			status = "rejected"
		}
	}

	if span != nil {
		span.SetAttributes(
			attribute.Int64("duration_ms", duration.Milliseconds()),
			attribute.Int("changed_rows", rows),
		)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	if obs.metrics != nil {
		obs.metrics.operationCounter.WithLabelValues(operation, status).Inc()
		obs.metrics.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
		if err == nil {
			obs.metrics.changedRows.WithLabelValues(operation).Observe(float64(rows))
		}
	}

	if obs.logger != nil {
		args := []any{
			"component", obs.name,
			"operation", operation,
			"scope", ref.String(),
			"duration_ms", duration.Milliseconds(),
		}
		switch status {
		case "success":
			obs.logger.InfoContext(ctx, "layout operation completed", append(args, "changed_rows", rows)...)
		case "rejected":
			obs.logger.WarnContext(ctx, "layout operation rejected", append(args, "error", err.Error())...)
		default:
			obs.logger.ErrorContext(ctx, "layout operation failed", append(args, "error", err.Error())...)
		}
	}

	return err
}
