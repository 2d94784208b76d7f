// Package telemetry 提供 OpenTelemetry 分布式追踪与日志的封装。
// 追踪数据通过 OTLP gRPC 导出到兼容的后端（如 Tempo、Jaeger），
// 日志使用 logrus，并由 LogrusHook 自动关联当前 Span。
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/oriys/physlab/internal/config"
)

// instrumentationName 本服务创建 Span 时使用的追踪器名称
const instrumentationName = "github.com/oriys/physlab"

// Version 服务版本号，构建时可通过 -ldflags 覆盖
var Version = "dev"

// Telemetry 持有追踪提供者，负责追踪数据的生命周期。
type Telemetry struct {
	cfg            config.TelemetryConfig
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
}

// New 根据配置初始化 OpenTelemetry 追踪。
// 未启用时返回只包含全局（空操作）追踪器的实例。
//
// 参数：
//   - ctx: 上下文，用于控制连接超时
//   - cfg: 遥测配置
//
// 返回：
//   - *Telemetry: 遥测实例
//   - error: 连接导出端点或创建资源失败时返回错误
func New(ctx context.Context, cfg config.TelemetryConfig) (*Telemetry, error) {
	if !cfg.Enabled {
		return &Telemetry{cfg: cfg, tracer: otel.Tracer(instrumentationName)}, nil
	}

	if cfg.ServiceName == "" {
		cfg.ServiceName = "physlab-server"
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "tempo:4317"
	}
	if cfg.SampleRate > 1 {
		cfg.SampleRate = 1
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, err := grpc.DialContext(ctx, cfg.Endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to %s: %w", cfg.Endpoint, err)
	}

	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(Version),
			attribute.String("environment", cfg.Environment),
		),
		resource.WithHost(),
		resource.WithProcess(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler(cfg.SampleRate))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Telemetry{
		cfg:            cfg,
		tracerProvider: tp,
		tracer:         tp.Tracer(instrumentationName),
	}, nil
}

// sampler 根据采样率选择采样器：>=1 全量，<=0 不采样，其余按 TraceID 比率采样
func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// Tracer 返回追踪器
func (t *Telemetry) Tracer() trace.Tracer {
	return t.tracer
}

// IsEnabled 返回遥测是否启用
func (t *Telemetry) IsEnabled() bool {
	return t.cfg.Enabled
}

// Shutdown 刷新待发送的追踪数据并释放资源。
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t.tracerProvider == nil {
		return nil
	}
	return t.tracerProvider.Shutdown(ctx)
}

// StartSpan 以全局追踪提供者创建一个子 Span。
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

// StartCalculationSpan 为一次计算创建 Span，并标注计算类型和模块。
//
// 参数：
//   - ctx: 父上下文
//   - kind: 计算类型，如 solve、calculator、converter
//   - module: 模块名称
func StartCalculationSpan(ctx context.Context, kind, module string) (context.Context, trace.Span) {
	return StartSpan(ctx, kind+" "+module,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("physlab.kind", kind),
			attribute.String("physlab.module", module),
		),
	)
}

// EndSpan 结束 Span，err 非空时记录错误并将状态置为 Error。
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// TraceIDFromContext 提取当前 Trace ID，无有效 Span 时返回空字符串。
func TraceIDFromContext(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
