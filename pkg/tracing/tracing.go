// Package tracing 基于OpenTelemetry的链路追踪
//
// 核心概念：
// - Trace：一次请求的完整调用链（下单 → 扣库存 → 写订单 → 发事件）
// - Span：调用链中的一个操作，记录开始时间、耗时、属性、错误
// - Context传递：子Span通过ctx挂到父Span下，必须把返回的ctx传给下游
//
// 未调用InitTracer时，otel全局Provider是no-op实现，
// StartSpan可以放心在业务代码中调用，不会产生任何开销之外的副作用。
package tracing

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Options 追踪配置
type Options struct {
	ServiceName string  // 服务名（Jaeger UI中按此分组）
	Endpoint    string  // OTLP gRPC端点，如 localhost:4317
	SampleRatio float64 // 采样率，<=0 或 >=1 表示全量采样
	Exporter    string  // otlp（默认）| stdout，stdout用于本地调试，Span直接打印到标准输出
}

// InitTracer 初始化全局TracerProvider，返回关闭函数
//
// 教学要点：
// 1. OTLP gRPC exporter是非阻塞连接，Collector暂不可用时不会导致启动失败
// 2. BatchSpanProcessor批量发送Span，退出前必须调用shutdown刷新
// 3. 采样策略使用ParentBased，保证同一条链路的采样决策一致
//
// 示例：
//
//	shutdown, err := tracing.InitTracer(tracing.Options{ServiceName: "bookmall-api", Endpoint: "localhost:4317"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer shutdown(context.Background())
func InitTracer(opts Options) (func(context.Context) error, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 1. 创建Exporter
	exporter, err := newExporter(ctx, opts)
	if err != nil {
		return nil, err
	}

	// 2. 资源属性：service.name是必需属性
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(opts.ServiceName)))
	if err != nil {
		return nil, fmt.Errorf("创建资源属性失败: %w", err)
	}

	// 3. 创建TracerProvider
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sampler(opts.SampleRatio)),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	// 4. 设置全局Provider和W3C传播器
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	shutdown := func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}

	return shutdown, nil
}

func newExporter(ctx context.Context, opts Options) (sdktrace.SpanExporter, error) {
	switch opts.Exporter {
	case "", "otlp":
		exporter, err := otlptracegrpc.New(
			ctx,
			otlptracegrpc.WithEndpoint(opts.Endpoint),
			otlptracegrpc.WithInsecure(), // 禁用TLS（生产环境应启用）
		)
		if err != nil {
			return nil, fmt.Errorf("创建OTLP exporter失败: %w", err)
		}
		return exporter, nil
	case "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("创建stdout exporter失败: %w", err)
		}
		return exporter, nil
	default:
		return nil, fmt.Errorf("不支持的exporter: %s", opts.Exporter)
	}
}

func sampler(ratio float64) sdktrace.Sampler {
	if ratio <= 0 || ratio >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}

// StartSpan 创建一个新的Span
//
// Span命名使用操作名（CreateOrder、CancelOrder），动态值放到属性里：
//
//	ctx, span := tracing.StartSpan(ctx, "order", "CreateOrder")
//	defer span.End()
//	span.SetAttributes(attribute.Int("item_count", len(items)))
func StartSpan(ctx context.Context, tracerName, spanName string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName)
}

// RecordError 记录错误并把Span状态置为Error（err为nil时什么都不做）
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// ExtractTraceID 从Context提取TraceID（用于关联日志）
func ExtractTraceID(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}

// ExtractSpanID 从Context提取SpanID
func ExtractSpanID(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.SpanID().String()
}
