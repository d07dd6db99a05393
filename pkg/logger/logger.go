// Package logger 基于zap的结构化日志
//
// 教学要点：
// 1. 开发环境使用console格式（彩色、易读），生产环境使用json格式（便于ELK采集）
// 2. 请求级字段（request_id、trace_id）通过Context传递，而非全局变量
// 3. 业务代码只依赖*zap.Logger，测试时注入zap.NewNop()或zaptest.NewLogger(t)
package logger

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xiebiao/bookmall/pkg/tracing"
)

// Options 日志配置
type Options struct {
	Level        string // debug | info | warn | error
	Format       string // console | json
	Output       string // stdout | stderr | /path/to/file
	EnableCaller bool
}

// New 根据配置创建Logger
func New(opts Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(defaultString(opts.Level, "info"))
	if err != nil {
		return nil, fmt.Errorf("无效的日志级别: %w", err)
	}

	var cfg zap.Config
	switch strings.ToLower(defaultString(opts.Format, "console")) {
	case "json":
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	case "console":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("无效的日志格式: %s", opts.Format)
	}

	output := defaultString(opts.Output, "stdout")
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{output}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableCaller = !opts.EnableCaller

	return cfg.Build()
}

// =========================================
// 请求级字段
// =========================================

type requestIDKey struct{}

// ContextWithRequestID 将请求ID写入Context
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext 读取请求ID（不存在返回空字符串）
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithContext 为Logger附加请求ID和TraceID
//
// 使用示例：
//
//	logger.WithContext(ctx, uc.log).Info("订单创建成功", zap.String("order_no", o.OrderNo))
func WithContext(ctx context.Context, base *zap.Logger) *zap.Logger {
	fields := make([]zap.Field, 0, 2)
	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if traceID := tracing.ExtractTraceID(ctx); traceID != "" {
		fields = append(fields, zap.String("trace_id", traceID))
	}
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
