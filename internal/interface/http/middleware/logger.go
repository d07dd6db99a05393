package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xiebiao/bookmall/pkg/logger"
)

// slowRequestThreshold 超过该耗时的请求以Warn级别记录
const slowRequestThreshold = 3 * time.Second

// AccessLog 请求日志中间件
//
// 教学要点：
// 1. 记录方法、路由、状态码、耗时、客户端IP
// 2. 通过logger.WithContext附带request_id和trace_id
// 3. 不记录请求体和Authorization头（密码、Token属于敏感信息）
func AccessLog(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		log := logger.WithContext(c.Request.Context(), base)
		switch {
		case c.Writer.Status() >= 500:
			log.Error("HTTP请求", fields...)
		case latency > slowRequestThreshold:
			log.Warn("慢请求", fields...)
		default:
			log.Info("HTTP请求", fields...)
		}
	}
}

// Recovery 捕获panic，记录堆栈后返回500
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.WithContext(c.Request.Context(), base).Error("请求处理panic",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.Stack("stack"),
		)
		c.AbortWithStatus(500)
	})
}
