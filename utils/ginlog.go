package utils

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ContextRequestIDKey carries the per-request id through the Gin context.
const ContextRequestIDKey = "request_id"

// GinLogger logs each request through the global zap logger with timing.
func GinLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		path := ctx.Request.URL.Path
		query := ctx.Request.URL.RawQuery

		ctx.Next()

		if Logger == nil {
			return
		}
		Logger.Info("request",
			zap.String("method", ctx.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", ctx.Writer.Status()),
			zap.String("ip", ctx.ClientIP()),
			zap.String("request_id", ctx.GetString(ContextRequestIDKey)),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// GinRecovery recovers panics, logs the stack and answers 500.
func GinRecovery() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				if Logger != nil {
					Logger.Error("panic recovered",
						zap.Any("error", err),
						zap.String("path", ctx.Request.URL.Path),
						zap.String("request_id", ctx.GetString(ContextRequestIDKey)),
						zap.ByteString("stack", debug.Stack()),
					)
				}
				Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
				ctx.Abort()
			}
		}()
		ctx.Next()
	}
}
