package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gavelhub/gavel/utils"
)

// RequestID attaches a unique id to each request and echoes it in the
// X-Request-ID response header so access log lines can be correlated.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := ctx.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		ctx.Set(utils.ContextRequestIDKey, id)
		ctx.Header("X-Request-ID", id)
		ctx.Next()
	}
}
