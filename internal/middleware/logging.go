// Package middleware 存放 Gin 框架的中间件。
package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"imsheet-go/pkg/log"
)

// RequestLogger 是一个 Gin 中间件，用于记录请求日志。
// 图片上传请求体为二进制内容，只记录大小，不记录内容。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		latency := time.Since(startTime)
		fields := []interface{}{
			"statusCode", c.Writer.Status(),
			"latency", latency.String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		}
		if strings.HasPrefix(c.ContentType(), "multipart/") {
			fields = append(fields, "requestSize", c.Request.ContentLength)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}
		log.Infow("HTTP Request Log", fields...)
	}
}
