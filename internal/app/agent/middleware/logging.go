/**
 * 中间件:日志相关中间件
 * @author: sun977
 * @date: 2026.02.15
 * @description: 请求 ID 透传或生成，访问日志与错误日志
 */
package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/liyander/secops-mcp/internal/model/base"
	"github.com/liyander/secops-mcp/internal/pkg/logger"
	"github.com/liyander/secops-mcp/internal/pkg/utils"
)

// RequestIDHeader 请求 ID 头
const RequestIDHeader = "X-Request-ID"

// 跳过访问日志的路径
var skipPaths = map[string]struct{}{
	"/health": {},
	"/ping":   {},
}

// GinLoggingMiddleware 记录访问日志，4xx/5xx 额外记录错误日志
func GinLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		clientIP := utils.GetClientIP(c)
		c.Set("request_id", requestID)
		c.Set("client_ip", clientIP)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		if _, skip := skipPaths[c.Request.URL.Path]; skip {
			return
		}
		logger.LogAccessRequest(c, start, requestID)

		statusCode := c.Writer.Status()
		if statusCode >= http.StatusBadRequest {
			errorMsg := http.StatusText(statusCode)
			if len(c.Errors) > 0 {
				errorMsg = c.Errors.String()
			}
			logger.LogError(fmt.Errorf("HTTP %d: %s", statusCode, errorMsg), requestID, map[string]interface{}{
				"method":    c.Request.Method,
				"url":       c.Request.URL.String(),
				"client_ip": clientIP,
			})
		}
	}
}

// GinRecoveryMiddleware panic 转为 500 并记录
func GinRecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		requestID, _ := c.Get("request_id")
		logger.LogError(fmt.Errorf("panic recovered: %v", recovered), fmt.Sprint(requestID), map[string]interface{}{
			"method": c.Request.Method,
			"url":    c.Request.URL.String(),
		})
		c.AbortWithStatusJSON(http.StatusInternalServerError,
			base.NewErrorResponse(http.StatusInternalServerError, "Internal Server Error", nil))
	})
}
