/**
 * 路由:健康检查路由
 * @author: sun977
 * @date: 2026.02.15
 * @description: 健康检查、存活检查、版本信息，不需要认证
 */
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/liyander/secops-mcp/internal/pkg/logger"
	"github.com/liyander/secops-mcp/internal/pkg/monitor"
	"github.com/liyander/secops-mcp/internal/pkg/version"
)

func (r *Router) setupHealthRoutes() {
	r.engine.GET("/health", r.handleHealth)
	r.engine.GET("/ping", r.handlePing)
	r.engine.GET("/version", r.handleVersion)
}

// handleHealth 健康检查处理器
func (r *Router) handleHealth(c *gin.Context) {
	metrics := r.manager.Metrics()
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"timestamp":      logger.NowFormatted(),
		"service":        r.serviceName,
		"version":        version.GetVersion(),
		"tools":          r.manager.Catalog().Len(),
		"uptime_seconds": int64(metrics.Uptime.Seconds()),
		"calls":          metrics,
		"host":           monitor.GetHostStatus(),
	})
}

// handlePing Ping处理器
func (r *Router) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message":   "pong",
		"timestamp": logger.NowFormatted(),
	})
}

// handleVersion 版本信息处理器
func (r *Router) handleVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":   r.serviceName,
		"version":   version.GetInfo(),
		"timestamp": logger.NowFormatted(),
	})
}
