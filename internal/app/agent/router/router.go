/**
 * 路由注册
 * @author: sun977
 * @date: 2026.02.15
 * @description: 健康检查路由与 /api/v1/tools 工具路由
 */
package router

import (
	"github.com/gin-gonic/gin"

	"github.com/liyander/secops-mcp/internal/app/agent/middleware"
	"github.com/liyander/secops-mcp/internal/executor/manager"
	"github.com/liyander/secops-mcp/internal/handler/tool"
)

// APIPrefix 接口前缀
const APIPrefix = "/api/v1"

// Router 路由器
type Router struct {
	engine      *gin.Engine
	manager     *manager.Manager
	toolHandler *tool.ToolHandler
	serviceName string
}

// NewRouter 创建路由器，mode 为 gin 运行模式，空值使用 release
func NewRouter(mgr *manager.Manager, serviceName, mode string) *Router {
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	r := &Router{
		engine:      gin.New(),
		manager:     mgr,
		toolHandler: tool.NewToolHandler(mgr),
		serviceName: serviceName,
	}
	r.registerRoutes()
	return r
}

func (r *Router) registerRoutes() {
	r.engine.Use(middleware.GinLoggingMiddleware())
	r.engine.Use(middleware.GinRecoveryMiddleware())

	r.setupHealthRoutes()
	r.setupToolRoutes(r.engine.Group(APIPrefix))
}

func (r *Router) setupToolRoutes(group *gin.RouterGroup) {
	tools := group.Group("/tools")
	tools.GET("", r.toolHandler.ListTools)
	tools.GET("/:name", r.toolHandler.GetTool)
	tools.POST("/:name/run", r.toolHandler.RunTool)
	tools.POST("/:name/bulk", r.toolHandler.BulkScan)
}

// GetEngine 获取Gin引擎
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
