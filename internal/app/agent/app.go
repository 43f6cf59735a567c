/**
 * HTTP 应用
 * @author: sun977
 * @date: 2026.02.15
 * @description: 持有调度器与 HTTP 服务，负责启动与优雅关闭
 */

package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/liyander/secops-mcp/internal/app/agent/router"
	"github.com/liyander/secops-mcp/internal/app/agent/setup"
	"github.com/liyander/secops-mcp/internal/config"
	"github.com/liyander/secops-mcp/internal/executor/manager"
	"github.com/liyander/secops-mcp/internal/pkg/logger"
)

// App HTTP 应用
type App struct {
	router     *router.Router
	httpServer *http.Server
	config     *config.Config
	manager    *manager.Manager
}

// NewApp 创建应用，配置与日志由调用方初始化
func NewApp(cfg *config.Config, mgr *manager.Manager) (*App, error) {
	if cfg == nil || mgr == nil {
		return nil, errors.New("config and manager are required")
	}
	serverModule := setup.SetupServer(cfg, mgr)
	return &App{
		router:     serverModule.Router,
		httpServer: serverModule.HTTPServer,
		config:     cfg,
		manager:    mgr,
	}, nil
}

// GetRouter 获取路由器实例
func (a *App) GetRouter() *router.Router {
	return a.router
}

// GetHTTPServer 获取HTTP服务器实例
func (a *App) GetHTTPServer() *http.Server {
	return a.httpServer
}

// Start 后台启动 HTTP 服务，监听失败通过返回的通道报告
func (a *App) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	logger.LogSystemEvent("app", "start", "HTTP server started", logger.InfoLevel, map[string]interface{}{
		"addr":  a.httpServer.Addr,
		"tools": a.manager.Catalog().Len(),
	})
	return errCh
}

// Stop 等待进行中的请求结束，超过 ctx 期限后强制关闭
func (a *App) Stop(ctx context.Context) error {
	logger.Info("Stopping HTTP server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	logger.Info("HTTP server stopped")
	return nil
}
