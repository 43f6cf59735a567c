// Package setup 组装 HTTP 服务模块
package setup

import (
	"fmt"
	"net/http"
	"time"

	"github.com/liyander/secops-mcp/internal/app/agent/router"
	"github.com/liyander/secops-mcp/internal/config"
	"github.com/liyander/secops-mcp/internal/executor/manager"
)

// ServerModule 服务器模块
type ServerModule struct {
	Router     *router.Router
	HTTPServer *http.Server
}

// SetupServer 初始化路由与 http.Server
func SetupServer(cfg *config.Config, mgr *manager.Manager) *ServerModule {
	serviceName := "secops-mcp"
	if cfg.App != nil && cfg.App.Name != "" {
		serviceName = cfg.App.Name
	}
	srvCfg := cfg.Server
	if srvCfg == nil {
		srvCfg = &config.ServerConfig{Port: 8080}
	}

	r := router.NewRouter(mgr, serviceName, srvCfg.Mode)
	httpServer := &http.Server{
		Addr:           fmt.Sprintf("%s:%d", srvCfg.Host, srvCfg.Port),
		Handler:        r.GetEngine(),
		ReadTimeout:    time.Duration(srvCfg.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(srvCfg.WriteTimeout) * time.Second,
		IdleTimeout:    time.Duration(srvCfg.IdleTimeout) * time.Second,
		MaxHeaderBytes: srvCfg.MaxHeaderBytes,
	}

	return &ServerModule{
		Router:     r,
		HTTPServer: httpServer,
	}
}
