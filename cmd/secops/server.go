/*
 * @author: sun977
 * @date: 2026.02.18
 * @description: HTTP 服务模式子命令
 */

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/liyander/secops-mcp/internal/app/agent"
	"github.com/liyander/secops-mcp/internal/executor/manager"
	"github.com/liyander/secops-mcp/internal/pkg/logger"
)

var (
	serverHost string
	serverPort int
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动 HTTP 服务",
	Long: `以守护进程方式启动 HTTP 服务，提供工具目录查询和调用接口。

可以通过命令行参数指定监听地址，也可以通过配置文件指定。
命令行参数优先级高于配置文件。

示例:
  secops-mcp server --host 127.0.0.1 --port 8080`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serverHost != "" {
			rt.cfg.Server.Host = serverHost
		}
		if serverPort > 0 {
			rt.cfg.Server.Port = serverPort
		}
		return runServer()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVar(&serverHost, "host", "", "监听地址")
	serverCmd.Flags().IntVar(&serverPort, "port", 0, "监听端口")
}

func runServer() error {
	mgr, err := manager.NewFromConfig(rt.cfg)
	if err != nil {
		return fmt.Errorf("failed to create tool manager: %w", err)
	}
	app, err := agent.NewApp(rt.cfg, mgr)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	watcher := startWatcher(mgr, false)
	defer stopWatcher(watcher)

	errCh := app.Start()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	case <-quit:
	}
	logger.Info("Shutting down secops-mcp server...")

	// 给服务器5秒钟的时间来完成现有请求
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.Stop(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("secops-mcp exiting")
	return nil
}
