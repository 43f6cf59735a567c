/*
 * @author: sun977
 * @date: 2026.02.18
 * @description: MCP stdio 服务子命令
 */

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/liyander/secops-mcp/internal/executor/manager"
	"github.com/liyander/secops-mcp/internal/mcp"
	"github.com/liyander/secops-mcp/internal/pkg/logger"
)

var mcpMaxCalls int

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "启动 MCP stdio 服务",
	Long: `通过标准输入输出提供 MCP (JSON-RPC 2.0，每行一条消息) 服务。
标准输出只写协议消息，日志写入标准错误或日志文件。

示例:
  secops-mcp mcp --config configs/config.yaml`,
	Annotations: map[string]string{annotationStdio: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if mcpMaxCalls > 0 {
			rt.cfg.MCP.MaxConcurrentCalls = mcpMaxCalls
		}
		return runMCP(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().IntVar(&mcpMaxCalls, "max-calls", 0, "同时执行的 tools/call 上限 (默认取配置)")
}

func runMCP(parent context.Context) error {
	mgr, err := manager.NewFromConfig(rt.cfg)
	if err != nil {
		return fmt.Errorf("failed to create tool manager: %w", err)
	}
	watcher := startWatcher(mgr, true)
	defer stopWatcher(watcher)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := mcp.NewServer(mgr, rt.cfg.MCP)
	err = server.Serve(ctx, os.Stdin, os.Stdout)
	if err != nil && ctx.Err() != nil {
		// 收到信号退出
		logger.Info("MCP server interrupted")
		return nil
	}
	return err
}
