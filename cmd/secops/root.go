/*
 * @author: sun977
 * @date: 2026.02.18
 * @description: Cobra Root Command 定义
 */

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/liyander/secops-mcp/internal/config"
	"github.com/liyander/secops-mcp/internal/pkg/logger"
)

// 命令注解
const (
	annotationStdio       = "stdio"       // 标准输出承载协议，日志必须改写到标准错误
	annotationInteractive = "interactive" // 控制台命令，未指定级别时只输出告警
)

// errToolFailed 工具失败已由 reporter 输出，只需以非零状态退出
var errToolFailed = errors.New("tool execution failed")

var (
	cfgFile string
	envFile string

	// rt 由 PersistentPreRunE 填充
	rt struct {
		cfg        *config.Config
		configFile string // 实际使用的配置文件，为空表示全部使用默认值
		loader     *config.ConfigLoader
		logs       *logger.LoggerManager
	}
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "secops-mcp",
	Short: "安全工具统一调用服务",
	Long: `secops-mcp 将常用安全工具 (nuclei/nmap/ffuf/sqlmap/httpx 等) 封装为统一的调用接口。
可以作为 MCP stdio 服务接入 AI 客户端，也可以作为 HTTP 服务或命令行工具运行。

示例:
  1.启动 MCP 服务 (stdio)
	secops-mcp mcp
  2.启动 HTTP 服务
	secops-mcp server --port 8080
  3.单次调用
	secops-mcp run nmap -o target=192.168.1.1 -o ports=80,443
  4.批量扫描
	secops-mcp bulk httpx --targets targets.txt --concurrency 8 --output result.csv
`,
	SilenceUsage:  true,
	SilenceErrors: true,
	// PersistentPreRunE: 全局初始化逻辑，确保所有子命令都能使用配置和日志
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initRuntime(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if rt.logs != nil {
			_ = rt.logs.Close()
		}
	},
}

func Execute() {
	// 全局 Panic Recovery
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\n[FATAL] secops-mcp crashed unexpectedly: %v\n", r)
			os.Exit(1)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errToolFailed) {
			pterm.Error.WithWriter(os.Stderr).Println(err)
		}
		os.Exit(1)
	}
}

func init() {
	// 全局 Flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件或目录 (默认: ./configs)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "环境变量文件")
	rootCmd.PersistentFlags().String("log-level", "", "日志级别 (debug, info, warn, error)")
}

// initRuntime 依次加载 .env、配置文件和日志
func initRuntime(cmd *cobra.Command) error {
	if err := config.NewEnvLoader(envFile).Load(); err != nil {
		return err
	}

	loader := config.NewConfigLoader(cfgFile, config.DefaultEnvPrefix)
	// 绑定 Viper，命令行参数优先级高于配置文件
	if err := loader.Viper().BindPFlag("log.level", cmd.Flags().Lookup("log-level")); err != nil {
		return fmt.Errorf("failed to bind log-level flag: %w", err)
	}

	cfg, err := loader.LoadConfig()
	if err != nil {
		return err
	}
	rt.cfg = cfg
	rt.configFile = loader.GetConfigPath()
	rt.loader = loader

	logCfg := *cfg.Log
	levelChanged := cmd.Flags().Changed("log-level")
	if isAnnotated(cmd, annotationInteractive) && !levelChanged {
		logCfg.Level = "warn"
	}
	if isAnnotated(cmd, annotationStdio) {
		forceStderr(&logCfg)
	}
	configurePterm(logCfg.Level)

	logs, err := logger.InitLogger(&logCfg)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	rt.logs = logs

	logger.LogSystemEvent("cli", "init", "Runtime initialized", logger.DebugLevel, map[string]interface{}{
		"command":     cmd.Name(),
		"config_file": rt.configFile,
		"environment": cfg.App.Environment,
	})
	return nil
}

// forceStderr stdio 模式下标准输出只留给协议消息
func forceStderr(cfg *config.LogConfig) {
	if cfg.Output == "" || cfg.Output == "stdout" {
		cfg.Output = "stderr"
	}
}

// configurePterm 控制台提示跟随日志级别
func configurePterm(level string) {
	switch level {
	case "debug":
		pterm.EnableDebugMessages()
	case "info":
		pterm.DisableDebugMessages()
	default:
		pterm.DisableDebugMessages()
		pterm.Info = *pterm.Info.WithWriter(io.Discard)
	}
}

func isAnnotated(cmd *cobra.Command, key string) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations[key] == "true" {
			return true
		}
	}
	return false
}
