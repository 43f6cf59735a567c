/*
 * @author: sun977
 * @date: 2026.02.18
 * @description: 单次调用与批量扫描子命令
 */

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/liyander/secops-mcp/internal/executor/core"
	"github.com/liyander/secops-mcp/internal/executor/manager"
	"github.com/liyander/secops-mcp/internal/pkg/utils"
	"github.com/liyander/secops-mcp/internal/reporter"
)

// outputFlags run / bulk 共用的输出参数
type outputFlags struct {
	options []string
	timeout int
	json    bool
	output  string
}

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.options, "option", "o", nil, "工具选项 key=value，可重复")
	cmd.Flags().IntVar(&f.timeout, "timeout", 0, "超时秒数 (默认取工具配置)")
	cmd.Flags().BoolVar(&f.json, "json", false, "以 JSON 输出结果")
	cmd.Flags().StringVar(&f.output, "output", "", "结果保存路径 (.json / .csv)")
}

var (
	runFlags outputFlags
	runDir   string

	bulkFlags       outputFlags
	bulkTargets     string
	bulkConcurrency int
)

var runCmd = &cobra.Command{
	Use:   "run <tool>",
	Short: "调用一次工具",
	Long: `按工具选项表构造命令行并执行，输出归一化后的结果。

示例:
  secops-mcp run nmap -o target=192.168.1.1 -o scan_type=sS -o ports=1-1000
  secops-mcp run subfinder -o domain=example.com --json
  secops-mcp run xsstrike -o url=https://t.example -o crawl --output xss.json`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationInteractive: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := parseOptions(runFlags.options)
		if err != nil {
			return err
		}
		return execute(cmd.Context(), args[0], &runFlags, func(ctx context.Context, mgr *manager.Manager) *core.ResultEnvelope {
			return mgr.Invoke(ctx, manager.InvokeRequest{
				Tool:           core.ToolName(args[0]),
				Options:        opts,
				TimeoutSeconds: runFlags.timeout,
				WorkingDir:     runDir,
			})
		})
	},
}

var bulkCmd = &cobra.Command{
	Use:   "bulk <tool>",
	Short: "对多个目标执行同一工具",
	Long: `每个目标填入工具的目标选项，按并发上限执行，输出按目标汇总。
--targets 可以是文件 (每行一个) 或逗号分隔的列表。

示例:
  secops-mcp bulk httpx --targets hosts.txt --concurrency 8
  secops-mcp bulk arjun --targets https://a.example,https://b.example -o method=POST --output params.csv`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationInteractive: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := parseOptions(bulkFlags.options)
		if err != nil {
			return err
		}
		targets, err := utils.LoadList(bulkTargets)
		if err != nil {
			return err
		}
		return execute(cmd.Context(), args[0], &bulkFlags, func(ctx context.Context, mgr *manager.Manager) *core.ResultEnvelope {
			return mgr.Bulk(ctx, manager.BulkRequest{
				Tool:           core.ToolName(args[0]),
				Targets:        targets,
				Options:        opts,
				Concurrency:    bulkConcurrency,
				TimeoutSeconds: bulkFlags.timeout,
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runFlags.register(runCmd)
	runCmd.Flags().StringVar(&runDir, "workdir", "", "子进程工作目录")

	rootCmd.AddCommand(bulkCmd)
	bulkFlags.register(bulkCmd)
	bulkCmd.Flags().StringVarP(&bulkTargets, "targets", "t", "", "目标文件或逗号分隔列表")
	bulkCmd.Flags().IntVar(&bulkConcurrency, "concurrency", 0, "并发数 (默认取配置)")
	_ = bulkCmd.MarkFlagRequired("targets")
}

// execute 创建调度器、执行并输出结果，Ctrl+C 取消正在运行的工具
func execute(parent context.Context, tool string, flags *outputFlags, call func(context.Context, *manager.Manager) *core.ResultEnvelope) error {
	mgr, err := manager.NewFromConfig(rt.cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var spinner *pterm.SpinnerPrinter
	if !flags.json {
		spinner, _ = pterm.DefaultSpinner.WithWriter(os.Stderr).Start("Running " + tool + "...")
	}
	env := call(ctx, mgr)
	if spinner != nil {
		_ = spinner.Stop()
	}

	if err := reporter.NewConsoleReporter(os.Stdout, flags.json).Report(tool, env); err != nil {
		return err
	}
	if flags.output != "" && env.Success {
		if err := reporter.SaveResult(flags.output, env); err != nil {
			return err
		}
		if !flags.json {
			pterm.Info.Printfln("Result saved to %s", flags.output)
		}
	}
	if !env.Success {
		return errToolFailed
	}
	return nil
}
