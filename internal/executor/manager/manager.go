/**
 * 执行器管理器
 * @author: sun977
 * @date: 2026.02.14
 * @description: 串起 构建 -> 执行 -> 归一化 -> 包装 的完整调用链，负责超时选择、后端选择、批量扫描和目录热替换
 */
package manager

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/liyander/secops-mcp/internal/config"
	"github.com/liyander/secops-mcp/internal/executor/catalog"
	"github.com/liyander/secops-mcp/internal/executor/command"
	"github.com/liyander/secops-mcp/internal/executor/core"
	"github.com/liyander/secops-mcp/internal/executor/envelope"
	"github.com/liyander/secops-mcp/internal/executor/normalizer"
	"github.com/liyander/secops-mcp/internal/executor/runner"
	"github.com/liyander/secops-mcp/internal/pkg/client"
	"github.com/liyander/secops-mcp/internal/pkg/logger"
	"github.com/liyander/secops-mcp/internal/pkg/utils"
)

// Settings 调用链使用的运行参数，来自 executor 与 bulk 配置段
type Settings struct {
	DefaultTimeout  int    // 缺省超时(秒)
	MaxTimeout      int    // 超时上限(秒)
	WorkDir         string // 缺省工作目录
	BulkConcurrency int    // 批量扫描缺省并发
	MaxTargets      int    // 批量扫描目标上限
}

// SettingsFromConfig 从配置提取运行参数
func SettingsFromConfig(cfg *config.Config) Settings {
	s := Settings{DefaultTimeout: 300, MaxTimeout: 3600, BulkConcurrency: 5, MaxTargets: 100}
	if cfg == nil {
		return s
	}
	if cfg.Executor != nil {
		s.DefaultTimeout = cfg.Executor.DefaultTimeout
		s.MaxTimeout = cfg.Executor.MaxTimeout
		s.WorkDir = cfg.Executor.WorkDir
	}
	if cfg.Bulk != nil {
		s.BulkConcurrency = cfg.Bulk.Concurrency
		s.MaxTargets = cfg.Bulk.MaxTargets
	}
	return s
}

// InvokeRequest 单次调用请求
type InvokeRequest struct {
	Tool           core.ToolName // 工具名称或 MCP 名称
	Options        core.Options
	TimeoutSeconds int    // 0 表示使用工具缺省
	WorkingDir     string // 空表示使用配置的工作目录
}

// BulkRequest 批量扫描请求，每个目标填入工具的 target 选项后单独调用
type BulkRequest struct {
	Tool           core.ToolName
	Targets        []string
	Options        core.Options
	Concurrency    int
	TimeoutSeconds int
}

// Metrics 调用统计
type Metrics struct {
	TotalCalls      int64         `json:"total_calls"`
	SuccessfulCalls int64         `json:"successful_calls"`
	FailedCalls     int64         `json:"failed_calls"`
	TimedOutCalls   int64         `json:"timed_out_calls"`
	RunningCalls    int64         `json:"running_calls"`
	Uptime          time.Duration `json:"uptime"`
}

// Manager 调用调度器，可被多个 goroutine 并发使用
type Manager struct {
	catalog  atomic.Pointer[catalog.Catalog]
	settings atomic.Pointer[Settings]

	builder core.CommandBuilder
	runners map[core.Backend]core.Runner

	startTime time.Time
	total     atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	timedOut  atomic.Int64
	running   atomic.Int64
}

// Option 管理器选项
type Option func(*Manager)

// WithBuilder 替换命令构建器
func WithBuilder(b core.CommandBuilder) Option {
	return func(m *Manager) {
		m.builder = b
	}
}

// WithRunner 替换指定后端的执行器
func WithRunner(backend core.Backend, r core.Runner) Option {
	return func(m *Manager) {
		m.runners[backend] = r
	}
}

// NewManager 创建管理器
func NewManager(cat *catalog.Catalog, settings Settings, opts ...Option) *Manager {
	m := &Manager{
		builder: command.NewBuilder(),
		runners: map[core.Backend]core.Runner{
			core.BackendProcess: runner.NewProcessRunner(),
			core.BackendHTTP:    client.NewIPInfoClient(nil),
		},
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if cat == nil {
		cat = catalog.Default()
	}
	m.catalog.Store(cat)
	m.settings.Store(&settings)
	return m
}

// NewFromConfig 按完整配置创建管理器
func NewFromConfig(cfg *config.Config, opts ...Option) (*Manager, error) {
	var execCfg *config.ExecutorConfig
	if cfg != nil {
		execCfg = cfg.Executor
	}
	cat, err := catalog.FromConfig(execCfg)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}

	var runnerOpts []runner.Option
	if execCfg != nil && execCfg.MaxOutputBytes > 0 {
		runnerOpts = append(runnerOpts, runner.WithMaxOutputBytes(execCfg.MaxOutputBytes))
	}
	var ipinfoCfg *config.IPInfoConfig
	if cfg != nil {
		ipinfoCfg = cfg.IPInfo
	}

	base := []Option{
		WithRunner(core.BackendProcess, runner.NewProcessRunner(runnerOpts...)),
		WithRunner(core.BackendHTTP, client.NewIPInfoClient(ipinfoCfg)),
	}
	return NewManager(cat, SettingsFromConfig(cfg), append(base, opts...)...), nil
}

// Catalog 当前目录快照
func (m *Manager) Catalog() *catalog.Catalog {
	return m.catalog.Load()
}

// SwapCatalog 原子替换目录，进行中的调用继续使用旧目录
func (m *Manager) SwapCatalog(c *catalog.Catalog) {
	if c == nil {
		return
	}
	m.catalog.Store(c)
}

// Settings 当前运行参数
func (m *Manager) Settings() Settings {
	return *m.settings.Load()
}

// ApplyConfig 配置热更新: 重建目录并替换运行参数，目录构建失败时保持原状
// 执行器的输出上限与 ipinfo 参数只在启动时生效
func (m *Manager) ApplyConfig(cfg *config.Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	cat, err := catalog.FromConfig(cfg.Executor)
	if err != nil {
		return fmt.Errorf("rebuild catalog: %w", err)
	}
	settings := SettingsFromConfig(cfg)
	m.SwapCatalog(cat)
	m.settings.Store(&settings)

	logger.LogSystemEvent("manager", "catalog_reloaded",
		fmt.Sprintf("tool catalog reloaded with %d tools", cat.Len()), logger.InfoLevel,
		map[string]interface{}{"tools": cat.Len()})
	return nil
}

// Metrics 调用统计快照
func (m *Manager) Metrics() Metrics {
	return Metrics{
		TotalCalls:      m.total.Load(),
		SuccessfulCalls: m.succeeded.Load(),
		FailedCalls:     m.failed.Load(),
		TimedOutCalls:   m.timedOut.Load(),
		RunningCalls:    m.running.Load(),
		Uptime:          time.Since(m.startTime),
	}
}

// Invoke 执行一次工具调用，任何失败都体现在返回的结构里
func (m *Manager) Invoke(ctx context.Context, req InvokeRequest) *core.ResultEnvelope {
	return m.invoke(ctx, m.Catalog(), req)
}

func (m *Manager) invoke(ctx context.Context, cat *catalog.Catalog, req InvokeRequest) *core.ResultEnvelope {
	m.total.Add(1)

	spec, err := cat.LookupMCP(string(req.Tool))
	if err != nil {
		return m.reject(req.Tool, err)
	}
	argv, err := m.builder.Build(spec, req.Options)
	if err != nil {
		return m.reject(spec.Name, err)
	}

	backend := spec.Backend
	if backend == "" {
		backend = core.BackendProcess
	}
	r, ok := m.runners[backend]
	if !ok || r == nil {
		return m.reject(spec.Name, &core.ConfigurationError{Tool: spec.Name, Reason: fmt.Sprintf("no runner for backend %q", backend)})
	}

	settings := m.Settings()
	timeout := catalog.Timeout(spec, req.TimeoutSeconds, settings.DefaultTimeout, settings.MaxTimeout)
	workDir := req.WorkingDir
	if workDir == "" {
		workDir = settings.WorkDir
	}
	inv := core.NewToolInvocation(spec.Name, argv, timeout, workDir)

	m.running.Add(1)
	res := r.Run(ctx, inv)
	m.running.Add(-1)
	if res == nil {
		res = &core.ProcessResult{ExitCode: -1, LaunchError: "runner returned no result"}
	}

	var normalized interface{}
	classified := envelope.Classify(spec.Name, res, spec.Exit)
	if classified == nil {
		normalized = normalizer.Normalize(spec, req.Options, res)
	}
	env := envelope.Wrap(spec.Name, res, normalized, spec.Exit)

	m.record(inv, res, env)
	return env
}

// reject 启动前失败 (未知工具、选项错误)
func (m *Manager) reject(tool core.ToolName, err error) *core.ResultEnvelope {
	m.failed.Add(1)
	logger.WithField("tool", tool).Warnf("tool invocation rejected: %v", err)
	return envelope.Failure(err)
}

func (m *Manager) record(inv *core.ToolInvocation, res *core.ProcessResult, env *core.ResultEnvelope) {
	entry := logger.ToolLogEntry{
		InvocationID: inv.ID,
		Tool:         string(inv.ToolName),
		Status:       "success",
		ExitCode:     res.ExitCode,
		Duration:     res.Duration,
		TimedOut:     res.TimedOut,
	}
	if env.Success {
		m.succeeded.Add(1)
	} else {
		m.failed.Add(1)
		entry.Status = "failed"
		entry.Error = env.Error
	}
	if res.TimedOut {
		m.timedOut.Add(1)
	}
	if res.Truncated {
		logger.WithField("invocation_id", inv.ID).Warnf("%s output truncated", inv.ToolName)
	}
	logger.LogToolInvocation(entry, inv.Argv)
}

// Bulk 对多个目标并发执行同一个工具
// results 以目标为 key，每个值都是独立的调用结果结构
func (m *Manager) Bulk(ctx context.Context, req BulkRequest) *core.ResultEnvelope {
	cat := m.Catalog()
	settings := m.Settings()

	spec, err := cat.LookupMCP(string(req.Tool))
	if err != nil {
		return envelope.Failure(err)
	}
	if spec.TargetOption == "" {
		return envelope.Failure(&core.ConfigurationError{Tool: spec.Name, Reason: "tool does not support bulk scans"})
	}
	if _, ok := req.Options[spec.TargetOption]; ok {
		return envelope.Failure(&core.ConfigurationError{Tool: spec.Name, Key: spec.TargetOption, Reason: "set per target by the bulk scan"})
	}

	targets := make([]string, 0, len(req.Targets))
	for _, t := range req.Targets {
		if t = strings.TrimSpace(t); t != "" {
			targets = append(targets, t)
		}
	}
	targets = utils.Dedup(targets)
	if len(targets) == 0 {
		return envelope.Failure(&core.ConfigurationError{Tool: spec.Name, Key: "targets", Reason: "at least one target is required"})
	}
	if settings.MaxTargets > 0 && len(targets) > settings.MaxTargets {
		return envelope.Failure(&core.ConfigurationError{
			Tool: spec.Name, Key: "targets",
			Reason: fmt.Sprintf("too many targets: %d (max %d)", len(targets), settings.MaxTargets),
		})
	}

	concurrency := req.Concurrency
	if concurrency <= 0 {
		concurrency = settings.BulkConcurrency
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	if concurrency > len(targets) {
		concurrency = len(targets)
	}

	targetOpt, _ := spec.Option(spec.TargetOption)
	results := make([]*core.ResultEnvelope, len(targets))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					results[i] = envelope.Failure(&core.CanceledError{Tool: spec.Name})
					continue
				}
				opts := req.Options.Clone()
				opts[spec.TargetOption] = targetValue(targetOpt, targets[i])
				results[i] = m.invoke(ctx, cat, InvokeRequest{
					Tool:           spec.Name,
					Options:        opts,
					TimeoutSeconds: req.TimeoutSeconds,
				})
			}
		}()
	}
	for i := range targets {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	perTarget := make(map[string]interface{}, len(targets))
	succeeded := 0
	for i, t := range targets {
		perTarget[t] = results[i]
		if results[i].Success {
			succeeded++
		}
	}

	logger.WithFields(map[string]interface{}{
		"tool":    spec.Name,
		"targets": len(targets),
		"success": succeeded,
	}).Info("bulk scan finished")

	return envelope.Success(map[string]interface{}{
		"tool":             spec.Name,
		"total_targets":    len(targets),
		"successful_scans": succeeded,
		"failed_scans":     len(targets) - succeeded,
		"results":          perTarget,
	})
}

// 列表类型的目标选项 (httpx urls) 需要传入单元素列表
func targetValue(opt *core.OptionSpec, target string) interface{} {
	if opt != nil && (opt.Kind == core.KindList || opt.Kind == core.KindJoined) {
		return []string{target}
	}
	return target
}
