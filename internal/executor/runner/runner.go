/**
 * 子进程执行器
 * @author: sun977
 * @date: 2026.02.11
 * @description: 直接 exec 二进制(不经过 shell)，限时执行，超时或取消时结束整棵进程树，
 *               stdout/stderr 以原始字节保存，解码交给 Normalizer
 */
package runner

import (
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/google/uuid"

	"github.com/liyander/secops-mcp/internal/executor/core"
	"github.com/liyander/secops-mcp/internal/pkg/logger"
)

const (
	// DefaultMaxOutputBytes 单个输出流默认上限 16MB
	DefaultMaxOutputBytes = 16 * 1024 * 1024
	// DefaultWaitDelay 进程退出后等待输出管道关闭的最长时间
	DefaultWaitDelay = 2 * time.Second
)

// ProcessRunner 子进程执行器
type ProcessRunner struct {
	maxOutputBytes int64
	waitDelay      time.Duration
	env            []string
}

// Ensure interface compliance
var _ core.Runner = (*ProcessRunner)(nil)

// Option ProcessRunner 配置项
type Option func(*ProcessRunner)

// WithMaxOutputBytes 设置单个输出流上限
func WithMaxOutputBytes(n int64) Option {
	return func(r *ProcessRunner) {
		if n > 0 {
			r.maxOutputBytes = n
		}
	}
}

// WithWaitDelay 设置管道等待时间
func WithWaitDelay(d time.Duration) Option {
	return func(r *ProcessRunner) {
		if d > 0 {
			r.waitDelay = d
		}
	}
}

// WithEnv 追加环境变量 (KEY=VALUE)，默认继承父进程环境
func WithEnv(env ...string) Option {
	return func(r *ProcessRunner) {
		r.env = append(r.env, env...)
	}
}

// NewProcessRunner 创建执行器
func NewProcessRunner(opts ...Option) *ProcessRunner {
	r := &ProcessRunner{
		maxOutputBytes: DefaultMaxOutputBytes,
		waitDelay:      DefaultWaitDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run 执行一次调用，永远返回非 nil 结果
func (r *ProcessRunner) Run(ctx context.Context, inv *core.ToolInvocation) *core.ProcessResult {
	start := time.Now()
	result := &core.ProcessResult{ExitCode: -1}
	defer func() { result.Duration = time.Since(start) }()

	binary := inv.Binary()
	if binary == "" {
		result.LaunchError = (&core.LaunchError{Binary: string(inv.ToolName), Err: exec.ErrNotFound}).Error()
		return result
	}

	// 1. 解析二进制路径
	path, err := exec.LookPath(binary)
	if err != nil {
		result.LaunchError = (&core.LaunchError{Binary: binary, Err: err}).Error()
		return result
	}

	stdout := newCappedBuffer(r.maxOutputBytes)
	stderr := newCappedBuffer(r.maxOutputBytes)

	cmd := exec.Command(path, inv.Args()...)
	cmd.Dir = inv.WorkingDir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = r.waitDelay
	// 标记变量由全部后代继承，用于找回脱离进程组的进程
	mark := uuid.New().String()
	cmd.Env = append(append(cmd.Environ(), r.env...), markerEnv+"="+mark)
	setProcAttr(cmd)

	// 2. 启动
	if err := cmd.Start(); err != nil {
		result.LaunchError = (&core.LaunchError{Binary: binary, Err: err}).Error()
		return result
	}
	pid := cmd.Process.Pid
	logger.WithFields(map[string]interface{}{
		"invocation_id": inv.ID,
		"tool":          inv.ToolName,
		"pid":           pid,
	}).Debugf("process started: %s", path)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var timer <-chan time.Time
	if inv.TimeoutSeconds > 0 {
		t := time.NewTimer(inv.Timeout())
		defer t.Stop()
		timer = t.C
	}

	// 3. 等待退出、超时或取消
	var waitErr error
	select {
	case waitErr = <-done:
	case <-timer:
		result.TimedOut = true
		killTree(pid)
		waitErr = <-done
	case <-ctx.Done():
		result.Canceled = true
		killTree(pid)
		waitErr = <-done
	}

	// 进程组中可能还有未退出的后代，setsid 脱离进程组的按标记查找
	reapGroup(pid)
	killAll(findMarked(mark))

	result.Stdout = stdout.Bytes()
	result.Stderr = stderr.Bytes()
	result.Truncated = stdout.Truncated() || stderr.Truncated()

	if cmd.ProcessState != nil {
		result.ExitCode = cmd.ProcessState.ExitCode()
	}
	if waitErr != nil && !errors.Is(waitErr, exec.ErrWaitDelay) {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) && !result.TimedOut && !result.Canceled {
			logger.Warnf("wait for %s (pid %d) failed: %v", binary, pid, waitErr)
		}
	}

	return result
}
