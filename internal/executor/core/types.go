/**
 * 执行器核心数据模型
 * @author: sun977
 * @date: 2026.02.10
 * @description: 一次工具调用涉及的三个数据对象: ToolInvocation / ProcessResult / ResultEnvelope
 */
package core

import (
	"time"

	"github.com/google/uuid"
)

// ToolInvocation 一次工具调用的不可变描述
// Argv[0] 为二进制名称(或路径)，其余为参数，全部原样传递给子进程，不经过 shell
type ToolInvocation struct {
	ID             string   `json:"id"`                    // 调用ID，用于日志关联
	ToolName       ToolName `json:"tool_name"`             // 工具名称
	Argv           []string `json:"argv"`                  // 完整参数列表
	TimeoutSeconds int      `json:"timeout_seconds"`       // 超时时间(秒)
	WorkingDir     string   `json:"working_dir,omitempty"` // 工作目录，可选
}

// NewToolInvocation 创建调用描述，Argv 会被复制，调用方后续修改原切片不影响本对象
func NewToolInvocation(tool ToolName, argv []string, timeoutSeconds int, workingDir string) *ToolInvocation {
	copied := make([]string, len(argv))
	copy(copied, argv)
	return &ToolInvocation{
		ID:             uuid.New().String(),
		ToolName:       tool,
		Argv:           copied,
		TimeoutSeconds: timeoutSeconds,
		WorkingDir:     workingDir,
	}
}

// Binary 返回要执行的二进制
func (i *ToolInvocation) Binary() string {
	if len(i.Argv) == 0 {
		return ""
	}
	return i.Argv[0]
}

// Args 返回二进制之后的参数
func (i *ToolInvocation) Args() []string {
	if len(i.Argv) <= 1 {
		return nil
	}
	return i.Argv[1:]
}

// Timeout 超时时间
func (i *ToolInvocation) Timeout() time.Duration {
	return time.Duration(i.TimeoutSeconds) * time.Second
}

// ProcessResult 子进程执行结果，由 Runner 独占填充
type ProcessResult struct {
	ExitCode    int           `json:"exit_code"`    // 退出码，进程未启动或被信号终止时为 -1
	Stdout      []byte        `json:"-"`            // 原始标准输出
	Stderr      []byte        `json:"-"`            // 原始标准错误
	TimedOut    bool          `json:"timed_out"`    // 是否超时
	Canceled    bool          `json:"canceled"`     // 是否被调用方取消
	LaunchError string        `json:"launch_error"` // 启动失败原因
	Truncated   bool          `json:"truncated"`    // 输出是否被截断
	Duration    time.Duration `json:"duration"`     // 执行耗时
}

// Started 进程是否成功启动
func (r *ProcessResult) Started() bool {
	return r.LaunchError == ""
}

// ResultEnvelope 返回给调用方的唯一结构
// success=true 时只有 results，success=false 时只有 error
type ResultEnvelope struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Results interface{} `json:"results,omitempty"`

	Err error `json:"-"` // 失败原因，供 HTTP 层按错误类型选择状态码
}
