package core

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"time"
)

// ConfigurationError 启动前发现的选项错误 (未知选项、类型错误、缺少必填项、未知工具)
type ConfigurationError struct {
	Tool   ToolName
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("%s: option %q: %s", e.Tool, e.Key, e.Reason)
}

// NewUnknownOptionError 未识别的选项
func NewUnknownOptionError(tool ToolName, key string) *ConfigurationError {
	return &ConfigurationError{Tool: tool, Key: key, Reason: "unknown option"}
}

// NewUnknownToolError 未注册的工具
func NewUnknownToolError(tool ToolName) *ConfigurationError {
	return &ConfigurationError{Tool: tool, Reason: "unknown tool"}
}

// IsUnknownTool 判断是否为未知工具错误
func IsUnknownTool(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce) && ce.Key == "" && ce.Reason == "unknown tool"
}

// LaunchError 二进制不存在或无法启动
// Message 非空时直接作为错误信息 (由 ProcessResult.LaunchError 还原)
type LaunchError struct {
	Binary  string
	Err     error
	Message string
}

func (e *LaunchError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if errors.Is(e.Err, exec.ErrNotFound) || errors.Is(e.Err, fs.ErrNotExist) {
		return "binary not found: " + e.Binary
	}
	return fmt.Sprintf("failed to launch %s: %v", e.Binary, e.Err)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// TimeoutError 超过时间限制
type TimeoutError struct {
	Tool    ToolName
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return "timeout"
}

// CanceledError 调用方取消
type CanceledError struct {
	Tool ToolName
}

func (e *CanceledError) Error() string {
	return "canceled"
}

// MaxErrorTextBytes stderr 作为错误信息时的最大长度
const MaxErrorTextBytes = 2048

// ToolExecutionError 非零退出且不在工具约定的成功码内
type ToolExecutionError struct {
	Tool     ToolName
	ExitCode int
	Stderr   string
}

func (e *ToolExecutionError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		return fmt.Sprintf("%s exited with status %d", e.Tool, e.ExitCode)
	}
	if len(msg) > MaxErrorTextBytes {
		msg = strings.ToValidUTF8(msg[:MaxErrorTextBytes], "") + "..."
	}
	return msg
}
