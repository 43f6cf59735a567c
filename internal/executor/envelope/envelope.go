// Package envelope 把执行结果或错误包装为统一的 {success, error, results} 结构
package envelope

import (
	"errors"

	"github.com/liyander/secops-mcp/internal/executor/core"
)

// Classify 按固定顺序判定一次执行的失败原因，成功返回 nil
// 顺序: 超时 > 取消 > 启动失败 > 退出码不在成功码内
func Classify(tool core.ToolName, res *core.ProcessResult, exit core.ExitConvention) error {
	if res == nil {
		return &core.LaunchError{Binary: string(tool), Err: errors.New("no result")}
	}
	switch {
	case res.TimedOut:
		return &core.TimeoutError{Tool: tool}
	case res.Canceled:
		return &core.CanceledError{Tool: tool}
	case res.LaunchError != "":
		return &core.LaunchError{Binary: string(tool), Message: res.LaunchError}
	case !exit.Accepts(res.ExitCode):
		return &core.ToolExecutionError{Tool: tool, ExitCode: res.ExitCode, Stderr: string(res.Stderr)}
	}
	return nil
}

// Wrap 组装返回给调用方的结构
// 相同输入两次调用结果序列化后逐字节相同
func Wrap(tool core.ToolName, res *core.ProcessResult, normalized interface{}, exit core.ExitConvention) *core.ResultEnvelope {
	if err := Classify(tool, res, exit); err != nil {
		return Failure(err)
	}
	return Success(normalized)
}

// Success 成功结构，空结果统一为 {}
func Success(results interface{}) *core.ResultEnvelope {
	if results == nil {
		results = map[string]interface{}{}
	}
	return &core.ResultEnvelope{Success: true, Results: results}
}

// Failure 失败结构，用于启动前的错误 (配置错误、未知工具) 以及 Classify 的结果
func Failure(err error) *core.ResultEnvelope {
	msg := "unknown error"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return &core.ResultEnvelope{Success: false, Error: msg, Err: err}
}
