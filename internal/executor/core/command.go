package core

import "context"

// CommandBuilder 定义命令构建接口
// 它的职责是将抽象的选项转换为具体的参数列表，Argv[0] 为二进制
type CommandBuilder interface {
	Build(spec *ToolSpec, opts Options) ([]string, error)
}

// Runner 执行后端接口，子进程与 HTTP 集成都实现它
type Runner interface {
	Run(ctx context.Context, inv *ToolInvocation) *ProcessResult
}
