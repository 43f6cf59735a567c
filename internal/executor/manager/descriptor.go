package manager

import (
	"os/exec"

	"github.com/liyander/secops-mcp/internal/executor/core"
)

// OptionDescriptor 选项的对外描述
type OptionDescriptor struct {
	Name        string      `json:"name"`
	Type        string      `json:"type"`
	Flag        string      `json:"flag,omitempty"`
	Required    bool        `json:"required"`
	Default     interface{} `json:"default,omitempty"`
	Choices     []string    `json:"choices,omitempty"`
	Local       bool        `json:"local,omitempty"` // 只参与结果处理，不进入命令行
	Description string      `json:"description,omitempty"`
}

// ToolDescriptor 工具的对外描述，HTTP 接口与命令行 tools 子命令共用
type ToolDescriptor struct {
	Name           string             `json:"name"`
	MCPName        string             `json:"mcp_name"`
	Aliases        []string           `json:"aliases,omitempty"`
	Description    string             `json:"description"`
	Category       string             `json:"category"`
	Backend        string             `json:"backend"`
	Binary         string             `json:"binary"`
	Path           string             `json:"path,omitempty"`
	Available      bool               `json:"available"`
	TargetOption   string             `json:"target_option,omitempty"`
	Formats        []string           `json:"formats,omitempty"`
	SuccessCodes   []int              `json:"success_codes"`
	DefaultTimeout int                `json:"default_timeout"`
	Options        []OptionDescriptor `json:"options"`
}

// Describe 生成工具描述，并检查二进制是否可用
func Describe(spec *core.ToolSpec) ToolDescriptor {
	backend := spec.Backend
	if backend == "" {
		backend = core.BackendProcess
	}
	d := ToolDescriptor{
		Name:           string(spec.Name),
		MCPName:        spec.MCPName,
		Aliases:        spec.Aliases,
		Description:    spec.Description,
		Category:       spec.Category,
		Backend:        string(backend),
		Binary:         spec.Binary,
		TargetOption:   spec.TargetOption,
		Formats:        spec.FormatNames(),
		SuccessCodes:   spec.Exit.SuccessCodes,
		DefaultTimeout: int(spec.DefaultTimeout.Seconds()),
		Options:        make([]OptionDescriptor, 0, len(spec.Options)),
	}

	if backend == core.BackendHTTP {
		d.Available = true
	} else if path, err := exec.LookPath(spec.Binary); err == nil {
		d.Path, d.Available = path, true
	}

	for _, opt := range spec.Options {
		d.Options = append(d.Options, OptionDescriptor{
			Name:        opt.Name,
			Type:        opt.Kind.String(),
			Flag:        opt.Flag,
			Required:    opt.Required,
			Default:     opt.Default,
			Choices:     opt.Choices,
			Local:       opt.Style == core.StyleLocal,
			Description: opt.Description,
		})
	}
	return d
}

// DescribeAll 按目录顺序描述全部工具
func (m *Manager) DescribeAll() []ToolDescriptor {
	tools := m.Catalog().Tools()
	out := make([]ToolDescriptor, 0, len(tools))
	for _, spec := range tools {
		out = append(out, Describe(spec))
	}
	return out
}

// DescribeTool 按名称或 MCP 名称描述单个工具
func (m *Manager) DescribeTool(name string) (ToolDescriptor, error) {
	spec, err := m.Catalog().LookupMCP(name)
	if err != nil {
		return ToolDescriptor{}, err
	}
	return Describe(spec), nil
}
