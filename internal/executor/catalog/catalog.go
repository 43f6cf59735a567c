/**
 * 工具目录
 * @author: sun977
 * @date: 2026.02.12
 * @description: 工具名称 -> ToolSpec 的只读映射。构建后不再修改，配置热更新时整体替换。
 */
package catalog

import (
	"fmt"

	"github.com/liyander/secops-mcp/internal/executor/core"
)

// 批量入口占用的 MCP 名称，目录项不能使用
const (
	BulkScanName      = "bulk_scan"
	ArjunBulkScanName = "arjun_bulk_parameter_scan"
)

// Catalog 不可变的工具目录
type Catalog struct {
	tools map[core.ToolName]*core.ToolSpec
	order []core.ToolName
	byMCP map[string]core.ToolName // MCP 名称与别名
}

// New 校验并构建目录，任何一条不合法都返回错误
func New(specs ...*core.ToolSpec) (*Catalog, error) {
	c := &Catalog{
		tools: make(map[core.ToolName]*core.ToolSpec, len(specs)),
		order: make([]core.ToolName, 0, len(specs)),
		byMCP: make(map[string]core.ToolName, len(specs)),
	}

	for _, spec := range specs {
		if err := validate(spec); err != nil {
			return nil, err
		}
		if _, exists := c.tools[spec.Name]; exists {
			return nil, fmt.Errorf("duplicate tool: %s", spec.Name)
		}

		names := append([]string{spec.MCPName}, spec.Aliases...)
		for _, n := range names {
			if n == "" {
				continue
			}
			if owner, exists := c.byMCP[n]; exists {
				return nil, fmt.Errorf("tool %s: mcp name %q already used by %s", spec.Name, n, owner)
			}
			c.byMCP[n] = spec.Name
		}

		c.tools[spec.Name] = spec
		c.order = append(c.order, spec.Name)
	}
	return c, nil
}

// validate 单条目录项的静态检查
func validate(spec *core.ToolSpec) error {
	if spec == nil {
		return fmt.Errorf("nil tool spec")
	}
	if spec.Name == "" {
		return fmt.Errorf("tool spec without name")
	}
	for _, n := range append([]string{string(spec.Name), spec.MCPName}, spec.Aliases...) {
		if isReserved(n) {
			return fmt.Errorf("tool %s: name %q is reserved", spec.Name, n)
		}
	}
	if spec.Binary == "" {
		return fmt.Errorf("tool %s: binary is required", spec.Name)
	}
	if spec.Backend != "" && spec.Backend != core.BackendProcess && spec.Backend != core.BackendHTTP {
		return fmt.Errorf("tool %s: unknown backend %q", spec.Name, spec.Backend)
	}
	if len(spec.Exit.SuccessCodes) == 0 {
		return fmt.Errorf("tool %s: exit convention must declare success codes", spec.Name)
	}
	if spec.Parse == nil && len(spec.Formats) == 0 {
		return fmt.Errorf("tool %s: parse strategy is required", spec.Name)
	}

	seen := make(map[string]bool, len(spec.Options))
	for _, opt := range spec.Options {
		if opt.Name == "" {
			return fmt.Errorf("tool %s: option without name", spec.Name)
		}
		if seen[opt.Name] {
			return fmt.Errorf("tool %s: duplicate option %q", spec.Name, opt.Name)
		}
		seen[opt.Name] = true

		if opt.Kind == core.KindBool && opt.Default != nil {
			return fmt.Errorf("tool %s: boolean option %q must not have a default", spec.Name, opt.Name)
		}
		if opt.Kind == core.KindEnum && len(opt.Choices) == 0 {
			return fmt.Errorf("tool %s: enum option %q has no choices", spec.Name, opt.Name)
		}
		if opt.Style != core.StylePositional && opt.Style != core.StyleLocal && opt.Flag == "" {
			return fmt.Errorf("tool %s: option %q has no flag", spec.Name, opt.Name)
		}
	}

	if spec.FormatOption != "" {
		opt, ok := spec.Option(spec.FormatOption)
		if !ok {
			return fmt.Errorf("tool %s: format option %q not declared", spec.Name, spec.FormatOption)
		}
		for _, choice := range opt.Choices {
			f, ok := spec.Formats[choice]
			if !ok || f.Parse == nil {
				return fmt.Errorf("tool %s: format %q has no parse strategy", spec.Name, choice)
			}
		}
	}
	if spec.TargetOption != "" {
		if _, ok := spec.Option(spec.TargetOption); !ok {
			return fmt.Errorf("tool %s: target option %q not declared", spec.Name, spec.TargetOption)
		}
	}
	return nil
}

func isReserved(name string) bool {
	return name == BulkScanName || name == ArjunBulkScanName
}

// Lookup 按工具名称查找
func (c *Catalog) Lookup(name core.ToolName) (*core.ToolSpec, error) {
	if c != nil {
		if spec, ok := c.tools[name]; ok {
			return spec, nil
		}
	}
	return nil, core.NewUnknownToolError(name)
}

// LookupMCP 按 MCP 名称或别名查找，也接受工具名称本身
func (c *Catalog) LookupMCP(name string) (*core.ToolSpec, error) {
	if c != nil {
		if tool, ok := c.byMCP[name]; ok {
			return c.tools[tool], nil
		}
	}
	return c.Lookup(core.ToolName(name))
}

// Tools 按注册顺序返回全部工具
func (c *Catalog) Tools() []*core.ToolSpec {
	if c == nil {
		return nil
	}
	out := make([]*core.ToolSpec, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.tools[name])
	}
	return out
}

// Names 按注册顺序返回全部工具名称
func (c *Catalog) Names() []core.ToolName {
	if c == nil {
		return nil
	}
	return append([]core.ToolName(nil), c.order...)
}

// Len 工具数量
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}
