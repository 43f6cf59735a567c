package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/liyander/secops-mcp/internal/config"
	"github.com/liyander/secops-mcp/internal/executor/core"
	"github.com/liyander/secops-mcp/internal/executor/normalizer"
)

// Default 只包含内置工具的目录
func Default() *Catalog {
	c, err := New(Builtin()...)
	if err != nil {
		// 内置表写错属于编程错误
		panic(fmt.Sprintf("builtin catalog: %v", err))
	}
	return c
}

// FromConfig 内置工具 + 二进制路径覆盖 + 自定义工具
// 配置热更新时重新调用，生成新的目录
func FromConfig(cfg *config.ExecutorConfig) (*Catalog, error) {
	specs := Builtin()
	if cfg == nil {
		return New(specs...)
	}

	known := make(map[core.ToolName]bool, len(specs))
	for _, s := range specs {
		known[s.Name] = true
	}

	for _, tc := range cfg.CustomTools {
		spec, err := CustomSpec(tc)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
		known[spec.Name] = true
	}

	for name, path := range cfg.ToolPaths {
		if !known[core.ToolName(name)] {
			return nil, fmt.Errorf("tool_paths: unknown tool %q", name)
		}
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("tool_paths: empty path for %q", name)
		}
	}
	for i, s := range specs {
		if path, ok := cfg.ToolPaths[string(s.Name)]; ok && s.Backend != core.BackendHTTP {
			c := s.Clone()
			c.Binary = strings.TrimSpace(path)
			specs[i] = c
		}
	}

	return New(specs...)
}

// CustomSpec 把配置中的自定义工具转换为目录项
func CustomSpec(tc config.CustomToolConfig) (*core.ToolSpec, error) {
	name := core.ToolName(strings.TrimSpace(tc.Name))
	fail := func(format string, args ...interface{}) error {
		return fmt.Errorf("custom tool %q: %s", name, fmt.Sprintf(format, args...))
	}

	strategy, err := normalizer.StrategyByName(tc.Parse, tc.Pattern)
	if err != nil {
		return nil, fail("%v", err)
	}

	binary := tc.Binary
	if binary == "" {
		binary = string(name)
	}
	mcpName := tc.MCPName
	if mcpName == "" {
		mcpName = string(name)
	}

	spec := &core.ToolSpec{
		Name:           name,
		MCPName:        mcpName,
		Description:    tc.Description,
		Category:       "custom",
		Binary:         binary,
		Backend:        core.BackendProcess,
		Prefix:         append([]string(nil), tc.Prefix...),
		Fixed:          append([]string(nil), tc.Fixed...),
		Parse:          strategy,
		Exit:           core.ExitConvention{SuccessCodes: append([]int(nil), tc.SuccessCodes...)},
		TargetOption:   tc.Target,
		DefaultTimeout: time.Duration(tc.DefaultTimeout) * time.Second,
	}

	for _, oc := range tc.Options {
		kind, err := parseKind(oc.Kind)
		if err != nil {
			return nil, fail("option %q: %v", oc.Name, err)
		}
		style, err := parseStyle(oc.Style)
		if err != nil {
			return nil, fail("option %q: %v", oc.Name, err)
		}
		opt := core.OptionSpec{
			Name:        oc.Name,
			Flag:        oc.Flag,
			Kind:        kind,
			Style:       style,
			Required:    oc.Required,
			Separator:   oc.Separator,
			Choices:     append([]string(nil), oc.Choices...),
			Upper:       oc.Upper,
			Description: oc.Description,
		}
		// 缺省值以字符串配置，构建时再按类型转换
		if oc.Default != "" {
			if kind == core.KindBool {
				return nil, fail("option %q: boolean option must not have a default", oc.Name)
			}
			opt.Default = oc.Default
		}
		spec.Options = append(spec.Options, opt)
	}

	if err := validate(spec); err != nil {
		return nil, err
	}
	return spec, nil
}

func parseKind(s string) (core.OptionKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "string":
		return core.KindString, nil
	case "int", "integer":
		return core.KindInt, nil
	case "bool", "boolean":
		return core.KindBool, nil
	case "list":
		return core.KindList, nil
	case "joined":
		return core.KindJoined, nil
	case "domain":
		return core.KindDomain, nil
	case "enum":
		return core.KindEnum, nil
	}
	return 0, fmt.Errorf("unknown kind %q", s)
}

func parseStyle(s string) (core.FlagStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "separate":
		return core.StyleSeparate, nil
	case "attached":
		return core.StyleAttached, nil
	case "positional":
		return core.StylePositional, nil
	case "local":
		return core.StyleLocal, nil
	}
	return 0, fmt.Errorf("unknown style %q", s)
}

// Timeout 为一次调用选择超时时间
// 顺序: 调用方指定 > 工具缺省 > 全局缺省，最终不超过全局上限
func Timeout(spec *core.ToolSpec, requested, defaultSeconds, maxSeconds int) int {
	timeout := requested
	if timeout <= 0 && spec != nil && spec.DefaultTimeout > 0 {
		timeout = int(spec.DefaultTimeout / time.Second)
	}
	if timeout <= 0 {
		timeout = defaultSeconds
	}
	if maxSeconds > 0 && timeout > maxSeconds {
		timeout = maxSeconds
	}
	if timeout <= 0 {
		timeout = 1
	}
	return timeout
}
