/**
 * 命令构建器
 * @author: sun977
 * @date: 2026.02.10
 * @description: 根据工具目录中的选项模板把调用方选项转换为参数列表。
 *               结果是离散的 argv，直接交给 exec，不经过 shell，因此不存在 shell 元字符注入。
 */
package command

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/net/idna"

	"github.com/liyander/secops-mcp/internal/executor/core"
	"github.com/liyander/secops-mcp/internal/pkg/utils"
)

// Builder 基于选项表的通用命令构建器
type Builder struct{}

// Ensure interface compliance
var _ core.CommandBuilder = (*Builder)(nil)

// NewBuilder 创建命令构建器
func NewBuilder() *Builder {
	return &Builder{}
}

// Build 生成 argv
// 顺序: 二进制, Prefix, 选项(按表顺序), Fixed, 输出格式参数, 位置参数(按表顺序)
func (b *Builder) Build(spec *core.ToolSpec, opts core.Options) ([]string, error) {
	if spec == nil {
		return nil, fmt.Errorf("tool spec is nil")
	}
	if spec.Binary == "" {
		return nil, &core.ConfigurationError{Tool: spec.Name, Reason: "no binary configured"}
	}

	// 1. 未识别的选项直接报错，按名称排序保证错误信息稳定
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := spec.Option(k); !ok {
			return nil, core.NewUnknownOptionError(spec.Name, k)
		}
	}

	argv := make([]string, 0, 8)
	argv = append(argv, spec.Binary)
	argv = append(argv, spec.Prefix...)

	var positionals []string
	for i := range spec.Options {
		opt := &spec.Options[i]

		raw, present := opts[opt.Name]
		if !present || raw == nil {
			raw, present = opt.Default, opt.Default != nil
		}
		if !present {
			if opt.Required {
				return nil, &core.ConfigurationError{Tool: spec.Name, Key: opt.Name, Reason: "required option missing"}
			}
			continue
		}

		tokens, err := renderOption(spec.Name, opt, raw)
		if err != nil {
			return nil, err
		}

		switch opt.Style {
		case core.StyleLocal:
			// 只做校验，不进入命令行
		case core.StylePositional:
			positionals = append(positionals, tokens...)
		default:
			argv = append(argv, tokens...)
		}
	}

	argv = append(argv, spec.Fixed...)
	if spec.FormatOption != "" {
		if f, ok := spec.Formats[spec.FormatName(opts)]; ok {
			argv = append(argv, f.Args...)
		}
	}
	argv = append(argv, positionals...)

	for _, arg := range argv {
		if strings.ContainsRune(arg, 0) {
			return nil, &core.ConfigurationError{Tool: spec.Name, Reason: "argument contains NUL byte"}
		}
	}

	return argv, nil
}

// renderOption 把单个选项值渲染为命令行 token
func renderOption(tool core.ToolName, opt *core.OptionSpec, raw interface{}) ([]string, error) {
	fail := func(format string, args ...interface{}) error {
		return &core.ConfigurationError{Tool: tool, Key: opt.Name, Reason: fmt.Sprintf(format, args...)}
	}

	var values []string

	switch opt.Kind {
	case core.KindBool:
		on, err := utils.ToBool(raw)
		if err != nil {
			return nil, fail("%v", err)
		}
		if on && opt.Style != core.StyleLocal {
			return []string{opt.Flag}, nil
		}
		return nil, nil

	case core.KindInt:
		n, err := utils.ToInt(raw)
		if err != nil {
			return nil, fail("%v", err)
		}
		values = []string{strconv.Itoa(n)}

	case core.KindList, core.KindJoined:
		items, err := listValues(opt, raw)
		if err != nil {
			return nil, fail("%v", err)
		}
		if len(items) == 0 {
			if opt.Required {
				return nil, fail("must not be empty")
			}
			return nil, nil
		}
		if opt.Kind == core.KindJoined {
			sep := opt.Separator
			if sep == "" {
				sep = ","
			}
			values = []string{strings.Join(items, sep)}
		} else {
			values = items
		}

	default:
		s, err := utils.ToString(raw)
		if err != nil {
			return nil, fail("%v", err)
		}
		s = strings.TrimSpace(s)
		if opt.Upper {
			s = strings.ToUpper(s)
		}
		if s == "" {
			if opt.Required {
				return nil, fail("must not be empty")
			}
			return nil, nil
		}
		switch opt.Kind {
		case core.KindDomain:
			ascii, err := idna.Lookup.ToASCII(strings.TrimSuffix(s, "."))
			if err != nil {
				return nil, fail("invalid domain %q: %v", s, err)
			}
			s = ascii
		case core.KindEnum:
			// 接受已带前缀的写法，例如 nmap 的 "-sV"
			if opt.Style == core.StyleAttached && opt.Flag != "" {
				s = strings.TrimPrefix(s, opt.Flag)
			}
			if !contains(opt.Choices, s) {
				return nil, fail("must be one of %s", strings.Join(opt.Choices, ", "))
			}
		}
		values = []string{s}
	}

	tokens := make([]string, 0, len(values)*2)
	for _, v := range values {
		switch opt.Style {
		case core.StyleLocal:
		case core.StylePositional:
			// 位置参数以 "-" 开头会被目标工具当作 flag 解析
			if strings.HasPrefix(v, "-") {
				return nil, fail("positional value must not start with '-'")
			}
			tokens = append(tokens, v)
		case core.StyleAttached:
			tokens = append(tokens, opt.Flag+v)
		default:
			tokens = append(tokens, opt.Flag, v)
		}
	}
	return tokens, nil
}

func contains(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}

// listValues 重复 flag 的列表选项里单个字符串就是一个元素，逗号属于值本身；
// 拼接选项的字符串仍按逗号切分
func listValues(opt *core.OptionSpec, raw interface{}) ([]string, error) {
	if s, ok := raw.(string); ok && opt.Kind == core.KindList {
		if s = strings.TrimSpace(s); s == "" {
			return nil, nil
		}
		return []string{s}, nil
	}
	return utils.ToStringSlice(raw)
}
