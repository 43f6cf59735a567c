package core

import (
	"sort"
	"time"
)

// ToolName 工具标识
type ToolName string

// 内置工具
const (
	ToolNuclei    ToolName = "nuclei"
	ToolFfuf      ToolName = "ffuf"
	ToolWfuzz     ToolName = "wfuzz"
	ToolSqlmap    ToolName = "sqlmap"
	ToolNmap      ToolName = "nmap"
	ToolHashcat   ToolName = "hashcat"
	ToolHttpx     ToolName = "httpx"
	ToolSubfinder ToolName = "subfinder"
	ToolTlsx      ToolName = "tlsx"
	ToolXSStrike  ToolName = "xsstrike"
	ToolAmass     ToolName = "amass"
	ToolDirsearch ToolName = "dirsearch"
	ToolGospider  ToolName = "gospider"
	ToolArjun     ToolName = "arjun"
	ToolIPInfo    ToolName = "ipinfo"
)

// BuiltinTools 全部内置工具，顺序即展示顺序
var BuiltinTools = []ToolName{
	ToolNuclei, ToolFfuf, ToolWfuzz, ToolSqlmap, ToolNmap, ToolHashcat, ToolHttpx,
	ToolSubfinder, ToolTlsx, ToolXSStrike, ToolAmass, ToolDirsearch, ToolGospider,
	ToolArjun, ToolIPInfo,
}

// OptionKind 选项值类型
type OptionKind int

const (
	KindString OptionKind = iota // 单个字符串
	KindInt                      // 整数
	KindBool                     // 布尔开关，true 输出裸 flag
	KindList                     // 列表，每个元素重复一次 flag
	KindJoined                   // 列表，按 Separator 拼接为一个值
	KindDomain                   // 域名，IDNA 规范化为 ASCII
	KindEnum                     // 枚举，取值必须在 Choices 中
)

// String 类型名，用于错误信息和 JSON Schema
func (k OptionKind) String() string {
	switch k {
	case KindInt:
		return "integer"
	case KindBool:
		return "boolean"
	case KindList, KindJoined:
		return "array"
	default:
		return "string"
	}
}

// FlagStyle 选项在命令行上的形态
type FlagStyle int

const (
	StyleSeparate   FlagStyle = iota // "-u value"
	StyleAttached                    // "-sV" (flag 与值拼接)
	StylePositional                  // 只有值
	StyleLocal                       // 不出现在命令行，仅供结果处理使用
)

// OptionSpec 单个选项的模板
type OptionSpec struct {
	Name        string      // 选项名 (调用方使用的 key)
	Flag        string      // 命令行 flag
	Kind        OptionKind  // 值类型
	Style       FlagStyle   // 输出形态
	Required    bool        // 是否必填
	Default     interface{} // 缺省值，布尔选项不允许有缺省值
	Separator   string      // KindJoined 拼接符，默认 ","
	Choices     []string    // KindEnum 可选值
	Upper       bool        // 字符串值转为大写后再校验
	Description string      // 描述
}

// ExitConvention 工具的退出码约定
type ExitConvention struct {
	SuccessCodes []int
}

// Accepts 退出码是否视为成功
func (c ExitConvention) Accepts(code int) bool {
	for _, sc := range c.SuccessCodes {
		if sc == code {
			return true
		}
	}
	return false
}

// ExitZero 0 即成功
func ExitZero() ExitConvention {
	return ExitConvention{SuccessCodes: []int{0}}
}

// FormatSpec 输出格式变体
type FormatSpec struct {
	Args  []string      // 该格式追加的固定参数
	Parse ParseStrategy // 该格式的解析策略
}

// Backend 工具的执行后端
type Backend string

const (
	BackendProcess Backend = "process" // 本地子进程
	BackendHTTP    Backend = "http"    // 远程 HTTP 接口
)

// ToolSpec 一个工具在目录中的完整条目
type ToolSpec struct {
	Name           ToolName
	MCPName        string   // MCP tools/list 中暴露的名称
	Aliases        []string // MCP 别名
	Description    string
	Category       string
	Binary         string
	Backend        Backend
	Prefix         []string // 紧跟二进制的固定参数，例如子命令
	Options        []OptionSpec
	Fixed          []string // 选项之后、位置参数之前的固定参数
	FormatOption   string   // 控制输出格式的选项名
	Formats        map[string]FormatSpec
	Parse          ParseStrategy // 无格式变体时使用
	Reduce         Reducer       // 解析后的整形，可选
	Exit           ExitConvention
	TargetOption   string        // 批量扫描时展开的选项
	DefaultTimeout time.Duration // 缺省超时，0 表示使用全局配置
}

// Option 按名称查找选项
func (s *ToolSpec) Option(name string) (*OptionSpec, bool) {
	for i := range s.Options {
		if s.Options[i].Name == name {
			return &s.Options[i], true
		}
	}
	return nil, false
}

// StrategyFor 根据输出格式选择解析策略
func (s *ToolSpec) StrategyFor(opts Options) ParseStrategy {
	if s.FormatOption != "" && len(s.Formats) > 0 {
		if f, ok := s.Formats[s.FormatName(opts)]; ok && f.Parse != nil {
			return f.Parse
		}
	}
	return s.Parse
}

// FormatName 当前调用使用的输出格式
func (s *ToolSpec) FormatName(opts Options) string {
	if s.FormatOption == "" {
		return ""
	}
	if v, ok := opts[s.FormatOption].(string); ok && v != "" {
		return v
	}
	if opt, ok := s.Option(s.FormatOption); ok {
		if d, ok := opt.Default.(string); ok {
			return d
		}
	}
	return ""
}

// FormatNames 已声明的输出格式，按名称排序
func (s *ToolSpec) FormatNames() []string {
	names := make([]string, 0, len(s.Formats))
	for k := range s.Formats {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone 浅拷贝，切片字段重新分配，便于覆盖二进制路径等字段
func (s *ToolSpec) Clone() *ToolSpec {
	c := *s
	c.Aliases = append([]string(nil), s.Aliases...)
	c.Prefix = append([]string(nil), s.Prefix...)
	c.Options = append([]OptionSpec(nil), s.Options...)
	c.Fixed = append([]string(nil), s.Fixed...)
	c.Exit.SuccessCodes = append([]int(nil), s.Exit.SuccessCodes...)
	if s.Formats != nil {
		c.Formats = make(map[string]FormatSpec, len(s.Formats))
		for k, v := range s.Formats {
			c.Formats[k] = v
		}
	}
	return &c
}

// Options 调用方传入的选项
type Options map[string]interface{}

// Clone 浅拷贝
func (o Options) Clone() Options {
	c := make(Options, len(o))
	for k, v := range o {
		c[k] = v
	}
	return c
}
