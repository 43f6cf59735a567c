/**
 * 配置管理
 * @author: sun977
 * @date: 2026.02.09
 * @description: 服务配置结构，viper 负责加载，yaml.v3 负责导出
 */
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config 服务配置
type Config struct {
	// 应用配置
	App *AppConfig `yaml:"app" mapstructure:"app"`

	// 日志配置
	Log *LogConfig `yaml:"log" mapstructure:"log"`

	// HTTP 服务配置
	Server *ServerConfig `yaml:"server" mapstructure:"server"`

	// 执行器配置
	Executor *ExecutorConfig `yaml:"executor" mapstructure:"executor"`

	// 批量扫描配置
	Bulk *BulkConfig `yaml:"bulk" mapstructure:"bulk"`

	// MCP 配置
	MCP *MCPConfig `yaml:"mcp" mapstructure:"mcp"`

	// ipinfo 后端配置
	IPInfo *IPInfoConfig `yaml:"ipinfo" mapstructure:"ipinfo"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`               // 应用名称
	Version     string `yaml:"version" mapstructure:"version"`         // 应用版本
	Environment string `yaml:"environment" mapstructure:"environment"` // 运行环境
	Debug       bool   `yaml:"debug" mapstructure:"debug"`             // 调试模式
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`             // 日志级别 (debug/info/warn/error)
	Format     string `yaml:"format" mapstructure:"format"`           // 日志格式 (json/text)
	Output     string `yaml:"output" mapstructure:"output"`           // 日志输出 (stdout/stderr/file)
	FilePath   string `yaml:"file_path" mapstructure:"file_path"`     // 日志文件路径
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"`       // 最大文件大小（MB）
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"` // 最大备份数
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`         // 最大保留天数
	Compress   bool   `yaml:"compress" mapstructure:"compress"`       // 是否压缩
	Caller     bool   `yaml:"caller" mapstructure:"caller"`           // 是否显示调用者信息
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Host           string `yaml:"host" mapstructure:"host"`                         // 监听地址
	Port           int    `yaml:"port" mapstructure:"port"`                         // 监听端口
	Mode           string `yaml:"mode" mapstructure:"mode"`                         // gin 运行模式 (debug/release/test)
	ReadTimeout    int    `yaml:"read_timeout" mapstructure:"read_timeout"`         // 读取超时（秒）
	WriteTimeout   int    `yaml:"write_timeout" mapstructure:"write_timeout"`       // 写入超时（秒），需覆盖最长的工具调用
	IdleTimeout    int    `yaml:"idle_timeout" mapstructure:"idle_timeout"`         // 空闲超时（秒）
	MaxHeaderBytes int    `yaml:"max_header_bytes" mapstructure:"max_header_bytes"` // 最大头部字节数
}

// ExecutorConfig 执行器配置
type ExecutorConfig struct {
	DefaultTimeout  int                `yaml:"default_timeout" mapstructure:"default_timeout"`     // 默认超时（秒）
	MaxTimeout      int                `yaml:"max_timeout" mapstructure:"max_timeout"`             // 超时上限（秒）
	WorkDir         string             `yaml:"work_dir" mapstructure:"work_dir"`                   // 子进程工作目录，空表示继承
	MaxOutputBytes  int64              `yaml:"max_output_bytes" mapstructure:"max_output_bytes"`   // 单个输出流上限
	ToolPaths       map[string]string  `yaml:"tool_paths" mapstructure:"tool_paths"`               // 工具名 -> 二进制路径
	CustomTools     []CustomToolConfig `yaml:"custom_tools" mapstructure:"custom_tools"`           // 自定义工具
	CustomToolsFile string             `yaml:"custom_tools_file" mapstructure:"custom_tools_file"` // 额外的自定义工具文件
}

// CustomToolConfig 以配置方式声明的工具
type CustomToolConfig struct {
	Name           string               `yaml:"name" mapstructure:"name"`
	MCPName        string               `yaml:"mcp_name" mapstructure:"mcp_name"`
	Description    string               `yaml:"description" mapstructure:"description"`
	Binary         string               `yaml:"binary" mapstructure:"binary"`
	Prefix         []string             `yaml:"prefix" mapstructure:"prefix"`
	Fixed          []string             `yaml:"fixed" mapstructure:"fixed"`
	Parse          string               `yaml:"parse" mapstructure:"parse"`       // json_lines/json/lines/pattern
	Pattern        string               `yaml:"pattern" mapstructure:"pattern"`   // parse=pattern 时的命名分组正则
	SuccessCodes   []int                `yaml:"success_codes" mapstructure:"success_codes"`
	Target         string               `yaml:"target" mapstructure:"target"`     // 批量扫描展开的选项
	DefaultTimeout int                  `yaml:"default_timeout" mapstructure:"default_timeout"`
	Options        []CustomOptionConfig `yaml:"options" mapstructure:"options"`
}

// CustomOptionConfig 自定义工具选项
type CustomOptionConfig struct {
	Name        string   `yaml:"name" mapstructure:"name"`
	Flag        string   `yaml:"flag" mapstructure:"flag"`
	Kind        string   `yaml:"kind" mapstructure:"kind"`   // string/int/bool/list/joined/domain/enum
	Style       string   `yaml:"style" mapstructure:"style"` // separate/attached/positional/local
	Required    bool     `yaml:"required" mapstructure:"required"`
	Default     string   `yaml:"default" mapstructure:"default"`
	Separator   string   `yaml:"separator" mapstructure:"separator"`
	Choices     []string `yaml:"choices" mapstructure:"choices"`
	Upper       bool     `yaml:"upper" mapstructure:"upper"`
	Description string   `yaml:"description" mapstructure:"description"`
}

// BulkConfig 批量扫描配置
type BulkConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"` // 默认并发数
	MaxTargets  int `yaml:"max_targets" mapstructure:"max_targets"` // 单次最大目标数
}

// MCPConfig MCP 配置
type MCPConfig struct {
	ServerName         string `yaml:"server_name" mapstructure:"server_name"`
	ServerVersion      string `yaml:"server_version" mapstructure:"server_version"`
	MaxConcurrentCalls int    `yaml:"max_concurrent_calls" mapstructure:"max_concurrent_calls"`
}

// IPInfoConfig ipinfo 后端配置
type IPInfoConfig struct {
	BaseURL    string `yaml:"base_url" mapstructure:"base_url"`
	Token      string `yaml:"token" mapstructure:"token"`
	Timeout    int    `yaml:"timeout" mapstructure:"timeout"`         // 单次请求超时（秒）
	MaxRetries int    `yaml:"max_retries" mapstructure:"max_retries"` // 传输错误重试次数
}

// Dump 导出为 YAML
func (c *Config) Dump() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Save 保存到文件
func (c *Config) Save(path string) error {
	data, err := c.Dump()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// LoadCustomTools 从独立的 YAML 文件读取自定义工具列表
func LoadCustomTools(path string) ([]CustomToolConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read custom tools file: %w", err)
	}
	var doc struct {
		CustomTools []CustomToolConfig `yaml:"custom_tools"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse custom tools file %s: %w", path, err)
	}
	return doc.CustomTools, nil
}
