package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DefaultEnvPrefix 环境变量前缀
const DefaultEnvPrefix = "SECOPS"

// ConfigLoader 配置加载器
type ConfigLoader struct {
	configPath string // 配置目录或文件
	envPrefix  string
	viper      *viper.Viper
}

// NewConfigLoader 创建配置加载器
func NewConfigLoader(configPath, envPrefix string) *ConfigLoader {
	if envPrefix == "" {
		envPrefix = DefaultEnvPrefix
	}

	return &ConfigLoader{
		configPath: configPath,
		envPrefix:  envPrefix,
		viper:      viper.New(),
	}
}

// Viper 返回底层 viper 实例，用于绑定命令行参数
func (cl *ConfigLoader) Viper() *viper.Viper {
	return cl.viper
}

// LoadConfig 加载配置
// 配置文件不存在时使用默认值，文件存在但无法解析时报错
func (cl *ConfigLoader) LoadConfig() (*Config, error) {
	// 设置配置文件类型
	cl.viper.SetConfigType("yaml")

	// 设置环境变量前缀
	cl.viper.SetEnvPrefix(cl.envPrefix)
	cl.viper.AutomaticEnv()
	cl.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 绑定环境变量
	cl.bindEnvVars()

	// 设置默认值
	cl.setDefaults()

	// 加载配置文件
	if err := cl.loadConfigFile(); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// 解析配置
	var config Config
	if err := cl.viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 合并独立的自定义工具文件
	if config.Executor != nil && config.Executor.CustomToolsFile != "" {
		extra, err := LoadCustomTools(cl.resolvePath(config.Executor.CustomToolsFile))
		if err != nil {
			return nil, err
		}
		config.Executor.CustomTools = append(config.Executor.CustomTools, extra...)
	}

	// 验证配置
	if err := cl.validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// loadConfigFile 加载配置文件
func (cl *ConfigLoader) loadConfigFile() error {
	if cl.configPath == "" {
		// 尝试从环境变量获取配置文件路径
		if envPath := os.Getenv(cl.envPrefix + "_CONFIG_PATH"); envPath != "" {
			cl.configPath = envPath
		} else {
			// 默认配置文件路径
			cl.configPath = "./configs"
		}
	}

	// 指定了具体文件时直接读取
	if ext := filepath.Ext(cl.configPath); ext == ".yaml" || ext == ".yml" {
		cl.viper.SetConfigFile(cl.configPath)
		return cl.viper.ReadInConfig()
	}

	// 获取环境
	env := cl.getEnvironment()

	// 设置配置文件搜索路径
	cl.viper.AddConfigPath(cl.configPath)
	cl.viper.AddConfigPath("./configs")
	cl.viper.AddConfigPath(".")

	// 尝试加载环境特定的配置文件
	cl.viper.SetConfigName(fmt.Sprintf("config.%s", env))
	err := cl.viper.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if !errors.As(err, &notFound) {
		return err
	}

	// 如果环境特定配置文件不存在，尝试加载默认配置文件
	cl.viper.SetConfigName("config")
	err = cl.viper.ReadInConfig()
	if errors.As(err, &notFound) {
		// 没有配置文件时全部使用默认值
		return nil
	}
	return err
}

// resolvePath 相对路径按配置文件所在目录解析
func (cl *ConfigLoader) resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if used := cl.viper.ConfigFileUsed(); used != "" {
		return filepath.Join(filepath.Dir(used), path)
	}
	return path
}

// getEnvironment 获取运行环境
func (cl *ConfigLoader) getEnvironment() string {
	env := os.Getenv(cl.envPrefix + "_ENV")
	if env == "" {
		env = os.Getenv("GO_ENV")
	}
	if env == "" {
		env = "development"
	}
	return env
}

// bindEnvVars 绑定环境变量
func (cl *ConfigLoader) bindEnvVars() {
	bind := func(key, env string) {
		_ = cl.viper.BindEnv(key, cl.envPrefix+"_"+env)
	}

	// App配置
	bind("app.environment", "APP_ENVIRONMENT")
	bind("app.debug", "APP_DEBUG")

	// 日志配置
	bind("log.level", "LOG_LEVEL")
	bind("log.format", "LOG_FORMAT")
	bind("log.output", "LOG_OUTPUT")
	bind("log.file_path", "LOG_FILE_PATH")

	// Server配置
	bind("server.host", "SERVER_HOST")
	bind("server.port", "SERVER_PORT")
	bind("server.mode", "SERVER_MODE")

	// 执行器配置
	bind("executor.default_timeout", "EXECUTOR_DEFAULT_TIMEOUT")
	bind("executor.max_timeout", "EXECUTOR_MAX_TIMEOUT")
	bind("executor.work_dir", "EXECUTOR_WORK_DIR")

	// 批量扫描
	bind("bulk.concurrency", "BULK_CONCURRENCY")
	bind("bulk.max_targets", "BULK_MAX_TARGETS")

	// ipinfo
	bind("ipinfo.base_url", "IPINFO_BASE_URL")
	bind("ipinfo.token", "IPINFO_TOKEN")
}

// setDefaults 设置默认值
func (cl *ConfigLoader) setDefaults() {
	// App默认值
	cl.viper.SetDefault("app.name", "secops-mcp")
	cl.viper.SetDefault("app.version", "1.0.0")
	cl.viper.SetDefault("app.environment", "development")
	cl.viper.SetDefault("app.debug", false)

	// 日志默认值
	cl.viper.SetDefault("log.level", "info")
	cl.viper.SetDefault("log.format", "text")
	cl.viper.SetDefault("log.output", "stderr")
	cl.viper.SetDefault("log.file_path", "./logs/secops.log")
	cl.viper.SetDefault("log.max_size", 100)
	cl.viper.SetDefault("log.max_backups", 3)
	cl.viper.SetDefault("log.max_age", 28)
	cl.viper.SetDefault("log.compress", true)
	cl.viper.SetDefault("log.caller", false)

	// Server默认值
	cl.viper.SetDefault("server.host", "127.0.0.1")
	cl.viper.SetDefault("server.port", 8088)
	cl.viper.SetDefault("server.mode", "release")
	cl.viper.SetDefault("server.read_timeout", 30)
	cl.viper.SetDefault("server.write_timeout", 3700)
	cl.viper.SetDefault("server.idle_timeout", 60)
	cl.viper.SetDefault("server.max_header_bytes", 1048576)

	// 执行器默认值
	cl.viper.SetDefault("executor.default_timeout", 300)
	cl.viper.SetDefault("executor.max_timeout", 3600)
	cl.viper.SetDefault("executor.work_dir", "")
	cl.viper.SetDefault("executor.max_output_bytes", 16*1024*1024)

	// 批量扫描默认值
	cl.viper.SetDefault("bulk.concurrency", 5)
	cl.viper.SetDefault("bulk.max_targets", 100)

	// MCP默认值
	cl.viper.SetDefault("mcp.server_name", "secops-mcp")
	cl.viper.SetDefault("mcp.server_version", "1.0.0")
	cl.viper.SetDefault("mcp.max_concurrent_calls", 8)

	// ipinfo默认值
	cl.viper.SetDefault("ipinfo.base_url", "https://ipinfo.io")
	cl.viper.SetDefault("ipinfo.timeout", 10)
	cl.viper.SetDefault("ipinfo.max_retries", 2)
}

// validateConfig 验证配置
func (cl *ConfigLoader) validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	exec := config.Executor
	if exec.DefaultTimeout <= 0 {
		return fmt.Errorf("executor.default_timeout must be positive: %d", exec.DefaultTimeout)
	}
	if exec.MaxTimeout < exec.DefaultTimeout {
		return fmt.Errorf("executor.max_timeout (%d) is less than executor.default_timeout (%d)", exec.MaxTimeout, exec.DefaultTimeout)
	}
	if exec.MaxOutputBytes <= 0 {
		return fmt.Errorf("executor.max_output_bytes must be positive")
	}

	if config.Bulk.Concurrency <= 0 {
		return fmt.Errorf("bulk.concurrency must be positive: %d", config.Bulk.Concurrency)
	}
	if config.Bulk.MaxTargets <= 0 {
		return fmt.Errorf("bulk.max_targets must be positive: %d", config.Bulk.MaxTargets)
	}

	for i, tool := range exec.CustomTools {
		if tool.Name == "" {
			return fmt.Errorf("executor.custom_tools[%d]: name is required", i)
		}
		if len(tool.SuccessCodes) == 0 {
			return fmt.Errorf("executor.custom_tools[%d] (%s): success_codes is required", i, tool.Name)
		}
	}

	// 验证目录路径
	if exec.WorkDir != "" {
		if err := os.MkdirAll(exec.WorkDir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", exec.WorkDir, err)
		}
	}

	return nil
}

// GetConfigPath 获取实际使用的配置文件路径，未使用配置文件时返回空
func (cl *ConfigLoader) GetConfigPath() string {
	return cl.viper.ConfigFileUsed()
}

// LoadConfigFromFile 从指定文件加载配置
func LoadConfigFromFile(configFile string) (*Config, error) {
	loader := NewConfigLoader(configFile, DefaultEnvPrefix)
	return loader.LoadConfig()
}
