package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ConfigWatcher 配置文件监听器
//
// 监听配置文件所在目录(编辑器保存时常用 rename 替换文件，直接监听文件会丢失后续事件)，
// 文件变化后防抖重载，新配置校验通过才会替换并通知回调
type ConfigWatcher struct {
	configFile  string
	config      *Config
	watcher     *fsnotify.Watcher
	callbacks   []ConfigChangeCallback
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	reloadDelay time.Duration
	timer       *time.Timer
	onError     func(error)
	loader      *ConfigLoader // 为空时每次重载新建加载器
}

// ConfigChangeCallback 配置变更回调函数
type ConfigChangeCallback func(oldConfig, newConfig *Config) error

// NewConfigWatcher 创建配置监听器，configFile 为实际使用的配置文件
func NewConfigWatcher(configFile string, initial *Config) (*ConfigWatcher, error) {
	if configFile == "" {
		return nil, fmt.Errorf("config file path is empty")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &ConfigWatcher{
		configFile:  configFile,
		config:      initial,
		watcher:     watcher,
		ctx:         ctx,
		cancel:      cancel,
		reloadDelay: 500 * time.Millisecond, // 防抖延迟
		onError:     func(error) {},
	}, nil
}

// SetReloadDelay 设置防抖延迟
func (cw *ConfigWatcher) SetReloadDelay(d time.Duration) {
	cw.reloadDelay = d
}

// UseLoader 重载时复用已绑定命令行参数的加载器，命令行指定的值在热更新后仍然生效
func (cw *ConfigWatcher) UseLoader(loader *ConfigLoader) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.loader = loader
}

// OnError 设置重载失败的处理函数
func (cw *ConfigWatcher) OnError(fn func(error)) {
	if fn != nil {
		cw.onError = fn
	}
}

// Start 启动配置监听
func (cw *ConfigWatcher) Start() error {
	dir := filepath.Dir(cw.configFile)
	if err := cw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch config directory %s: %w", dir, err)
	}

	go cw.watchLoop()
	return nil
}

// Stop 停止配置监听
func (cw *ConfigWatcher) Stop() error {
	cw.cancel()
	cw.mu.Lock()
	if cw.timer != nil {
		cw.timer.Stop()
	}
	cw.mu.Unlock()
	return cw.watcher.Close()
}

// GetConfig 获取当前配置
func (cw *ConfigWatcher) GetConfig() *Config {
	cw.mu.RLock()
	defer cw.mu.RUnlock()
	return cw.config
}

// AddCallback 添加配置变更回调
func (cw *ConfigWatcher) AddCallback(callback ConfigChangeCallback) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

// watchLoop 监听循环
func (cw *ConfigWatcher) watchLoop() {
	for {
		select {
		case <-cw.ctx.Done():
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			cw.handleFileEvent(event)
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.onError(fmt.Errorf("config watcher error: %w", err))
		}
	}
}

// handleFileEvent 处理文件事件
func (cw *ConfigWatcher) handleFileEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(cw.configFile) {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	// 防抖：连续事件只触发最后一次重载
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.timer != nil {
		cw.timer.Stop()
	}
	cw.timer = time.AfterFunc(cw.reloadDelay, func() {
		if cw.ctx.Err() != nil {
			return
		}
		if err := cw.Reload(); err != nil {
			cw.onError(err)
		}
	})
}

// Reload 重新加载配置并按注册顺序执行回调，任一回调失败则保留旧配置
func (cw *ConfigWatcher) Reload() error {
	cw.mu.RLock()
	loader := cw.loader
	cw.mu.RUnlock()
	if loader == nil {
		loader = NewConfigLoader(cw.configFile, DefaultEnvPrefix)
	}

	newConfig, err := loader.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load new config: %w", err)
	}

	cw.mu.RLock()
	oldConfig := cw.config
	callbacks := append([]ConfigChangeCallback(nil), cw.callbacks...)
	cw.mu.RUnlock()

	if oldConfig != nil {
		if err := ValidateConfigChange(oldConfig, newConfig); err != nil {
			return err
		}
	}

	for _, callback := range callbacks {
		if err := callback(oldConfig, newConfig); err != nil {
			return fmt.Errorf("config change callback failed: %w", err)
		}
	}

	cw.mu.Lock()
	cw.config = newConfig
	cw.mu.Unlock()
	return nil
}

// WatchConfig 监听配置变更（便捷函数）
func WatchConfig(configFile string, initial *Config, callback ConfigChangeCallback) (*ConfigWatcher, error) {
	watcher, err := NewConfigWatcher(configFile, initial)
	if err != nil {
		return nil, err
	}

	if callback != nil {
		watcher.AddCallback(callback)
	}

	if err := watcher.Start(); err != nil {
		_ = watcher.watcher.Close()
		return nil, err
	}

	return watcher, nil
}

// ValidateConfigChange 验证配置变更
// 监听地址在运行期不可变更，其余字段允许热更新
func ValidateConfigChange(oldConfig, newConfig *Config) error {
	if oldConfig.Server != nil && newConfig.Server != nil {
		if oldConfig.Server.Host != newConfig.Server.Host || oldConfig.Server.Port != newConfig.Server.Port {
			return fmt.Errorf("server address cannot be changed during runtime")
		}
	}
	return nil
}
